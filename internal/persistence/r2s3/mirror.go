package r2s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of the mirror's queue and upload counters.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Enqueued      uint64
	Dropped       uint64
	Uploaded      uint64
	Failed        uint64
	LastSuccess   int64
	LastFailure   int64
}

// Mirror uploads recordings under root through a small pool of background
// workers. Object keys are the path relative to root, under prefix. Enqueue
// never stalls run teardown: when the queue is full it waits one grace
// period and then drops the file, counting the drop.
type Mirror struct {
	client *Client
	root   string
	prefix string
	log    *log.Logger

	queue chan string
	grace time.Duration
	wg    sync.WaitGroup

	enqueued atomic.Uint64
	dropped  atomic.Uint64
	uploads  atomic.Uint64
	failures atomic.Uint64
	lastOK   atomic.Int64
	lastErr  atomic.Int64
}

func NewMirror(client *Client, root, prefix string, workers, queueSize int, grace time.Duration, logger *log.Logger) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 2048
	}
	if grace <= 0 {
		grace = 25 * time.Millisecond
	}
	m := &Mirror{
		client: client,
		root:   root,
		prefix: strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		log:    logger,
		queue:  make(chan string, queueSize),
		grace:  grace,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for p := range m.queue {
				m.upload(p)
			}
		}()
	}
	return m
}

// Enqueue queues localPath for upload. Safe on a nil mirror.
func (m *Mirror) Enqueue(localPath string) {
	if m == nil || m.client == nil {
		return
	}
	m.enqueued.Add(1)

	select {
	case m.queue <- localPath:
		return
	default:
	}

	t := time.NewTimer(m.grace)
	defer t.Stop()
	select {
	case m.queue <- localPath:
	case <-t.C:
		n := m.dropped.Add(1)
		m.printf("mirror drop local=%s dropped_total=%d", localPath, n)
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.queue)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(m.queue),
		QueueCapacity: cap(m.queue),
		Enqueued:      m.enqueued.Load(),
		Dropped:       m.dropped.Load(),
		Uploaded:      m.uploads.Load(),
		Failed:        m.failures.Load(),
		LastSuccess:   m.lastOK.Load(),
		LastFailure:   m.lastErr.Load(),
	}
}

func (m *Mirror) upload(localPath string) {
	key, err := m.keyFor(localPath)
	if err != nil {
		m.printf("mirror skip local=%s err=%v", localPath, err)
		return
	}

	const attempts = 4
	var lastErr error
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		lastErr = m.client.PutFile(ctx, key, localPath)
		cancel()
		if lastErr == nil {
			m.uploads.Add(1)
			m.lastOK.Store(time.Now().UTC().Unix())
			m.printf("mirror uploaded key=%s", key)
			return
		}
		if i < attempts {
			time.Sleep(time.Duration(i*i) * 200 * time.Millisecond)
		}
	}
	m.failures.Add(1)
	m.lastErr.Store(time.Now().UTC().Unix())
	m.printf("mirror upload failed key=%s err=%v", key, lastErr)
}

// keyFor maps a local recording path to its object key. Paths outside root
// are refused.
func (m *Mirror) keyFor(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(m.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, absRoot)
	}
	if m.prefix == "" {
		return rel, nil
	}
	return path.Join(m.prefix, rel), nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}
