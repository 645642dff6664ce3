// Package log records run output as compressed JSONL: one tick message per
// line, one file per run.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"croftsim/internal/protocol"
)

// TickRecorder appends tick messages to <baseDir>/<runID>.jsonl.zst.
type TickRecorder struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewTickRecorder(baseDir, runID string) (*TickRecorder, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(baseDir, fmt.Sprintf("%s.jsonl.zst", runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TickRecorder{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (r *TickRecorder) WriteTick(msg protocol.TickMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return errors.New("tick recorder closed")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

func (r *TickRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	var firstErr error
	if err := r.w.Flush(); err != nil {
		firstErr = err
	}
	if err := r.enc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	r.w = nil
	r.enc = nil
	r.f = nil
	return firstErr
}

// TickReader streams a recorded run back, in order.
type TickReader struct {
	f   *os.File
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

func OpenTickReader(path string) (*TickReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	return &TickReader{f: f, dec: dec, sc: sc}, nil
}

// Next returns the next tick message, or io.EOF after the last one.
func (r *TickReader) Next() (protocol.TickMsg, error) {
	var msg protocol.TickMsg
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return msg, err
		}
		return msg, io.EOF
	}
	if err := json.Unmarshal(r.sc.Bytes(), &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (r *TickReader) Close() error {
	r.dec.Close()
	return r.f.Close()
}
