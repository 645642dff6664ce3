// Package observer exposes hosted runs to read-only spectators. The run
// server publishes every outbound run message into the hub; subscribers get
// a best-effort copy with slow consumers dropping frames, never blocking
// the run itself.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"croftsim/internal/observerproto"
)

type Server struct {
	defsDigest string
	log        *log.Logger
	upgrader   websocket.Upgrader

	mu     sync.Mutex
	active map[string]observerproto.ActiveRun
	subs   map[*subscriber]struct{}
}

type subscriber struct {
	out chan []byte

	mu    sync.Mutex
	runID string // empty: all runs
}

func NewServer(defsDigest string, logger *log.Logger) *Server {
	return &Server{
		defsDigest: defsDigest,
		log:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		active: map[string]observerproto.ActiveRun{},
		subs:   map[*subscriber]struct{}{},
	}
}

// RunStarted and RunEnded keep the bootstrap listing current.
func (s *Server) RunStarted(run observerproto.ActiveRun) {
	s.mu.Lock()
	s.active[run.RunID] = run
	s.mu.Unlock()
}

func (s *Server) RunEnded(runID string) {
	s.mu.Lock()
	delete(s.active, runID)
	s.mu.Unlock()
}

// Publish fans one outbound run message out to every matching subscriber.
// Full subscriber queues drop the oldest frame so the publisher never waits.
func (s *Server) Publish(runID string, msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.mu.Lock()
		want := sub.runID
		sub.mu.Unlock()
		if want != "" && want != runID {
			continue
		}
		select {
		case sub.out <- msg:
		default:
			select {
			case <-sub.out:
			default:
			}
			sub.out <- msg
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.Lock()
		runs := make([]observerproto.ActiveRun, 0, len(s.active))
		for _, run := range s.active {
			runs = append(runs, run)
		}
		s.mu.Unlock()
		sort.Slice(runs, func(i, j int) bool { return runs[i].RunID < runs[j].RunID })

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			DefsDigest:      s.defsDigest,
			ActiveRuns:      runs,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, err := observerproto.DecodeSubscribe(msg)
		if err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		client := &subscriber{out: make(chan []byte, 256), runID: sub.RunID}
		s.mu.Lock()
		s.subs[client] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.subs, client)
			s.mu.Unlock()
		}()

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine: sole owner of websocket writes.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-client.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates to switch runs.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			update, err := observerproto.DecodeSubscribe(msg)
			if err != nil || update.Type != "SUBSCRIBE" || update.ProtocolVersion != observerproto.Version {
				continue
			}
			client.mu.Lock()
			client.runID = update.RunID
			client.mu.Unlock()
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
