package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"croftsim/internal/protocol"
	"croftsim/internal/sim/defs"
	"croftsim/internal/sim/engine"
	"croftsim/internal/sim/persona"
	"croftsim/internal/sim/tuning"
)

// Server hosts simulation runs over websocket. Each connection owns at most
// one active run; the run engine is fully isolated and everything crossing
// this boundary is a serialized protocol message.
type Server struct {
	defs     *defs.Set
	tune     tuning.Tuning
	personas map[string]persona.Persona
	log      *log.Logger

	// NewRecorder, when set, supplies a per-run tick logger (closed via the
	// returned func when the run ends).
	NewRecorder func(runID string) (engine.TickLogger, func(), error)
	// OnStart and OnSummary, when set, observe the run lifecycle.
	OnStart   func(runID string, rc protocol.RunConfig)
	OnSummary func(sum *protocol.SummaryMsg)
	// Publish, when set, receives a copy of every outbound run message
	// (ticks and the summary) for read-only observers. It must not block.
	Publish func(runID string, msg []byte)

	upgrader websocket.Upgrader
}

func NewServer(set *defs.Set, tune tuning.Tuning, personas map[string]persona.Persona, logger *log.Logger) *Server {
	return &Server{
		defs:     set,
		tune:     tune,
		personas: personas,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// conn is the per-connection state: the outbound message queue plus the
// active run, if any.
type conn struct {
	out chan []byte

	mu     sync.Mutex
	run    *engine.Engine
	cancel context.CancelFunc
}

func (c *conn) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
		// Slow consumer: drop the oldest queued message.
		select {
		case <-c.out:
		default:
		}
		c.out <- b
	}
}

func (c *conn) sendError(code, format string, args ...any) {
	c.send(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         fmt.Sprintf(format, args...),
	})
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer wsConn.Close()

		c := &conn{out: make(chan []byte, 256)}
		if !s.handshake(wsConn, c) {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: sole owner of websocket writes.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-c.out:
					if !ok {
						return
					}
					_ = wsConn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := wsConn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = wsConn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := wsConn.ReadMessage()
			if err != nil {
				break
			}
			s.dispatch(ctx, c, msg)
		}

		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Unlock()
	}
}

func (s *Server) handshake(wsConn *websocket.Conn, c *conn) bool {
	_ = wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		return false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unsupported protocol_version"),
			time.Now().Add(time.Second))
		return false
	}

	names := make([]string, 0, len(s.personas))
	for name := range s.personas {
		names = append(names, name)
	}
	sort.Strings(names)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		DefsDigest:      s.defs.Digest,
		TuningDigest:    s.tune.Digest,
		Personas:        names,
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return false
	}
	_ = wsConn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return wsConn.WriteMessage(websocket.TextMessage, b) == nil
}

func (s *Server) dispatch(ctx context.Context, c *conn, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		c.sendError(protocol.ErrProtoBadRequest, "unparseable message")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		c.sendError(protocol.ErrUnsupportedVersion, "protocol_version %q not supported", base.ProtocolVersion)
		return
	}

	switch base.Type {
	case protocol.TypeStart:
		var start protocol.StartMsg
		if err := json.Unmarshal(msg, &start); err != nil {
			c.sendError(protocol.ErrProtoBadRequest, "bad START payload")
			return
		}
		s.startRun(ctx, c, start.Run)

	case protocol.TypeControl:
		var ctl protocol.ControlMsg
		if err := json.Unmarshal(msg, &ctl); err != nil {
			c.sendError(protocol.ErrProtoBadRequest, "bad CONTROL payload")
			return
		}
		s.control(c, ctl)

	default:
		c.sendError(protocol.ErrProtoBadRequest, "unexpected message type %q", base.Type)
	}
}

func (s *Server) startRun(ctx context.Context, c *conn, rc protocol.RunConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != nil {
		c.sendError(protocol.ErrRunActive, "a run is already active on this connection")
		return
	}

	personaName := rc.Persona
	if personaName == "" {
		personaName = "casual"
	}
	p, ok := s.personas[personaName]
	if !ok {
		c.sendError(protocol.ErrUnknownPersona, "unknown persona %q", personaName)
		return
	}

	runID := uuid.NewString()
	cfg := engine.Config{
		RunID:   runID,
		Seed:    rc.Seed,
		MaxDays: rc.MaxDays,
		Speed:   rc.Speed,
		Paused:  rc.Paused,
		Defs:    s.defs,
		Persona: p,
		Tune:    s.tune,
		Logger:  s.log,
	}

	var closeRecorder func()
	if s.NewRecorder != nil {
		rec, closeFn, err := s.NewRecorder(runID)
		if err != nil {
			s.log.Printf("run %s: recorder unavailable: %v", runID, err)
		} else {
			cfg.TickLogger = rec
			closeRecorder = closeFn
		}
	}

	eng, err := engine.New(cfg)
	if err != nil {
		c.sendError(protocol.ErrInternal, "engine: %v", err)
		if closeRecorder != nil {
			closeRecorder()
		}
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.run = eng
	c.cancel = cancel

	c.send(protocol.StartedMsg{
		Type:            protocol.TypeStarted,
		ProtocolVersion: protocol.Version,
		RunID:           runID,
		Seed:            rc.Seed,
		Persona:         personaName,
		MaxDays:         rc.MaxDays,
		DefsDigest:      s.defs.Digest,
	})
	s.log.Printf("run %s started: seed=%d persona=%s", runID, rc.Seed, personaName)
	if s.OnStart != nil {
		rc.Persona = personaName
		s.OnStart(runID, rc)
	}

	go func() {
		_ = eng.Run(runCtx)
	}()
	go func() {
		for b := range eng.Out() {
			if s.Publish != nil {
				s.Publish(runID, b)
			}
			select {
			case c.out <- b:
			case <-runCtx.Done():
				// Connection gone; keep draining so the engine can finish
				// its send sequence and close the channel.
			}
		}
		if sum := eng.Summary(); sum != nil {
			s.log.Printf("run %s finished: reason=%s ticks=%d", runID, sum.Reason, sum.TotalTicks)
			if s.OnSummary != nil {
				s.OnSummary(sum)
			}
		}
		if closeRecorder != nil {
			closeRecorder()
		}
		cancel()
		c.mu.Lock()
		c.run = nil
		c.cancel = nil
		c.mu.Unlock()
	}()
}

func (s *Server) control(c *conn, ctl protocol.ControlMsg) {
	switch ctl.Command {
	case protocol.CmdPause, protocol.CmdResume, protocol.CmdStop, protocol.CmdStep, protocol.CmdSetSpeed:
	default:
		c.sendError(protocol.ErrBadCommand, "unknown command %q", ctl.Command)
		return
	}

	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run == nil {
		c.sendError(protocol.ErrNoRun, "no active run")
		return
	}
	select {
	case run.Ctrl() <- ctl:
	default:
		// Control queue full; commands are safe to drop because the tick
		// loop re-reads state at every boundary.
	}
}
