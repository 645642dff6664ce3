// Command watch connects to a simulation host, starts a run, and streams
// its progress to the terminal: one line per simulated day plus notable
// events, ending with the run summary.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"croftsim/internal/protocol"
)

func main() {
	var (
		url         = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		seed        = flag.Int64("seed", 1, "run seed")
		personaName = flag.String("persona", "casual", "persona name")
		maxDays     = flag.Int("max_days", 0, "max days cap (0: persona target)")
		speed       = flag.Int("speed", 240, "ticks per host callback")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "watch",
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteJSON(protocol.ControlMsg{
			Type:            protocol.TypeControl,
			ProtocolVersion: protocol.Version,
			Command:         protocol.CmdStop,
		})
	}()

	lastDay := -1
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("connected: defs=%.12s personas=%v", w.DefsDigest, w.Personas)
			start := protocol.StartMsg{
				Type:            protocol.TypeStart,
				ProtocolVersion: protocol.Version,
				Run: protocol.RunConfig{
					Seed:    *seed,
					MaxDays: *maxDays,
					Persona: *personaName,
					Speed:   *speed,
				},
			}
			if err := conn.WriteJSON(start); err != nil {
				logger.Fatalf("send START: %v", err)
			}

		case protocol.TypeStarted:
			var s protocol.StartedMsg
			if err := json.Unmarshal(msg, &s); err != nil {
				continue
			}
			logger.Printf("run %s: seed=%d persona=%s max_days=%d", s.RunID, s.Seed, s.Persona, s.MaxDays)

		case protocol.TypeTick:
			var tick protocol.TickMsg
			if err := json.Unmarshal(msg, &tick); err != nil {
				continue
			}
			for _, w := range tick.Warnings {
				logger.Printf("day %d: warning: %s", tick.Clock.Day, w)
			}
			if tick.Clock.Day != lastDay {
				lastDay = tick.Clock.Day
				logger.Printf("day %d: phase=%s gold=%d level=%d plots=%d stuck=%v",
					tick.Clock.Day, tick.State.Phase, tick.State.Gold,
					tick.State.Level, tick.State.FarmPlots, tick.Stuck)
			}

		case protocol.TypeSummary:
			var sum protocol.SummaryMsg
			if err := json.Unmarshal(msg, &sum); err != nil {
				continue
			}
			logger.Printf("done: %s after %d days (%d ticks), final phase %s",
				sum.Reason, sum.Days, sum.TotalTicks, sum.FinalPhase)
			if sum.Diagnostic != nil {
				logger.Printf("diagnostic: %s: %s", sum.Diagnostic.Subsystem, sum.Diagnostic.Message)
			}
			return

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Fatalf("host error %s: %s", e.Code, e.Message)
		}
	}
}
