// Package observerproto is the read-only spectator protocol: observers
// subscribe to runs hosted on this process and receive the same TICK and
// SUMMARY messages the controlling client gets, without any ability to
// start or steer a run.
package observerproto

import "encoding/json"

const Version = "1.0"

// SubscribeMsg selects which run's messages the observer receives. An empty
// RunID subscribes to every active run.
type SubscribeMsg struct {
	Type            string `json:"type"` // "SUBSCRIBE"
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id,omitempty"`
}

// BootstrapResponse is served over plain HTTP so an observer can discover
// active runs before opening the websocket.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	DefsDigest      string      `json:"defs_digest"`
	ActiveRuns      []ActiveRun `json:"active_runs"`
}

type ActiveRun struct {
	RunID   string `json:"run_id"`
	Seed    int64  `json:"seed"`
	Persona string `json:"persona"`
}

func DecodeSubscribe(b []byte) (SubscribeMsg, error) {
	var m SubscribeMsg
	err := json.Unmarshal(b, &m)
	return m, err
}
