package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeStart   = "START"
	TypeControl = "CONTROL"
	TypeStarted = "RUN_STARTED"
	TypeTick    = "TICK"
	TypeSummary = "SUMMARY"
	TypeError   = "ERROR"
)

// Control commands accepted by a running simulation.
const (
	CmdPause    = "PAUSE"
	CmdResume   = "RESUME"
	CmdStop     = "STOP"
	CmdStep     = "STEP"
	CmdSetSpeed = "SET_SPEED"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
