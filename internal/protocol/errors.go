package protocol

const (
	// Transport/handshake validation.
	ErrProtoBadRequest    = "E_PROTO_BAD_REQUEST"
	ErrUnsupportedVersion = "E_UNSUPPORTED_VERSION"

	// Run lifecycle.
	ErrUnknownPersona = "E_UNKNOWN_PERSONA"
	ErrRunActive      = "E_RUN_ACTIVE"
	ErrNoRun          = "E_NO_RUN"
	ErrBadCommand     = "E_BAD_COMMAND"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:    {},
	ErrUnsupportedVersion: {},
	ErrUnknownPersona:     {},
	ErrRunActive:          {},
	ErrNoRun:              {},
	ErrBadCommand:         {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
