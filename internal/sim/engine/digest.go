package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// stateDigest hashes the canonical JSON encoding of the full game state plus
// the tick counter. encoding/json sorts map keys, so the encoding is stable.
func (e *Engine) stateDigest(now uint64) string {
	h := sha256.New()
	var tick [8]byte
	binary.BigEndian.PutUint64(tick[:], now)
	h.Write(tick[:])

	b, err := json.Marshal(e.s)
	if err != nil {
		// Should be unreachable: GameState contains only encodable types.
		return ""
	}
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
