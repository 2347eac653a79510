package httpx

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"
)

var idSeq atomic.Uint64

// genID returns a random 32-hex request identifier.
func genID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	// Fallback to timestamp plus a sequence number if rand fails (unlikely)
	return strconv.FormatInt(time.Now().UnixNano(), 16) + "-" + strconv.FormatUint(idSeq.Add(1), 16)
}
