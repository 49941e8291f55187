package graphauth

import (
	"crypto/sha256"
	"encoding/hex"
)

// processedCodeCapacity bounds the replay-guard set. Five entries tolerates
// legitimate redirect retries by the provider without growing with the
// session.
const processedCodeCapacity = 5

// ProcessedCodes is a bounded set of SHA-256 hashes of authorization codes
// already exchanged within one login session. It exists purely for replay
// rejection and is owned by the caller's session layer, not by the token
// core; it is not persisted beyond the session's lifetime.
//
// Not safe for concurrent use: a login session handles one callback at a
// time.
type ProcessedCodes struct {
	hashes []string
}

// Seen reports whether the code was already exchanged in this session.
func (p *ProcessedCodes) Seen(code string) bool {
	h := hashCode(code)
	for _, existing := range p.hashes {
		if existing == h {
			return true
		}
	}
	return false
}

// Add records the code's hash, truncating the set to the last
// processedCodeCapacity entries.
func (p *ProcessedCodes) Add(code string) {
	if p.Seen(code) {
		return
	}
	p.hashes = append(p.hashes, hashCode(code))
	if len(p.hashes) > processedCodeCapacity {
		p.hashes = p.hashes[len(p.hashes)-processedCodeCapacity:]
	}
}

// Len returns the number of remembered codes.
func (p *ProcessedCodes) Len() int {
	return len(p.hashes)
}

func hashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}
