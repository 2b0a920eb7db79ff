package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintContentLimit is how many runes of content take part in the
// fingerprint.
const fingerprintContentLimit = 500

// Fingerprint is the dedup key of an item: hex SHA-256 over
// url|title|first 500 runes of content.
func Fingerprint(url, title, content string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(title))
	h.Write([]byte("|"))
	h.Write([]byte(prefixRunes(content, fingerprintContentLimit)))
	return hex.EncodeToString(h.Sum(nil))
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
