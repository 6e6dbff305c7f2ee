package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	keyPrefix    = "sparql"
	keySeparator = ":"
)

// Key derives the cache key of one endpoint request. Whitespace runs in the
// query are collapsed so reformatted templates hit the same entry; case is
// kept because IRIs are case-sensitive.
func Key(method, endpoint, query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{0})
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return keyPrefix + keySeparator + hex.EncodeToString(h.Sum(nil))
}
