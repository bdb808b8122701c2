package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds "<kind>:<sha256>" from the JSON encoding of the key
// components, so struct options such as [ShaderKeyOpts] take part field by
// field.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashParts returns the hex SHA-256 of parts, each prefixed with its length.
// Unlike hashing a concatenation, moving bytes from one part to the next
// changes the result. Document and library hashes are built with it from
// names, serialized definitions and implementation sources.
func HashParts(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
