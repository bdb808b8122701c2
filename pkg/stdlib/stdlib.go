// Package stdlib provides the node library embedded into the binary.
//
// The library holds the definitions and the genosl/genglsl implementations
// of the standard and physically based nodes the generators support. It is
// laid out like a library search-path root, so its files live below a
// top-level "libraries" folder and load with the default library folders.
package stdlib

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"sync"
)

//go:embed libraries
var files embed.FS

// FS returns the embedded library root.
func FS() fs.FS {
	return files
}

var (
	digest     string
	digestOnce sync.Once
)

// Digest returns a hex SHA-256 over the paths and contents of every embedded
// file. It identifies the library version in cache keys and is computed once.
func Digest() string {
	digestOnce.Do(func() {
		h := sha256.New()
		_ = fs.WalkDir(files, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := files.ReadFile(p)
			if err != nil {
				return err
			}
			h.Write([]byte(p))
			h.Write([]byte{0})
			h.Write(data)
			return nil
		})
		digest = hex.EncodeToString(h.Sum(nil))
	})
	return digest
}
