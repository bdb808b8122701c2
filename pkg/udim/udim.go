// Package udim expands documents that reference UDIM texture tiles.
//
// A UDIM tile number encodes a unit square of texture space: 1001 is
// (0, 0), 1002 is (1, 0) and 1011 is (0, 1). Filenames refer to the tile set
// with the token "<UDIM>", and the document lists the tiles in a "udimset"
// geomprop or attribute.
package udim

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
)

// Token is the placeholder replaced by a tile number in filenames.
const Token = "<UDIM>"

var (
	// ErrNoUDIMs is returned by Expand when the document has no tile set or
	// no filename uses the token.
	ErrNoUDIMs = errors.New("no udims")

	// ErrInvalidUDIM is returned for tile identifiers that are not numbers
	// of at least 1001.
	ErrInvalidUDIM = errors.New("invalid udim")
)

// Tile is one expanded copy of a document.
type Tile struct {
	UDIM     string
	Document *mtlx.Document
}

// Set returns the tile identifiers declared by doc, first from a geominfo
// "udimset" geomprop, else from the document's udimset attribute.
// Duplicates are dropped.
func Set(doc *mtlx.Document) []string {
	raw := doc.GeomProp(mtlx.AttrUDIMSet)
	if raw == "" {
		raw = doc.Root().Attr(mtlx.AttrUDIMSet)
	}
	var out []string
	seen := make(map[string]bool)
	for _, u := range mtlx.SplitList(raw) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// HasToken reports whether any filename in doc outside imported libraries
// contains Token.
func HasToken(doc *mtlx.Document) bool {
	found := false
	for _, e := range doc.LocalElements() {
		e.Walk(func(c *mtlx.Element) bool {
			if isTokenFile(c) {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

func isTokenFile(e *mtlx.Element) bool {
	return e.Type() == mtlx.TypeFilename && strings.Contains(e.ValueString(), Token)
}

// Expand returns one copy of doc per declared tile with Token replaced by
// the tile number in every filename value.
func Expand(doc *mtlx.Document) ([]Tile, error) {
	set := Set(doc)
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: document declares no udimset", ErrNoUDIMs)
	}
	if !HasToken(doc) {
		return nil, fmt.Errorf("%w: no filename contains %s", ErrNoUDIMs, Token)
	}
	for _, u := range set {
		if _, _, err := Coordinates(u); err != nil {
			return nil, err
		}
	}

	tiles := make([]Tile, 0, len(set))
	for _, u := range set {
		cp := doc.Copy()
		for _, e := range cp.LocalElements() {
			e.Walk(func(c *mtlx.Element) bool {
				if isTokenFile(c) {
					c.SetAttr(mtlx.AttrValue, strings.ReplaceAll(c.ValueString(), Token, u))
				}
				return true
			})
		}
		tiles = append(tiles, Tile{UDIM: u, Document: cp})
	}
	return tiles, nil
}

// Coordinates returns the integer texture-space offset of a tile.
func Coordinates(udim string) (u, v int, err error) {
	n, err := strconv.Atoi(strings.TrimSpace(udim))
	if err != nil || n < 1001 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidUDIM, udim)
	}
	idx := n - 1001
	return idx % 10, idx / 10, nil
}

// ScaleAndOffset returns the transform that maps the texture coordinates
// covered by udims into the unit square: uv' = (uv + offset) * scale.
func ScaleAndOffset(udims []string) (scale, offset [2]float64, err error) {
	if len(udims) == 0 {
		return [2]float64{1, 1}, [2]float64{}, nil
	}
	lo := [2]float64{math.Inf(1), math.Inf(1)}
	hi := [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, udim := range udims {
		u, v, err := Coordinates(udim)
		if err != nil {
			return scale, offset, err
		}
		lo[0], lo[1] = math.Min(lo[0], float64(u)), math.Min(lo[1], float64(v))
		hi[0], hi[1] = math.Max(hi[0], float64(u+1)), math.Max(hi[1], float64(v+1))
	}
	scale = [2]float64{1 / (hi[0] - lo[0]), 1 / (hi[1] - lo[1])}
	offset = [2]float64{-lo[0], -lo[1]}
	return scale, offset, nil
}

// ShaderName returns the name of the shader generated for a tile.
func ShaderName(element, udim string) string {
	return element + "_" + udim
}
