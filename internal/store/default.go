package store

import (
	_ "embed"
	"fmt"

	"github.com/keyfold/keyfold/internal/tree"
)

// The bundled default document, written out verbatim on first launch when
// no config file exists yet.
//
//go:embed default.json
var defaultDocument []byte

// DefaultTree decodes the bundled default document into a fresh tree.
// Each call returns an independent copy with new transient identities.
func DefaultTree() *tree.Node {
	root, err := tree.Decode(defaultDocument)
	if err != nil {
		// The document is embedded at build time; failing to decode it is
		// a programming error, not a runtime condition.
		panic(fmt.Sprintf("store: embedded default document is invalid: %v", err))
	}
	return root
}
