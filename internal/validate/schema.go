package validate

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// DocumentError reports a schema violation in the raw document, with CUE
// source position when one is available.
type DocumentError struct {
	Message string
	Pos     token.Pos
}

func (e *DocumentError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// The schema is compiled once; cue.Value is immutable and safe to share.
var (
	schemaOnce sync.Once
	schemaRoot cue.Value
	schemaErr  error
)

func compiledSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile document schema: %w", err)
			return
		}
		schemaRoot = v.LookupPath(cue.ParsePath("#Root"))
		if err := schemaRoot.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Root in document schema: %w", err)
		}
	})
	return schemaRoot, schemaErr
}

// CheckDocument validates raw document bytes against the embedded schema.
// JSON is a subset of CUE, so the document is compiled directly and unified
// with #Root. A nil return means the document is structurally sound; decode
// can still fail only on conditions the schema does not express.
func CheckDocument(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	ctx := schema.Context()
	doc := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError extracts the first positioned error from a CUE error list.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	docErr := &DocumentError{Message: first.Error()}
	if len(positions) > 0 {
		docErr.Pos = positions[0]
	}
	return docErr
}
