package interchange

import (
	_ "embed"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

//go:embed document.cue
var schemaCUE string

// decodeCUE unifies the input with #Document. The definition is closed, so
// unknown fields fail like they do against the JSON schema.
func decodeCUE(data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("document.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(err, "compile document schema")
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))

	input := ctx.CompileBytes(data, cue.Filename("document-input.cue"))
	if err := input.Err(); err != nil {
		return nil, errors.Invalidf("invalid CUE: %v", err)
	}

	v := def.Unify(input)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, errors.Invalidf("document does not match schema: %v", err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, errors.Invalidf("decode CUE: %v", err)
	}
	if !input.LookupPath(cue.ParsePath("flags.directed")).Exists() {
		doc.Flags.Directed = model.DefaultFlags().Directed
	}
	return &doc, nil
}
