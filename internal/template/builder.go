// Package template materializes request payloads from JSON templates by
// substituting a test identifier.
package template

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"reqdiff/internal/core"
)

// Placeholder is the literal replaced with the identifier anywhere it
// appears in the template.
const Placeholder = "$APPID"

// Builder produces payloads by replacing Placeholder occurrences and/or
// setting the identifier at configured JSON paths.
type Builder struct {
	raw         []byte
	hasLiteral  bool
	injectPaths []string
}

// New creates a Builder from a JSON template. The template must contain the
// placeholder or at least one inject path must be given, otherwise every
// produced payload would be identical and identifiers would be wasted.
func New(raw []byte, injectPaths ...string) (*Builder, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("template is not valid JSON")
	}
	hasLiteral := bytes.Contains(raw, []byte(Placeholder))
	if !hasLiteral && len(injectPaths) == 0 {
		return nil, fmt.Errorf("template contains no %s placeholder and no inject paths are configured", Placeholder)
	}
	for _, p := range injectPaths {
		if p == "" {
			return nil, fmt.Errorf("empty inject path")
		}
	}
	return &Builder{
		raw:         raw,
		hasLiteral:  hasLiteral,
		injectPaths: injectPaths,
	}, nil
}

// FromFile loads the template from disk.
func FromFile(path string, injectPaths ...string) (*Builder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}
	b, err := New(raw, injectPaths...)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return b, nil
}

// Produce substitutes the identifier into a fresh copy of the template.
func (b *Builder) Produce(id string) ([]byte, error) {
	out := b.raw
	if b.hasLiteral {
		out = bytes.ReplaceAll(out, []byte(Placeholder), []byte(id))
	}
	for _, p := range b.injectPaths {
		var err error
		out, err = sjson.SetBytes(out, p, id)
		if err != nil {
			return nil, &core.TemplateError{ID: id, Reason: fmt.Sprintf("setting path %q: %v", p, err)}
		}
	}
	return out, nil
}
