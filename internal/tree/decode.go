package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"medtree/internal/model"
)

const schemaURL = "https://medtree.local/schema/learning-node.json"

const learningNodeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "children"],
  "properties": {
    "name": {"type": "string"},
    "children": {"type": "array", "items": {"$ref": "#"}}
  }
}`

var ErrMalformedJSON = errors.New("model output is not valid json")

// SchemaError reports LLM output that parsed as JSON but is not a learning
// tree. Path is a JSON pointer to the first offending value.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("learning tree schema violation at %s: %s", e.Path, e.Reason)
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func nodeSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(learningNodeSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse learning node schema failed: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add learning node schema failed: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// Decode parses raw model output into a LearningNode. A surrounding markdown
// code fence is tolerated; anything else that is not a {name, children} tree
// at every depth is rejected.
func Decode(raw []byte) (*model.LearningNode, error) {
	body := bytes.TrimSpace(raw)
	if m := codeFenceRe.FindSubmatch(body); len(m) > 1 {
		body = m[1]
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedJSON)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedJSON, err, truncate(string(body), 200))
	}

	schema, err := nodeSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(inst); err != nil {
		var vErr *jsonschema.ValidationError
		if errors.As(err, &vErr) {
			return nil, schemaErrorFrom(vErr)
		}
		return nil, &SchemaError{Path: "/", Reason: err.Error()}
	}

	var node model.LearningNode
	if err := json.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return &node, nil
}

// schemaErrorFrom reports the deepest cause, which names the actual
// offending value rather than the enclosing "$ref" failures.
func schemaErrorFrom(vErr *jsonschema.ValidationError) *SchemaError {
	leaf := vErr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	path := "/" + strings.Join(leaf.InstanceLocation, "/")
	reason := leaf.Error()
	if leaf.ErrorKind != nil {
		reason = leaf.ErrorKind.LocalizedString(message.NewPrinter(language.English))
	}
	return &SchemaError{Path: path, Reason: reason}
}

// truncate caps s at n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
