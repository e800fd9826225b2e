// Package script reads YAML operation scripts and replays them against an
// ordered map.
//
// A script is a list of operations:
//
//	name: fixture
//	ops:
//	  - {op: insert, key: 10, value: ten}
//	  - {op: remove, key: 20, expect: missing}
//	  - {op: get, key: 10, expect: found}
//	  - {op: check}
//
// Every document is checked against an embedded JSON schema before it is
// decoded.
package script

import (
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Operation names.
const (
	OpInsert = "insert"
	OpRemove = "remove"
	OpGet    = "get"
	OpFind   = "find"
	OpCeil   = "ceil"
	OpCheck  = "check"
	OpDump   = "dump"
)

// Expectations an operation may carry.
const (
	ExpectFound   = "found"
	ExpectMissing = "missing"
)

var (
	// ErrInvalidScript is returned for documents that fail schema validation.
	ErrInvalidScript = errors.New("invalid script")
	// ErrUnknownOp is returned when running an operation with an unknown name.
	ErrUnknownOp = errors.New("unknown operation")
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema scripts are validated against.
func Schema() []byte {
	return schemaJSON
}

// Script is a named sequence of operations.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Ops         []Op   `yaml:"ops"`
}

// Op is a single operation. Key is required for insert, remove, get, find
// and ceil; Value only for insert. Find matches the key exactly, ceil lands
// on the smallest key not below it.
type Op struct {
	Key    *int64 `yaml:"key"`
	Op     string `yaml:"op"`
	Value  string `yaml:"value"`
	Expect string `yaml:"expect"`
}

// Issue is one schema violation.
type Issue struct {
	Field       string
	Description string
}

func (i Issue) String() string {
	return i.Field + ": " + i.Description
}

// Validate checks a YAML document against the script schema. It returns the
// schema violations; the error is reserved for unreadable documents.
func Validate(data []byte) ([]Issue, error) {
	var document any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if document == nil {
		return []Issue{{Field: "(root)", Description: "document is empty"}}, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	issues := make([]Issue, 0, len(result.Errors()))

	for _, resultErr := range result.Errors() {
		issues = append(issues, Issue{Field: resultErr.Field(), Description: resultErr.Description()})
	}

	return issues, nil
}

// Parse validates and decodes a YAML script.
func Parse(data []byte) (*Script, error) {
	issues, err := Validate(data)
	if err != nil {
		return nil, err
	}

	if len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s (and %d more)", ErrInvalidScript, issues[0], len(issues)-1)
	}

	var script Script

	err = yaml.Unmarshal(data, &script)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	return &script, nil
}

// Read parses a script from r.
func Read(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return Parse(data)
}

//go:embed fixture.yaml
var fixtureYAML []byte

// Fixture returns the built-in twelve-key insertion script.
func Fixture() *Script {
	script, err := Parse(fixtureYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded fixture: %v", err))
	}

	return script
}
