// Package config implements the layered configuration model of the backup
// pipeline: a nested YAML document with dotted-path lookups and symbolic
// ${path} references, merged with built-in defaults into a resolved,
// validated run configuration.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

var (
	// ErrPathNotFound signals that a dotted path does not lead to a node.
	ErrPathNotFound = errors.New("path not found")

	// ErrUnresolvedField signals that a path resolved to a missing value.
	// Empty strings and boolean false are legitimate resolved values;
	// only nil/absent terminals trigger this error.
	ErrUnresolvedField = errors.New("unresolved field")

	// ErrReferenceCycle signals that ${...} references form a loop.
	ErrReferenceCycle = errors.New("reference cycle")
)

// referencePattern matches a scalar of the form ${dotted.path}.
var referencePattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// Document is a nested string-keyed configuration tree loaded from YAML.
// Values are scalars, sequences, or nested mappings.
type Document struct {
	root map[string]interface{}
}

// ParseDocument decodes a YAML mapping into a Document.
func ParseDocument(data []byte) (*Document, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("cannot decode configuration document: %w", err)
	}
	if root == nil {
		root = make(map[string]interface{})
	}
	return &Document{root: root}, nil
}

// NewDocument wraps an already-built mapping.
func NewDocument(root map[string]interface{}) *Document {
	if root == nil {
		root = make(map[string]interface{})
	}
	return &Document{root: root}
}

// Get navigates a dotted path through nested mappings and returns the node
// it leads to. Every missing segment fails with ErrPathNotFound.
func (d *Document) Get(path string) (interface{}, error) {
	segments := strings.Split(path, ".")
	var current interface{} = d.root
	for i, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(segments[:i+1], "."))
		}
		value, ok := node[segment]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(segments[:i+1], "."))
		}
		current = value
	}
	return current, nil
}

// Set assigns a value at a dotted path. The parent of the final segment must
// already exist; Set never creates intermediate nodes.
func (d *Document) Set(path string, value interface{}) error {
	segments := strings.Split(path, ".")
	parent := d.root
	for i := 0; i < len(segments)-1; i++ {
		child, ok := parent[segments[i]]
		if !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(segments[:i+1], "."))
		}
		node, ok := child.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(segments[:i+1], "."))
		}
		parent = node
	}
	parent[segments[len(segments)-1]] = value
	return nil
}

// Attach sets a top-level key to a nested mapping. It is used to publish
// derived sub-structures (the generated node) into the document.
func (d *Document) Attach(key string, node map[string]interface{}) {
	d.root[key] = node
}

// Has reports whether a dotted path exists in the document.
func (d *Document) Has(path string) bool {
	_, err := d.Get(path)
	return err == nil
}

// Copy returns a deep copy of the document. Mutating the copy never touches
// the original tree.
func (d *Document) Copy() *Document {
	return &Document{root: copyNode(d.root)}
}

func copyNode(node map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(node))
	for key, value := range node {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return copyNode(v)
	case []interface{}:
		seq := make([]interface{}, len(v))
		for i, elem := range v {
			seq[i] = copyValue(elem)
		}
		return seq
	default:
		return v
	}
}

// Resolve looks up a dotted path and dereferences it. Nested mappings are
// returned in string form, sequences are returned with every ${...} element
// dereferenced, and chained scalar references are followed until a concrete
// value is reached.
func (d *Document) Resolve(path string) (interface{}, error) {
	return d.resolve(path, -1, map[string]bool{})
}

// ResolveIndex behaves like Resolve for sequence nodes but returns only the
// element at the given index, dereferenced if it is a reference.
func (d *Document) ResolveIndex(path string, index int) (interface{}, error) {
	return d.resolve(path, index, map[string]bool{})
}

// ResolveString is a convenience wrapper for scalar string values.
func (d *Document) ResolveString(path string) (string, error) {
	value, err := d.Resolve(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", value), nil
}

func (d *Document) resolve(path string, index int, seen map[string]bool) (interface{}, error) {
	if seen[path] {
		return nil, fmt.Errorf("%w: %s", ErrReferenceCycle, path)
	}
	seen[path] = true
	defer delete(seen, path)

	node, err := d.Get(path)
	if err != nil {
		return nil, err
	}

	switch v := node.(type) {
	case map[string]interface{}:
		return fmt.Sprintf("%v", v), nil
	case []interface{}:
		if index >= 0 {
			if index >= len(v) {
				return nil, fmt.Errorf("%w: %s[%d]", ErrPathNotFound, path, index)
			}
			return d.resolveScalar(v[index], seen)
		}
		resolved := make([]interface{}, len(v))
		for i, elem := range v {
			value, err := d.resolveScalar(elem, seen)
			if err != nil {
				return nil, err
			}
			resolved[i] = value
		}
		return resolved, nil
	default:
		return d.resolveScalar(v, seen)
	}
}

// resolveScalar follows chained ${...} references until a non-reference
// value is reached, then validates the terminal.
func (d *Document) resolveScalar(value interface{}, seen map[string]bool) (interface{}, error) {
	if s, ok := value.(string); ok {
		if m := referencePattern.FindStringSubmatch(s); m != nil {
			return d.resolve(m[1], -1, seen)
		}
	}
	if value == nil {
		return nil, ErrUnresolvedField
	}
	return value, nil
}

// IsReference reports whether a scalar has the ${path} form.
func IsReference(value interface{}) bool {
	s, ok := value.(string)
	return ok && referencePattern.MatchString(s)
}
