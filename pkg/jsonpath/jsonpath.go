package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a compiled path: either an object field or an
// array index.
type Segment struct {
	Field   string
	Index   int
	isIndex bool
}

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Path is a compiled dotted path such as "choices.0.message.content".
// Paths are parsed once at configuration-load time and evaluated against
// decoded JSON on every response.
type Path []Segment

// Parse compiles a dotted path. Purely numeric tokens become array
// indexes, everything else a field lookup.
func Parse(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("jsonpath: empty path")
	}

	parts := strings.Split(raw, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("jsonpath: empty segment in %q", raw)
		}
		if idx, err := strconv.Atoi(part); err == nil {
			if idx < 0 {
				return nil, fmt.Errorf("jsonpath: negative index in %q", raw)
			}
			path = append(path, Segment{Index: idx, isIndex: true})
			continue
		}
		path = append(path, Segment{Field: part})
	}
	return path, nil
}

// Eval walks a decoded JSON value (map[string]any / []any tree) and
// returns the addressed node.
func (p Path) Eval(root any) (any, error) {
	current := root
	for _, seg := range p {
		if seg.isIndex {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("jsonpath: expected array at index %d, got %T", seg.Index, current)
			}
			if seg.Index >= len(arr) {
				return nil, fmt.Errorf("jsonpath: index %d out of range (len %d)", seg.Index, len(arr))
			}
			current = arr[seg.Index]
			continue
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("jsonpath: expected object at field %q, got %T", seg.Field, current)
		}
		val, ok := obj[seg.Field]
		if !ok {
			return nil, fmt.Errorf("jsonpath: field %q not found", seg.Field)
		}
		current = val
	}
	return current, nil
}

// EvalString evaluates the path and requires the result to be a string.
func (p Path) EvalString(root any) (string, error) {
	val, err := p.Eval(root)
	if err != nil {
		return "", err
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("jsonpath: expected string result, got %T", val)
	}
	return s, nil
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.isIndex {
			parts[i] = strconv.Itoa(seg.Index)
		} else {
			parts[i] = seg.Field
		}
	}
	return strings.Join(parts, ".")
}
