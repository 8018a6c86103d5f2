package fleet

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultMaxDepth bounds group nesting below the root.
const DefaultMaxDepth = 64

// StructuralError reports a feed tree that cannot be flattened.
type StructuralError struct {
	Path  []string
	Limit int
}

func (e *StructuralError) Error() string {
	where := "root"
	if len(e.Path) > 0 {
		where = strings.Join(e.Path, " / ")
	}
	return fmt.Sprintf("vehicle tree nested deeper than %d groups at %s", e.Limit, where)
}

// Option configures Flatten.
type Option func(*flattener)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(depth int) Option {
	return func(f *flattener) {
		if depth > 0 {
			f.maxDepth = depth
		}
	}
}

type flattener struct {
	maxDepth int
	seen     map[string]struct{}
	out      []FlatVehicle
}

// Flatten walks root in pre-order and returns one FlatVehicle per leaf.
// Groups are never emitted. A vehicle id seen twice keeps its first position.
func Flatten(root VehicleNode, opts ...Option) ([]FlatVehicle, error) {
	f := &flattener{
		maxDepth: DefaultMaxDepth,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	if !root.IsGroup() {
		if root.IsLeaf() {
			return []FlatVehicle{project(root)}, nil
		}
		return []FlatVehicle{}, nil
	}

	if err := f.walk(root.Children, 1, nil); err != nil {
		return nil, err
	}
	if f.out == nil {
		return []FlatVehicle{}, nil
	}
	return f.out, nil
}

func (f *flattener) walk(nodes []VehicleNode, depth int, path []string) error {
	if depth > f.maxDepth {
		return &StructuralError{Path: slices.Clone(path), Limit: f.maxDepth}
	}
	for _, node := range nodes {
		switch {
		case node.IsGroup():
			if err := f.walk(node.Children, depth+1, append(path, node.label())); err != nil {
				return err
			}
		case node.IsLeaf():
			f.emit(node)
		}
	}
	return nil
}

func (f *flattener) emit(node VehicleNode) {
	id := node.ID()
	if _, dup := f.seen[id]; dup {
		return
	}
	f.seen[id] = struct{}{}
	f.out = append(f.out, project(node))
}
