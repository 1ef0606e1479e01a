package syntax

import "errors"

// errStopWalk stops a walk early without reporting an error.
var errStopWalk = errors.New("stop walk")

// WalkFunc is the function signature for Walk callbacks.
// Return a non-nil error to stop the walk; return SkipChildren to skip the
// node's children.
type WalkFunc func(c *Cursor) error

// SkipChildren can be returned from a WalkFunc to skip a node's subtree.
var SkipChildren = errors.New("skip children")

// Walk performs a pre-order traversal starting at root.
func Walk(root *Cursor, walkFunc WalkFunc) error {
	if root == nil {
		return nil
	}

	if err := walkFunc(root); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	for _, child := range root.ChildNodes() {
		if err := Walk(child, walkFunc); err != nil {
			return err
		}
	}
	return nil
}

// FindAll returns all nodes matching the predicate.
func FindAll(root *Cursor, predicate func(c *Cursor) bool) []*Cursor {
	var result []*Cursor

	//nolint:errcheck // the callback never fails
	Walk(root, func(c *Cursor) error {
		if predicate(c) {
			result = append(result, c)
		}
		return nil
	})

	return result
}

// FindFirst returns the first node matching the predicate, or nil.
func FindFirst(root *Cursor, predicate func(c *Cursor) bool) *Cursor {
	var found *Cursor

	//nolint:errcheck // errStopWalk is expected and intentionally ignored
	Walk(root, func(c *Cursor) error {
		if predicate(c) {
			found = c
			return errStopWalk
		}
		return nil
	})

	return found
}

// FindByKind returns all nodes of the given kind.
func FindByKind(root *Cursor, kind NodeKind) []*Cursor {
	return FindAll(root, func(c *Cursor) bool { return c.Kind() == kind })
}

// Errors returns every error node in the tree.
func Errors(root *Cursor) []*Cursor {
	return FindByKind(root, NodeError)
}
