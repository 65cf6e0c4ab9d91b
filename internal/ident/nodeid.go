package ident

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator divides the segments of a serialized node identifier.
// Format: "module::name" or "module::Class::name".
const Separator = "::"

// NodeID identifies a single test across runs.
//
// Module is the path of the file containing the test, relative to the
// project root. Class is the optional enclosing scope (a suite or class
// name); empty when the test is defined at module level. Name is the test
// name itself and may contain further "/" separated subtest segments, but
// never the Separator.
type NodeID struct {
	Module string `json:"module"`
	Class  string `json:"class,omitempty"`
	Name   string `json:"name"`
}

// Parse converts a serialized node identifier back into a NodeID.
// Accepts two or three Separator-delimited segments. The input is NFC
// normalized before splitting, so Parse(s).String() is byte-stable even
// when s arrived in a different Unicode form.
func Parse(s string) (NodeID, error) {
	s = norm.NFC.String(s)
	parts := strings.Split(s, Separator)
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return NodeID{}, fmt.Errorf("parse node id %q: empty segment", s)
		}
		return NodeID{Module: parts[0], Name: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return NodeID{}, fmt.Errorf("parse node id %q: empty segment", s)
		}
		return NodeID{Module: parts[0], Class: parts[1], Name: parts[2]}, nil
	default:
		return NodeID{}, fmt.Errorf("parse node id %q: expected 2 or 3 segments, got %d", s, len(parts))
	}
}

// MustParse is like Parse but panics on error. Use only in tests or when
// inputs are known to be valid.
func MustParse(s string) NodeID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String serializes the NodeID. Round-trips through Parse.
func (id NodeID) String() string {
	if id.Class == "" {
		return id.Module + Separator + id.Name
	}
	return id.Module + Separator + id.Class + Separator + id.Name
}

// ModuleKey returns the grouping key for module-level duration averages.
func (id NodeID) ModuleKey() string {
	return id.Module
}

// ClassKey returns the grouping key for class-level duration averages.
// Falls back to the module key when the node has no class, so a classless
// node's class average equals its module average.
func (id NodeID) ClassKey() string {
	if id.Class == "" {
		return id.Module
	}
	return id.Module + Separator + id.Class
}
