// Package identifier builds and parses the typed, namespaced identifiers used by
// workflow documents (`action:`, `workflow:`, `graph:`, `node:`, ...).
package identifier

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidScope indicates a scope identifier is missing or has the wrong prefix.
	ErrInvalidScope = errors.New("invalid identifier scope")

	// ErrInvalidVersion indicates a release version is not a semantic version.
	ErrInvalidVersion = errors.New("invalid release version")

	// ErrUnknownKind indicates an identifier prefix is not part of the vocabulary.
	ErrUnknownKind = errors.New("unknown identifier kind")

	// ErrMalformed indicates a string could not be parsed as an identifier.
	ErrMalformed = errors.New("malformed identifier")
)

// Kind is the namespace of an identifier.
type Kind string

const (
	KindAction   Kind = "action"
	KindWorkflow Kind = "workflow"
	KindNode     Kind = "node"
	KindCNode    Kind = "cnode"
	KindBlank    Kind = "_"
	KindGraph    Kind = "graph"
	KindRelease  Kind = "release"
	KindJournal  Kind = "journal"
	KindUser     Kind = "user"
	KindOrg      Kind = "org"
)

const versionQuery = "?version="

var kinds = map[Kind]struct{}{
	KindAction:   {},
	KindWorkflow: {},
	KindNode:     {},
	KindCNode:    {},
	KindBlank:    {},
	KindGraph:    {},
	KindJournal:  {},
	KindUser:     {},
	KindOrg:      {},
}

// ID is a parsed identifier. Releases are Graph identifiers carrying a version.
type ID struct {
	Kind    Kind
	Value   string
	Version string
}

// Parse decodes s into a typed identifier.
func Parse(s string) (ID, error) {
	prefix, value, ok := strings.Cut(s, ":")
	if !ok || prefix == "" || value == "" {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	kind := Kind(prefix)
	if _, known := kinds[kind]; !known {
		return ID{}, fmt.Errorf("%w: %q", ErrUnknownKind, prefix)
	}

	if kind == KindGraph {
		if slug, version, found := strings.Cut(value, versionQuery); found {
			if slug == "" {
				return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
			}

			return ID{Kind: KindRelease, Value: slug, Version: version}, nil
		}
	}

	return ID{Kind: kind, Value: value}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return id
}

// String formats the identifier in its serialized form.
func (id ID) String() string {
	switch id.Kind {
	case KindRelease:
		return string(KindGraph) + ":" + id.Value + versionQuery + id.Version
	case "":
		return ""
	default:
		return string(id.Kind) + ":" + id.Value
	}
}

// Graph returns the live Graph a release or graph identifier belongs to.
func (id ID) Graph() ID {
	return ID{Kind: KindGraph, Value: id.Value}
}

// Is reports whether s parses as an identifier of kind k.
func Is(s string, k Kind) bool {
	id, err := Parse(s)

	return err == nil && id.Kind == k
}

// IsBlank reports whether s is a blank node identifier.
func IsBlank(s string) bool {
	return strings.HasPrefix(s, string(KindBlank)+":")
}

// SplitVersion splits a graph or release reference into its live graph id and
// optional version.
func SplitVersion(ref string) (graphID, version string, err error) {
	id, err := Parse(ref)
	if err != nil {
		return "", "", err
	}

	switch id.Kind {
	case KindGraph, KindRelease:
		return id.Graph().String(), id.Version, nil
	default:
		return "", "", fmt.Errorf("%w: %q is not a graph", ErrInvalidScope, ref)
	}
}
