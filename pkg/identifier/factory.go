package identifier

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/science-periodicals/librarian-sub000/pkg/version"
)

const keySeparator = "::"

// Created is the result of minting an identifier.
type Created struct {
	ID         string
	StorageKey string
}

type createOptions struct {
	latest bool
}

// CreateOption tunes Create.
type CreateOption func(*createOptions)

// Latest aliases a release storage key to the mutable "latest" pointer of its
// Graph instead of the specific version.
func Latest() CreateOption {
	return func(o *createOptions) {
		o.latest = true
	}
}

// Factory mints identifiers. Random local ids are drawn from its reader, so a
// seeded reader makes the output reproducible.
type Factory struct {
	mu     sync.Mutex
	random io.Reader
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRandom sets the source of random bytes used for UUIDs.
func WithRandom(r io.Reader) FactoryOption {
	return func(f *Factory) {
		f.random = r
	}
}

// NewFactory creates a Factory reading from crypto/rand unless configured otherwise.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{random: rand.Reader}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

var defaultFactory = NewFactory()

// Create mints an identifier with the default factory.
func Create(kind Kind, localID, scope string, opts ...CreateOption) (Created, error) {
	return defaultFactory.Create(kind, localID, scope, opts...)
}

// NewUUID returns a random UUIDv4 string.
func (f *Factory) NewUUID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := uuid.NewRandomFromReader(f.random)
	if err != nil {
		return "", fmt.Errorf("generating uuid: %w", err)
	}

	return id.String(), nil
}

// Create mints an identifier of the given kind. localID is used verbatim when
// set and replaced by a fresh UUID otherwise; for releases it is the version.
// scope is the identifier of the owning document where the kind requires one.
func (f *Factory) Create(kind Kind, localID, scope string, opts ...CreateOption) (Created, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case KindRelease:
		return f.release(localID, scope, o.latest)
	case KindAction:
		return f.action(localID, scope)
	case KindCNode:
		if err := requireScope(kind, scope, KindAction); err != nil {
			return Created{}, err
		}

		return f.simple(kind, localID)
	case KindWorkflow:
		if scope != "" {
			if err := requireScope(kind, scope, KindJournal); err != nil {
				return Created{}, err
			}
		}

		return f.simple(kind, localID)
	case KindNode, KindBlank:
		return f.simple(kind, localID)
	case KindGraph, KindJournal, KindUser, KindOrg:
		created, err := f.simple(kind, localID)
		created.StorageKey = created.ID

		return created, err
	default:
		return Created{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (f *Factory) simple(kind Kind, localID string) (Created, error) {
	value, err := f.local(kind, localID)
	if err != nil {
		return Created{}, err
	}

	return Created{ID: ID{Kind: kind, Value: value}.String()}, nil
}

func (f *Factory) action(localID, scope string) (Created, error) {
	value, err := f.local(KindAction, localID)
	if err != nil {
		return Created{}, err
	}

	id := ID{Kind: KindAction, Value: value}.String()

	owner := id
	if scope != "" {
		if err := requireScope(KindAction, scope, KindGraph, KindJournal, KindOrg, KindUser); err != nil {
			return Created{}, err
		}

		owner = scope
	}

	return Created{
		ID:         id,
		StorageKey: owner + keySeparator + string(KindAction) + keySeparator + id,
	}, nil
}

func (f *Factory) release(v, scope string, latest bool) (Created, error) {
	if err := requireScope(KindRelease, scope, KindGraph); err != nil {
		return Created{}, err
	}

	if !version.Valid(v) {
		return Created{}, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}

	graph := MustParse(scope)

	key := v
	if latest {
		key = "latest"
	}

	return Created{
		ID:         ID{Kind: KindRelease, Value: graph.Value, Version: v}.String(),
		StorageKey: scope + keySeparator + string(KindRelease) + keySeparator + key,
	}, nil
}

// local strips a redundant prefix from localID or generates a UUID.
func (f *Factory) local(kind Kind, localID string) (string, error) {
	if localID == "" {
		return f.NewUUID()
	}

	if id, err := Parse(localID); err == nil {
		if id.Kind != kind {
			return "", fmt.Errorf("%w: %q is not a %s identifier", ErrMalformed, localID, kind)
		}

		return id.Value, nil
	}

	return localID, nil
}

// requireScope checks that scope is a bare identifier of one of the allowed kinds.
func requireScope(kind Kind, scope string, allowed ...Kind) error {
	id, err := Parse(scope)
	if err != nil {
		return fmt.Errorf("%w: %s requires a scope, got %q", ErrInvalidScope, kind, scope)
	}

	for _, k := range allowed {
		if id.Kind == k {
			return nil
		}
	}

	return fmt.Errorf("%w: %q cannot scope a %s identifier", ErrInvalidScope, scope, kind)
}
