package identifier

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr error
	}{
		{name: "action", input: "action:123", want: ID{Kind: KindAction, Value: "123"}},
		{name: "blank node", input: "_:b0", want: ID{Kind: KindBlank, Value: "b0"}},
		{name: "graph", input: "graph:paper", want: ID{Kind: KindGraph, Value: "paper"}},
		{name: "release", input: "graph:paper?version=1.0.0-0", want: ID{Kind: KindRelease, Value: "paper", Version: "1.0.0-0"}},
		{name: "missing prefix", input: "paper", wantErr: ErrMalformed},
		{name: "empty value", input: "graph:", wantErr: ErrMalformed},
		{name: "unknown kind", input: "scipe:x", wantErr: ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestSplitVersion(t *testing.T) {
	graphID, v, err := SplitVersion("graph:paper?version=2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "graph:paper", graphID)
	assert.Equal(t, "2.0.0", v)

	graphID, v, err = SplitVersion("graph:paper")
	require.NoError(t, err)
	assert.Equal(t, "graph:paper", graphID)
	assert.Empty(t, v)

	_, _, err = SplitVersion("action:paper")
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name    string
		kind    Kind
		localID string
		scope   string
		opts    []CreateOption
		want    Created
		wantErr error
	}{
		{
			name:    "action scoped to graph",
			kind:    KindAction,
			localID: "a1",
			scope:   "graph:paper",
			want:    Created{ID: "action:a1", StorageKey: "graph:paper::action::action:a1"},
		},
		{
			name:    "action scoped to itself",
			kind:    KindAction,
			localID: "action:a1",
			want:    Created{ID: "action:a1", StorageKey: "action:a1::action::action:a1"},
		},
		{
			name:    "action with wrong scope",
			kind:    KindAction,
			localID: "a1",
			scope:   "node:x",
			wantErr: ErrInvalidScope,
		},
		{
			name:    "release",
			kind:    KindRelease,
			localID: "1.0.0-0",
			scope:   "graph:paper",
			want:    Created{ID: "graph:paper?version=1.0.0-0", StorageKey: "graph:paper::release::1.0.0-0"},
		},
		{
			name:    "latest release pointer",
			kind:    KindRelease,
			localID: "1.0.0-0",
			scope:   "graph:paper",
			opts:    []CreateOption{Latest()},
			want:    Created{ID: "graph:paper?version=1.0.0-0", StorageKey: "graph:paper::release::latest"},
		},
		{
			name:    "release requires graph scope",
			kind:    KindRelease,
			localID: "1.0.0",
			scope:   "journal:j",
			wantErr: ErrInvalidScope,
		},
		{
			name:    "release requires semver",
			kind:    KindRelease,
			localID: "one",
			scope:   "graph:paper",
			wantErr: ErrInvalidVersion,
		},
		{
			name:    "workflow",
			kind:    KindWorkflow,
			localID: "w1",
			want:    Created{ID: "workflow:w1"},
		},
		{
			name:    "cnode requires action scope",
			kind:    KindCNode,
			localID: "c1",
			scope:   "graph:paper",
			wantErr: ErrInvalidScope,
		},
		{
			name:    "graph",
			kind:    KindGraph,
			localID: "paper",
			want:    Created{ID: "graph:paper", StorageKey: "graph:paper"},
		},
		{
			name:    "unknown",
			kind:    Kind("scipe"),
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Create(tt.kind, tt.localID, tt.scope, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactory_SeededRandomIsReproducible(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 64)

	first := NewFactory(WithRandom(bytes.NewReader(seed)))
	second := NewFactory(WithRandom(bytes.NewReader(seed)))

	a, err := first.Create(KindAction, "", "graph:paper")
	require.NoError(t, err)

	b, err := second.Create(KindAction, "", "graph:paper")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, Is(a.ID, KindAction))
}

func TestFactory_FreshIdentifiersDiffer(t *testing.T) {
	a, err := Create(KindNode, "", "")
	require.NoError(t, err)

	b, err := Create(KindNode, "", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, Is(a.ID, KindNode))
}
