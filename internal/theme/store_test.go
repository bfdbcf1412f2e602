package theme

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdateLeaf(t *testing.T) {
	store := NewStore(Default())
	before := store.Snapshot()

	next, err := store.Update([]string{"colors", "primary"}, "#00FF00")
	require.NoError(t, err)

	assert.Equal(t, "#00FF00", next.Colors.Primary)
	assert.Equal(t, Default().Colors.Primary, before.Colors.Primary)
	assert.Equal(t, next, store.Snapshot())
}

func TestStoreUpdateSubtreeFillsDefaults(t *testing.T) {
	store := NewStore(Default())
	_, err := store.Update([]string{"layout", "borderWidth"}, 9)
	require.NoError(t, err)

	next, err := store.Update([]string{"layout"}, map[string]any{"borderColor": "#abcdef"})
	require.NoError(t, err)

	want := Default().Layout
	want.BorderColor = "#abcdef"
	assert.Equal(t, want, next.Layout)
}

func TestStoreUpdateErrors(t *testing.T) {
	store := NewStore(Default())

	_, err := store.Update([]string{"colors", "nope"}, "#fff")
	assert.True(t, errors.Is(err, ErrUnknownPath))

	_, err = store.Update([]string{"colors", "primary", "deeper"}, "#fff")
	assert.True(t, errors.Is(err, ErrUnknownPath))

	_, err = store.Update(nil, "#fff")
	assert.True(t, errors.Is(err, ErrUnknownPath))

	_, err = store.Update([]string{"background", "type"}, "hologram")
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = store.Update([]string{"background", "opacity"}, "opaque")
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = store.Update([]string{"presence", "networkServers"}, []NetworkServer{{ID: "x"}})
	assert.True(t, errors.Is(err, ErrReservedPath))

	assert.Equal(t, Default(), store.Snapshot())
}

func TestStoreUpdatePresenceKeepsLinkedServers(t *testing.T) {
	initial := Default()
	initial.Presence.NetworkServers = []NetworkServer{{ID: "a", Name: "Alpha"}}
	store := NewStore(initial)

	next, err := store.Update([]string{"presence"}, map[string]any{
		"discord":        true,
		"networkServers": []any{},
	})
	require.NoError(t, err)

	assert.True(t, next.Presence.Discord)
	assert.Equal(t, []NetworkServer{{ID: "a", Name: "Alpha"}}, next.Presence.NetworkServers)
}

func TestStoreUpdateNullableLeaves(t *testing.T) {
	store := NewStore(Default())

	next, err := store.Update([]string{"frame"}, "frame-1")
	require.NoError(t, err)
	require.NotNil(t, next.Frame)
	assert.Equal(t, "frame-1", *next.Frame)

	next, err = store.Update([]string{"frame"}, nil)
	require.NoError(t, err)
	assert.Nil(t, next.Frame)
}

func TestStoreNeverMutatesHandedOutValues(t *testing.T) {
	initial := Default()
	initial.Presence.NetworkServers = []NetworkServer{{ID: "a"}}
	store := NewStore(initial)

	held := store.Snapshot()
	_, err := store.Mutate(func(cfg *Config) error {
		cfg.Presence.NetworkServers[0].Name = "changed"
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "", held.Presence.NetworkServers[0].Name)
	assert.Equal(t, "changed", store.Snapshot().Presence.NetworkServers[0].Name)
}

func TestStoreObserversSeeMutationsInOrder(t *testing.T) {
	store := NewStore(Default())

	var seen []string
	unsubscribe := store.Subscribe(func(cfg Config) {
		seen = append(seen, cfg.Colors.Primary)
	})

	_, _ = store.Update([]string{"colors", "primary"}, "#111111")
	_, _ = store.Update([]string{"colors", "primary"}, "#222222")
	_, _ = store.Update([]string{"colors", "missing"}, "#333333")
	unsubscribe()
	_, _ = store.Update([]string{"colors", "primary"}, "#444444")

	assert.Equal(t, []string{"#111111", "#222222"}, seen)
}

func TestLiveEditIndependentOfRemoteMerge(t *testing.T) {
	store := NewStore(Default())
	_, err := store.Update([]string{"colors", "primary"}, "#00FF00")
	require.NoError(t, err)

	saved := Normalize([]byte(`{"colors": {"secondary": "#111"}}`), nil)

	want := Default()
	want.Colors.Secondary = "#111"
	assert.Equal(t, want, saved)
	assert.Equal(t, "#00FF00", store.Snapshot().Colors.Primary)

	encoded, err := json.Marshal(store.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", Normalize(encoded, nil).Colors.Primary)
}

func TestParsePath(t *testing.T) {
	assert.Equal(t, []string{"colors", "primary"}, ParsePath(" colors.primary "))
	assert.Equal(t, []string{"frame"}, ParsePath("frame."))
	assert.Nil(t, ParsePath(""))
}
