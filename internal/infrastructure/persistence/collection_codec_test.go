package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []collection.Entry {
	return []collection.Entry{
		{
			ID:                 "p1",
			Title:              "Syltherine",
			Price:              250,
			DiscountPercentage: 30,
			ProductImage:       &catalog.Image{Asset: catalog.ImageAsset{Ref: "image-abc-800x600-jpg", Type: "reference"}},
			Tags:               []string{"chair"},
			IsNew:              true,
		},
		{ID: "p2", Title: "Leviosa", Price: 150},
	}
}

func TestCollectionCodec_Encode(t *testing.T) {
	codec := NewCollectionCodec()

	t.Run("writes the versioned envelope", func(t *testing.T) {
		data, err := codec.Encode(sampleEntries()[1:])
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"schema_version":1,"items":[{"_id":"p2","title":"Leviosa","price":150,"isNew":false}]}`,
			string(data))
	})

	t.Run("nil entries encode as empty array", func(t *testing.T) {
		data, err := codec.Encode(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"schema_version":1,"items":[]}`, string(data))
	})
}

func TestCollectionCodec_Decode(t *testing.T) {
	codec := NewCollectionCodec()

	t.Run("round trips entries", func(t *testing.T) {
		data, err := codec.Encode(sampleEntries())
		require.NoError(t, err)

		entries, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, sampleEntries(), entries)
	})

	t.Run("upgrades legacy bare array", func(t *testing.T) {
		legacy := `[{"_id":"p1","title":"Syltherine","price":250,"isNew":true,"tags":["chair"]}]`

		entries, err := codec.Decode([]byte(legacy))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "p1", entries[0].ID)
		assert.Equal(t, 250.0, entries[0].Price)
	})

	t.Run("null items decode as empty", func(t *testing.T) {
		entries, err := codec.Decode([]byte(`{"schema_version":1,"items":null}`))
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	malformed := []struct {
		name    string
		payload string
	}{
		{"empty", ``},
		{"whitespace", `   `},
		{"not json", `not json`},
		{"truncated", `{"schema_version":1,"items":[`},
		{"scalar", `42`},
		{"object without version", `{"items":[]}`},
		{"zero version", `{"schema_version":0,"items":[]}`},
		{"items not an array", `{"schema_version":1,"items":"cart"}`},
		{"entry without id", `{"schema_version":1,"items":[{"title":"x","price":1}]}`},
		{"legacy array of scalars", `[1,2,3]`},
	}
	for _, tt := range malformed {
		t.Run("malformed: "+tt.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}

	t.Run("newer version is unsupported", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{"schema_version":7,"items":[]}`))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestNewCollectionCodecWithUpgraders(t *testing.T) {
	addCurrency := NewFuncUpgrader(1, 2, func(doc any) (map[string]any, error) {
		m := doc.(map[string]any)
		m["currency"] = "USD"
		return m, nil
	})

	t.Run("chains upgraders in order", func(t *testing.T) {
		codec, err := NewCollectionCodecWithUpgraders(2, legacyArrayUpgrader, addCurrency)
		require.NoError(t, err)

		entries, err := codec.Decode([]byte(`[{"_id":"p1","title":"Lolito","price":7000}]`))
		require.NoError(t, err)
		require.Len(t, entries, 1)

		data, err := codec.Encode(entries)
		require.NoError(t, err)
		var env map[string]any
		require.NoError(t, json.Unmarshal(data, &env))
		assert.EqualValues(t, 2, env["schema_version"])
	})

	t.Run("rejects gap in chain", func(t *testing.T) {
		_, err := NewCollectionCodecWithUpgraders(2, legacyArrayUpgrader)
		assert.Error(t, err)
	})

	t.Run("rejects upgrader skipping versions", func(t *testing.T) {
		skip := NewFuncUpgrader(0, 2, func(doc any) (map[string]any, error) { return nil, nil })
		_, err := NewCollectionCodecWithUpgraders(2, skip)
		assert.Error(t, err)
	})
}

func TestCollectionCodec_Snapshot(t *testing.T) {
	codec := NewCollectionCodec()

	t.Run("round trips id, time and items", func(t *testing.T) {
		snap := checkout.NewSnapshot(sampleEntries())
		data, err := codec.EncodeSnapshot(snap)
		require.NoError(t, err)

		restored, err := codec.DecodeSnapshot(data)
		require.NoError(t, err)
		assert.Equal(t, snap.ID(), restored.ID())
		assert.True(t, snap.CreatedAt().Equal(restored.CreatedAt()))
		assert.Equal(t, snap.Items(), restored.Items())
		assert.True(t, snap.Total().Equal(restored.Total()))
	})

	t.Run("legacy array gets a fresh id", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)
		restored, err := codec.DecodeSnapshot([]byte(`[{"_id":"p2","title":"Leviosa","price":150}]`))
		require.NoError(t, err)
		assert.NotEmpty(t, restored.ID().String())
		assert.True(t, restored.CreatedAt().After(before))
		assert.Equal(t, "150", restored.Total().String())
	})

	t.Run("bad snapshot id is malformed", func(t *testing.T) {
		_, err := codec.DecodeSnapshot([]byte(`{"schema_version":1,"snapshot_id":"nope","items":[]}`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}
