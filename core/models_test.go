package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_Immutable(t *testing.T) {
	ids := []ElementID{"a", "b", "c"}
	m := NewManifest("/tmp/copy1.ifc", VariantLegacy, ids)

	ids[0] = "mutated"
	assert.Equal(t, []ElementID{"a", "b", "c"}, m.IDs())

	out := m.IDs()
	out[1] = "mutated"
	assert.Equal(t, []ElementID{"a", "b", "c"}, m.IDs())

	assert.Equal(t, StorageKey("/tmp/copy1.ifc"), m.Key())
	assert.Equal(t, VariantLegacy, m.Variant())
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Contains("b"))
	assert.False(t, m.Contains("z"))
	assert.False(t, m.IsZero())
	assert.True(t, Manifest{}.IsZero())
}

func TestManifest_MarshalJSON(t *testing.T) {
	m := NewManifest("/tmp/copy7.ifc", VariantCurrent, []ElementID{"x", "y"})
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"/tmp/copy7.ifc","variant":"current","ids":["x","y"]}`, string(data))

	empty, err := json.Marshal(NewManifest("/tmp/copy8.ifc", VariantLegacy, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"/tmp/copy8.ifc","variant":"legacy","ids":[]}`, string(empty))
}

func TestSchemaVariant_String(t *testing.T) {
	assert.Equal(t, "legacy", VariantLegacy.String())
	assert.Equal(t, "current", VariantCurrent.String())
	assert.Equal(t, "unknown", VariantUnknown.String())
}

func TestEntity_References(t *testing.T) {
	e := &Entity{
		Label: 10,
		Type:  "IFCWALL",
		Attributes: []Value{
			String("2O2Fr$t4X7Zf8NOew3FLOH"),
			Ref(5),
			Null(),
			List(Ref(6), List(Ref(7)), Integer(3)),
			Typed("IFCLABEL", String("wall")),
		},
	}
	assert.Equal(t, []uint64{5, 6, 7}, e.References())
	assert.Equal(t, KindNull, e.Attribute(99).Kind)
}

func TestEntity_Clone(t *testing.T) {
	e := &Entity{Label: 1, Type: "IFCSLAB", Attributes: []Value{List(Ref(2), Ref(3))}}
	c := e.Clone()
	c.Attributes[0].List[0] = Ref(9)

	assert.Equal(t, uint64(2), e.Attributes[0].List[0].Ref)
	assert.True(t, e.Attributes[0].Equal(List(Ref(2), Ref(3))))
	assert.False(t, c.Attributes[0].Equal(e.Attributes[0]))
}

func TestValue_Unwrap(t *testing.T) {
	v := Typed("IFCLABEL", Typed("IFCTEXT", String("inner")))
	assert.Equal(t, String("inner"), v.Unwrap())
	assert.Equal(t, Integer(4), Integer(4).Unwrap())
}

func TestGlobalID(t *testing.T) {
	t.Run("zero uuid", func(t *testing.T) {
		assert.Equal(t, ElementID("0000000000000000000000"), GlobalIDFromUUID(uuid.UUID{}))
	})

	t.Run("all ones", func(t *testing.T) {
		var u uuid.UUID
		for i := range u {
			u[i] = 0xff
		}
		assert.Equal(t, ElementID("3$$$$$$$$$$$$$$$$$$$$$"), GlobalIDFromUUID(u))
	})

	t.Run("random ids are valid and distinct", func(t *testing.T) {
		seen := make(map[ElementID]bool)
		for range 100 {
			id := NewGlobalID()
			assert.True(t, IsValidGlobalID(string(id)), "invalid id %q", id)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("validation", func(t *testing.T) {
		assert.False(t, IsValidGlobalID(""))
		assert.False(t, IsValidGlobalID("4000000000000000000000"))
		assert.False(t, IsValidGlobalID("00000000000000000000-0"))
	})
}

func TestFingerprintFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ifc")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))

	first, err := FingerprintFile(path)
	require.NoError(t, err)
	again, err := FingerprintFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(path, []byte("changed"), 0644))
	require.NoError(t, os.Chtimes(path, later, later))
	changed, err := FingerprintFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	_, err = FingerprintFile(filepath.Join(t.TempDir(), "missing.ifc"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
