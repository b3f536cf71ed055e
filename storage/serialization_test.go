package storage

import (
	"math"
	"testing"

	"github.com/poiesic/ifcingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalLabel(t *testing.T) {
	tests := []struct {
		name  string
		label uint64
	}{
		{"zero label", 0},
		{"small label", 42},
		{"large label", math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalLabel(tt.label)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalLabel(data)
			require.NoError(t, err)
			assert.Equal(t, tt.label, decoded)
		})
	}
}

func TestUnmarshalLabel_Invalid(t *testing.T) {
	_, err := UnmarshalLabel([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalEntity(t *testing.T) {
	tests := []struct {
		name   string
		entity *core.Entity
	}{
		{
			name: "product with references",
			entity: &core.Entity{
				Label: 112,
				Type:  "IFCWALLSTANDARDCASE",
				Attributes: []core.Value{
					core.String("2O2Fr$t4X7Zf8NOew3FLOH"),
					core.Ref(5),
					core.String("Basic Wall:Interior - 138mm Partition (1-hr):128360"),
					core.Null(),
					core.String("Basic Wall:Interior - 138mm Partition (1-hr):128360"),
					core.Ref(110),
					core.Ref(111),
					core.String("128360"),
				},
			},
		},
		{
			name: "every value kind",
			entity: &core.Entity{
				Label: 7,
				Type:  "IFCPROPERTYSINGLEVALUE",
				Attributes: []core.Value{
					core.Null(),
					{Kind: core.KindDerived},
					core.Integer(-42),
					core.Real(3.25),
					core.Enum("T"),
					{Kind: core.KindBinary, Str: "0FF"},
					core.List(core.Ref(1), core.List(core.Real(0), core.Real(1e-9))),
					core.Typed("IFCLABEL", core.String("It''s")),
				},
			},
		},
		{
			name:   "no attributes",
			entity: &core.Entity{Label: 1, Type: "IFCOWNERHISTORY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalEntity(tt.entity)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalEntity(data)
			require.NoError(t, err)
			assert.Equal(t, tt.entity.Label, decoded.Label)
			assert.Equal(t, tt.entity.Type, decoded.Type)
			require.Len(t, decoded.Attributes, len(tt.entity.Attributes))
			for i := range tt.entity.Attributes {
				assert.True(t, tt.entity.Attributes[i].Equal(decoded.Attributes[i]), "attribute %d differs", i)
			}
		})
	}
}

func TestUnmarshalEntity_Invalid(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		_, err := UnmarshalEntity([]byte{})
		assert.Error(t, err)
	})

	t.Run("truncated data", func(t *testing.T) {
		data := MarshalEntity(&core.Entity{
			Label:      3,
			Type:       "IFCSLAB",
			Attributes: []core.Value{core.String("abc"), core.Ref(9)},
		})
		_, err := UnmarshalEntity(data[:len(data)-2])
		assert.Error(t, err)
	})
}

func TestUnmarshalValue_DepthLimit(t *testing.T) {
	v := core.Integer(1)
	for range maxValueDepth + 2 {
		v = core.List(v)
	}
	data := MarshalEntity(&core.Entity{Label: 1, Type: "X", Attributes: []core.Value{v}})

	_, err := UnmarshalEntity(data)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
