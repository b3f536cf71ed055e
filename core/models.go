package core

import (
	"encoding/json"
	"slices"
)

// ElementID is the globally unique identifier of a model element (an IFC
// GlobalId). It is stable across copies of the same logical element.
type ElementID string

// StorageKey is the absolute path of a container on durable storage.
// The model store uses it as the registration key.
type StorageKey string

// String returns the key as a filesystem path.
func (k StorageKey) String() string {
	return string(k)
}

// SchemaVariant identifies which of the supported schema releases a container uses.
type SchemaVariant int

const (
	// VariantUnknown is the zero value and never describes an open container.
	VariantUnknown SchemaVariant = iota
	// VariantLegacy is the IFC2X3 schema.
	VariantLegacy
	// VariantCurrent is the IFC4 schema.
	VariantCurrent
)

func (v SchemaVariant) String() string {
	switch v {
	case VariantLegacy:
		return "legacy"
	case VariantCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// Manifest lists the element identifiers extracted from a registered container.
// A Manifest is immutable once built; accessors return copies.
type Manifest struct {
	key     StorageKey
	variant SchemaVariant
	ids     []ElementID
}

// NewManifest builds a manifest for the container stored at key.
// The ids slice is copied.
func NewManifest(key StorageKey, variant SchemaVariant, ids []ElementID) Manifest {
	return Manifest{
		key:     key,
		variant: variant,
		ids:     slices.Clone(ids),
	}
}

// Key returns the storage key of the container the identifiers came from.
func (m Manifest) Key() StorageKey {
	return m.key
}

// Variant returns the schema variant of the originating container.
func (m Manifest) Variant() SchemaVariant {
	return m.variant
}

// IDs returns the identifiers in enumeration order.
func (m Manifest) IDs() []ElementID {
	return slices.Clone(m.ids)
}

// Len returns the number of identifiers.
func (m Manifest) Len() int {
	return len(m.ids)
}

// Contains reports whether id is part of the manifest.
func (m Manifest) Contains(id ElementID) bool {
	return slices.Contains(m.ids, id)
}

// IsZero reports whether the manifest was never built.
func (m Manifest) IsZero() bool {
	return m.key == "" && m.ids == nil
}

type manifestJSON struct {
	Key     string      `json:"key"`
	Variant string      `json:"variant"`
	IDs     []ElementID `json:"ids"`
}

// MarshalJSON encodes the manifest for downstream consumers.
func (m Manifest) MarshalJSON() ([]byte, error) {
	ids := m.ids
	if ids == nil {
		ids = []ElementID{}
	}
	return json.Marshal(manifestJSON{
		Key:     string(m.key),
		Variant: m.variant.String(),
		IDs:     ids,
	})
}
