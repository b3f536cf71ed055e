package schema

import (
	"fmt"
	"strings"

	"github.com/poiesic/ifcingest/core"
)

const (
	legacyID  = "IFC2X3"
	currentID = "IFC4"

	// identityIndex is the position of GlobalId in every IfcRoot subtype.
	identityIndex = 0
)

// SchemaReporter is anything that declares the schema it was written in.
type SchemaReporter interface {
	Schema() string
}

// VariantOf maps the schema identifier declared by h to a variant.
// Matching ignores case and a release suffix such as _ADD2 or _TC1.
// Any other schema yields core.ErrUnsupportedSchema.
func VariantOf(h SchemaReporter) (core.SchemaVariant, error) {
	id := strings.ToUpper(strings.TrimSpace(h.Schema()))
	base, _, _ := strings.Cut(id, "_")

	switch base {
	case legacyID:
		return core.VariantLegacy, nil
	case currentID:
		return core.VariantCurrent, nil
	}
	if id == "" {
		return core.VariantUnknown, fmt.Errorf("%w: no schema declared", core.ErrUnsupportedSchema)
	}
	return core.VariantUnknown, fmt.Errorf("%w: %s", core.ErrUnsupportedSchema, id)
}

// SchemaFor returns the schema identifier a new container of variant v declares.
func SchemaFor(v core.SchemaVariant) (string, error) {
	switch v {
	case core.VariantLegacy:
		return legacyID, nil
	case core.VariantCurrent:
		return currentID, nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedSchema, v)
	}
}

// CopyStrategy bundles the variant-specific parts of the copy step.
type CopyStrategy struct {
	Variant core.SchemaVariant

	// Filter selects the entities copied into the normalized model.
	Filter func(*core.Entity) bool

	// Identity extracts the element identifier of a selected entity.
	Identity func(*core.Entity) (core.ElementID, bool)

	// IdentityIndex is the attribute position of the identifier.
	IdentityIndex int
}

// CopyStrategyFor returns the copy strategy of variant v.
func CopyStrategyFor(v core.SchemaVariant) (CopyStrategy, error) {
	if _, ok := productClasses[v]; !ok {
		return CopyStrategy{}, fmt.Errorf("%w: %s", core.ErrUnsupportedSchema, v)
	}
	return CopyStrategy{
		Variant: v,
		Filter: func(e *core.Entity) bool {
			return IsProduct(v, e.Type)
		},
		Identity:      globalID,
		IdentityIndex: identityIndex,
	}, nil
}

// Preserve reports whether attribute index of e holds an element identifier.
// Such attributes are copied verbatim. The identifier of a selected product
// is kept whatever its format; other rooted entities are recognized by a
// well-formed GlobalId.
func (s CopyStrategy) Preserve(e *core.Entity, index int) bool {
	if index != s.IdentityIndex {
		return false
	}
	v := e.Attribute(index).Unwrap()
	if v.Kind != core.KindString {
		return false
	}
	if s.Filter != nil && s.Filter(e) {
		return true
	}
	return core.IsValidGlobalID(v.Str)
}

func globalID(e *core.Entity) (core.ElementID, bool) {
	v := e.Attribute(identityIndex).Unwrap()
	if v.Kind != core.KindString || v.Str == "" {
		return "", false
	}
	return core.ElementID(v.Str), true
}
