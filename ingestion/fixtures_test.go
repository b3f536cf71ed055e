package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/step"
	"github.com/stretchr/testify/require"
)

type fixtureProduct struct {
	label    uint64
	typeName string
	name     string
}

// writeModel writes a small model declaring schemaID with the given products.
// Every product references the owner history #1 and the placement #3.
// It returns the path and the GlobalIds of the products in label order.
func writeModel(t *testing.T, dir, fileName, schemaID string, products []fixtureProduct) (string, []core.ElementID) {
	t.Helper()
	path := filepath.Join(dir, fileName)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := step.NewWriter(f)
	require.NoError(t, w.WriteHeader(step.Header{
		Name:    fileName,
		Schemas: []string{schemaID},
	}))

	write := func(label uint64, typeName string, attrs ...core.Value) {
		require.NoError(t, w.WriteEntity(&core.Entity{Label: label, Type: typeName, Attributes: attrs}))
	}

	write(1, "IFCOWNERHISTORY", core.Null(), core.Null(), core.Null(), core.Enum("ADDED"), core.Null(), core.Null(), core.Null(), core.Integer(0))
	write(2, "IFCCARTESIANPOINT", core.List(core.Real(0), core.Real(0), core.Real(0)))
	write(3, "IFCLOCALPLACEMENT", core.Null(), core.Ref(2))

	ids := make([]core.ElementID, 0, len(products))
	related := make([]core.Value, 0, len(products))
	for _, p := range products {
		id := core.NewGlobalID()
		ids = append(ids, id)
		related = append(related, core.Ref(p.label))
		write(p.label, p.typeName,
			core.String(string(id)), core.Ref(1), core.String(p.name), core.Null(), core.Null(), core.Ref(3), core.Null(), core.Null())
	}

	write(30, "IFCPROJECT", core.String(string(core.NewGlobalID())), core.Ref(1), core.String("Project"))
	write(40, "IFCMATERIAL", core.String("Concrete"))
	write(50, "IFCRELASSOCIATESMATERIAL",
		core.String(string(core.NewGlobalID())), core.Ref(1), core.Null(), core.Null(), core.List(related...), core.Ref(40))

	require.NoError(t, w.Close())
	return path, ids
}

func legacyProducts() []fixtureProduct {
	return []fixtureProduct{
		{10, "IFCWALL", "Wall"},
		{11, "IFCDOOR", "Door"},
		{12, "IFCWINDOW", "Window"},
		{13, "IFCSLAB", "Slab"},
		{14, "IFCBEAM", "Beam"},
	}
}

func scratchEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// writeTaggedModel writes a legacy model whose only product carries tag as
// its identifier instead of a GlobalId.
func writeTaggedModel(t *testing.T, dir, tag string) string {
	t.Helper()
	path := filepath.Join(dir, "tagged.ifc")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := step.NewWriter(f)
	require.NoError(t, w.WriteHeader(step.Header{Name: "tagged.ifc", Schemas: []string{"IFC2X3"}}))
	require.NoError(t, w.WriteEntity(&core.Entity{Label: 1, Type: "IFCWALL", Attributes: []core.Value{
		core.String(tag), core.Null(), core.String("Wall"), core.Null(), core.Null(), core.Null(), core.Null(), core.Null(),
	}}))
	require.NoError(t, w.Close())
	return path
}

// cancelAfterRegister reports cancellation once models holds a registration.
type cancelAfterRegister struct {
	context.Context
	models *ModelStore
}

func (c cancelAfterRegister) Err() error {
	if c.models.Len() > 0 {
		return context.Canceled
	}
	return c.Context.Err()
}
