package main

import (
	"context"
	"fmt"

	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/model"
	"github.com/poiesic/ifcingest/schema"
	"github.com/urfave/cli/v2"
)

// sampleProducts cycles through classes present in both schemas.
var sampleProducts = []struct {
	typeName string
	name     string
}{
	{"IFCWALL", "Wall"},
	{"IFCSLAB", "Slab"},
	{"IFCCOLUMN", "Column"},
	{"IFCBEAM", "Beam"},
	{"IFCDOOR", "Door"},
	{"IFCWINDOW", "Window"},
}

const (
	ownerHistoryLabel = 5
	placementLabel    = 8
	firstProductLabel = 100
)

func sampleCommand(c *cli.Context) error {
	count := c.Int("count")
	if count < 0 {
		return fmt.Errorf("count must not be negative")
	}

	path, err := writeSample(c.Context, c.String("schema"), count, c.String("out"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

// writeSample creates a model declaring schemaID with count products and
// saves it to out. It returns the absolute path of the saved model.
func writeSample(ctx context.Context, schemaID string, count int, out string) (string, error) {
	m, err := model.Create(schemaID)
	if err != nil {
		return "", err
	}
	defer m.Close()

	if _, err := schema.VariantOf(m); err != nil {
		return "", err
	}

	txn, err := m.BeginTransaction()
	if err != nil {
		return "", err
	}
	insert := func(label uint64, typeName string, attrs ...core.Value) error {
		return txn.Insert(&core.Entity{Label: label, Type: typeName, Attributes: attrs})
	}
	gid := func() core.Value {
		return core.String(string(core.NewGlobalID()))
	}

	err = firstErr(
		insert(1, "IFCPERSON", core.Null(), core.String("Sample"), core.Null(), core.Null(), core.Null(), core.Null(), core.Null(), core.Null()),
		insert(2, "IFCORGANIZATION", core.Null(), core.String("ifcingest"), core.Null(), core.Null(), core.Null()),
		insert(3, "IFCPERSONANDORGANIZATION", core.Ref(1), core.Ref(2), core.Null()),
		insert(4, "IFCAPPLICATION", core.Ref(2), core.String("1.0"), core.String("ifcingest"), core.String("ifcingest")),
		insert(ownerHistoryLabel, "IFCOWNERHISTORY", core.Ref(3), core.Ref(4), core.Null(), core.Enum("ADDED"), core.Null(), core.Null(), core.Null(), core.Integer(0)),
		insert(6, "IFCCARTESIANPOINT", core.List(core.Real(0), core.Real(0), core.Real(0))),
		insert(7, "IFCAXIS2PLACEMENT3D", core.Ref(6), core.Null(), core.Null()),
		insert(placementLabel, "IFCLOCALPLACEMENT", core.Null(), core.Ref(7)),
		insert(9, "IFCPROJECT", gid(), core.Ref(ownerHistoryLabel), core.String("Sample project"), core.Null(), core.Null(), core.Null(), core.Null(), core.Null(), core.Null()),
	)
	if err != nil {
		txn.Rollback()
		return "", err
	}

	for i := range count {
		p := sampleProducts[i%len(sampleProducts)]
		name := fmt.Sprintf("%s %d", p.name, i+1)
		err := insert(uint64(firstProductLabel+i), p.typeName,
			gid(), core.Ref(ownerHistoryLabel), core.String(name), core.Null(), core.Null(), core.Ref(placementLabel), core.Null(), core.Null())
		if err != nil {
			txn.Rollback()
			return "", err
		}
	}

	if err := txn.Commit(ctx); err != nil {
		return "", err
	}
	if err := m.SaveAs(ctx, out); err != nil {
		return "", err
	}
	return m.Path(), nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
