package ifcingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/ifcingest/config"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/model"
	"github.com/poiesic/ifcingest/node"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallAndDoor = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('ViewDefinition [CoordinationView]'),'2;1');
FILE_NAME('house.ifc','2025-03-01T09:30:00',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCOWNERHISTORY($,$,$,.ADDED.,$,$,$,0);
#2=IFCCARTESIANPOINT((0.,0.,0.));
#3=IFCLOCALPLACEMENT($,#2);
#10=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOH',#1,'Wall',$,$,#3,$,$,$);
#11=IFCDOOR('1kTvXnbbzCWw8lcMd1dR4o',#1,'Door',$,$,#3,$,$,$);
#20=IFCPROJECT('3vB2YO$MX4xv5uCqZZG05x',#1,'Project',$,$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "house.ifc")
	require.NoError(t, os.WriteFile(path, []byte(wallAndDoor), 0o644))
	return path
}

func newTestEngine(t *testing.T, opts ...config.ConfigOption) (*Engine, string) {
	t.Helper()
	scratch := t.TempDir()
	cfg := config.NewConfig(append([]config.ConfigOption{
		config.WithScratchDir(scratch),
		config.WithPoolSize(2),
	}, opts...)...)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, scratch
}

func TestNewEngine(t *testing.T) {
	t.Run("with default config", func(t *testing.T) {
		engine, err := NewEngine(nil)
		require.NoError(t, err)
		defer engine.Close()

		assert.NotNil(t, engine.Pipeline())
		assert.NotNil(t, engine.Models())
		assert.NotNil(t, engine.Metrics())
		assert.Equal(t, os.TempDir(), engine.Pipeline().ScratchDir())
	})

	t.Run("error with invalid config", func(t *testing.T) {
		engine, err := NewEngine(config.NewConfig(config.WithPoolSize(0)))
		assert.Error(t, err)
		assert.Nil(t, engine)
	})
}

func TestEngine_Ingest(t *testing.T) {
	engine, scratch := newTestEngine(t)

	manifest, err := engine.Ingest(context.Background(), writeSource(t))
	require.NoError(t, err)

	assert.Equal(t, core.VariantCurrent, manifest.Variant())
	assert.Equal(t, []core.ElementID{"2O2Fr$t4X7Zf8NOew3FLOH", "1kTvXnbbzCWw8lcMd1dR4o"}, manifest.IDs())
	assert.Equal(t, scratch, filepath.Dir(string(manifest.Key())))
	assert.Equal(t, 1, engine.Models().Len())

	copied, err := engine.Models().Get(manifest.Key())
	require.NoError(t, err)
	_, err = copied.Entity(context.Background(), 20)
	assert.ErrorIs(t, err, core.ErrNotFound, "non-products are not copied")

	count, err := testutil.GatherAndCount(engine.Metrics().Registry(), "ifcingest_ingests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1.0, engineGauge(t, engine))
}

// engineGauge returns the store size reported by the engine's metrics.
func engineGauge(t *testing.T, engine *Engine) float64 {
	t.Helper()
	families, err := engine.Metrics().Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "ifcingest_store_models" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("store gauge not registered")
	return 0
}

func TestEngine_Adapter(t *testing.T) {
	engine, _ := newTestEngine(t)

	outputs := make(chan core.Manifest, 2)
	adapter, err := engine.NewAdapter(node.WithOutputListener(func(m core.Manifest) { outputs <- m }))
	require.NoError(t, err)

	source := writeSource(t)
	for range 2 {
		adapter.SetInput(source)
		require.NoError(t, adapter.Calculate())
		engine.Pipeline().Wait()

		// Force a new ingest of the same content.
		future := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(source, future, future))
	}

	first, second := <-outputs, <-outputs
	assert.NotEqual(t, first.Key(), second.Key())
	assert.Equal(t, 2, engine.Models().Len())

	adapter.Cleanup()
	assert.Equal(t, []core.StorageKey{second.Key()}, engine.Models().Keys())
}

func TestEngine_Progress(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.NewConfig(
		config.WithScratchDir(t.TempDir()),
		config.WithProgressInterval(1),
	)
	engine, err := NewEngine(cfg, WithProgressOutput(&buf))
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.Ingest(context.Background(), writeSource(t))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "6/6")
}

func TestEngine_Transform(t *testing.T) {
	upper := func(_ *core.Entity, _ int, v core.Value) (core.Value, error) {
		if v.Kind == core.KindString {
			return core.String(strings.ToUpper(v.Str)), nil
		}
		return v, nil
	}
	cfg := config.NewConfig(config.WithScratchDir(t.TempDir()))
	engine, err := NewEngine(cfg, WithTransform(upper))
	require.NoError(t, err)
	defer engine.Close()

	manifest, err := engine.Ingest(context.Background(), writeSource(t))
	require.NoError(t, err)
	assert.Contains(t, manifest.IDs(), core.ElementID("2O2Fr$t4X7Zf8NOew3FLOH"), "identifiers bypass the transform")

	var copied *model.Model
	copied, err = engine.Models().Get(manifest.Key())
	require.NoError(t, err)
	wall, err := copied.Entity(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "WALL", wall.Attribute(2).Str)
}

func TestEngine_Close(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Ingest(context.Background(), writeSource(t))
	require.NoError(t, err)

	assert.NoError(t, engine.Close())
	assert.Zero(t, engine.Models().Len())
	assert.NoError(t, engine.Close(), "close is idempotent")
}
