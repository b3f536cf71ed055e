package node

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIngester records requests and completes them when told to.
type fakeIngester struct {
	mu        sync.Mutex
	calls     []string
	pending   []func(ingestion.Result)
	submitErr error
}

func (f *fakeIngester) IngestAsync(path string, done func(ingestion.Result)) error {
	if err := core.ValidateSourcePath(path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.calls = append(f.calls, path)
	f.pending = append(f.pending, done)
	return nil
}

func (f *fakeIngester) finish(res ingestion.Result) {
	f.mu.Lock()
	done := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	done(res)
}

func (f *fakeIngester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRetainer struct {
	calls int
	err   error
}

func (r *fakeRetainer) RetainNewestOnly() error {
	r.calls++
	return r.err
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.ifc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func manifestFor(key string) core.Manifest {
	return core.NewManifest(core.StorageKey(key), core.VariantLegacy, []core.ElementID{"a", "b"})
}

func TestNew_RequiresIngester(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrIngesterRequired)
}

func TestAdapter_InitialState(t *testing.T) {
	a, err := New(&fakeIngester{}, nil)
	require.NoError(t, err)

	status, message := a.Status()
	assert.Equal(t, StatusIdle, status)
	assert.Empty(t, message)

	_, ok := a.Output()
	assert.False(t, ok)
}

func TestAdapter_InvalidInput(t *testing.T) {
	ing := &fakeIngester{}
	var statuses []Status
	a, err := New(ing, nil, WithStatusListener(func(s Status, _ string) { statuses = append(statuses, s) }))
	require.NoError(t, err)

	a.SetInput(filepath.Join(t.TempDir(), "missing.ifc"))
	err = a.Calculate()
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	status, message := a.Status()
	assert.Equal(t, StatusInvalidInput, status)
	assert.Equal(t, MessageInvalidInput, message)
	assert.Equal(t, []Status{StatusInvalidInput}, statuses)
	assert.Zero(t, ing.callCount())

	_, ok := a.Output()
	assert.False(t, ok)
}

func TestAdapter_Success(t *testing.T) {
	ing := &fakeIngester{}
	var outputs []core.Manifest
	a, err := New(ing, nil, WithOutputListener(func(m core.Manifest) { outputs = append(outputs, m) }))
	require.NoError(t, err)

	a.SetInput(writeInput(t, "v1"))
	require.NoError(t, a.Calculate())
	assert.True(t, a.Busy())

	_, ok := a.Output()
	assert.False(t, ok, "output is absent until completion")

	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy1.ifc")})
	assert.False(t, a.Busy())

	out, ok := a.Output()
	require.True(t, ok)
	assert.Equal(t, core.StorageKey("/tmp/copy1.ifc"), out.Key())
	require.Len(t, outputs, 1)
	assert.Equal(t, out.Key(), outputs[0].Key())

	status, message := a.Status()
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, MessageSuccess, message)
}

func TestAdapter_RejectsConcurrentTrigger(t *testing.T) {
	ing := &fakeIngester{}
	a, err := New(ing, nil)
	require.NoError(t, err)

	a.SetInput(writeInput(t, "v1"))
	require.NoError(t, a.Calculate())
	assert.ErrorIs(t, a.Calculate(), ErrBusy)
	assert.Equal(t, 1, ing.callCount())

	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy1.ifc")})
	assert.False(t, a.Busy())
}

func TestAdapter_SkipsUnchangedInput(t *testing.T) {
	ing := &fakeIngester{}
	a, err := New(ing, nil)
	require.NoError(t, err)

	path := writeInput(t, "v1")
	a.SetInput(path)
	assert.Equal(t, path, a.Input())
	require.NoError(t, a.Calculate())
	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy1.ifc")})

	require.NoError(t, a.Calculate())
	assert.Equal(t, 1, ing.callCount(), "unchanged input is not ingested again")
	assert.False(t, a.Busy())

	// Rewriting the file changes size and modification time.
	require.NoError(t, os.WriteFile(path, []byte("version two"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, a.Calculate())
	assert.Equal(t, 2, ing.callCount())
	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy2.ifc")})

	out, ok := a.Output()
	require.True(t, ok)
	assert.Equal(t, core.StorageKey("/tmp/copy2.ifc"), out.Key())
}

func TestAdapter_SkipRestoresSuccessStatus(t *testing.T) {
	ing := &fakeIngester{}
	var statuses []Status
	a, err := New(ing, nil, WithStatusListener(func(s Status, _ string) { statuses = append(statuses, s) }))
	require.NoError(t, err)

	path := writeInput(t, "v1")
	a.SetInput(path)
	require.NoError(t, a.Calculate())
	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy1.ifc")})

	a.SetInput(filepath.Join(t.TempDir(), "missing.ifc"))
	assert.ErrorIs(t, a.Calculate(), core.ErrInvalidInput)

	a.SetInput(path)
	require.NoError(t, a.Calculate())
	assert.Equal(t, 1, ing.callCount())

	status, message := a.Status()
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, MessageSuccess, message)
	assert.Equal(t, []Status{StatusSuccess, StatusInvalidInput, StatusSuccess}, statuses)

	out, ok := a.Output()
	require.True(t, ok)
	assert.Equal(t, core.StorageKey("/tmp/copy1.ifc"), out.Key())
}

func TestAdapter_FailureKeepsOutput(t *testing.T) {
	ing := &fakeIngester{}
	a, err := New(ing, nil)
	require.NoError(t, err)

	a.SetInput(writeInput(t, "v1"))
	require.NoError(t, a.Calculate())
	ing.finish(ingestion.Result{Manifest: manifestFor("/tmp/copy1.ifc")})

	a.SetInput(writeInput(t, "another file"))
	require.NoError(t, a.Calculate())
	ing.finish(ingestion.Result{Err: core.ErrUnsupportedSchema})

	out, ok := a.Output()
	require.True(t, ok)
	assert.Equal(t, core.StorageKey("/tmp/copy1.ifc"), out.Key())

	status, message := a.Status()
	assert.Equal(t, StatusIdle, status)
	assert.Contains(t, message, core.ErrUnsupportedSchema.Error())
}

func TestAdapter_SubmitFailure(t *testing.T) {
	boom := errors.New("pool closed")
	ing := &fakeIngester{submitErr: boom}
	a, err := New(ing, nil)
	require.NoError(t, err)

	a.SetInput(writeInput(t, "v1"))
	assert.ErrorIs(t, a.Calculate(), boom)
	assert.False(t, a.Busy())

	status, _ := a.Status()
	assert.Equal(t, StatusIdle, status)
}

func TestAdapter_Cleanup(t *testing.T) {
	ret := &fakeRetainer{}
	a, err := New(&fakeIngester{}, ret)
	require.NoError(t, err)

	a.Cleanup()
	assert.Equal(t, 1, ret.calls)

	ret.err = errors.New("close failed")
	assert.NotPanics(t, a.Cleanup)
	assert.Equal(t, 2, ret.calls)

	noStore, err := New(&fakeIngester{}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, noStore.Cleanup)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "invalid input", StatusInvalidInput.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
