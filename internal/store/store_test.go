package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/phonebind/internal/common"
)

type counterDoc struct {
	Count int      `json:"count"`
	Items []string `json:"items"`
}

func newCounterStore(t *testing.T, path string) *Store[counterDoc] {
	t.Helper()
	s, err := New(path, func() counterDoc { return counterDoc{Items: []string{}} })
	require.NoError(t, err)
	return s
}

// countWrites replaces the rename hook with one that counts completed writes.
func countWrites(t *testing.T) *int {
	t.Helper()
	var n int
	orig := beforeRename
	beforeRename = func(string) error { n++; return nil }
	t.Cleanup(func() { beforeRename = orig })
	return &n
}

func TestLoad_InitializesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	s := newCounterStore(t, path)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Count)
	assert.NotNil(t, doc.Items)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "default must be persisted immediately")
	assert.Contains(t, string(data), `"items": []`)
}

func TestLoad_InitializesBlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	s := newCounterStore(t, path)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, counterDoc{Items: []string{}}, doc)
}

func TestLoad_MalformedSurfacesStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"count": oops`), 0o644))
	s := newCounterStore(t, path)

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorage))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "load", se.Op)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"count": oops`, string(data), "malformed content must not be overwritten")

	_, err = s.Update(context.Background(), func(d counterDoc) (counterDoc, bool, error) {
		d.Count++
		return d, true, nil
	})
	assert.True(t, errors.Is(err, common.ErrStorage), "update must refuse to clobber malformed content")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newCounterStore(t, filepath.Join(t.TempDir(), "doc.json"))
	ctx := context.Background()

	want := counterDoc{Count: 7, Items: []string{"a", "<b>"}}
	require.NoError(t, s.Save(ctx, want))

	reopened := newCounterStore(t, s.Path())
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpdate_ConcurrentIncrementsAreNotLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	a := newCounterStore(t, path)
	b := newCounterStore(t, path)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		s := a
		if i%2 == 1 {
			s = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, func(d counterDoc) (counterDoc, bool, error) {
				d.Count++
				return d, true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, doc.Count)
}

func TestUpdate_UnchangedSkipsWrite(t *testing.T) {
	s := newCounterStore(t, filepath.Join(t.TempDir(), "doc.json"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, counterDoc{Count: 1, Items: []string{}}))

	writes := countWrites(t)
	got, err := s.Update(ctx, func(d counterDoc) (counterDoc, bool, error) {
		d.Count = 99
		return d, false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 0, *writes)
}

func TestUpdate_MutatorErrorIsReturnedAsIs(t *testing.T) {
	s := newCounterStore(t, filepath.Join(t.TempDir(), "doc.json"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, counterDoc{Count: 3, Items: []string{}}))

	writes := countWrites(t)
	boom := errors.New("boom")
	_, err := s.Update(ctx, func(d counterDoc) (counterDoc, bool, error) {
		return d, true, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, common.ErrStorage))
	assert.Equal(t, 0, *writes)
}

func TestWrite_CrashBeforeRenameKeepsPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	s := newCounterStore(t, filepath.Join(dir, "doc.json"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, counterDoc{Count: 1, Items: []string{"v1"}}))

	orig := beforeRename
	var tmpSeen string
	beforeRename = func(tmp string) error {
		tmpSeen = tmp
		data, err := os.ReadFile(tmp)
		require.NoError(t, err)
		require.Contains(t, string(data), "v2", "temp file must hold the complete new version")
		return errors.New("simulated crash")
	}
	t.Cleanup(func() { beforeRename = orig })

	_, err := s.Update(ctx, func(d counterDoc) (counterDoc, bool, error) {
		d.Count = 2
		d.Items = []string{"v2"}
		return d, true, nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorage))
	beforeRename = orig

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, counterDoc{Count: 1, Items: []string{"v1"}}, got)

	assert.NotEqual(t, s.Path(), tmpSeen)
	_, statErr := os.Stat(tmpSeen)
	assert.True(t, os.IsNotExist(statErr), "temp file must be cleaned up")

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoad_HonoursCancelledContext(t *testing.T) {
	s := newCounterStore(t, filepath.Join(t.TempDir(), "doc.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsEmptyPath(t *testing.T) {
	_, err := New[counterDoc]("", nil)
	assert.True(t, errors.Is(err, common.ErrStorage))
}

func TestLockFileIsSibling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	s := newCounterStore(t, path)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(path + LockSuffix)
	assert.NoError(t, err)
}
