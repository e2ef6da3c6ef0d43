package accounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 9, 30, 0, 0, time.Local)

func setupRepo(t *testing.T) (*JSONRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), common.AccountsFile)
	r, err := NewJSONRepository(path)
	require.NoError(t, err)
	return r, path
}

func TestList_InitializesEmptyDocument(t *testing.T) {
	r, path := setupRepo(t)

	list, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"accounts":[]}`, string(raw))
}

func TestCreate_RoundTrip(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	pid := "p-1"
	a := models.NewAccount("wx_1", "Alice", "13800000000", now)
	a.PersonID = &pid
	a.Events = []models.Event{{"type": "note", "n": float64(1)}}
	require.NoError(t, r.Create(ctx, a))

	got, err := r.Get(ctx, "wx_1")
	require.NoError(t, err)
	if diff := cmp.Diff(a, *got); diff != "" {
		t.Fatalf("account mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, models.NewAccount("wx_1", "", "", now)))
	err := r.Create(ctx, models.NewAccount("wx_1", "other", "", now))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExists))
	assert.True(t, errors.Is(err, common.ErrValidation))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].DisplayName)
}

func TestUpdate_NotFoundAndMutatorError(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	_, err := r.Update(ctx, "missing", func(a *models.Account) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	require.NoError(t, r.Create(ctx, models.NewAccount("wx_1", "", "", now)))
	boom := errors.New("boom")
	_, err = r.Update(ctx, "wx_1", func(a *models.Account) error {
		a.Phone = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := r.Get(ctx, "wx_1")
	require.NoError(t, err)
	assert.Equal(t, "", got.Phone)
}

func TestUpdate_KeepsKey(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, models.NewAccount("wx_1", "", "", now)))

	got, err := r.Update(ctx, "wx_1", func(a *models.Account) error {
		a.WechatID = "hijack"
		a.Phone = "13900000000"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "wx_1", got.WechatID)
	assert.Equal(t, "13900000000", got.Phone)
}

func TestDelete(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, models.NewAccount("wx_1", "", "", now)))
	require.NoError(t, r.Create(ctx, models.NewAccount("wx_2", "", "", now)))

	require.NoError(t, r.Delete(ctx, "wx_1"))
	assert.ErrorIs(t, r.Delete(ctx, "wx_1"), ErrNotFound)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "wx_2", list[0].WechatID)
}

func TestUpdate_ConcurrentSubmissionsAreNotLost(t *testing.T) {
	r, path := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, models.NewAccount("wx_1", "", "", now)))

	other, err := NewJSONRepository(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		repo := r
		if i%2 == 1 {
			repo = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "wx_1", func(a *models.Account) error {
				a.CountSubmission(now)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.Get(ctx, "wx_1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.QuotaCount)
}
