package submissions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_PreservesOrder(t *testing.T) {
	r, err := NewJSONRepository(filepath.Join(t.TempDir(), common.SubmissionsFile))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, models.Event{"type": "submission", "n": "1"}))
	require.NoError(t, r.Append(ctx, models.Event{"type": "submission", "n": "2"}))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0]["n"])
	assert.Equal(t, "2", list[1]["n"])
}
