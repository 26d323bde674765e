package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/madaris-app/madaris/internal/shared"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "/files/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := store.Upload(ctx, "curriculum/class-1/plan.pdf", strings.NewReader("syllabus"))
	require.NoError(t, err)
	require.Equal(t, "/files/curriculum/class-1/plan.pdf", url)
	require.Equal(t, url, store.URL("curriculum/class-1/plan.pdf"))

	data, err := os.ReadFile(filepath.Join(store.Root(), "curriculum", "class-1", "plan.pdf"))
	require.NoError(t, err)
	require.Equal(t, "syllabus", string(data))

	require.NoError(t, store.Delete(ctx, "curriculum/class-1/plan.pdf"))
	_, err = os.Stat(filepath.Join(store.Root(), "curriculum", "class-1", "plan.pdf"))
	require.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "curriculum/class-1/plan.pdf"))
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "/files")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.True(t, shared.IsValidation(err))
}
