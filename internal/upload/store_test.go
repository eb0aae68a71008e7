package upload

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "upload.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PublishAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, Document{Path: "/me/clash", Target: "clash", Content: "proxies: []\n"}))
	rec, err := s.Get(ctx, "me/clash")
	require.NoError(t, err)
	assert.Equal(t, "me/clash", rec.Path)
	assert.Equal(t, "clash", rec.Target)
	assert.Equal(t, "proxies: []\n", rec.Content)
	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestStore_RepublishKeepsID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, Document{Path: "a", Content: "v1"}))
	first, err := s.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, Document{Path: "a", Content: "v2"}))
	second, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Content)
}

func TestStore_InvalidPath(t *testing.T) {
	s := openStore(t)
	for _, p := range []string{"", "/", "../etc"} {
		err := s.Publish(context.Background(), Document{Path: p, Content: "x"})
		var pe *PublishError
		require.ErrorAs(t, err, &pe, "path %q", p)
		assert.Equal(t, "UPLOAD_PATH_INVALID", pe.AppError.Code)
		assert.Equal(t, "publish", pe.AppError.Stage)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Document{Path: "x"}))
}
