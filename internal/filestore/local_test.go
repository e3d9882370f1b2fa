package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	d, err := NewLocal(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return d
}

func touch(t *testing.T, d *Local, id string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(filepath.Join(d.root, filepath.FromSlash(id)), at, at))
}

func TestLocalUploadAndDownload(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	folder, err := d.CreateFolder(ctx, "42", "inventory")
	require.NoError(t, err)
	assert.Equal(t, "inventory/42", folder.ID)
	assert.Equal(t, "http://localhost:8080/files/folders/inventory/42", folder.URL)

	ref, err := d.UploadFile(ctx, []byte("png-bytes"), "front.png", folder.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "inventory/42/front.png", ref.ID)
	assert.Equal(t, "image/png", ref.MimeType)

	obj, err := d.Download(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), obj.Data)
	assert.NotEmpty(t, obj.Version)
}

func TestLocalUpdateFileIsConditional(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	ref, err := d.UploadFile(ctx, []byte(`{"a":1}`), "app_settings.json", "inventory", "application/json")
	require.NoError(t, err)
	obj, err := d.Download(ctx, ref.ID)
	require.NoError(t, err)

	_, err = d.UpdateFile(ctx, ref.ID, []byte(`{"a":2}`), "application/json", obj.Version)
	require.NoError(t, err)

	// The first version token is stale now.
	_, err = d.UpdateFile(ctx, ref.ID, []byte(`{"a":3}`), "application/json", obj.Version)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := d.Download(ctx, ref.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got.Data))

	_, err = d.UpdateFile(ctx, "inventory/missing.json", []byte("x"), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalListFilesOnlyImagesCapped(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	for i := 0; i < MaxListedFiles+3; i++ {
		_, err := d.UploadFile(ctx, []byte{byte(i)}, "img"+string(rune('a'+i))+".jpg", "p", "")
		require.NoError(t, err)
	}
	_, err := d.UploadFile(ctx, []byte("notes"), "notes.txt", "p", "")
	require.NoError(t, err)

	files, err := d.ListFiles(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, files, MaxListedFiles)
	for _, f := range files {
		assert.Equal(t, "image/jpeg", f.MimeType)
	}

	empty, err := d.ListFiles(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalFindByNamePrefixNewestWins(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	old, err := d.UploadFile(ctx, []byte("1"), "app_logo_light.png", "inventory", "")
	require.NoError(t, err)
	newer, err := d.UploadFile(ctx, []byte("2"), "app_logo_light.svg", "inventory", "")
	require.NoError(t, err)
	_, err = d.UploadFile(ctx, []byte("3"), "app_logo_dark.png", "inventory", "")
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touch(t, d, old.ID, base)
	touch(t, d, newer.ID, base.Add(time.Hour))

	got, err := d.FindByNamePrefix(ctx, "app_logo_light", "inventory")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	all, err := d.FindAllByNamePrefix(ctx, "app_logo_light", "inventory")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := d.FindByNamePrefix(ctx, "app_logo_favicon", "inventory")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestLocalFindByNameAndDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	ref, err := d.UploadFile(ctx, []byte("{}"), "app_settings.json", "inventory", "")
	require.NoError(t, err)

	found, err := d.FindByName(ctx, "app_settings.json", "inventory")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ref.ID, found.ID)

	require.NoError(t, d.Delete(ctx, ref.ID))
	assert.ErrorIs(t, d.Delete(ctx, ref.ID), ErrNotFound)

	found, err = d.FindByName(ctx, "app_settings.json", "inventory")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLocalRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	d := newTestLocal(t)

	_, err := d.Download(ctx, "../outside")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = d.CreateFolder(ctx, "x", "../up")
	assert.ErrorIs(t, err, ErrInvalidName)
}
