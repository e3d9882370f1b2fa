package settings

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importfull/inventory-api/internal/filestore"
)

const folder = "inventory"

func newLocal(t *testing.T) *filestore.Local {
	t.Helper()
	files, err := filestore.NewLocal(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return files
}

func readRemote(t *testing.T, files filestore.Store) Document {
	t.Helper()
	ctx := context.Background()
	ref, err := files.FindByName(ctx, FileName, folder)
	require.NoError(t, err)
	require.NotNil(t, ref)
	obj, err := files.Download(ctx, ref.ID)
	require.NoError(t, err)
	doc := Document{}
	require.NoError(t, json.Unmarshal(obj.Data, &doc))
	return doc
}

func TestLoadCreatesDefaultDocument(t *testing.T) {
	files := newLocal(t)
	s := New(files, folder, nil)

	doc := s.Load(context.Background())
	assert.Equal(t, Default(), doc)
	assert.Equal(t, Default(), readRemote(t, files))
}

func TestUpdateSettingPreservesOtherKeys(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	s := New(files, folder, nil)

	require.True(t, s.UpdateSetting(ctx, KeyTheme, "dark"))
	require.True(t, s.UpdateSetting(ctx, KeyLogoLight, "X"))

	// A fresh process sees both writes.
	doc := New(files, folder, nil).Load(ctx)
	assert.Equal(t, "dark", doc[KeyTheme])
	assert.Equal(t, "X", doc[KeyLogoLight])
}

func TestLoadMergesRemoteIntoMemory(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	_, err := files.UploadFile(ctx, []byte(`{"theme_pref":"dark","custom":1}`), FileName, folder, "")
	require.NoError(t, err)

	s := New(files, folder, nil)
	doc := s.Load(ctx)
	assert.Equal(t, "dark", doc[KeyTheme])
	assert.Equal(t, float64(1), doc["custom"])
	// Absent remotely, kept from memory.
	assert.Contains(t, doc, KeyFavicon)
}

func TestLoadEmptyFileIsEmptyMapping(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	_, err := files.UploadFile(ctx, []byte("  \n"), FileName, folder, "")
	require.NoError(t, err)

	doc := New(files, folder, nil).Load(ctx)
	assert.Equal(t, Default(), doc)
}

func TestLoadCorruptFileLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	_, err := files.UploadFile(ctx, []byte(`{"theme_pref":`), FileName, folder, "")
	require.NoError(t, err)

	doc := New(files, folder, nil).Load(ctx)
	assert.Equal(t, "light", doc[KeyTheme])
}

func TestConcurrentUpdatesBothSurvive(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	s := New(files, folder, nil)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = s.UpdateSetting(ctx, KeyTheme, "dark") }()
	go func() { defer wg.Done(); results[1] = s.UpdateSetting(ctx, KeyLogoDark, "/logo/dark") }()
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	remote := readRemote(t, files)
	assert.Equal(t, "dark", remote[KeyTheme])
	assert.Equal(t, "/logo/dark", remote[KeyLogoDark])
}

// racingFiles lets another writer update the settings file right before the
// first conditional write of the store under test.
type racingFiles struct {
	filestore.Store
	once  sync.Once
	other func()
}

func (r *racingFiles) UpdateFile(ctx context.Context, id string, data []byte, ct, ifMatch string) (filestore.FileRef, error) {
	r.once.Do(r.other)
	return r.Store.UpdateFile(ctx, id, data, ct, ifMatch)
}

func TestUpdateSettingRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	require.True(t, New(files, folder, nil).Save(ctx))

	other := New(files, folder, nil)
	racing := &racingFiles{Store: files, other: func() {
		require.True(t, other.UpdateSetting(ctx, KeyFavicon, "/logo/favicon"))
	}}
	s := New(racing, folder, nil)

	require.True(t, s.UpdateSetting(ctx, KeyTheme, "dark"))

	remote := readRemote(t, files)
	assert.Equal(t, "dark", remote[KeyTheme])
	assert.Equal(t, "/logo/favicon", remote[KeyFavicon])
}

type downFiles struct{ filestore.Store }

func (downFiles) FindByName(context.Context, string, string) (*filestore.FileRef, error) {
	return nil, filestore.ErrUnavailable
}

func (downFiles) UploadFile(context.Context, []byte, string, string, string) (filestore.FileRef, error) {
	return filestore.FileRef{}, filestore.ErrUnavailable
}

func (downFiles) UpdateFile(context.Context, string, []byte, string, string) (filestore.FileRef, error) {
	return filestore.FileRef{}, filestore.ErrUnavailable
}

func TestStoreDownNeverPanics(t *testing.T) {
	ctx := context.Background()
	s := New(downFiles{}, folder, nil)

	assert.Equal(t, Default(), s.Load(ctx))
	assert.False(t, s.Save(ctx))
	assert.False(t, s.UpdateSetting(ctx, KeyTheme, "dark"))
	assert.Equal(t, "fallback", s.GetSetting(ctx, KeyLogoLight, "fallback"))
}

func TestGetSettingLoadsOnlyWhenUnknown(t *testing.T) {
	ctx := context.Background()
	files := newLocal(t)
	require.True(t, New(files, folder, nil).UpdateSetting(ctx, KeyLogoLight, "/logo/light"))

	s := New(files, folder, nil)
	assert.Equal(t, "/logo/light", s.GetSetting(ctx, KeyLogoLight, nil))
	assert.Equal(t, "light", s.GetSetting(ctx, KeyTheme, "dark"))
	assert.Nil(t, s.GetSetting(ctx, KeyFavicon, nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(KeyTheme, "dark"))
	assert.NoError(t, Validate(KeyLogoLight, nil))
	assert.NoError(t, Validate(KeyFavicon, "/logo/favicon"))

	var verr *ValidationError
	assert.ErrorAs(t, Validate(KeyTheme, "blue"), &verr)
	assert.ErrorAs(t, Validate(KeyLogoDark, 12), &verr)
	assert.ErrorAs(t, Validate("admin", "x"), &verr)
}
