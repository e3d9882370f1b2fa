package filestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFolderID(t *testing.T) {
	l, err := newLinks("https://files.example.com/store/")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		link   string
		wantID string
		wantOK bool
	}{
		{"own folder link", "https://files.example.com/store/folders/inventory/42", "inventory/42", true},
		{"trailing slash", "https://files.example.com/store/folders/inventory/42/", "inventory/42", true},
		{"host is case insensitive", "https://FILES.example.com/store/folders/a", "a", true},
		{"other host", "https://evil.example.com/store/folders/inventory/42", "", false},
		{"other scheme", "http://files.example.com/store/folders/a", "", false},
		{"file link", "https://files.example.com/store/files/inventory/42", "", false},
		{"path escape", "https://files.example.com/store/folders/../secret", "", false},
		{"long opaque segment", "https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz", "", false},
		{"relative", "/store/folders/a", "", false},
		{"empty", "", "", false},
		{"empty id", "https://files.example.com/store/folders/", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := l.extractFolderID(tc.link)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestFolderURLRoundTrip(t *testing.T) {
	l, err := newLinks("http://localhost:8080/files")
	require.NoError(t, err)

	link := l.folderURL("inventory/7")
	assert.Equal(t, "http://localhost:8080/files/folders/inventory/7", link)

	id, ok := l.extractFolderID(link)
	assert.True(t, ok)
	assert.Equal(t, "inventory/7", id)
}

func TestNewLinksRejectsRelativeBase(t *testing.T) {
	_, err := newLinks("/files")
	assert.Error(t, err)
	_, err = newLinks("ftp://host/files")
	assert.Error(t, err)
}

func TestCleanName(t *testing.T) {
	got, err := cleanName("  my photo (1).JPG ")
	require.NoError(t, err)
	assert.Equal(t, "my_photo_1.JPG", got)

	got, err = cleanName(`..\..\etc\passwd`)
	require.NoError(t, err)
	assert.Equal(t, "passwd", got)

	_, err = cleanName("///")
	assert.ErrorIs(t, err, ErrInvalidName)
}
