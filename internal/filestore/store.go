// Package filestore is the client of the remote file store that holds
// product photos, logos and the settings document.
//
// The store is an external dependency that is allowed to be down.  Drivers
// report every backend failure as ErrUnavailable (or ErrNotFound /
// ErrConflict when the backend says so) and callers turn those into
// optional results or 5xx responses; nothing here panics.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnavailable wraps any backend failure (network, credentials, 5xx).
	ErrUnavailable = errors.New("filestore: unavailable")
	// ErrNotFound is returned when the addressed file does not exist.
	ErrNotFound = errors.New("filestore: not found")
	// ErrConflict is returned by a conditional write whose version token no
	// longer matches the stored file.
	ErrConflict = errors.New("filestore: version conflict")
	// ErrInvalidName is returned for empty names or malformed ids.
	ErrInvalidName = errors.New("filestore: invalid name")
)

// MaxListedFiles caps ListFiles results.
const MaxListedFiles = 10

// FolderRef identifies a folder and its shareable link.
type FolderRef struct {
	ID  string `json:"id"`
	URL string `json:"web_view_link"`
}

// FileRef describes a stored file.  Version is an opaque token (ETag or
// content hash) usable with UpdateFile's ifMatch.
type FileRef struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	URL        string    `json:"web_view_link"`
	Size       int64     `json:"size"`
	Version    string    `json:"-"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Object is a downloaded file.
type Object struct {
	FileRef
	Data []byte
}

// Store is the contract every driver implements.  Implementations must be
// safe for concurrent use.
type Store interface {
	CreateFolder(ctx context.Context, name, parentID string) (FolderRef, error)
	UploadFile(ctx context.Context, data []byte, name, folderID, contentType string) (FileRef, error)
	// UpdateFile overwrites an existing file.  A non-empty ifMatch makes the
	// write conditional on the current version token.
	UpdateFile(ctx context.Context, fileID string, data []byte, contentType, ifMatch string) (FileRef, error)
	Download(ctx context.Context, fileID string) (Object, error)
	Delete(ctx context.Context, fileID string) error
	// ListFiles returns up to MaxListedFiles images of a folder.
	ListFiles(ctx context.Context, folderID string) ([]FileRef, error)
	// FindByName returns the file with exactly this name, or nil.
	FindByName(ctx context.Context, name, folderID string) (*FileRef, error)
	// FindByNamePrefix returns the most recently modified file whose name
	// starts with prefix, or nil.
	FindByNamePrefix(ctx context.Context, prefix, folderID string) (*FileRef, error)
	// FindAllByNamePrefix returns every match, newest first.
	FindAllByNamePrefix(ctx context.Context, prefix, folderID string) ([]FileRef, error)
	FolderURL(folderID string) string
	// ExtractFolderID parses a link produced by FolderURL.  Links from any
	// other host or path layout are rejected.
	ExtractFolderID(link string) (string, bool)
}

// links builds and parses the public URLs of a store.  Folder links have
// the form <base>/folders/<folder id>; file links <base>/files/<file id>.
type links struct {
	base *url.URL
}

func newLinks(publicURL string) (links, error) {
	u, err := url.Parse(strings.TrimRight(publicURL, "/"))
	if err != nil {
		return links{}, fmt.Errorf("filestore: public url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return links{}, fmt.Errorf("filestore: public url %q must be absolute http(s)", publicURL)
	}
	return links{base: u}, nil
}

func (l links) folderURL(id string) string {
	return l.base.String() + "/folders/" + id
}

func (l links) fileURL(id string) string {
	return l.base.String() + "/files/" + id
}

func (l links) extractFolderID(link string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "", false
	}
	if !strings.EqualFold(u.Scheme, l.base.Scheme) || !strings.EqualFold(u.Host, l.base.Host) {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, l.base.Path+"/folders/")
	if !ok {
		return "", false
	}
	id := strings.TrimSuffix(rest, "/")
	if !validID(id) {
		return "", false
	}
	return id, true
}

// validID accepts slash-separated segments of [A-Za-z0-9._-] without
// empty, "." or ".." segments.
func validID(id string) bool {
	if id == "" || len(id) > 512 {
		return false
	}
	for _, seg := range strings.Split(id, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
		for _, r := range seg {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			case r == '.', r == '_', r == '-':
			default:
				return false
			}
		}
	}
	return true
}

// cleanName turns a user supplied file or folder name into a single valid
// id segment.
func cleanName(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return out, nil
}

func joinID(parentID, name string) string {
	if parentID == "" {
		return name
	}
	return parentID + "/" + name
}

// contentTypeFor falls back to the extension when the caller gave none.
func contentTypeFor(name, given string) string {
	if given != "" {
		return given
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isImage(f FileRef) bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// newestFirst sorts by modification time, most recent first; ties are broken
// by name so results are deterministic.
func newestFirst(files []FileRef) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].ModifiedAt.After(files[j].ModifiedAt)
		}
		return files[i].Name > files[j].Name
	})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
