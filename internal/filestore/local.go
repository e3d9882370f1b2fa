package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Local is a filesystem driver rooted at a directory.  Folder and file ids
// are slash-separated paths relative to the root; the version token is the
// SHA-256 of the content.
type Local struct {
	root  string
	links links
	mu    sync.Mutex // serializes conditional writes
}

// NewLocal creates the root directory if needed.
func NewLocal(root, publicURL string) (*Local, error) {
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("filestore/local: %w", err)
		}
		root = abs
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore/local: mkdir root: %w", err)
	}
	l, err := newLinks(publicURL)
	if err != nil {
		return nil, err
	}
	return &Local{root: root, links: l}, nil
}

func (d *Local) abs(id string) string {
	return filepath.Join(d.root, filepath.FromSlash(id))
}

func (d *Local) CreateFolder(_ context.Context, name, parentID string) (FolderRef, error) {
	seg, err := cleanName(name)
	if err != nil {
		return FolderRef{}, err
	}
	if parentID != "" && !validID(parentID) {
		return FolderRef{}, fmt.Errorf("%w: parent %q", ErrInvalidName, parentID)
	}
	id := joinID(parentID, seg)
	if err := os.MkdirAll(d.abs(id), 0o755); err != nil {
		return FolderRef{}, unavailable("filestore/local: mkdir "+id, err)
	}
	return FolderRef{ID: id, URL: d.links.folderURL(id)}, nil
}

func (d *Local) UploadFile(_ context.Context, data []byte, name, folderID, contentType string) (FileRef, error) {
	seg, err := cleanName(name)
	if err != nil {
		return FileRef{}, err
	}
	if !validID(folderID) {
		return FileRef{}, fmt.Errorf("%w: folder %q", ErrInvalidName, folderID)
	}
	id := joinID(folderID, seg)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(id, data); err != nil {
		return FileRef{}, err
	}
	return d.written(id, data, contentType)
}

func (d *Local) UpdateFile(_ context.Context, fileID string, data []byte, contentType, ifMatch string) (FileRef, error) {
	if !validID(fileID) {
		return FileRef{}, fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	current, err := os.ReadFile(d.abs(fileID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileRef{}, ErrNotFound
		}
		return FileRef{}, unavailable("filestore/local: read "+fileID, err)
	}
	if ifMatch != "" && hashOf(current) != ifMatch {
		return FileRef{}, ErrConflict
	}
	if err := d.write(fileID, data); err != nil {
		return FileRef{}, err
	}
	return d.written(fileID, data, contentType)
}

func (d *Local) Download(_ context.Context, fileID string) (Object, error) {
	if !validID(fileID) {
		return Object{}, fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	data, err := os.ReadFile(d.abs(fileID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, ErrNotFound
		}
		return Object{}, unavailable("filestore/local: read "+fileID, err)
	}
	ref, err := d.stat(fileID, "")
	if err != nil {
		return Object{}, err
	}
	ref.Version = hashOf(data)
	return Object{FileRef: ref, Data: data}, nil
}

func (d *Local) Delete(_ context.Context, fileID string) error {
	if !validID(fileID) {
		return fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	if err := os.Remove(d.abs(fileID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return unavailable("filestore/local: remove "+fileID, err)
	}
	return nil
}

func (d *Local) ListFiles(_ context.Context, folderID string) ([]FileRef, error) {
	all, err := d.files(folderID)
	if err != nil {
		return nil, err
	}
	out := make([]FileRef, 0, len(all))
	for _, f := range all {
		if isImage(f) {
			out = append(out, f)
		}
		if len(out) == MaxListedFiles {
			break
		}
	}
	return out, nil
}

func (d *Local) FindByName(_ context.Context, name, folderID string) (*FileRef, error) {
	if !validID(folderID) || !validID(name) || strings.Contains(name, "/") {
		return nil, nil
	}
	ref, err := d.stat(joinID(folderID, name), "")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (d *Local) FindByNamePrefix(ctx context.Context, prefix, folderID string) (*FileRef, error) {
	all, err := d.FindAllByNamePrefix(ctx, prefix, folderID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

func (d *Local) FindAllByNamePrefix(_ context.Context, prefix, folderID string) ([]FileRef, error) {
	all, err := d.files(folderID)
	if err != nil {
		return nil, err
	}
	var out []FileRef
	for _, f := range all {
		if strings.HasPrefix(f.Name, prefix) {
			out = append(out, f)
		}
	}
	newestFirst(out)
	return out, nil
}

func (d *Local) FolderURL(folderID string) string { return d.links.folderURL(folderID) }

func (d *Local) ExtractFolderID(link string) (string, bool) { return d.links.extractFolderID(link) }

// files lists the regular files of a folder; a missing folder is empty.
func (d *Local) files(folderID string) ([]FileRef, error) {
	if !validID(folderID) {
		return nil, fmt.Errorf("%w: folder %q", ErrInvalidName, folderID)
	}
	entries, err := os.ReadDir(d.abs(folderID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, unavailable("filestore/local: list "+folderID, err)
	}
	out := make([]FileRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ref, err := d.stat(joinID(folderID, e.Name()), "")
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (d *Local) write(id string, data []byte) error {
	full := d.abs(id)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return unavailable("filestore/local: mkdir", err)
	}
	tmp := filepath.Join(filepath.Dir(full), "."+filepath.Base(full)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return unavailable("filestore/local: write "+id, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return unavailable("filestore/local: rename "+id, err)
	}
	return nil
}

func (d *Local) stat(id, contentType string) (FileRef, error) {
	fi, err := os.Stat(d.abs(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileRef{}, ErrNotFound
		}
		return FileRef{}, unavailable("filestore/local: stat "+id, err)
	}
	name := path.Base(id)
	return FileRef{
		ID:         id,
		Name:       name,
		MimeType:   contentTypeFor(name, contentType),
		URL:        d.links.fileURL(id),
		Size:       fi.Size(),
		ModifiedAt: fi.ModTime().UTC(),
	}, nil
}

func (d *Local) written(id string, data []byte, contentType string) (FileRef, error) {
	ref, err := d.stat(id, contentType)
	if err != nil {
		return FileRef{}, err
	}
	ref.Version = hashOf(data)
	return ref, nil
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
