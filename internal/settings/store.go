// Package settings keeps the application settings document (logo URLs and
// theme) as a single JSON file in the remote file store.
//
// A Store is built once at startup and injected into the handlers that need
// it.  Writes are serialized by the store's mutex and guarded against other
// processes by the file's version token.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/metrics"
)

// FileName is the settings document's name inside the settings folder.
const FileName = "app_settings.json"

const (
	KeyLogoLight = "logo_light_url"
	KeyLogoDark  = "logo_dark_url"
	KeyFavicon   = "favicon_url"
	KeyTheme     = "theme_pref"
)

// maxWriteAttempts bounds the reload/apply/save cycle when another writer
// changed the file in between.
const maxWriteAttempts = 3

// Document maps a setting key to its JSON value.
type Document map[string]any

// String returns the value of key when it is a string.
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// Default is the document persisted when no settings file exists yet.
func Default() Document {
	return Document{
		KeyLogoLight: nil,
		KeyLogoDark:  nil,
		KeyFavicon:   nil,
		KeyTheme:     "light",
	}
}

// ValidationError reports a key or value the document does not accept.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Validate checks a single key/value pair before it is written.
func Validate(key string, value any) error {
	switch key {
	case KeyLogoLight, KeyLogoDark, KeyFavicon:
		if value == nil {
			return nil
		}
		if _, ok := value.(string); !ok {
			return &ValidationError{Msg: fmt.Sprintf("%s must be a string or null", key)}
		}
	case KeyTheme:
		if v, _ := value.(string); v != "light" && v != "dark" {
			return &ValidationError{Msg: "theme_pref must be 'light' or 'dark'"}
		}
	default:
		return &ValidationError{Msg: fmt.Sprintf("unknown setting %q", key)}
	}
	return nil
}

// Store is the process-local view of the settings document.
type Store struct {
	files    filestore.Store
	folderID string
	log      *zap.Logger

	mu      sync.Mutex
	doc     Document
	fileID  string // empty until the remote file is known
	version string // version token of the last read or write
}

// New returns an unloaded Store holding the default document.
func New(files filestore.Store, folderID string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		files:    files,
		folderID: folderID,
		log:      log.Named("settings"),
		doc:      Default(),
	}
}

// Load reads the remote document and merges it into memory.  Keys present
// remotely overwrite local ones; keys missing remotely are kept.  When no
// file exists the current document is persisted.  Failures are logged and
// leave memory untouched.  The returned document is a copy.
func (s *Store) Load(ctx context.Context) Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		s.log.Warn("load settings", zap.Error(err))
	}
	return maps.Clone(s.doc)
}

// Save writes the whole document.  It reports false on any failure.
func (s *Store) Save(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAndRecord(ctx) == nil
}

// UpdateSetting reloads the document, sets key and saves.  If another
// process wrote the file in between, the cycle is repeated.
func (s *Store) UpdateSetting(ctx context.Context, key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := s.load(ctx); err != nil {
			s.log.Warn("reload before write", zap.String("key", key), zap.Error(err))
		}
		s.doc[key] = value

		err := s.saveAndRecord(ctx)
		if err == nil {
			s.log.Info("setting updated", zap.String("key", key), zap.Int("attempt", attempt))
			return true
		}
		if !errors.Is(err, filestore.ErrConflict) {
			return false
		}
		s.log.Info("settings file changed concurrently, retrying", zap.String("key", key), zap.Int("attempt", attempt))
	}
	return false
}

// GetSetting returns the cached value of key, or def when it is absent or
// null.  The remote document is loaded first only while the value is empty
// and no remote file is known yet.
func (s *Store) GetSetting(ctx context.Context, key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isEmpty(s.doc[key]) && s.fileID == "" {
		if err := s.load(ctx); err != nil {
			s.log.Warn("load settings", zap.Error(err))
		}
	}
	v, ok := s.doc[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// Snapshot returns a copy of the cached document without touching the store.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.doc)
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context) error {
	ref, err := s.files.FindByName(ctx, FileName, s.folderID)
	if err != nil {
		return fmt.Errorf("find %s: %w", FileName, err)
	}
	if ref == nil {
		s.log.Info("settings file not found, creating it", zap.String("folder", s.folderID))
		s.fileID, s.version = "", ""
		return s.saveAndRecord(ctx)
	}

	obj, err := s.files.Download(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref.ID, err)
	}
	s.fileID, s.version = ref.ID, obj.Version

	remote := Document{}
	if len(bytes.TrimSpace(obj.Data)) > 0 {
		if err := json.Unmarshal(obj.Data, &remote); err != nil {
			return fmt.Errorf("parse %s: %w", ref.ID, err)
		}
	}
	maps.Copy(s.doc, remote)
	return nil
}

func (s *Store) saveAndRecord(ctx context.Context) error {
	err := s.save(ctx)
	switch {
	case err == nil:
		metrics.SettingsSaves.WithLabelValues("ok").Inc()
	case errors.Is(err, filestore.ErrConflict):
		metrics.SettingsSaves.WithLabelValues("conflict").Inc()
	default:
		metrics.SettingsSaves.WithLabelValues("failed").Inc()
		s.log.Error("save settings", zap.Error(err))
	}
	return err
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context) error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if s.fileID != "" {
		ref, err := s.files.UpdateFile(ctx, s.fileID, data, "application/json", s.version)
		switch {
		case err == nil:
			s.version = ref.Version
			return nil
		case errors.Is(err, filestore.ErrNotFound):
			// Removed behind our back; create it again below.
			s.fileID, s.version = "", ""
		default:
			return err
		}
	}

	ref, err := s.files.UploadFile(ctx, data, FileName, s.folderID, "application/json")
	if err != nil {
		return err
	}
	s.fileID, s.version = ref.ID, ref.Version
	return nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
