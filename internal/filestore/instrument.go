package filestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/metrics"
)

// New builds the driver selected by cfg.Driver and wraps it with logging
// and metrics.
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "s3":
		s, err = NewS3(ctx, cfg)
	case "local":
		s, err = NewLocal(cfg.LocalRoot, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("filestore: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, log), nil
}

// Instrument decorates a Store so every call is counted and every backend
// failure is logged.  Not-found results are expected and logged at debug.
func Instrument(s Store, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented{next: s, log: log.Named("filestore")}
}

type instrumented struct {
	next Store
	log  *zap.Logger
}

func (i *instrumented) observe(op string, start time.Time, err error, fields ...zap.Field) {
	metrics.ObserveStore(op, err)
	fields = append(fields, zap.String("op", op), zap.Duration("took", time.Since(start)))
	switch {
	case err == nil:
		i.log.Debug("store call", fields...)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		i.log.Debug("store call", append(fields, zap.Error(err))...)
	default:
		i.log.Warn("store call failed", append(fields, zap.Error(err))...)
	}
}

func (i *instrumented) CreateFolder(ctx context.Context, name, parentID string) (FolderRef, error) {
	start := time.Now()
	ref, err := i.next.CreateFolder(ctx, name, parentID)
	i.observe("create_folder", start, err, zap.String("name", name), zap.String("parent", parentID))
	return ref, err
}

func (i *instrumented) UploadFile(ctx context.Context, data []byte, name, folderID, contentType string) (FileRef, error) {
	start := time.Now()
	ref, err := i.next.UploadFile(ctx, data, name, folderID, contentType)
	i.observe("upload", start, err, zap.String("name", name), zap.String("folder", folderID), zap.Int("bytes", len(data)))
	return ref, err
}

func (i *instrumented) UpdateFile(ctx context.Context, fileID string, data []byte, contentType, ifMatch string) (FileRef, error) {
	start := time.Now()
	ref, err := i.next.UpdateFile(ctx, fileID, data, contentType, ifMatch)
	i.observe("update", start, err, zap.String("file", fileID), zap.Bool("conditional", ifMatch != ""))
	return ref, err
}

func (i *instrumented) Download(ctx context.Context, fileID string) (Object, error) {
	start := time.Now()
	obj, err := i.next.Download(ctx, fileID)
	i.observe("download", start, err, zap.String("file", fileID))
	return obj, err
}

func (i *instrumented) Delete(ctx context.Context, fileID string) error {
	start := time.Now()
	err := i.next.Delete(ctx, fileID)
	i.observe("delete", start, err, zap.String("file", fileID))
	return err
}

func (i *instrumented) ListFiles(ctx context.Context, folderID string) ([]FileRef, error) {
	start := time.Now()
	files, err := i.next.ListFiles(ctx, folderID)
	i.observe("list", start, err, zap.String("folder", folderID), zap.Int("count", len(files)))
	return files, err
}

func (i *instrumented) FindByName(ctx context.Context, name, folderID string) (*FileRef, error) {
	start := time.Now()
	ref, err := i.next.FindByName(ctx, name, folderID)
	i.observe("find_by_name", start, err, zap.String("name", name), zap.String("folder", folderID))
	return ref, err
}

func (i *instrumented) FindByNamePrefix(ctx context.Context, prefix, folderID string) (*FileRef, error) {
	start := time.Now()
	ref, err := i.next.FindByNamePrefix(ctx, prefix, folderID)
	i.observe("find_by_prefix", start, err, zap.String("prefix", prefix), zap.String("folder", folderID))
	return ref, err
}

func (i *instrumented) FindAllByNamePrefix(ctx context.Context, prefix, folderID string) ([]FileRef, error) {
	start := time.Now()
	refs, err := i.next.FindAllByNamePrefix(ctx, prefix, folderID)
	i.observe("find_all_by_prefix", start, err, zap.String("prefix", prefix), zap.String("folder", folderID))
	return refs, err
}

func (i *instrumented) FolderURL(folderID string) string { return i.next.FolderURL(folderID) }

func (i *instrumented) ExtractFolderID(link string) (string, bool) {
	id, ok := i.next.ExtractFolderID(link)
	if !ok && link != "" {
		i.log.Debug("rejected folder link", zap.String("link", link))
	}
	return id, ok
}
