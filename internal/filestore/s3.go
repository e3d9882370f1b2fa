package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/importfull/inventory-api/internal/config"
)

// folderMarker is the zero-byte object that makes an empty prefix exist.
const folderMarker = ".keep"

// S3 stores folders as key prefixes and files as objects.  It works with AWS
// S3 and S3-compatible servers (MinIO, R2) that honor If-Match on PutObject.
type S3 struct {
	client *s3.Client
	bucket string
	links  links
}

// NewS3 builds the driver from the storage configuration.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("filestore/s3: S3_BUCKET is not configured")
	}
	l, err := newLinks(cfg.PublicURL)
	if err != nil {
		return nil, err
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.S3Region),
	}
	if cfg.S3Key != "" && cfg.S3Secret != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, ""),
		))
	}
	awsConf, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}
	return &S3{
		client: s3.NewFromConfig(awsConf, clientOpts...),
		bucket: cfg.S3Bucket,
		links:  l,
	}, nil
}

func (d *S3) CreateFolder(ctx context.Context, name, parentID string) (FolderRef, error) {
	seg, err := cleanName(name)
	if err != nil {
		return FolderRef{}, err
	}
	if parentID != "" && !validID(parentID) {
		return FolderRef{}, fmt.Errorf("%w: parent %q", ErrInvalidName, parentID)
	}
	id := joinID(parentID, seg)
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(id + "/" + folderMarker),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return FolderRef{}, d.mapErr("create folder "+id, err)
	}
	return FolderRef{ID: id, URL: d.links.folderURL(id)}, nil
}

func (d *S3) UploadFile(ctx context.Context, data []byte, name, folderID, contentType string) (FileRef, error) {
	seg, err := cleanName(name)
	if err != nil {
		return FileRef{}, err
	}
	if !validID(folderID) {
		return FileRef{}, fmt.Errorf("%w: folder %q", ErrInvalidName, folderID)
	}
	return d.put(ctx, joinID(folderID, seg), data, contentType, "")
}

func (d *S3) UpdateFile(ctx context.Context, fileID string, data []byte, contentType, ifMatch string) (FileRef, error) {
	if !validID(fileID) {
		return FileRef{}, fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	if ifMatch == "" {
		// Plain overwrite still requires the file to exist.
		if _, err := d.head(ctx, fileID); err != nil {
			return FileRef{}, err
		}
	}
	return d.put(ctx, fileID, data, contentType, ifMatch)
}

func (d *S3) Download(ctx context.Context, fileID string) (Object, error) {
	if !validID(fileID) {
		return Object{}, fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return Object{}, d.mapErr("get "+fileID, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, unavailable("filestore/s3: read "+fileID, err)
	}
	ref := d.ref(fileID, aws.ToString(out.ContentType), int64(len(data)), aws.ToTime(out.LastModified))
	ref.Version = aws.ToString(out.ETag)
	return Object{FileRef: ref, Data: data}, nil
}

func (d *S3) Delete(ctx context.Context, fileID string) error {
	if !validID(fileID) {
		return fmt.Errorf("%w: %q", ErrInvalidName, fileID)
	}
	// DeleteObject succeeds on missing keys, so probe first.
	if _, err := d.head(ctx, fileID); err != nil {
		return err
	}
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return d.mapErr("delete "+fileID, err)
	}
	return nil
}

func (d *S3) ListFiles(ctx context.Context, folderID string) ([]FileRef, error) {
	all, err := d.list(ctx, folderID)
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

func (d *S3) FindByName(ctx context.Context, name, folderID string) (*FileRef, error) {
	if !validID(folderID) || !validID(name) || strings.Contains(name, "/") {
		return nil, nil
	}
	ref, err := d.head(ctx, joinID(folderID, name))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (d *S3) FindByNamePrefix(ctx context.Context, prefix, folderID string) (*FileRef, error) {
	all, err := d.FindAllByNamePrefix(ctx, prefix, folderID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

func (d *S3) FindAllByNamePrefix(ctx context.Context, prefix, folderID string) ([]FileRef, error) {
	all, err := d.list(ctx, folderID)
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

func (d *S3) FolderURL(folderID string) string { return d.links.folderURL(folderID) }

func (d *S3) ExtractFolderID(link string) (string, bool) { return d.links.extractFolderID(link) }

func (d *S3) put(ctx context.Context, key string, data []byte, contentType, ifMatch string) (FileRef, error) {
	ct := contentTypeFor(key, contentType)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ct),
	}
	if ifMatch != "" {
		in.IfMatch = aws.String(ifMatch)
	}
	out, err := d.client.PutObject(ctx, in)
	if err != nil {
		return FileRef{}, d.mapErr("put "+key, err)
	}
	ref := d.ref(key, ct, int64(len(data)), time.Now().UTC())
	ref.Version = aws.ToString(out.ETag)
	return ref, nil
}

func (d *S3) head(ctx context.Context, key string) (FileRef, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return FileRef{}, d.mapErr("head "+key, err)
	}
	ref := d.ref(key, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified))
	ref.Version = aws.ToString(out.ETag)
	return ref, nil
}

// list returns the direct children of a folder, markers excluded.
func (d *S3) list(ctx context.Context, folderID string) ([]FileRef, error) {
	if !validID(folderID) {
		return nil, fmt.Errorf("%w: folder %q", ErrInvalidName, folderID)
	}
	prefix := folderID + "/"
	p := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	var out []FileRef
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, d.mapErr("list "+folderID, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if path.Base(key) == folderMarker {
				continue
			}
			ref := d.ref(key, "", aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified))
			ref.Version = aws.ToString(obj.ETag)
			out = append(out, ref)
		}
	}
	return out, nil
}

func (d *S3) ref(key, contentType string, size int64, modified time.Time) FileRef {
	name := path.Base(key)
	return FileRef{
		ID:         key,
		Name:       name,
		MimeType:   contentTypeFor(name, contentType),
		URL:        d.links.fileURL(key),
		Size:       size,
		ModifiedAt: modified.UTC(),
	}
}

func (d *S3) mapErr(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "PreconditionFailed", "ConditionalRequestConflict":
			return ErrConflict
		}
	}
	return unavailable("filestore/s3: "+op, err)
}
