package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const metaOriginalName = "original-name"

// GCSStorage implements Storage on a Google Cloud Storage bucket. Objects are
// named {prefix}{ownerID}/{fileID}.
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStorage creates a bucket-backed storage using Application Default Credentials
func NewGCSStorage(ctx context.Context, bucket, prefix string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: normalizePrefix(prefix),
	}, nil
}

// Close releases the underlying client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func objectName(prefix string, ownerID, fileID uuid.UUID) string {
	return prefix + ownerID.String() + "/" + fileID.String()
}

// Upload streams r into a new object
func (s *GCSStorage) Upload(ctx context.Context, ownerID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()
	name := objectName(s.prefix, ownerID, fileID)

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{metaOriginalName: sanitizeFilename(filename)}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	return fileInfoFromAttrs(w.Attrs())
}

// Download opens a reader on the object
func (s *GCSStorage) Download(ctx context.Context, ownerID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, ownerID, fileID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.bucket.Object(info.Path).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open GCS object reader: %w", gcsErr(err))
	}
	return rc, info, nil
}

// Delete removes the object
func (s *GCSStorage) Delete(ctx context.Context, ownerID uuid.UUID, fileID uuid.UUID) error {
	if err := s.bucket.Object(objectName(s.prefix, ownerID, fileID)).Delete(ctx); err != nil {
		return fmt.Errorf("delete GCS object: %w", gcsErr(err))
	}
	return nil
}

// List returns all objects under the owner's prefix
func (s *GCSStorage) List(ctx context.Context, ownerID uuid.UUID) ([]*FileInfo, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix + ownerID.String() + "/"})

	var files []*FileInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list GCS objects: %w", err)
		}
		info, err := fileInfoFromAttrs(attrs)
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

// GetInfo reads object attributes
func (s *GCSStorage) GetInfo(ctx context.Context, ownerID uuid.UUID, fileID uuid.UUID) (*FileInfo, error) {
	attrs, err := s.bucket.Object(objectName(s.prefix, ownerID, fileID)).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read GCS object attrs: %w", gcsErr(err))
	}
	return fileInfoFromAttrs(attrs)
}

func fileInfoFromAttrs(attrs *storage.ObjectAttrs) (*FileInfo, error) {
	if attrs == nil {
		return nil, fmt.Errorf("missing object attributes")
	}
	id, err := uuid.Parse(path.Base(attrs.Name))
	if err != nil {
		return nil, fmt.Errorf("unexpected object name %q: %w", attrs.Name, err)
	}

	name := attrs.Metadata[metaOriginalName]
	if name == "" {
		name = id.String()
	}

	return &FileInfo{
		ID:          id,
		Name:        name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Path:        attrs.Name,
		CreatedAt:   attrs.Created,
	}, nil
}

func gcsErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

var _ Storage = (*GCSStorage)(nil)
