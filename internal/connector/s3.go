package connector

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// ProviderS3 stores layers in an S3-compatible object store.
const ProviderS3 = "s3"

func init() {
	Register(ProviderS3, newS3Connector)
}

// S3Options configure the s3 provider. Credentials are usually supplied as
// stage secrets named access_key_id and secret_access_key.
type S3Options struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// ObjectStore is the subset of object storage the s3 connector needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	Download(ctx context.Context, bucket, key, file string) error
	Upload(ctx context.Context, bucket, key, file string) error
	Remove(ctx context.Context, bucket, key string) error
}

// S3Connector stages files locally through the dataset engine and moves
// them to and from object storage.
type S3Connector struct {
	engine *duckdb.Adapter
	store  ObjectStore
	format string
	write  config.WriteOptions
	opts   S3Options
}

func newS3Connector(_ context.Context, p Params) (Connector, error) {
	var opts S3Options
	if err := decodeOptions(p, &opts); err != nil {
		return nil, err
	}
	store, err := NewMinioStore(opts)
	if err != nil {
		return nil, err
	}
	return NewS3Connector(p, opts, store), nil
}

// NewS3Connector creates an s3 connector over store.
func NewS3Connector(p Params, opts S3Options, store ObjectStore) *S3Connector {
	format := p.Provider.Format
	if format == "" {
		format = config.DefaultFormat
	}
	return &S3Connector{
		engine: p.Engine,
		store:  store,
		format: format,
		write:  p.Provider.Write,
		opts:   opts,
	}
}

func (c *S3Connector) key(location string) string {
	return strings.TrimPrefix(path.Join(c.opts.Prefix, location), "/")
}

// parts lists the data objects of a directory location.
func (c *S3Connector) parts(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.store.ListObjects(ctx, c.opts.Bucket, prefix+"/")
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, k := range keys {
		if strings.HasSuffix(k, "."+c.format) {
			parts = append(parts, k)
		}
	}
	return parts, nil
}

// Read downloads the objects at location and loads them into a frame.
func (c *S3Connector) Read(ctx context.Context, location string) (*dataset.Frame, error) {
	key := c.key(location)
	keys := []string{key}
	if !isFilePath(key) {
		var err error
		if keys, err = c.parts(ctx, key); err != nil {
			return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to list %s", location)
		}
		if len(keys) == 0 {
			return nil, core.Errorf(core.KindSourceReadFailed, "no %s objects under %s", c.format, location)
		}
	}

	tmp, err := os.MkdirTemp("", "leapflow-s3-")
	if err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to create staging directory")
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	for i, k := range keys {
		if err := c.store.Download(ctx, c.opts.Bucket, k, filepath.Join(tmp, partName(i, c.format))); err != nil {
			return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to download %s", k)
		}
	}

	table := dataset.TableName("read")
	if err := c.engine.LoadFile(ctx, table, partPattern(tmp, c.format), c.format); err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", location)
	}
	return dataset.Wrap(c.engine, table), nil
}

// Write exports the frame to a staging directory and uploads the files.
// Existing parts of a directory location are removed unless the write mode
// is append.
func (c *S3Connector) Write(ctx context.Context, f *dataset.Frame, location string) error {
	key := c.key(location)

	tmp, err := os.MkdirTemp("", "leapflow-s3-")
	if err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to create staging directory")
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if isFilePath(key) {
		file := filepath.Join(tmp, path.Base(key))
		if _, err := exportFrame(ctx, c.engine, f, file, c.format, c.write, 0); err != nil {
			return core.WrapError(core.KindSinkWriteFailed, err, "failed to stage %s", location)
		}
		if err := c.store.Upload(ctx, c.opts.Bucket, key, file); err != nil {
			return core.WrapError(core.KindSinkWriteFailed, err, "failed to upload %s", key)
		}
		return nil
	}

	existing, err := c.parts(ctx, key)
	if err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to list %s", location)
	}
	first := 0
	if c.write.Mode == writeModeAppend {
		first = len(existing)
	} else {
		for _, k := range existing {
			if err := c.store.Remove(ctx, c.opts.Bucket, k); err != nil {
				return core.WrapError(core.KindSinkWriteFailed, err, "failed to remove %s", k)
			}
		}
	}

	files, err := exportFrame(ctx, c.engine, f, tmp, c.format, config.WriteOptions{
		Mode:              writeModeAppend,
		MaxRecordsPerFile: c.write.MaxRecordsPerFile,
	}, first)
	if err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to stage %s", location)
	}
	for _, file := range files {
		k := key + "/" + filepath.Base(file)
		if err := c.store.Upload(ctx, c.opts.Bucket, k, file); err != nil {
			return core.WrapError(core.KindSinkWriteFailed, err, "failed to upload %s", k)
		}
	}
	return nil
}

// Close is a no-op.
func (c *S3Connector) Close() error { return nil }

// MinioStore implements ObjectStore with the minio-go SDK.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore creates a minio client from opts. Without static keys the
// standard AWS environment variables are used.
func NewMinioStore(opts S3Options) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	endpoint := opts.Endpoint
	secure := opts.UseSSL
	if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = secure || u.Scheme == "https"
	}

	creds := credentials.NewEnvAWS()
	if opts.AccessKeyID != "" {
		creds = credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// ListObjects returns every key under prefix.
func (s *MinioStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Download copies an object to a local file.
func (s *MinioStore) Download(ctx context.Context, bucket, key, file string) error {
	return s.client.FGetObject(ctx, bucket, key, file, minio.GetObjectOptions{})
}

// Upload copies a local file to an object.
func (s *MinioStore) Upload(ctx context.Context, bucket, key, file string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, file, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// Remove deletes an object.
func (s *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}
