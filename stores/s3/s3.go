// Package s3 stores pipeline documents as JSON objects in an S3 compatible
// bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/birdayz/edgepipe/edoc"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object name.
	Prefix string
	Secure bool
}

type Store struct {
	client *minio.Client

	prefix string
	bucket string
}

// New connects to the endpoint and creates the bucket if it is missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Store{
		client: client,
		prefix: cfg.Prefix,
		bucket: cfg.Bucket,
	}, nil
}

func (s *Store) objectName(name string) string {
	return path.Join(s.prefix, name+".json")
}

func (s *Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return strings.TrimSuffix(s.prefix, "/") + "/"
}

func (s *Store) Put(ctx context.Context, name string, d *edoc.Document) error {
	if err := edoc.ValidateName(name); err != nil {
		return err
	}
	b, err := edoc.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectName(name), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (s *Store) Get(ctx context.Context, name string) (*edoc.Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(name, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(name, err)
	}
	return edoc.Unmarshal(b)
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	names := []string{}
	prefix := s.listPrefix()
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if info.Err != nil {
			return nil, info.Err
		}
		name, ok := strings.CutSuffix(strings.TrimPrefix(info.Key, prefix), ".json")
		if !ok || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, s.objectName(name), minio.StatObjectOptions{}); err != nil {
		return s.mapErr(name, err)
	}
	return s.client.RemoveObject(ctx, s.bucket, s.objectName(name), minio.RemoveObjectOptions{})
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) mapErr(name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", edoc.ErrNotFound, name)
	}
	return err
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

var _ edoc.Store = (*Store)(nil)
