package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures an S3-compatible store.
type MinioOptions struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// Minio stores objects in a single bucket of an S3-compatible service.
type Minio struct {
	client     *minio.Client
	bucket     string
	endpoint   string
	secure     bool
	publicBase string
}

var (
	_ Store     = (*Minio)(nil)
	_ Copier    = (*Minio)(nil)
	_ Presigner = (*Minio)(nil)
)

// NewMinio connects to the endpoint and makes sure the bucket exists.
func NewMinio(ctx context.Context, opts MinioOptions) (*Minio, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	store := &Minio{
		client:     client,
		bucket:     opts.Bucket,
		endpoint:   opts.Endpoint,
		secure:     opts.UseSSL,
		publicBase: strings.TrimRight(opts.PublicBaseURL, "/"),
	}
	if err := store.ensureBucket(ctx, opts.Region); err != nil {
		return nil, err
	}
	return store, nil
}

func (m *Minio) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("s3 bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("s3 make bucket %q: %w", m.bucket, err)
	}
	return nil
}

// Put uploads r under key.
func (m *Minio) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// Delete removes key. Missing objects are not an error.
func (m *Minio) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 remove object: %w", err)
	}
	return nil
}

// Copy duplicates srcKey to dstKey without moving bytes through this host.
func (m *Minio) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := cleanKey(srcKey)
	if err != nil {
		return err
	}
	dst, err := cleanKey(dstKey)
	if err != nil {
		return err
	}
	if _, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: m.bucket, Object: src},
	); err != nil {
		return fmt.Errorf("s3 copy object: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for key.
func (m *Minio) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	presigned, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigned get object: %w", err)
	}
	return presigned.String(), nil
}

// URL returns the public URL of key.
func (m *Minio) URL(key string) string {
	key = strings.TrimLeft(key, "/")
	if m.publicBase != "" {
		return joinPublicURL(m.publicBase, key)
	}
	scheme := "http"
	if m.secure {
		scheme = "https"
	}
	return joinPublicURL(fmt.Sprintf("%s://%s/%s", scheme, m.endpoint, m.bucket), key)
}
