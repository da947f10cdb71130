// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// post attachments and inline images. It wraps the AWS SDK v2 and is
// configured for path-style access so MinIO and CEPH work unchanged.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Key prefixes of stored objects.
const (
	AttachmentPrefix = "attachments/"
	ImagePrefix      = "images/"
)

// Client wraps an S3 client bound to one bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for stored files
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}

	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload stores an object under key.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// PutAttachment stores an attachment under a fresh name that keeps the
// original extension and returns its public URL.
func (c *Client) PutAttachment(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error) {
	return c.put(ctx, AttachmentPrefix, filename, contentType, body, size)
}

// PutImage stores an inline image and returns its public URL.
func (c *Client) PutImage(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error) {
	return c.put(ctx, ImagePrefix, filename, contentType, body, size)
}

func (c *Client) put(ctx context.Context, prefix, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := ObjectKey(prefix, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := c.Upload(ctx, key, contentType, body, size); err != nil {
		return "", err
	}
	return c.FileURL(key), nil
}

// ObjectKey builds "{prefix}{uuid}{ext}" from an uploaded file name.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
	return prefix + uuid.NewString() + ext
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// DeleteURLs removes the objects behind the given public URLs. URLs that
// do not belong to this storage are skipped. Every deletion is attempted;
// the failures are joined.
func (c *Client) DeleteURLs(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		key, ok := c.ExtractKey(u)
		if !ok {
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileURL returns the public URL for a stored file.
// Uses the configured public URL if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// Bucket returns the name of the bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// ExtractKey extracts the object key from a public file URL.
// Returns the key and true if the URL matches the storage URL pattern,
// or ("", false) if it doesn't belong to this storage.
func (c *Client) ExtractKey(rawURL string) (string, bool) {
	if c.publicURL != "" {
		prefix := c.publicURL + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return rawURL[len(prefix):], true
		}
	}

	prefix := c.endpoint + "/" + c.bucket + "/"
	if strings.HasPrefix(rawURL, prefix) {
		return rawURL[len(prefix):], true
	}

	return "", false
}

// Owns reports whether rawURL points into this storage.
func (c *Client) Owns(rawURL string) bool {
	_, ok := c.ExtractKey(rawURL)
	return ok
}
