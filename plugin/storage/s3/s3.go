// Package s3 stores raw uploaded files in an S3-compatible bucket. The vector
// index holds the searchable content; the bucket is the durable backup of the
// originals, keyed uploads/{session_id}/{filename}.
package s3

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	keyPrefix = "uploads"

	// presignExpiry bounds how long a download URL stays valid.
	presignExpiry = 7 * 24 * time.Hour

	// deleteConcurrency bounds parallel object deletions.
	deleteConcurrency = 8
)

// Config carries the bucket connection settings.
type Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string // empty for AWS proper; set for MinIO and friends
	Region    string
	Bucket    string
}

// Object describes one stored file.
type Object struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"created_at"`
}

// Client wraps the AWS SDK v2 S3 client for one bucket.
type Client struct {
	bucket   string
	client   *awss3.Client
	uploader *manager.Uploader
	presign  *awss3.PresignClient
}

// NewClient builds an S3 client from config. Static credentials take
// precedence; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Client{
		bucket:   cfg.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  awss3.NewPresignClient(client),
	}, nil
}

// SessionKey returns the object key for a session's file.
func SessionKey(sessionID, filename string) string {
	return path.Join(keyPrefix, sessionID, filename)
}

func sessionPrefix(sessionID string) string {
	return path.Join(keyPrefix, sessionID) + "/"
}

// Upload stores the file and returns its key and a presigned download URL.
func (c *Client) Upload(ctx context.Context, sessionID, filename string, body io.Reader, contentType string) (*Object, error) {
	key := SessionKey(sessionID, filename)
	if _, err := c.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return nil, errors.Wrapf(err, "upload %s", key)
	}
	url, err := c.presignGet(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Object{Key: key, Filename: filename, URL: url}, nil
}

// ListSession returns all stored files of a session.
func (c *Client) ListSession(ctx context.Context, sessionID string) ([]Object, error) {
	out, err := c.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(sessionPrefix(sessionID)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list objects for session %s", sessionID)
	}
	objects := make([]Object, 0, len(out.Contents))
	for _, item := range out.Contents {
		key := aws.ToString(item.Key)
		url, err := c.presignGet(ctx, key)
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{
			Key:          key,
			Filename:     path.Base(key),
			URL:          url,
			Size:         aws.ToInt64(item.Size),
			LastModified: aws.ToTime(item.LastModified),
		})
	}
	return objects, nil
}

// Delete removes a single object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "delete %s", key)
}

// DeleteSession removes every stored file of a session and returns how many
// objects were deleted.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	objects, err := c.ListSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, obj := range objects {
		g.Go(func() error {
			return c.Delete(gctx, obj.Key)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(objects), nil
}

func (c *Client) presignGet(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", errors.Wrapf(err, "presign %s", key)
	}
	return req.URL, nil
}
