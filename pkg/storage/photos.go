package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeFilename keeps letters, digits, dots, dashes and underscores.
func SafeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
}

// LocalPhotoStore writes profile photos under the assets directory served
// by the API.
type LocalPhotoStore struct {
	files   *LocalStorage
	webRoot string
}

// NewLocalPhotoStore stores photos in dir and reports them under webRoot.
func NewLocalPhotoStore(dir, webRoot string) (*LocalPhotoStore, error) {
	files, err := NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	if webRoot == "" {
		webRoot = "/assets/profiles"
	}
	return &LocalPhotoStore{files: files, webRoot: strings.TrimRight(webRoot, "/")}, nil
}

// SavePhoto stores r as filename and returns its web path.
func (s *LocalPhotoStore) SavePhoto(_ context.Context, filename string, r io.Reader) (string, error) {
	name := SafeFilename(filename)
	if _, err := s.files.SaveStream(name, r); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return s.webRoot + "/" + name, nil
}

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3PhotoStore uploads profile photos to an S3-compatible bucket.
type S3PhotoStore struct {
	client    s3Putter
	bucket    string
	prefix    string
	publicURL string
}

// S3Options configures NewS3PhotoStore.
type S3Options struct {
	Bucket    string
	Region    string
	Prefix    string
	PublicURL string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3PhotoStore builds an S3 client from the default AWS chain, or from
// static keys when given (MinIO style deployments).
func NewS3PhotoStore(ctx context.Context, opts S3Options) (*S3PhotoStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3PhotoStore(client, opts), nil
}

func newS3PhotoStore(client s3Putter, opts S3Options) *S3PhotoStore {
	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3PhotoStore{client: client, bucket: opts.Bucket, prefix: opts.Prefix, publicURL: publicURL}
}

// SavePhoto uploads r and returns the object's public URL.
func (s *S3PhotoStore) SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := s.prefix + SafeFilename(filename)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return "", fmt.Errorf("upload photo %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
