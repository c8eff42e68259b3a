package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "Alice_Smith.jpeg", SafeFilename("/tmp/uploads/Alice Smith.jpeg"))
	assert.Equal(t, "x_y.png", SafeFilename(`C:\pics\x?y.png`))
}

func TestLocalPhotoStoreSavePhoto(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalPhotoStore(dir, "")
	require.NoError(t, err)

	webPath, err := store.SavePhoto(context.Background(), "Bob Jones.png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "/assets/profiles/Bob_Jones.png", webPath)

	body, err := os.ReadFile(filepath.Join(dir, "Bob_Jones.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(body))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		f.body = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3PhotoStoreSavePhoto(t *testing.T) {
	putter := &fakePutter{}
	store := newS3PhotoStore(putter, S3Options{Bucket: "school", Region: "eu-west-1", Prefix: "profiles/"})

	url, err := store.SavePhoto(context.Background(), "Ann.jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "https://school.s3.eu-west-1.amazonaws.com/profiles/Ann.jpeg", url)
	assert.Equal(t, "school", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "profiles/Ann.jpeg", aws.ToString(putter.input.Key))
	assert.Equal(t, "jpeg", putter.body)
}

func TestS3PhotoStoreUploadError(t *testing.T) {
	store := newS3PhotoStore(&fakePutter{err: errors.New("denied")}, S3Options{Bucket: "b", PublicURL: "http://minio:9000/b"})
	_, err := store.SavePhoto(context.Background(), "a.png", strings.NewReader(""))
	require.Error(t, err)
}
