package internal

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/classifieds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	deletedKeys []string
	deleteErr   error

	uploadedKey  string
	uploadedType string
	uploadedBody string
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletedKeys = append(f.deletedKeys, aws.ToString(params.Key))
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.uploadedKey = aws.ToString(input.Key)
	f.uploadedType = aws.ToString(input.ContentType)
	f.uploadedBody = string(body)
	return &manager.UploadOutput{}, nil
}

func TestS3BlobStoreStore(t *testing.T) {
	fake := &fakeS3{}
	store := newS3BlobStore(fake, fake, "skelbimai", "/listings/", "https://cdn.example.com/")

	url, err := store.Store(context.Background(), "photo.PNG", "image/png", []byte("png"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fake.uploadedKey, "listings/"))
	assert.True(t, strings.HasSuffix(fake.uploadedKey, ".png"))
	assert.Equal(t, "image/png", fake.uploadedType)
	assert.Equal(t, "png", fake.uploadedBody)
	assert.Equal(t, "https://cdn.example.com/"+fake.uploadedKey, url)
}

func TestS3BlobStoreDelete(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		deleteErr error
		wantKey   string
		wantErr   bool
	}{
		{name: "deletes key", url: "https://cdn.example.com/listings/a.jpg", wantKey: "listings/a.jpg"},
		{name: "missing object", url: "https://cdn.example.com/listings/a.jpg", deleteErr: &smithy.GenericAPIError{Code: "NoSuchKey"}, wantKey: "listings/a.jpg"},
		{name: "access denied", url: "https://cdn.example.com/listings/a.jpg", deleteErr: &smithy.GenericAPIError{Code: "AccessDenied"}, wantKey: "listings/a.jpg", wantErr: true},
		{name: "network", url: "https://cdn.example.com/listings/a.jpg", deleteErr: errors.New("dial tcp: timeout"), wantKey: "listings/a.jpg", wantErr: true},
		{name: "foreign url", url: "https://elsewhere.example.com/a.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{deleteErr: tt.deleteErr}
			store := newS3BlobStore(fake, fake, "skelbimai", "listings", "https://cdn.example.com")

			err := store.Delete(context.Background(), tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantKey != "" {
				assert.Equal(t, []string{tt.wantKey}, fake.deletedKeys)
			} else {
				assert.Empty(t, fake.deletedKeys)
			}
		})
	}
}

func TestS3PublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", s3PublicBaseURL(classifieds.BlobConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com"}, "eu-north-1"))
	assert.Equal(t, "http://localhost:9000/b", s3PublicBaseURL(classifieds.BlobConfig{Bucket: "b", Endpoint: "http://localhost:9000/"}, "eu-north-1"))
	assert.Equal(t, "https://b.s3.eu-north-1.amazonaws.com", s3PublicBaseURL(classifieds.BlobConfig{Bucket: "b"}, "eu-north-1"))
}

func TestNewS3BlobStoreRequiresBucket(t *testing.T) {
	_, err := NewS3BlobStore(context.Background(), classifieds.BlobConfig{Provider: "s3"})
	assert.Error(t, err)
}
