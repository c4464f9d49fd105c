package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjects struct {
	objects map[string]string
	putErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastPut = params
	f.objects[*params.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(data))}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://" + *params.Bucket + ".s3.example.com/" + *params.Key + "?X-Amz-Signature=abc"}, nil
}

func newTestStorage() (*S3Storage, *fakeObjects, *fakePresigner) {
	objects := &fakeObjects{objects: map[string]string{}}
	presigner := &fakePresigner{}
	return &S3Storage{
		client:     objects,
		presigner:  presigner,
		bucket:     "restorations",
		presignTTL: 24 * time.Hour,
		logger:     zap.NewNop(),
	}, objects, presigner
}

func TestS3Storage_PutGet(t *testing.T) {
	s, objects, _ := newTestStorage()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "originals/abc.jpg", "image/jpeg", strings.NewReader("jpeg"), 4))
	assert.Equal(t, "restorations", *objects.lastPut.Bucket)
	assert.Equal(t, "image/jpeg", *objects.lastPut.ContentType)
	assert.Equal(t, int64(4), *objects.lastPut.ContentLength)

	body, err := s.Get(ctx, "originals/abc.jpg")
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "jpeg", string(data))

	_, err = s.Get(ctx, "originals/missing.jpg")
	assert.Error(t, err)
}

func TestS3Storage_PutError(t *testing.T) {
	s, objects, _ := newTestStorage()
	objects.putErr = errors.New("access denied")

	err := s.Put(context.Background(), "originals/abc.jpg", "image/jpeg", strings.NewReader("jpeg"), 4)
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Storage_PresignGet(t *testing.T) {
	s, _, presigner := newTestStorage()

	url, err := s.PresignGet(context.Background(), "previews/1/256.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://restorations.s3.example.com/previews/1/256.jpg?X-Amz-Signature=abc", url)
	assert.Equal(t, 24*time.Hour, presigner.expires)
}
