package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/farcasturd-backend/internal/config"
	"github.com/tbourn/farcasturd-backend/internal/domain"
)

type object struct {
	body        []byte
	contentType string
	meta        map[string]string
	modified    time.Time
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	fail    error
}

func newFake() *fakeS3 { return &fakeS3{objects: map[string]object{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	o, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader(o.body)),
		ContentType:  aws.String(o.contentType),
		Metadata:     o.meta,
		LastModified: aws.Time(o.modified),
	}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	size := 0
	for k, v := range in.Metadata {
		size += len(k) + len(v)
	}
	if size > 2048 {
		return nil, errors.New("MetadataTooLarge")
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = object{
		body:        b,
		contentType: aws.ToString(in.ContentType),
		meta:        in.Metadata,
		modified:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_PutGetExists(t *testing.T) {
	fake := newFake()
	s := New(fake, "bucket", "/turds/")
	ctx := context.Background()

	ok, err := s.Exists(ctx, 198116)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, 198116)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	prompt := `Create a "Farcasturd" & friends 💩`
	require.NoError(t, s.Put(ctx, &domain.Artifact{FID: 198116, Image: []byte{1, 2, 3}, Prompt: prompt}))

	_, stored := fake.objects["bucket/turds/198116.png"]
	assert.True(t, stored)

	ok, err = s.Exists(ctx, 198116)
	require.NoError(t, err)
	assert.True(t, ok)

	a, err := s.Get(ctx, 198116)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, a.Image)
	assert.Equal(t, "image/png", a.MimeType)
	assert.Equal(t, prompt, a.Prompt)
	assert.Equal(t, 2025, a.CreatedAt.Year())
}

func TestS3Store_LongMultibyteBio(t *testing.T) {
	fake := newFake()
	s := New(fake, "bucket", "turds")
	ctx := context.Background()

	bio := strings.Repeat("日本語のバイオ 💩 ", 120)
	prompt := "Create a Farcasturd for @kenji. Bio: " + bio
	require.NoError(t, s.Put(ctx, &domain.Artifact{FID: 7, Image: []byte{9}, Prompt: prompt}))

	side, ok := fake.objects["bucket/turds/7.prompt.txt"]
	require.True(t, ok)
	assert.Equal(t, "text/plain; charset=utf-8", side.contentType)
	assert.NotContains(t, fake.objects["bucket/turds/7.png"].meta, "prompt")

	a, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, prompt, a.Prompt)
	assert.Equal(t, []byte{9}, a.Image)

	assert.Error(t, s.Put(ctx, &domain.Artifact{FID: 8, Image: []byte{1}, Prompt: strings.Repeat("x", maxPromptBytes+1)}))
}

func TestS3Store_MissingPromptSidecar(t *testing.T) {
	fake := newFake()
	s := New(fake, "b", "")
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &domain.Artifact{FID: 3, Image: []byte{1}, Prompt: "p"}))
	delete(fake.objects, "b/3.prompt.txt")

	a, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, a.Prompt)
}

func TestS3Store_PutReplaces(t *testing.T) {
	s := New(newFake(), "b", "")
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &domain.Artifact{FID: 1, Image: []byte("old")}))
	require.NoError(t, s.Put(ctx, &domain.Artifact{FID: 1, Image: []byte("new")}))

	a, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), a.Image)
}

func TestS3Store_Errors(t *testing.T) {
	fake := newFake()
	s := New(fake, "b", "p")
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, &domain.Artifact{FID: 1}))

	fake.fail = errors.New("boom")
	_, err := s.Get(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrArtifactNotFound)

	_, err = s.Exists(ctx, 1)
	assert.Error(t, err)
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.S3Config{})
	assert.Error(t, err)

	s, err := NewFromConfig(context.Background(), config.S3Config{
		Bucket: "b", Region: "auto", Endpoint: "http://127.0.0.1:9000",
		AccessKeyID: "id", SecretAccessKey: "secret", Prefix: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "x/5.png", s.key(5))
}
