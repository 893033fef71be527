// Package blobstore keeps generated artifacts in an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO). It satisfies the same Get/Exists/Put
// contract as the relational artifact store.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tbourn/farcasturd-backend/internal/config"
	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// API is the subset of the S3 client the store needs.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

const (
	maxArtifactBytes = 16 << 20
	maxPromptBytes   = 64 << 10
)

// S3Store stores one object per FID at <prefix>/<fid>.png and the prompt
// beside it at <prefix>/<fid>.prompt.txt. User metadata is capped at 2 KB,
// which a long multibyte bio overflows once escaped.
type S3Store struct {
	api    API
	bucket string
	prefix string
}

// New wraps an existing client.
func New(api API, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewFromConfig builds an S3 client from cfg. Static credentials are used
// when both keys are set; otherwise the default AWS chain applies.
func NewFromConfig(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blobstore: S3_BUCKET is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Store) key(fid int64) string {
	return s.object(strconv.FormatInt(fid, 10) + ".png")
}

func (s *S3Store) promptKey(fid int64) string {
	return s.object(strconv.FormatInt(fid, 10) + ".prompt.txt")
}

func (s *S3Store) object(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Get returns the artifact for fid or domain.ErrArtifactNotFound.
func (s *S3Store) Get(ctx context.Context, fid int64) (*domain.Artifact, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fid)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("blobstore: get %d: %w", fid, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxArtifactBytes))
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %d: %w", fid, err)
	}
	a := &domain.Artifact{
		FID:      fid,
		Image:    data,
		MimeType: aws.ToString(out.ContentType),
	}
	if a.MimeType == "" {
		a.MimeType = "image/png"
	}
	if out.LastModified != nil {
		a.CreatedAt = out.LastModified.UTC()
	}
	if a.Prompt, err = s.getPrompt(ctx, fid); err != nil {
		return nil, err
	}
	return a, nil
}

// getPrompt reads the prompt sidecar. A missing sidecar is an empty prompt.
func (s *S3Store) getPrompt(ctx context.Context, fid int64) (string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.promptKey(fid)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("blobstore: get prompt %d: %w", fid, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxPromptBytes))
	if err != nil {
		return "", fmt.Errorf("blobstore: read prompt %d: %w", fid, err)
	}
	return string(b), nil
}

// Exists reports whether an artifact is stored for fid.
func (s *S3Store) Exists(ctx context.Context, fid int64) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fid)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("blobstore: head %d: %w", fid, err)
	}
	return true, nil
}

// Put writes (or replaces) the artifact. The prompt goes first so a
// visible image always has its prompt.
func (s *S3Store) Put(ctx context.Context, a *domain.Artifact) error {
	if a == nil || len(a.Image) == 0 {
		return errors.New("blobstore: empty artifact")
	}
	mime := a.MimeType
	if mime == "" {
		mime = "image/png"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if len(a.Prompt) > maxPromptBytes {
		return fmt.Errorf("blobstore: prompt for %d is %d bytes", a.FID, len(a.Prompt))
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.promptKey(a.FID)),
		Body:        strings.NewReader(a.Prompt),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("blobstore: put prompt %d: %w", a.FID, err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(a.FID)),
		Body:        bytes.NewReader(a.Image),
		ContentType: aws.String(mime),
		Metadata: map[string]string{
			"fid": strconv.FormatInt(a.FID, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %d: %w", a.FID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}
