package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
)

// S3Store implements ObjectStore on AWS S3 multipart uploads.
type S3Store struct {
	client *s3.Client
}

// NewS3Store builds the S3 backend. Empty config fields defer to the SDK's
// default region and credential resolution; a configured endpoint switches
// to path-style addressing for S3-compatible stores.
func NewS3Store(ctx context.Context, cfg *config.S3Config, httpClient *nethttp.Client) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client}, nil
}

// ListSessions lists the in-progress multipart uploads matching exactly the
// given key. S3 keeps every upload ever initiated for a key until it is
// completed or aborted, so more than one result is possible.
func (s *S3Store) ListSessions(ctx context.Context, bucket, key string) ([]Session, error) {
	var sessions []Session
	var keyMarker, uploadIDMarker *string

	for {
		out, err := s.client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
			Bucket:         aws.String(bucket),
			Prefix:         aws.String(key),
			KeyMarker:      keyMarker,
			UploadIdMarker: uploadIDMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list multipart uploads: %w", err)
		}
		for _, u := range out.Uploads {
			if aws.ToString(u.Key) != key {
				continue
			}
			sessions = append(sessions, Session{
				Bucket:    bucket,
				Key:       key,
				UploadID:  aws.ToString(u.UploadId),
				Initiated: aws.ToTime(u.Initiated),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		keyMarker = out.NextKeyMarker
		uploadIDMarker = out.NextUploadIdMarker
	}

	return sessions, nil
}

// CreateSession starts a multipart upload. The storage class is applied at
// creation; the object lands directly in cold storage on completion.
func (s *S3Store) CreateSession(ctx context.Context, bucket, key, storageClass string) (Session, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if storageClass != "" {
		input.StorageClass = types.StorageClass(storageClass)
	}

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create multipart upload: %w", err)
	}
	return Session{
		Bucket:   bucket,
		Key:      key,
		UploadID: aws.ToString(out.UploadId),
	}, nil
}

// ListParts returns the parts already staged in the session.
func (s *S3Store) ListParts(ctx context.Context, sess Session) ([]PartInfo, error) {
	var parts []PartInfo
	var marker *string

	for {
		out, err := s.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:           aws.String(sess.Bucket),
			Key:              aws.String(sess.Key),
			UploadId:         aws.String(sess.UploadID),
			PartNumberMarker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list parts: %w", err)
		}
		for _, p := range out.Parts {
			parts = append(parts, PartInfo{
				Number: aws.ToInt32(p.PartNumber),
				Tag:    trimETag(aws.ToString(p.ETag)),
				Size:   aws.ToInt64(p.Size),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		marker = out.NextPartNumberMarker
	}

	return parts, nil
}

// UploadPart stages one part and returns its ETag.
func (s *S3Store) UploadPart(ctx context.Context, sess Session, number int32, data []byte) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(sess.Bucket),
		Key:           aws.String(sess.Key),
		UploadId:      aws.String(sess.UploadID),
		PartNumber:    aws.Int32(number),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload part %d: %w", number, err)
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// CompleteSession commits the multipart upload with the ordered part list.
func (s *S3Store) CompleteSession(ctx context.Context, sess Session, parts []CompletedPart) error {
	sorted := make([]CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	sdkParts := make([]types.CompletedPart, len(sorted))
	for i, p := range sorted {
		sdkParts[i] = types.CompletedPart{
			PartNumber: aws.Int32(p.Number),
			ETag:       aws.String(p.Tag),
		}
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(sess.Bucket),
		Key:      aws.String(sess.Key),
		UploadId: aws.String(sess.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: sdkParts,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

// AbortSession discards the session and every staged part.
func (s *S3Store) AbortSession(ctx context.Context, sess Session) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(sess.Bucket),
		Key:      aws.String(sess.Key),
		UploadId: aws.String(sess.UploadID),
	})
	if err != nil {
		return fmt.Errorf("failed to abort multipart upload: %w", err)
	}
	return nil
}

// HeadObject returns the committed object's metadata.
func (s *S3Store) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("failed to head object: %w", err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return ObjectInfo{
		Key:          key,
		Size:         size,
		Tag:          trimETag(aws.ToString(out.ETag)),
		StorageClass: string(out.StorageClass),
	}, nil
}

// ListAllSessions returns every in-progress multipart upload in the bucket.
func (s *S3Store) ListAllSessions(ctx context.Context, bucket string) ([]Session, error) {
	var sessions []Session
	var keyMarker, uploadIDMarker *string

	for {
		out, err := s.client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
			Bucket:         aws.String(bucket),
			KeyMarker:      keyMarker,
			UploadIdMarker: uploadIDMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list multipart uploads: %w", err)
		}
		for _, u := range out.Uploads {
			sessions = append(sessions, Session{
				Bucket:    bucket,
				Key:       aws.ToString(u.Key),
				UploadID:  aws.ToString(u.UploadId),
				Initiated: aws.ToTime(u.Initiated),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		keyMarker = out.NextKeyMarker
		uploadIDMarker = out.NextUploadIdMarker
	}

	return sessions, nil
}

// trimETag strips the quotes S3 wraps around ETag values so tags compare
// cleanly across list, upload, and head responses.
func trimETag(tag string) string {
	return strings.Trim(tag, `"`)
}
