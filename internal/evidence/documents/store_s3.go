package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

const (
	metaDigest   = "digest"
	metaRefundID = "refund-id"
	metaType     = "evidence-type"
	metaFilename = "filename"
	metaStoredAt = "stored-at"
)

// S3Store keeps artifacts in a bucket under evidence/<evidence id>. The
// digest computed at upload travels in the object metadata.
type S3Store struct {
	client S3API
	bucket string
	now    func() time.Time
}

func NewS3Store(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, now: time.Now}
}

func objectKey(evidenceID id.EvidenceID) string {
	return "evidence/" + evidenceID.String()
}

func (s *S3Store) Put(ctx context.Context, doc Document) (Metadata, error) {
	if len(doc.Content) == 0 {
		return Metadata{}, fmt.Errorf("document content is required")
	}
	if len(doc.Content) > MaxSize {
		return Metadata{}, fmt.Errorf("document exceeds %d bytes", MaxSize)
	}
	meta := Metadata{
		EvidenceID:  id.NewEvidenceID(),
		RefundID:    doc.RefundID,
		Type:        doc.Type,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        int64(len(doc.Content)),
		Digest:      Digest(doc.Content),
		StoredAt:    s.now().UTC(),
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(meta.EvidenceID)),
		Body:        bytes.NewReader(doc.Content),
		ContentType: aws.String(contentTypeOrDefault(doc.ContentType)),
		Metadata: map[string]string{
			metaDigest:   meta.Digest,
			metaRefundID: doc.RefundID.String(),
			metaType:     doc.Type,
			metaFilename: doc.Filename,
			metaStoredAt: strconv.FormatInt(meta.StoredAt.Unix(), 10),
		},
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("upload evidence: %w", err)
	}
	return meta, nil
}

func (s *S3Store) Get(ctx context.Context, evidenceID id.EvidenceID) ([]byte, Metadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(evidenceID)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, Metadata{}, fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
		}
		return nil, Metadata{}, fmt.Errorf("download evidence: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(io.LimitReader(out.Body, MaxSize+1))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read evidence: %w", err)
	}
	meta, err := metadataFrom(evidenceID, out)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.Size = int64(len(content))
	return content, meta, nil
}

func (s *S3Store) VerifyIntegrity(ctx context.Context, evidenceID id.EvidenceID) (bool, error) {
	content, meta, err := s.Get(ctx, evidenceID)
	if err != nil {
		return false, err
	}
	return meta.Digest != "" && Digest(content) == meta.Digest, nil
}

func metadataFrom(evidenceID id.EvidenceID, out *s3.GetObjectOutput) (Metadata, error) {
	meta := Metadata{
		EvidenceID:  evidenceID,
		Type:        out.Metadata[metaType],
		Filename:    out.Metadata[metaFilename],
		ContentType: aws.ToString(out.ContentType),
		Digest:      out.Metadata[metaDigest],
	}
	if raw := out.Metadata[metaRefundID]; raw != "" {
		refundID, err := id.ParseRefundID(raw)
		if err != nil {
			return Metadata{}, fmt.Errorf("evidence %s has malformed refund id: %w", evidenceID, err)
		}
		meta.RefundID = refundID
	}
	if raw := out.Metadata[metaStoredAt]; raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			meta.StoredAt = time.Unix(secs, 0).UTC()
		}
	}
	return meta, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
