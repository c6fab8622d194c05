package service

import (
	"context"
	"fmt"
	"io"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/model"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// EvidenceStore is the object storage interface for proctoring evidence.
type EvidenceStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// MinioEvidenceStore stores evidence objects in a MinIO bucket.
type MinioEvidenceStore struct {
	client *minio.Client
	bucket string
}

func NewMinioEvidenceStore(cfg *config.EvidenceConfig) (*MinioEvidenceStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioEvidenceStore{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *MinioEvidenceStore) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// EvidenceService accepts webcam/screen snapshots uploaded during an active
// proctored session. Each upload becomes an audit flag on the session with
// the object key in its metadata, so the audit trail references every piece
// of stored evidence without touching the integrity score.
type EvidenceService struct {
	store      EvidenceStore
	proctoring *ProctoringService
}

func NewEvidenceService(store EvidenceStore, proctoring *ProctoringService) *EvidenceService {
	return &EvidenceService{store: store, proctoring: proctoring}
}

// UploadSnapshot stores one evidence object for the session behind token.
// The session must be ACTIVE or FLAGGED.
func (s *EvidenceService) UploadSnapshot(ctx context.Context, token, kind string, reader io.Reader, size int64, contentType string) (string, error) {
	session, err := s.proctoring.GetByToken(token)
	if err != nil {
		return "", err
	}
	if session.Status != model.SessionActive && session.Status != model.SessionFlagged {
		return "", invalidTransition(fmt.Sprintf("Cannot upload evidence for session with status: %s", session.Status))
	}

	objectKey := fmt.Sprintf("proctoring/%s/%s", session.ID, uuid.New().String())
	if err := s.store.Upload(ctx, objectKey, reader, size, contentType); err != nil {
		return "", err
	}

	_ = s.proctoring.Flag(token, FlagEvidenceCaptured, model.SeverityInfo,
		fmt.Sprintf("Evidence snapshot stored (%s)", kind),
		map[string]interface{}{"object_key": objectKey, "kind": kind})

	return objectKey, nil
}
