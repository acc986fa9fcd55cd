package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fabricaconecta/parceria-api/utils"
)

const proofKeyPrefix = "comprovantes/"

// ProofStorage keeps proof-of-payment files and hands back their public URL
type ProofStorage interface {
	// UploadProof validates and stores a proof file, returns its URL
	UploadProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)

	// DeleteProof removes a proof previously returned by UploadProof
	DeleteProof(ctx context.Context, url string) error

	// ProofDownloadURL returns a short-lived read link for a stored proof.
	// URLs the storage did not issue come back unchanged.
	ProofDownloadURL(ctx context.Context, url string) (string, error)
}

// S3ProofStorage implements ProofStorage on top of S3
type S3ProofStorage struct {
	s3Service S3Interface
}

var proofStorageInstance ProofStorage

// InitProofStorage initializes the proof storage with S3 backend
func InitProofStorage(s3Service S3Interface) ProofStorage {
	proofStorageInstance = &S3ProofStorage{
		s3Service: s3Service,
	}
	return proofStorageInstance
}

// GetProofStorage returns the initialized proof storage instance
func GetProofStorage() ProofStorage {
	return proofStorageInstance
}

// SetProofStorage sets the proof storage instance (primarily for testing)
func SetProofStorage(storage ProofStorage) {
	proofStorageInstance = storage
}

// UploadProof validates and uploads a proof file to S3
func (s *S3ProofStorage) UploadProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateProofFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := proofKeyPrefix + uuid.NewString() + ext
	if err := s.s3Service.UploadFile(ctx, key, content, utils.ProofContentType(fileHeader.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}

	return s.s3Service.PublicURL(key), nil
}

// DeleteProof deletes a proof from S3. URLs outside the proof prefix are ignored.
func (s *S3ProofStorage) DeleteProof(ctx context.Context, url string) error {
	key := proofKeyFromURL(url)
	if key == "" {
		return nil
	}
	if err := s.s3Service.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("failed to delete proof: %w", err)
	}
	return nil
}

// ProofDownloadURL presigns the proof's S3 key
func (s *S3ProofStorage) ProofDownloadURL(ctx context.Context, url string) (string, error) {
	key := proofKeyFromURL(url)
	if key == "" {
		return url, nil
	}
	signed, err := s.s3Service.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign proof url: %w", err)
	}
	return signed, nil
}

func proofKeyFromURL(url string) string {
	i := strings.Index(url, proofKeyPrefix)
	if i < 0 {
		return ""
	}
	key := url[i:]
	if q := strings.IndexAny(key, "?#"); q >= 0 {
		key = key[:q]
	}
	return key
}
