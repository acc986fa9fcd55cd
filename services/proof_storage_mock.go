package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/fabricaconecta/parceria-api/utils"
)

// MockProofStorage is a mock implementation of ProofStorage for testing
type MockProofStorage struct {
	proofs map[string]string // map of URL to original filename
	mu     sync.RWMutex
	seq    int
}

// NewMockProofStorage creates a new mock proof storage
func NewMockProofStorage() *MockProofStorage {
	return &MockProofStorage{
		proofs: make(map[string]string),
	}
}

// SetAsMockForTesting sets this mock as the global proof storage instance for testing
func (m *MockProofStorage) SetAsMockForTesting() {
	SetProofStorage(m)
}

// UploadProof validates the file and records it under a fake URL
func (m *MockProofStorage) UploadProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateProofFile(fileHeader); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	url := fmt.Sprintf("https://test-bucket.s3.sa-east-1.amazonaws.com/%smock_%d_%s", proofKeyPrefix, m.seq, fileHeader.Filename)
	m.proofs[url] = fileHeader.Filename
	return url, nil
}

// DeleteProof simulates deleting a proof
func (m *MockProofStorage) DeleteProof(ctx context.Context, url string) error {
	m.mu.Lock()
	delete(m.proofs, url)
	m.mu.Unlock()
	return nil
}

// ProofDownloadURL returns a fake signed link for known proofs
func (m *MockProofStorage) ProofDownloadURL(ctx context.Context, url string) (string, error) {
	m.mu.RLock()
	_, exists := m.proofs[url]
	m.mu.RUnlock()
	if !exists {
		return url, nil
	}
	return url + "?signed=mock", nil
}

// ProofExists checks if a proof exists in mock storage
func (m *MockProofStorage) ProofExists(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.proofs[url]
	return exists
}

// Count returns how many proofs are stored
func (m *MockProofStorage) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.proofs)
}
