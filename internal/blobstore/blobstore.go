// Package blobstore stores doctor avatars. It defines the Store interface, a
// MongoDB GridFS implementation and an in-memory implementation suitable for
// tests and STORE_DRIVER=memory.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the largest avatar accepted (5 MB).
const MaxFileSize = 5 * 1024 * 1024

// AllowedContentTypes lists the image formats accepted for avatars.
var AllowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Object describes a stored blob.
type Object struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*Object, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, id string) error
}

func checkUpload(fileName, contentType string) error {
	if fileName == "" {
		return ErrMissingFileName
	}
	if !AllowedContentTypes[contentType] {
		return ErrInvalidContentType
	}
	return nil
}

func readLimited(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

type storedBlob struct {
	object  Object
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]*storedBlob
}

// NewMemoryStore returns a MemoryStore whose object URLs are baseURL + "/" + id.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: baseURL, blobs: make(map[string]*storedBlob)}
}

func (s *MemoryStore) Upload(_ context.Context, fileName, contentType string, content io.Reader) (*Object, error) {
	if err := checkUpload(fileName, contentType); err != nil {
		return nil, err
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	obj := Object{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         s.baseURL + "/" + id,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[id] = &storedBlob{object: obj, content: data}
	s.mu.Unlock()

	return &obj, nil
}

func (s *MemoryStore) Open(_ context.Context, id string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	obj := b.object
	return io.NopCloser(bytes.NewReader(b.content)), &obj, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
