// Package blobstore stores binary objects such as laboratory logos. It
// defines the BlobStore interface, an in-memory implementation for tests and
// development, and a MinIO/S3 implementation for deployments.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object exceeds maximum allowed size")
	ErrMissingKey     = errors.New("object key is required")
)

// MaxObjectSize is the hard upper bound for any stored object (20 MiB).
// Callers usually enforce a tighter limit of their own.
const MaxObjectSize = 20 * 1024 * 1024

// Object describes a stored object.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlobStore defines the contract for object storage backends.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader, size int64) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Stat(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrMissingKey
	}
	return nil
}

type storedObject struct {
	meta    Object
	content []byte
}

// Memory is a thread-safe, in-memory BlobStore.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

// NewMemory returns a ready-to-use in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*storedObject)}
}

// Put reads the content, computes a SHA-256 hash and stores it under key,
// replacing any previous object with the same key.
func (s *Memory) Put(_ context.Context, key, contentType string, content io.Reader, _ int64) (*Object, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, ErrObjectTooLarge
	}

	meta := Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", sha256.Sum256(data)),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[key] = &storedObject{meta: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *Memory) Get(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrObjectNotFound
	}
	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.content)), &meta, nil
}

func (s *Memory) Stat(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	meta := obj.meta
	return &meta, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}
