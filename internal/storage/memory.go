package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// MemoryStore is an ObjectStore kept in process memory, used by tests and
// by local runs without MinIO.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
}

type MemoryObject struct {
	Data        []byte
	ContentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]MemoryObject{}}
}

func (s *MemoryStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[objectName] = MemoryObject{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, objectName string) error {
	s.mu.Lock()
	delete(s.objects, objectName)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PresignedGetURL(_ context.Context, objectName string, _ time.Duration, _ string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[objectName]; !ok {
		return "", ErrObjectNotFound
	}
	return "memory://" + objectName, nil
}

func (s *MemoryStore) Object(objectName string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[objectName]
	return obj, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
