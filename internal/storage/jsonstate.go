package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"redscout/internal/core/ports"
)

const (
	statusInflight = "inflight"
	statusSuccess  = "success"
	statusFailed   = "failed"
)

type attemptRecord struct {
	Status    string    `json:"status"`
	CommentID string    `json:"comment_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONStateStore persists posting attempts in one JSON file so a post is
// never replied to twice across runs. The whole file rewrites on every
// mutation; attempt volume is far too low for that to matter.
type JSONStateStore struct {
	FilePath string

	mu   sync.RWMutex
	data map[string]attemptRecord
}

func NewJSONStateStore(filePath string) (*JSONStateStore, error) {
	s := &JSONStateStore{
		FilePath: filePath,
		data:     make(map[string]attemptRecord),
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	if err := s.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

var _ ports.StateStore = (*JSONStateStore)(nil)

func (s *JSONStateStore) loadFromFile() error {
	file, err := os.ReadFile(s.FilePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(file, &s.data)
}

func (s *JSONStateStore) saveToFile() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.FilePath, data, 0o644)
}

// CanAttempt reports whether a post may still be replied to. Only a
// recorded success blocks a new attempt; failures may retry.
func (s *JSONStateStore) CanAttempt(postID string) (bool, error) {
	if postID == "" {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[postID]
	return !ok || rec.Status != statusSuccess, nil
}

func (s *JSONStateStore) MarkAttempt(postID string) error {
	return s.set(postID, attemptRecord{Status: statusInflight, UpdatedAt: time.Now().UTC()})
}

func (s *JSONStateStore) MarkSuccess(postID, commentID string) error {
	return s.set(postID, attemptRecord{Status: statusSuccess, CommentID: commentID, UpdatedAt: time.Now().UTC()})
}

func (s *JSONStateStore) MarkFailure(postID, errMsg string) error {
	return s.set(postID, attemptRecord{Status: statusFailed, Error: errMsg, UpdatedAt: time.Now().UTC()})
}

func (s *JSONStateStore) set(postID string, rec attemptRecord) error {
	if postID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[postID] = rec
	return s.saveToFile()
}
