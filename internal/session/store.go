package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storybook/internal/model"
)

// ErrNotFound is returned when a session, its avatar or its story is
// absent — either never created, expired, or already cleaned up.
var ErrNotFound = errors.New("session not found")

const (
	avatarFile = "avatar.jpg"
	storyFile  = "story.json"
)

// Store keeps per-session working directories under a single root. Each
// session holds one immutable avatar and optionally the story JSON. The
// avatar never changes after Create, so concurrent reads need no locking;
// the mutex only guards the creation-time registry used for TTL sweeping.
type Store struct {
	root string
	log  *logrus.Entry

	mu      sync.Mutex
	created map[string]time.Time
}

// NewStore creates the root directory if needed and returns a Store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}
	return &Store{
		root:    root,
		log:     logrus.WithField("component", "session"),
		created: make(map[string]time.Time),
	}, nil
}

// Create allocates a new session, writes the avatar into its directory and
// returns the session id.
func (s *Store) Create(avatar []byte) (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, avatarFile), avatar, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("write avatar: %w", err)
	}

	s.mu.Lock()
	s.created[id] = time.Now()
	s.mu.Unlock()

	s.log.WithField("session_id", id).Info("session created")
	return id, nil
}

// Avatar returns the session's avatar bytes.
func (s *Store) Avatar(id string) ([]byte, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, avatarFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	return data, nil
}

// PutStory persists the story JSON alongside the avatar.
func (s *Store) PutStory(id string, st *model.Story) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, avatarFile)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat session: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode story: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, storyFile), data, 0o644); err != nil {
		return fmt.Errorf("write story: %w", err)
	}
	return nil
}

// Story reads back the persisted story.
func (s *Store) Story(id string) (*model.Story, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, storyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read story: %w", err)
	}
	var st model.Story
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode story: %w", err)
	}
	return &st, nil
}

// Delete removes the session directory. It is idempotent: deleting an
// unknown or already-deleted session succeeds, since cleanup may be
// triggered by both a user action and the TTL sweep. When the directory is
// locked, a rename-then-remove pass is tried before reporting failure;
// callers should treat any error as a warning, not a hard failure.
func (s *Store) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	delete(s.created, id)
	s.mu.Unlock()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err == nil {
		s.log.WithField("session_id", id).Info("session deleted")
		return nil
	}

	// Locked files on some filesystems block RemoveAll; moving the tree
	// aside first usually succeeds and hides it from future lookups.
	trash := dir + fmt.Sprintf(".trash-%d", time.Now().UnixNano())
	if err := os.Rename(dir, trash); err != nil {
		return fmt.Errorf("cleanup failed for session %s: %w", id, err)
	}
	if err := os.RemoveAll(trash); err != nil {
		return fmt.Errorf("cleanup failed for session %s: %w", id, err)
	}
	s.log.WithField("session_id", id).Info("session deleted via rename")
	return nil
}

// Sweep deletes every session older than maxAge and returns how many were
// removed. It also walks the root directory so sessions created by a
// previous process get reclaimed.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	expired := make(map[string]bool)
	s.mu.Lock()
	for id, at := range s.created {
		if !at.After(cutoff) {
			expired[id] = true
		}
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.WithError(err).Warn("sweep: cannot read session root")
	}
	for _, e := range entries {
		if !e.IsDir() || expired[e.Name()] {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		s.mu.Lock()
		_, tracked := s.created[e.Name()]
		s.mu.Unlock()
		if tracked {
			continue
		}
		info, err := e.Info()
		if err == nil && !info.ModTime().After(cutoff) {
			expired[e.Name()] = true
		}
	}

	removed := 0
	for id := range expired {
		if err := s.Delete(id); err != nil {
			s.log.WithError(err).Warn("sweep: delete failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("session sweep complete")
	}
	return removed
}

// Count returns the number of live sessions tracked by this process.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// dir validates the id and returns its directory path. Only UUID-shaped
// ids are accepted, which also rules out path traversal.
func (s *Store) dir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, id), nil
}
