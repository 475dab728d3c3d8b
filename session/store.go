package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

func key(userID string, kind Kind) string {
	return userID + "|" + string(kind)
}

// Store persists sessions to sessions.json keyed by (user, kind). Putting a
// session for an occupied key supersedes the prior record, so the
// one-active-session invariant holds structurally rather than by cleanup.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	dataDir  string
}

func NewStore(dataDir string) *Store {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Store{
		sessions: make(map[string]*Session),
		dataDir:  dataDir,
	}
	s.load()
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, "sessions.json")
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Session
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, sess := range list {
		if sess != nil && sess.UserID != "" && sess.Active {
			s.sessions[key(sess.UserID, sess.Kind)] = sess
		}
	}
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *Store) saveLocked() error {
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

// Put stores sess, replacing any prior session for the same (user, kind).
// On a failed write the prior record is restored, so a persistence error has
// no partial effect.
func (s *Store) Put(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(sess.UserID, sess.Kind)
	prev, had := s.sessions[k]
	s.sessions[k] = sess
	if err := s.saveLocked(); err != nil {
		if had {
			s.sessions[k] = prev
		} else {
			delete(s.sessions, k)
		}
		return err
	}
	return nil
}

func (s *Store) Get(userID string, kind Kind) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key(userID, kind)]
	return sess, ok
}

// Delete removes the session for (user, kind). Missing keys are not an error.
func (s *Store) Delete(userID string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, kind)
	prev, had := s.sessions[k]
	if !had {
		return nil
	}
	delete(s.sessions, k)
	if err := s.saveLocked(); err != nil {
		s.sessions[k] = prev
		return err
	}
	return nil
}
