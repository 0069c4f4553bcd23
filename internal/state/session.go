package state

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/metrics"
	"alphaboutique/internal/repository"

	"go.uber.org/zap"
)

var errMalformedSession = errors.New("malformed session record")

// SessionStore holds the signed in identity and mirrors it to one key
type SessionStore struct {
	persister

	mu      sync.RWMutex
	state   domain.SessionState
	version uint64
	changes *Broker[domain.SessionState]
}

func NewSessionStore(key string, queue *repository.WriteQueue, logger *zap.Logger, m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		persister: newPersister(StoreSession, key, queue, logger, m),
		state:     domain.GuestSession(),
		changes:   NewBroker[domain.SessionState](),
	}
}

// Initialize rehydrates the session from storage. A missing, unreadable or
// malformed record leaves the store logged out; it never fails.
func (s *SessionStore) Initialize(ctx context.Context) {
	raw, found, err := s.queue.Read(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to load session, continuing as guest", zap.Error(err))
		return
	}
	if !found {
		s.logger.Debug("No stored session")
		return
	}

	profile, err := decodeProfile(raw)
	if err != nil {
		s.logger.Warn("Discarding stored session", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.state = domain.SessionState{LoggedIn: true, Profile: profile}
	snapshot := s.changedLocked()
	s.mu.Unlock()

	s.logger.Info("Session restored", zap.String("email", profile.Email), zap.String("role", string(profile.Role)))
	s.changes.PublishVersion(snapshot.Version, snapshot)
}

func decodeProfile(raw []byte) (domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.UserProfile{}, errors.Join(errMalformedSession, err)
	}
	if profile.Email == "" {
		return domain.UserProfile{}, errMalformedSession
	}
	profile.Role = domain.ParseRole(string(profile.Role))
	return profile, nil
}

// Get returns the current session
func (s *SessionStore) Get() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// IsLoggedIn reports whether a user is signed in
func (s *SessionStore) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

// Login replaces the session with exactly profile and overwrites the stored record
func (s *SessionStore) Login(profile domain.UserProfile) {
	data, err := json.Marshal(profile)

	s.mu.Lock()
	s.state = domain.SessionState{LoggedIn: true, Profile: profile}
	snapshot := s.changedLocked()
	if err == nil {
		s.watch("login", s.queue.Put(s.key, data))
	}
	s.mu.Unlock()

	if err != nil {
		s.fault("login", err)
	}
	s.logger.Info("User logged in", zap.String("email", profile.Email), zap.String("role", string(profile.Role)))
	s.changes.PublishVersion(snapshot.Version, snapshot)
}

// UpdateProfile merges the present fields of update into the stored record
// and into memory. The stored record is read at write time, so the caller
// does not need the full profile. It does nothing while logged out, since
// there is no record to merge into.
func (s *SessionStore) UpdateProfile(update domain.ProfileUpdate) {
	if update.IsEmpty() {
		return
	}
	fields := update.Fields()

	s.mu.Lock()
	if !s.state.LoggedIn {
		s.mu.Unlock()
		s.logger.Debug("Ignoring profile update while logged out")
		return
	}
	s.state.Profile.Apply(update)
	snapshot := s.changedLocked()
	s.watch("update_profile", s.queue.Update(s.key, func(current []byte, found bool) ([]byte, error) {
		return mergeRecord(current, found, fields, s.logger)
	}))
	s.mu.Unlock()

	s.changes.PublishVersion(snapshot.Version, snapshot)
}

// mergeRecord shallow-merges fields over the stored JSON object. Unknown
// fields of the stored record are preserved.
func mergeRecord(current []byte, found bool, fields map[string]string, logger *zap.Logger) ([]byte, error) {
	record := map[string]json.RawMessage{}
	if found {
		if err := json.Unmarshal(current, &record); err != nil {
			logger.Warn("Stored session is not an object, rewriting it", zap.Error(err))
			record = map[string]json.RawMessage{}
		}
	}
	for name, value := range fields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		record[name] = encoded
	}
	return json.Marshal(record)
}

// Logout clears the session and deletes the stored record
func (s *SessionStore) Logout() {
	s.mu.Lock()
	email := s.state.Profile.Email
	s.state = domain.GuestSession()
	snapshot := s.changedLocked()
	s.watch("logout", s.queue.Delete(s.key))
	s.mu.Unlock()

	s.logger.Info("User logged out", zap.String("email", email))
	s.changes.PublishVersion(snapshot.Version, snapshot)
}

// Subscribe registers fn for every session change
func (s *SessionStore) Subscribe(fn func(domain.SessionState)) func() {
	return s.changes.Subscribe(fn)
}

func (s *SessionStore) stateLocked() domain.SessionState {
	snapshot := s.state
	snapshot.Version = s.version
	return snapshot
}

// changedLocked records a mutation and returns the state to publish
func (s *SessionStore) changedLocked() domain.SessionState {
	s.version++
	return s.stateLocked()
}
