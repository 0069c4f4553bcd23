package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/metrics"
	"alphaboutique/internal/repository"

	"go.uber.org/zap"
)

// ThemeStore holds the theme preference. Unlike the other stores it only
// commits a new preference after the write succeeded, so the displayed
// preference is always the one that survives a restart.
type ThemeStore struct {
	persister

	// setMu orders writes of the preference key
	setMu sync.Mutex

	mu         sync.RWMutex
	preference domain.ThemePreference
	device     domain.ColorScheme
	seq        uint64
	committed  uint64
	version    uint64

	// diverged is set when storage may hold a preference that was written
	// after its caller gave up and was therefore never committed
	diverged bool
	changes  *Broker[domain.ThemeState]
}

func NewThemeStore(key string, device domain.ColorScheme, queue *repository.WriteQueue, logger *zap.Logger, m *metrics.Metrics) *ThemeStore {
	return &ThemeStore{
		persister:  newPersister(StoreTheme, key, queue, logger, m),
		preference: domain.DefaultThemePreference,
		device:     device,
		changes:    NewBroker[domain.ThemeState](),
	}
}

// Initialize adopts the stored preference when it is one of the three valid
// values; anything else keeps the default.
func (t *ThemeStore) Initialize(ctx context.Context) {
	raw, found, err := t.queue.Read(ctx, t.key)
	if err != nil {
		t.logger.Warn("Failed to load theme preference", zap.Error(err))
		return
	}
	if !found {
		return
	}

	pref, err := domain.ParseThemePreference(string(raw))
	if err != nil {
		t.logger.Debug("Ignoring stored theme preference", zap.Error(err))
		return
	}

	t.mu.Lock()
	t.preference = pref
	snapshot := t.changedLocked()
	t.mu.Unlock()

	t.changes.PublishVersion(snapshot.Version, snapshot)
}

// SetThemePreference writes pref and then commits it in memory. Any
// returned error means the preference is unchanged:
//   - the write failed;
//   - a newer SetThemePreference replaced this one before it was written
//     (the error wraps repository.ErrSuperseded);
//   - ctx ended first. The write may still land; it is then undone so
//     storage keeps matching the preference in memory.
func (t *ThemeStore) SetThemePreference(ctx context.Context, pref domain.ThemePreference) error {
	if !pref.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPreference, pref)
	}

	t.setMu.Lock()
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()
	result := t.queue.Put(t.key, []byte(pref))
	t.setMu.Unlock()

	select {
	case err := <-result:
		return t.settle(pref, seq, err)
	case <-ctx.Done():
		go t.abandon(pref, seq, result)
		return ctx.Err()
	}
}

func (t *ThemeStore) settle(pref domain.ThemePreference, seq uint64, err error) error {
	if errors.Is(err, repository.ErrSuperseded) {
		return fmt.Errorf("persist theme preference: %w", err)
	}
	if err != nil {
		t.fault("set_preference", err)
		t.restoreIfDiverged(seq)
		return fmt.Errorf("persist theme preference: %w", err)
	}

	t.mu.Lock()
	if seq <= t.committed {
		// a later preference already committed
		t.mu.Unlock()
		return nil
	}
	t.committed = seq
	t.preference = pref
	t.diverged = false
	snapshot := t.changedLocked()
	t.mu.Unlock()

	t.logger.Info("Theme preference changed", zap.String("preference", string(pref)))
	t.changes.PublishVersion(snapshot.Version, snapshot)
	return nil
}

// abandon waits out a write whose caller stopped waiting. The caller was
// told the preference is unchanged, so a write that lands is not committed.
func (t *ThemeStore) abandon(pref domain.ThemePreference, seq uint64, result <-chan error) {
	err := <-result
	switch {
	case errors.Is(err, repository.ErrSuperseded):
		return
	case err != nil:
		t.fault("set_preference", err)
		return
	}

	t.logger.Warn("Theme preference written after its caller gave up",
		zap.String("preference", string(pref)), zap.Uint64("seq", seq))
	t.mu.Lock()
	t.diverged = true
	t.mu.Unlock()
	t.restoreIfDiverged(seq)
}

// restoreIfDiverged rewrites the committed preference when storage may hold
// one that was never committed and no later write is queued to replace it.
func (t *ThemeStore) restoreIfDiverged(seq uint64) {
	t.setMu.Lock()
	defer t.setMu.Unlock()

	t.mu.RLock()
	restore := t.diverged && seq == t.seq
	current := t.preference
	t.mu.RUnlock()
	if !restore {
		return
	}

	t.logger.Info("Restoring stored theme preference", zap.String("preference", string(current)))
	t.watch("restore_preference", t.queue.Put(t.key, []byte(current)))
}

// SetDeviceScheme records a device color scheme change
func (t *ThemeStore) SetDeviceScheme(scheme domain.ColorScheme) {
	t.mu.Lock()
	if t.device == scheme {
		t.mu.Unlock()
		return
	}
	t.device = scheme
	snapshot := t.changedLocked()
	t.mu.Unlock()

	t.changes.PublishVersion(snapshot.Version, snapshot)
}

// Preference returns the stored preference
func (t *ThemeStore) Preference() domain.ThemePreference {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.preference
}

// EffectiveScheme resolves the preference against the device scheme
func (t *ThemeStore) EffectiveScheme() domain.ColorScheme {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return domain.ResolveScheme(t.preference, t.device)
}

// State returns preference, device scheme and effective scheme together
func (t *ThemeStore) State() domain.ThemeState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stateLocked()
}

// Subscribe registers fn for preference and device scheme changes
func (t *ThemeStore) Subscribe(fn func(domain.ThemeState)) func() {
	return t.changes.Subscribe(fn)
}

func (t *ThemeStore) stateLocked() domain.ThemeState {
	return domain.ThemeState{
		Preference:      t.preference,
		DeviceScheme:    t.device,
		EffectiveScheme: domain.ResolveScheme(t.preference, t.device),
		Version:         t.version,
	}
}

// changedLocked records a mutation and returns the state to publish
func (t *ThemeStore) changedLocked() domain.ThemeState {
	t.version++
	return t.stateLocked()
}
