package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultRefreshTimeout bounds the upstream call of a background
	// refresh, which has no waiting caller to time it out.
	defaultRefreshTimeout = 30 * time.Second

	// refreshRetryInterval is how long a failed refresh waits before
	// one more attempt, while the old session is still live.
	refreshRetryInterval = 30 * time.Second

	// DefaultSweepInterval is how often the expiry sweeper runs.
	DefaultSweepInterval = time.Minute
)

// BuildFunc creates a fresh session by calling the custody service.
// It runs without any store lock held.
type BuildFunc func(ctx context.Context) (*Session, error)

// Store is the in-memory, time-indexed session cache. All mutations to
// a given key are serialized; creation for a key in flight is coalesced
// so concurrent callers share a single upstream call. Reads of a live
// session never block behind another key's network round-trip.
type Store struct {
	logger *zap.Logger
	clock  func() time.Time

	mu       sync.Mutex
	sessions map[Key]*Session
	// epochs fence stale refreshes: invalidation bumps the epoch, and a
	// refresh completing under an old epoch is discarded rather than
	// resurrecting the key.
	epochs map[Key]uint64
	timers map[Key]*time.Timer
	closed bool

	group singleflight.Group

	refreshTimeout time.Duration
	sweepObserver  func(removed int)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.clock = clock }
}

// WithRefreshTimeout overrides the background refresh call timeout.
func WithRefreshTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.refreshTimeout = d }
}

// WithSweepObserver registers a callback invoked with the number of
// sessions each sweep removed. Sweeps that remove nothing are not
// reported.
func WithSweepObserver(fn func(removed int)) StoreOption {
	return func(s *Store) { s.sweepObserver = fn }
}

// NewStore creates an empty session store.
func NewStore(logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		logger:         logger,
		clock:          time.Now,
		sessions:       make(map[Key]*Session),
		epochs:         make(map[Key]uint64),
		timers:         make(map[Key]*time.Timer),
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live session for key, if any. An expired entry is
// removed on the spot: callers never observe a session past ExpiresAt.
func (s *Store) Get(key Key) (*Session, bool) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if !sess.Live(now) {
		s.removeLocked(key, sess)
		return nil, false
	}
	return sess, true
}

// GetOrCreate returns the live session for key, building one if absent.
// Concurrent calls for the same key collapse onto a single build; every
// caller observes the same resulting session. The returned bool is true
// for the call that actually built.
func (s *Store) GetOrCreate(ctx context.Context, key Key, build BuildFunc) (*Session, bool, error) {
	if sess, ok := s.Get(key); ok {
		return sess, false, nil
	}

	type created struct {
		sess  *Session
		built bool
	}

	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		// Check-then-create is atomic relative to this key: a session
		// populated while we waited on the group wins.
		if sess, ok := s.Get(key); ok {
			return created{sess: sess}, nil
		}

		sess, err := build(ctx)
		if err != nil {
			return nil, err
		}
		s.Upsert(sess)
		return created{sess: sess, built: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	c := v.(created)
	return c.sess, c.built, nil
}

// Upsert stores a session under its key, replacing any previous entry.
// A replaced session's credentials are left to the secure-buffer
// finalizer: an in-flight operation may still be signing with them.
func (s *Store) Upsert(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sess.Credentials.Destroy()
		return
	}
	s.sessions[sess.Key] = sess
}

// Invalidate removes the session for key immediately and reports whether
// one existed. It cancels any pending refresh and fences in-flight ones;
// a refresh completing afterwards is discarded.
func (s *Store) Invalidate(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if ok {
		s.removeLocked(key, sess)
	} else {
		// Fence a creation or refresh that has not landed yet.
		s.epochs[key]++
		s.cancelTimerLocked(key)
	}
	return ok
}

// SweepExpired removes every expired entry and returns the count.
func (s *Store) SweepExpired() int {
	now := s.clock()

	s.mu.Lock()
	removed := 0
	for key, sess := range s.sessions {
		if !sess.Live(now) {
			s.removeLocked(key, sess)
			removed++
		}
	}
	s.mu.Unlock()

	// Off the lock: the observer may touch arbitrary code (metrics).
	if removed > 0 && s.sweepObserver != nil {
		s.sweepObserver(removed)
	}
	return removed
}

// ScheduleRefresh arms proactive replacement of key at the given time,
// before expiry. When the timer fires, build runs off the store lock;
// on success the new session replaces the old and the next refresh is
// armed from its RefreshAt. Invalidation cancels the chain, and arming
// a key the store no longer holds is a no-op.
func (s *Store) ScheduleRefresh(key Key, at time.Time, build BuildFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scheduleRefreshLocked(key, at, build)
}

func (s *Store) scheduleRefreshLocked(key Key, at time.Time, build BuildFunc) {
	s.cancelTimerLocked(key)

	// Refresh only extends a session the store still holds. Arming for
	// an absent key would hand the timer the post-invalidation epoch
	// and let the rebuild slip past the fence.
	if _, ok := s.sessions[key]; !ok {
		return
	}

	epoch := s.epochs[key]
	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}

	s.timers[key] = time.AfterFunc(delay, func() {
		s.runRefresh(key, epoch, build)
	})
}

// runRefresh performs one proactive refresh attempt. The serialization
// lock is held only around the store write, never across the network
// call.
func (s *Store) runRefresh(key Key, epoch uint64, build BuildFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	sess, err := build(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.epochs[key] != epoch {
		// Invalidated (or shut down) while the refresh was in flight:
		// do not resurrect the key.
		if sess != nil {
			sess.Credentials.Destroy()
		}
		return
	}

	if err != nil {
		s.logger.Warn("session refresh failed",
			zap.String("session_key", key.String()),
			zap.Error(err))

		// Retry while the old session is still live; once it expires
		// the next caller triggers a fresh coalesced create instead.
		if old, ok := s.sessions[key]; ok && old.Live(s.clock()) {
			s.scheduleRefreshLocked(key, s.clock().Add(refreshRetryInterval), build)
		}
		return
	}

	s.sessions[key] = sess
	s.logger.Debug("session refreshed",
		zap.String("session_key", key.String()),
		zap.Time("expires_at", sess.ExpiresAt))

	s.scheduleRefreshLocked(key, sess.RefreshAt, build)
}

// StartSweeper runs the periodic expiry sweep until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.SweepExpired(); n > 0 {
					s.logger.Debug("swept expired sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close cancels all timers and destroys every stored credential.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for key, sess := range s.sessions {
		s.removeLocked(key, sess)
	}
}

// removeLocked drops a session, cancels its timer, destroys its
// credentials, and fences in-flight refreshes. Caller holds s.mu.
func (s *Store) removeLocked(key Key, sess *Session) {
	delete(s.sessions, key)
	s.epochs[key]++
	s.cancelTimerLocked(key)
	sess.Credentials.Destroy()
}

func (s *Store) cancelTimerLocked(key Key) {
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}
