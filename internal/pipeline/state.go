package pipeline

import (
	"sync"
	"time"
)

// tripleKey identifies one segment's pipeline state: the session,
// channel, and target language a stream of partial/final events is being
// translated into.
type tripleKey struct {
	SessionID  string
	ChannelID  string
	TargetLang string
}

// segmentState is the per-triple state the gating pipeline mutates as
// partials arrive. Its own mutex serializes the transitions a single
// executor would otherwise guarantee serially.
type segmentState struct {
	mu sync.Mutex

	lastTranslatedSource string
	lastPublishedText    string
	lastSentenceCount    int
	debounceTimer        *time.Timer
	holdTimer            *time.Timer
	heldTranslation      *string
	consecutiveHolds     int
	hasPublished         bool

	// cleared is set by store.clear while holding mu, so an in-flight
	// translateAndCheck/maxHoldFire goroutine that already holds a pointer
	// to this state can detect removal inside the very same critical
	// section it uses to decide whether to publish, instead of racing a
	// separate store-level existence check against store.clear.
	cleared bool
}

func newSegmentState() *segmentState {
	return &segmentState{}
}

// cancelDebounceTimer stops the pending debounce timer, if any. It never
// touches an in-flight translation goroutine — only the timer that would
// have started one.
func (s *segmentState) cancelDebounceTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *segmentState) cancelHoldTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}
}

func (s *segmentState) stopTimers() {
	s.cancelDebounceTimer()
	s.cancelHoldTimer()
}

// isCleared reports whether store.clear has already removed this state.
func (s *segmentState) isCleared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

// markCleared flags the state as cleared and stops its timers in one
// critical section, so nothing can observe cleared=false and then have a
// timer fire (or a pending mutation proceed) against removed state.
func (s *segmentState) markCleared() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}
}

// store holds all active segmentStates keyed by triple, guarded by its own
// mutex so map access never races with per-state mutations.
type store struct {
	mu     sync.Mutex
	states map[tripleKey]*segmentState
}

func newStore() *store {
	return &store{states: make(map[tripleKey]*segmentState)}
}

func (st *store) get(key tripleKey) *segmentState {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.states[key]
	if !ok {
		s = newSegmentState()
		st.states[key] = s
	}
	return s
}

func (st *store) exists(key tripleKey) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.states[key]
	return ok
}

// clear removes key's state, stops its timers, and marks it cleared so any
// goroutine already holding this *segmentState (a translateAndCheck or
// maxHoldFire dispatched before the clear) discards its result instead of
// publishing through removed state. It does not, and must not, cancel an
// in-flight translation call itself — only prevent its result from landing.
func (st *store) clear(key tripleKey) {
	st.mu.Lock()
	s, ok := st.states[key]
	if ok {
		delete(st.states, key)
	}
	st.mu.Unlock()

	if ok {
		s.markCleared()
	}
}

func (st *store) keys() []tripleKey {
	st.mu.Lock()
	defer st.mu.Unlock()
	keys := make([]tripleKey, 0, len(st.states))
	for k := range st.states {
		keys = append(keys, k)
	}
	return keys
}

func (st *store) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.states)
}
