package pipeline

import (
	"testing"
	"time"
)

func TestSegmentState_MarkClearedSetsClearedAndStopsTimers(t *testing.T) {
	s := newSegmentState()
	if s.isCleared() {
		t.Fatal("expected a fresh state to not be cleared")
	}
	s.debounceTimer = time.AfterFunc(time.Hour, func() {})
	s.holdTimer = time.AfterFunc(time.Hour, func() {})

	s.markCleared()

	if !s.isCleared() {
		t.Fatal("expected state to be cleared after markCleared")
	}
	if s.debounceTimer != nil || s.holdTimer != nil {
		t.Fatal("expected markCleared to stop and drop both timers")
	}
}

func TestStore_ClearMarksStateClearedForAnyHolderOfThePointer(t *testing.T) {
	st := newStore()
	key := tripleKey{SessionID: "s1", ChannelID: "c1", TargetLang: "en"}

	// Simulate a goroutine that looked up the state before the clear and
	// is still holding the pointer.
	held := st.get(key)
	if held.isCleared() {
		t.Fatal("expected state to not be cleared before store.clear")
	}

	st.clear(key)

	if !held.isCleared() {
		t.Fatal("expected the pointer held before clear to observe cleared=true afterward")
	}
	if st.exists(key) {
		t.Fatal("expected the key to be removed from the store after clear")
	}
}
