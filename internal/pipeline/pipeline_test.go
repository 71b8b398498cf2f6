package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"translate-relay/internal/config"
	"translate-relay/internal/models"
	"translate-relay/internal/translate"
)

// testConfig uses short timings so the boundary scenarios below settle in
// well under a second, rather than spec.md's production defaults.
func testConfig() config.GateConfig {
	return config.GateConfig{
		ChangeThreshold:     85,
		MinNewChars:         10,
		PartialDebounce:     20 * time.Millisecond,
		StabilityThreshold:  0.6,
		MaxHoldSeconds:      60 * time.Millisecond,
		MaxConsecutiveHolds: 2,
	}
}

type publishRecord struct {
	sessionID, channelID, action string
	payload                      models.TranslationPayload
}

type recorder struct {
	mu      sync.Mutex
	records []publishRecord
}

func (r *recorder) publish(_ context.Context, sessionID, channelID, action string, payload models.TranslationPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, publishRecord{sessionID, channelID, action, payload})
	return nil
}

func (r *recorder) snapshot() []publishRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]publishRecord, len(r.records))
	copy(out, r.records)
	return out
}

// scriptedProvider returns canned translations keyed by source text, with
// an optional artificial delay to simulate a slow RPC.
type scriptedProvider struct {
	mu        sync.Mutex
	responses map[string]string
	delay     time.Duration
}

func (p *scriptedProvider) Translate(ctx context.Context, text, _, _ string) (string, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if out, ok := p.responses[text]; ok {
		return out, nil
	}
	return text, nil
}

func TestHandlePartial_FirstPartialPublishesAfterDebounce(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	p := New(translate.NewEchoProvider(), rec.publish, cfg, nil)

	evt := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier", Lang: "fr"}
	p.HandlePartial("s1", "c1", evt, []string{"en"})

	time.Sleep(cfg.PartialDebounce + 150*time.Millisecond)

	records := rec.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(records))
	}
	if records[0].payload.Text != "Bonjour le monde entier" {
		t.Errorf("unexpected text %q", records[0].payload.Text)
	}
	if records[0].action != "partial" {
		t.Errorf("expected action partial, got %s", records[0].action)
	}
}

func TestHandlePartial_ChangeGateSkip(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	p := New(translate.NewEchoProvider(), rec.publish, cfg, nil)

	evtA := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtA, []string{"en"})
	time.Sleep(cfg.PartialDebounce + 150*time.Millisecond)

	evtB := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier,", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtB, []string{"en"})
	time.Sleep(cfg.PartialDebounce + 150*time.Millisecond)

	records := rec.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected B to be skipped by the change gate, got %d publishes", len(records))
	}
}

func TestHandlePartial_SentenceBoundaryBypassesDebounce(t *testing.T) {
	cfg := testConfig()
	// A short debounce so A's translation has already started by the time
	// B arrives 20ms later; cancelling A's (by-then nonexistent) debounce
	// timer must not stop its in-flight translation.
	cfg.PartialDebounce = 5 * time.Millisecond
	rec := &recorder{}
	p := New(translate.NewEchoProvider(), rec.publish, cfg, nil)

	evtA := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtA, []string{"en"})

	time.Sleep(20 * time.Millisecond)

	evtB := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier. Comment allez", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtB, []string{"en"})

	time.Sleep(150 * time.Millisecond)

	records := rec.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected two publishes (A via debounce, B via sentence boundary), got %d", len(records))
	}
}

func TestHandlePartial_PrefixBreakTriggersHoldThenMaxHoldForcePublishes(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	provider := &scriptedProvider{responses: map[string]string{
		"first source segment here":              "it walks on a",
		"second rather different source segment": "it works on an RTX card",
	}}
	p := New(provider, rec.publish, cfg, nil)

	evtA := models.TranscriptionEvent{SegmentID: 1, Text: "first source segment here", Lang: "en"}
	p.HandlePartial("s1", "c1", evtA, []string{"fr"})
	time.Sleep(cfg.PartialDebounce + 100*time.Millisecond)

	records := rec.snapshot()
	if len(records) != 1 || records[0].payload.Text != "it walks on a" {
		t.Fatalf("expected first publish 'it walks on a', got %+v", records)
	}

	evtB := models.TranscriptionEvent{SegmentID: 1, Text: "second rather different source segment", Lang: "en"}
	p.HandlePartial("s1", "c1", evtB, []string{"fr"})
	time.Sleep(cfg.PartialDebounce + 20*time.Millisecond)

	// Held, not yet published: still only one publish.
	records = rec.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected held translation not yet published, got %d publishes", len(records))
	}

	// Wait past maxHoldSeconds for the force-publish.
	time.Sleep(cfg.MaxHoldSeconds + 100*time.Millisecond)

	records = rec.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected max-hold timer to force-publish the held translation, got %d publishes", len(records))
	}
	if records[1].payload.Text != "it works on an RTX card" {
		t.Errorf("expected forced publish text 'it works on an RTX card', got %q", records[1].payload.Text)
	}
}

func TestHandlePartial_MaxConsecutiveHoldsForcePublishes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveHolds = 2
	// Long enough that the first hold's max-hold timer cannot fire before
	// the third partial's translation lands.
	cfg.MaxHoldSeconds = time.Second
	rec := &recorder{}
	provider := &scriptedProvider{responses: map[string]string{
		"alpha source one":     "word1 word2 word3 word4 word5 word6",
		"bravo source two":     "wordX word2 word3 word4 word5 word6",
		"charlie source three": "wordY word2 word3 word4 word5 word6",
	}}
	p := New(provider, rec.publish, cfg, nil)

	dispatch := func(text string) {
		evt := models.TranscriptionEvent{SegmentID: 1, Text: text, Lang: "en"}
		p.HandlePartial("s1", "c1", evt, []string{"fr"})
		time.Sleep(cfg.PartialDebounce + 40*time.Millisecond)
	}

	dispatch("alpha source one")      // first display, publishes unconditionally
	dispatch("bravo source two")     // prefix breaks at word0 -> hold (consecutiveHolds=1)
	dispatch("charlie source three") // prefix breaks again -> consecutiveHolds=2 -> force-publish

	records := rec.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected 2 publishes (first display + forced second hold), got %d: %+v", len(records), records)
	}
	if records[0].payload.Text != "word1 word2 word3 word4 word5 word6" {
		t.Errorf("unexpected first publish text %q", records[0].payload.Text)
	}
	if records[1].payload.Text != "wordY word2 word3 word4 word5 word6" {
		t.Errorf("expected forced publish to carry the second held translation, got %q", records[1].payload.Text)
	}
}

func TestHandleFinal_BypassesGatesAndFansOutInParallel(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	p := New(translate.NewEchoProvider(), rec.publish, cfg, nil)

	evt := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour", Lang: "fr"}
	p.HandleFinal("s1", "c1", evt, []string{"en", "de"})

	records := rec.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected exactly two publishes, one per target, got %d", len(records))
	}
	seen := map[string]bool{}
	for _, r := range records {
		if r.action != "final" {
			t.Errorf("expected action final, got %s", r.action)
		}
		if r.payload.Text != "Bonjour" {
			t.Errorf("expected echoed text 'Bonjour', got %q", r.payload.Text)
		}
		seen[r.payload.TargetLang] = true
	}
	if !seen["en"] || !seen["de"] {
		t.Errorf("expected publishes for both en and de, got %+v", records)
	}

	if p.store.exists(tripleKey{SessionID: "s1", ChannelID: "c1", TargetLang: "en"}) {
		t.Error("expected state for (s1,c1,en) to be absent after handleFinal")
	}
	if p.store.exists(tripleKey{SessionID: "s1", ChannelID: "c1", TargetLang: "de"}) {
		t.Error("expected state for (s1,c1,de) to be absent after handleFinal")
	}
}

func TestHandlePartial_DiscardedWhenFinalClearsStateMidTranslation(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	provider := &scriptedProvider{delay: 80 * time.Millisecond}
	p := New(provider, rec.publish, cfg, nil)

	// A sentence boundary in the partial triggers immediate dispatch,
	// bypassing the debounce timer, so its translateAndCheck goroutine is
	// already in flight (sleeping inside the scripted 80ms delay) well
	// before the final below arrives and clears its state.
	partial := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour. Le monde", Lang: "fr"}
	p.HandlePartial("s1", "c1", partial, []string{"en"})
	time.Sleep(20 * time.Millisecond)

	final := models.TranscriptionEvent{SegmentID: 2, Text: "Bonjour. Le monde entier.", Lang: "fr"}
	p.HandleFinal("s1", "c1", final, []string{"en"})

	// Give the stale partial goroutine time to finish its translate call
	// and discover its state has been cleared.
	time.Sleep(100 * time.Millisecond)

	records := rec.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected exactly one publish (the final; the stale partial result must be discarded silently), got %d: %+v", len(records), records)
	}
	if records[0].action != "final" {
		t.Fatalf("expected the surviving publish to be the final, got action=%s", records[0].action)
	}
}

func TestHandlePartial_InFlightTranslationSurvivesDebounceCancel(t *testing.T) {
	cfg := testConfig()
	rec := &recorder{}
	provider := &scriptedProvider{
		delay: 80 * time.Millisecond,
		responses: map[string]string{
			"Bonjour. Le monde": "hello. the world",
			"Bonjour le monde entier tout autour": "hello the whole wide world around",
		},
	}
	p := New(provider, rec.publish, cfg, nil)

	// A dispatches via the sentence-boundary (immediate) path — its RPC
	// takes 80ms to return.
	evtA := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour. Le monde", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtA, []string{"en"})

	time.Sleep(20 * time.Millisecond)

	// B arrives before A's RPC returns. A never armed a debounce timer (it
	// took the immediate path), so B's cancelDebounceTimer is a no-op.
	evtB := models.TranscriptionEvent{SegmentID: 1, Text: "Bonjour le monde entier tout autour", Lang: "fr"}
	p.HandlePartial("s1", "c1", evtB, []string{"en"})

	// Give both A's delayed RPC and B's debounced RPC time to complete.
	time.Sleep(250 * time.Millisecond)

	records := rec.snapshot()
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.payload.Text
	}

	foundA := false
	for _, txt := range texts {
		if txt == "hello. the world" {
			foundA = true
		}
	}
	if !foundA {
		t.Errorf("expected A's in-flight translation to still be published despite B's debounce cancel, got publishes: %v", texts)
	}
}
