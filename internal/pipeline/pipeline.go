// Package pipeline implements the anti-flicker translation orchestrator:
// per-triple state, debounce and hold timers, and dispatch to a translation
// provider ahead of publication to the bus.
//
// Debounce timers are decoupled from translation tasks: cancelling a
// debounce timer never cancels a translation already in flight.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"translate-relay/internal/config"
	"translate-relay/internal/gate"
	"translate-relay/internal/models"
	"translate-relay/internal/observability/logging"
	"translate-relay/internal/observability/metrics"
	"translate-relay/internal/translate"
)

// translationTimeout bounds a single translation provider call.
const translationTimeout = 30 * time.Second

// PublishFunc publishes a translation payload for one action ("partial" or
// "final") on behalf of a session/channel pair.
type PublishFunc func(ctx context.Context, sessionID, channelID, action string, payload models.TranslationPayload) error

// Pipeline is the anti-flicker translation orchestrator.
type Pipeline struct {
	provider translate.Provider
	publish  PublishFunc
	cfg      config.GateConfig
	metrics  *metrics.Metrics

	store *store
	stats *pipelineStats

	tasksMu sync.Mutex
	tasks   map[uuid.UUID]struct{}
	wg      sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Pipeline around provider, publishing through publish
// with the tunables in cfg.
func New(provider translate.Provider, publish PublishFunc, cfg config.GateConfig, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		provider: provider,
		publish:  publish,
		cfg:      cfg,
		metrics:  m,
		store:    newStore(),
		stats:    &pipelineStats{},
		tasks:    make(map[uuid.UUID]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// StartStatsLogger starts the periodic 60s stats-logging loop. It runs
// until ctx is cancelled or Stop is called.
func (p *Pipeline) StartStatsLogger(ctx context.Context) {
	go p.statsLoop(ctx)
}

func (p *Pipeline) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	logger := logging.WithComponent("pipeline")
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			s := p.stats.snapshotAndReset()
			logger.Info().
				Int64("partialsReceived", s.PartialsReceived).
				Int64("translated", s.Translated).
				Int64("published", s.Published).
				Int64("held", s.Held).
				Int64("skippedChange", s.SkippedChange).
				Int64("skippedSentence", s.SkippedSentence).
				Msg("pipeline stats (last 60s)")
			if p.metrics != nil {
				p.metrics.ActiveStates.Set(float64(p.store.len()))
			}
		}
	}
}

// fireTask runs fn as an independent, tracked goroutine with its own 30s
// translation-call budget. Debounce cancellation never reaches into here.
func (p *Pipeline) fireTask(fn func(ctx context.Context)) {
	id := uuid.New()
	p.tasksMu.Lock()
	p.tasks[id] = struct{}{}
	p.tasksMu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.tasksMu.Lock()
			delete(p.tasks, id)
			p.tasksMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), translationTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Stop cancels all pending debounce/hold timers and waits for any
// in-flight translation tasks to finish.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	for _, key := range p.store.keys() {
		p.store.clear(key)
	}
	p.wg.Wait()
}

// HandleFinal processes a final transcription event. Finals bypass every
// gate: any pending debounce/hold state for the targets is dropped first
// (so in-flight partial results for them are discarded), then all targets
// are translated in parallel and published.
func (p *Pipeline) HandleFinal(sessionID, channelID string, evt models.TranscriptionEvent, targetLangs []string) {
	for _, tl := range targetLangs {
		p.store.clear(tripleKey{SessionID: sessionID, ChannelID: channelID, TargetLang: tl})
	}

	var g errgroup.Group
	for _, tl := range targetLangs {
		targetLang := tl
		g.Go(func() error {
			p.translateFinalTarget(sessionID, channelID, evt, targetLang)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) translateFinalTarget(sessionID, channelID string, evt models.TranscriptionEvent, targetLang string) {
	logger := logging.WithSegment(sessionID, channelID, targetLang, evt.SegmentID)

	ctx, cancel := context.WithTimeout(context.Background(), translationTimeout)
	defer cancel()

	start := time.Now()
	translated, err := p.provider.Translate(ctx, evt.Text, evt.Lang, targetLang)
	if p.metrics != nil {
		p.metrics.TranslationLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.Error().Err(err).Msg("translation error on final")
		if p.metrics != nil {
			p.metrics.RecordTranslationError("final")
		}
		return
	}
	p.stats.translated.Add(1)

	payload := models.BuildPayload(evt, translated, targetLang)
	logger.Debug().Str("action", "FORCE").Str("reason", "final arrived").Msg("dispatching final translation")

	pubStart := time.Now()
	if err := p.publish(ctx, sessionID, channelID, "final", payload); err != nil {
		logger.Warn().Err(err).Msg("publish failed")
		if p.metrics != nil {
			p.metrics.RecordBusPublishError("final")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordTranslationPublished("final", time.Since(pubStart).Seconds())
	}
	p.stats.published.Add(1)
}

// HandlePartial processes a partial transcription event. Each target
// language runs through the full gating chain: change gate, sentence
// boundary check, then either an immediate independent translation or a
// (re)armed debounce timer.
func (p *Pipeline) HandlePartial(sessionID, channelID string, evt models.TranscriptionEvent, targetLangs []string) {
	p.stats.partialsReceived.Add(1)

	for _, targetLang := range targetLangs {
		key := tripleKey{SessionID: sessionID, ChannelID: channelID, TargetLang: targetLang}
		state := p.store.get(key)
		logger := logging.WithSegment(sessionID, channelID, targetLang, evt.SegmentID)

		state.mu.Lock()
		lastSource := state.lastTranslatedSource
		lastSentenceCount := state.lastSentenceCount
		state.mu.Unlock()

		if gate.ShouldSkip(lastSource, evt.Text, p.cfg.ChangeThreshold, p.cfg.MinNewChars) {
			logger.Debug().Str("action", "SKIP").Str("gate", "change").Msg("partial skipped")
			p.stats.skippedChange.Add(1)
			if p.metrics != nil {
				p.metrics.ChangeGateSkipped.Inc()
			}
			continue
		}

		newBoundary, newCount := gate.HasNewSentence(evt.Text, evt.Lang, lastSentenceCount)
		state.mu.Lock()
		state.lastSentenceCount = newCount
		state.mu.Unlock()

		if newBoundary {
			logger.Debug().Msg("sentence boundary detected, translating immediately")
			state.cancelDebounceTimer()
			if p.metrics != nil {
				p.metrics.SentenceGateBypass.Inc()
			}
			p.fireTask(func(ctx context.Context) {
				p.translateAndCheck(ctx, sessionID, channelID, evt, targetLang, key, state)
			})
			continue
		}

		state.cancelDebounceTimer()
		state.mu.Lock()
		state.debounceTimer = time.AfterFunc(p.cfg.PartialDebounce, func() {
			p.fireTask(func(ctx context.Context) {
				p.translateAndCheck(ctx, sessionID, channelID, evt, targetLang, key, state)
			})
		})
		state.mu.Unlock()
	}
}

// translateAndCheck translates one target and applies the post-translation
// stability check. It is always run as an independent fire-and-forget task,
// so it checks state.cleared both before the (potentially slow) translation
// call and again immediately after acquiring state.mu — a final may have
// cleared this triple's state while the translation was in flight, and that
// second check happens in the same critical section as the mutation and
// publish that follow it, so the result can never be published through
// state a concurrent HandleFinal has already torn down.
func (p *Pipeline) translateAndCheck(ctx context.Context, sessionID, channelID string, evt models.TranscriptionEvent, targetLang string, key tripleKey, state *segmentState) {
	if state.isCleared() {
		return
	}

	logger := logging.WithSegment(sessionID, channelID, targetLang, evt.SegmentID)

	start := time.Now()
	translated, err := p.provider.Translate(ctx, evt.Text, evt.Lang, targetLang)
	if p.metrics != nil {
		p.metrics.TranslationLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.Error().Err(err).Msg("translation error on partial")
		if p.metrics != nil {
			p.metrics.RecordTranslationError("partial")
		}
		return
	}
	p.stats.translated.Add(1)

	// cleared is re-checked in the same critical section used to mutate
	// state and (maybe) publish, so a concurrent store.clear can never be
	// observed as "not yet cleared" here and then take effect mid-mutation:
	// either it landed before this lock (cleared is true, we bail) or it
	// must wait for this lock to release (and runs after we're done).
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.cleared {
		return
	}
	state.lastTranslatedSource = evt.Text

	isStable, stability := gate.CheckStability(state.lastPublishedText, translated, p.cfg.StabilityThreshold)

	if isStable || !state.hasPublished {
		p.publishPartialLocked(ctx, sessionID, channelID, evt, targetLang, state, translated, logger)
		return
	}

	state.consecutiveHolds++
	p.stats.held.Add(1)
	if p.metrics != nil {
		p.metrics.HoldsApplied.Inc()
	}
	logger.Debug().
		Float64("stability", stability).
		Int("consecutiveHolds", state.consecutiveHolds).
		Msg("action=HOLD")

	if state.consecutiveHolds >= p.cfg.MaxConsecutiveHolds {
		logger.Debug().Str("reason", "max_consecutive_holds").Msg("action=FORCE")
		if p.metrics != nil {
			p.metrics.ForcePublishes.Inc()
		}
		p.publishPartialLocked(ctx, sessionID, channelID, evt, targetLang, state, translated, logger)
		return
	}

	held := translated
	state.heldTranslation = &held
	if state.holdTimer != nil {
		state.holdTimer.Stop()
	}
	state.holdTimer = time.AfterFunc(p.cfg.MaxHoldSeconds, func() {
		p.maxHoldFire(sessionID, channelID, evt, targetLang, key, state)
	})
}

// publishPartialLocked publishes translated as the new displayed text and
// resets the hold bookkeeping. Callers must hold state.mu.
func (p *Pipeline) publishPartialLocked(ctx context.Context, sessionID, channelID string, evt models.TranscriptionEvent, targetLang string, state *segmentState, translated string, logger zerolog.Logger) {
	payload := models.BuildPayload(evt, translated, targetLang)

	pubStart := time.Now()
	if err := p.publish(ctx, sessionID, channelID, "partial", payload); err != nil {
		logger.Warn().Err(err).Msg("publish failed")
		if p.metrics != nil {
			p.metrics.RecordBusPublishError("partial")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordTranslationPublished("partial", time.Since(pubStart).Seconds())
	}

	state.lastPublishedText = translated
	state.hasPublished = true
	state.consecutiveHolds = 0
	state.heldTranslation = nil
	if state.holdTimer != nil {
		state.holdTimer.Stop()
		state.holdTimer = nil
	}
	p.stats.published.Add(1)
}

// maxHoldFire force-publishes a held translation once it has been withheld
// longer than the configured max-hold window. state.cleared is checked
// under the same state.mu acquisition used to read heldTranslation and
// publish, so a store.clear racing with this timer firing either lands
// first (cleared is true here, nothing publishes) or must wait for this
// critical section to finish.
func (p *Pipeline) maxHoldFire(sessionID, channelID string, evt models.TranscriptionEvent, targetLang string, key tripleKey, state *segmentState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.cleared || state.heldTranslation == nil {
		return
	}

	logger := logging.WithSegment(sessionID, channelID, targetLang, evt.SegmentID)
	logger.Debug().Str("reason", "max_hold_seconds").Msg("action=FORCE")

	ctx, cancel := context.WithTimeout(context.Background(), translationTimeout)
	defer cancel()

	translated := *state.heldTranslation
	payload := models.BuildPayload(evt, translated, targetLang)

	pubStart := time.Now()
	if err := p.publish(ctx, sessionID, channelID, "partial", payload); err != nil {
		logger.Warn().Err(err).Msg("publish failed")
		if p.metrics != nil {
			p.metrics.RecordBusPublishError("partial")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordTranslationPublished("partial", time.Since(pubStart).Seconds())
		p.metrics.ForcePublishes.Inc()
	}

	state.lastPublishedText = translated
	state.hasPublished = true
	state.consecutiveHolds = 0
	state.heldTranslation = nil
	p.stats.published.Add(1)
}
