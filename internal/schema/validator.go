// Package schema filters inbound transcription events down to the targets
// one translator instance is responsible for, dropping anything it should
// never have received or cannot act on.
package schema

import (
	"fmt"
	"strings"

	"translate-relay/internal/models"
)

// DropReason identifies why Validate rejected an event.
type DropReason string

const (
	ReasonNoMatchingTarget DropReason = "no_matching_target"
	ReasonEmptyText        DropReason = "empty_text"
	ReasonNoSourceLang     DropReason = "no_source_lang"
)

// ValidationError names the reason an event was dropped, so callers can
// record it (e.g. as a metrics label) without parsing an error string.
type ValidationError struct {
	Reason DropReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event dropped: %s", e.Reason)
}

// Validator filters inbound transcription events for one translator.
type Validator struct {
	translatorName string
}

// New creates a Validator scoped to translatorName.
func New(translatorName string) *Validator {
	return &Validator{translatorName: translatorName}
}

// Validate returns the target languages evt should be translated into. It
// returns a *ValidationError when evt should be dropped: no externalTranslations
// entry names this translator, the text is empty after trimming, or the
// source language is missing.
func (v *Validator) Validate(evt models.TranscriptionEvent) ([]string, error) {
	targets := matchingTargets(evt, v.translatorName)
	if len(targets) == 0 {
		return nil, &ValidationError{Reason: ReasonNoMatchingTarget}
	}

	if strings.TrimSpace(evt.Text) == "" {
		return nil, &ValidationError{Reason: ReasonEmptyText}
	}

	if evt.Lang == "" {
		return nil, &ValidationError{Reason: ReasonNoSourceLang}
	}

	return targets, nil
}

// matchingTargets returns the target languages whose externalTranslations
// entry names translatorName, the set this translator is responsible for.
func matchingTargets(evt models.TranscriptionEvent, translatorName string) []string {
	var targets []string
	for _, ext := range evt.ExternalTranslations {
		if ext.Translator == translatorName {
			targets = append(targets, ext.TargetLang)
		}
	}
	return targets
}
