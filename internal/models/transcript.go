// Package models defines the wire types exchanged with the message bus:
// inbound transcription events and outbound translation payloads.
package models

// ExternalTranslation is a translation request attached to an inbound
// event: it asks the translator named Translator for a TargetLang
// translation. A relay acts only on the entries that carry its own name.
type ExternalTranslation struct {
	Translator string `json:"translator"`
	TargetLang string `json:"targetLang"`
	Text       string `json:"text"`
}

// TranscriptionEvent is the inbound payload published by the transcriber on
// transcriber/out/{sessionId}/{channelId}/{partial,final}.
type TranscriptionEvent struct {
	SegmentID            int                   `json:"segmentId"`
	AStart               string                `json:"astart"`
	Text                 string                `json:"text"`
	Start                float64               `json:"start"`
	End                  float64               `json:"end"`
	Lang                 string                `json:"lang"`
	Locutor              *string               `json:"locutor"`
	ExternalTranslations []ExternalTranslation `json:"externalTranslations,omitempty"`
}

// TranslationPayload is the outbound payload published on
// transcriber/out/{sessionId}/{channelId}/{partial,final}/translations.
// Field order matches the wire contract exactly; Locutor stays a pointer so
// a null locutor still serializes as the JSON key "locutor": null.
type TranslationPayload struct {
	SegmentID  int     `json:"segmentId"`
	AStart     string  `json:"astart"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SourceLang string  `json:"sourceLang"`
	TargetLang string  `json:"targetLang"`
	Locutor    *string `json:"locutor"`
}

// BuildPayload constructs the outbound translation payload for a given
// translated result, mirroring the original implementation's static
// payload-builder so the 8-key contract is assembled in exactly one place.
func BuildPayload(evt TranscriptionEvent, translatedText, targetLang string) TranslationPayload {
	return TranslationPayload{
		SegmentID:  evt.SegmentID,
		AStart:     evt.AStart,
		Text:       translatedText,
		Start:      evt.Start,
		End:        evt.End,
		SourceLang: evt.Lang,
		TargetLang: targetLang,
		Locutor:    evt.Locutor,
	}
}
