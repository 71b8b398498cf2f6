// Command mqttpublish is a manual test client: it publishes synthetic
// partial/final transcription events to a broker so a running relay can be
// exercised without a live transcriber.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"translate-relay/internal/models"
)

func main() {
	host := flag.String("host", "localhost", "MQTT broker host")
	port := flag.Int("port", 1883, "MQTT broker port")
	sessionID := flag.String("session", "demo-session", "session ID")
	channelID := flag.String("channel", "demo-channel", "channel ID")
	translator := flag.String("translator", "relay-1", "translator name to address in externalTranslations")
	targetLang := flag.String("target", "en", "target language requested")
	sourceLang := flag.String("lang", "fr", "source language of the transcript")
	flag.Parse()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", *host, *port))
	opts.SetClientID("mqttpublish-testclient")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.Printf("connected to %s:%d", *host, *port)

	partials := []string{
		"Bonjour",
		"Bonjour le",
		"Bonjour le monde",
		"Bonjour le monde. Comment allez-vous",
	}

	for i, text := range partials {
		evt := models.TranscriptionEvent{
			SegmentID: 1,
			AStart:    "2026-07-31T00:00:00Z",
			Text:      text,
			Start:     0,
			End:       float64(i+1) * 0.5,
			Lang:      *sourceLang,
			ExternalTranslations: []models.ExternalTranslation{
				{Translator: *translator, TargetLang: *targetLang},
			},
		}
		publish(client, *sessionID, *channelID, "partial", evt)
		time.Sleep(400 * time.Millisecond)
	}

	final := models.TranscriptionEvent{
		SegmentID: 1,
		AStart:    "2026-07-31T00:00:00Z",
		Text:      "Bonjour le monde. Comment allez-vous aujourd'hui",
		Start:     0,
		End:       2.5,
		Lang:      *sourceLang,
		ExternalTranslations: []models.ExternalTranslation{
			{Translator: *translator, TargetLang: *targetLang},
		},
	}
	publish(client, *sessionID, *channelID, "final", final)

	log.Println("done")
}

func publish(client mqtt.Client, sessionID, channelID, action string, evt models.TranscriptionEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		log.Fatalf("failed to marshal event: %v", err)
	}

	topic := fmt.Sprintf("transcriber/out/%s/%s/%s", sessionID, channelID, action)
	token := client.Publish(topic, 1, false, body)
	if token.Wait() && token.Error() != nil {
		log.Fatalf("failed to publish to %s: %v", topic, token.Error())
	}
	log.Printf("published to %s: %q", topic, evt.Text)
}
