// Package bus adapts the anti-flicker pipeline to an MQTT message bus:
// subscribing to inbound transcription topics, filtering events down to the
// ones addressed to this translator, and publishing translation results.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"translate-relay/internal/middleware"
	"translate-relay/internal/models"
	"translate-relay/internal/observability/logging"
	"translate-relay/internal/observability/metrics"
	"translate-relay/internal/schema"
)

// dropError reports why an inbound message never reached the pipeline, for
// messages the schema validator never saw (bad topic shape, invalid JSON).
type dropError struct{ reason string }

func (e *dropError) Error() string { return "dropped: " + e.reason }

// dropReason extracts a metrics label from an error returned by process,
// whether it came from schema validation or from process itself.
func dropReason(err error) string {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return string(verr.Reason)
	}
	var derr *dropError
	if errors.As(err, &derr) {
		return derr.reason
	}
	return "unknown"
}

// logPolicy classifies a drop for middleware.WithLogging. An event addressed
// to another translator or with empty text is routine wildcard-topic noise
// and is never logged; a malformed topic is equally routine (any client can
// publish to transcriber/out/#) and silent; invalid JSON warrants a warning,
// and a missing source language a debug line, matching the original
// translator's logging.
func logPolicy(err error) (zerolog.Level, bool) {
	var derr *dropError
	if errors.As(err, &derr) {
		switch derr.reason {
		case "invalid_json":
			return zerolog.WarnLevel, true
		default:
			return 0, false
		}
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		switch verr.Reason {
		case schema.ReasonNoSourceLang:
			return zerolog.DebugLevel, true
		default:
			return 0, false
		}
	}

	return zerolog.ErrorLevel, true
}

const publishTimeout = 5 * time.Second

// EventHandler is the subset of the pipeline's API the bus dispatches
// inbound events to. Satisfied by *pipeline.Pipeline.
type EventHandler interface {
	HandleFinal(sessionID, channelID string, evt models.TranscriptionEvent, targetLangs []string)
	HandlePartial(sessionID, channelID string, evt models.TranscriptionEvent, targetLangs []string)
}

// Config holds MQTT broker connection settings for the Adapter.
type Config struct {
	Host           string
	Port           int
	TranslatorName string
	Languages      []string
}

// Adapter manages the MQTT connection, subscriptions, and message routing
// between the bus and the translation pipeline.
type Adapter struct {
	cfg       Config
	handler   EventHandler
	validator *schema.Validator
	metrics   *metrics.Metrics

	client mqtt.Client

	statusTopic    string
	onlinePayload  []byte
	offlinePayload []byte

	// handle is process wrapped with logging and dropped-event metrics, the
	// way the teacher repo wrapped its gRPC handlers with interceptors.
	handle middleware.Handler
}

// statusPayload is the retained last-will/online-status payload shape.
type statusPayload struct {
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	Online    bool     `json:"online"`
}

// NewAdapter builds an Adapter. The pipeline is usually constructed around
// this Adapter's PublishTranslation method, so its handler is wired in
// afterwards with SetHandler rather than taken as a constructor argument.
// Call Connect before it does anything.
func NewAdapter(cfg Config, m *metrics.Metrics) *Adapter {
	online, _ := json.Marshal(statusPayload{Name: cfg.TranslatorName, Languages: cfg.Languages, Online: true})
	offline, _ := json.Marshal(statusPayload{Name: cfg.TranslatorName, Languages: nil, Online: false})

	a := &Adapter{
		cfg:            cfg,
		validator:      schema.New(cfg.TranslatorName),
		metrics:        m,
		statusTopic:    statusTopic(cfg.TranslatorName),
		onlinePayload:  online,
		offlinePayload: offline,
	}
	a.handle = middleware.Chain(
		func(next middleware.Handler) middleware.Handler {
			return middleware.WithLogging(logPolicy, next)
		},
		func(next middleware.Handler) middleware.Handler {
			return middleware.WithMetrics(m, dropReason, next)
		},
	)(a.process)
	return a
}

// SetHandler wires the event handler (the pipeline) that inbound messages
// are dispatched to. Must be called before Connect.
func (a *Adapter) SetHandler(handler EventHandler) {
	a.handler = handler
}

// Connect dials the broker, arms the last-will offline status, and blocks
// until the initial connection succeeds or fails.
func (a *Adapter) Connect() error {
	logger := logging.WithComponent("bus")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", a.cfg.Host, a.cfg.Port))
	opts.SetClientID(fmt.Sprintf("translate-relay-%s", a.cfg.TranslatorName))
	opts.SetCleanSession(true)
	opts.SetWill(a.statusTopic, string(a.offlinePayload), 1, true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetMaxReconnectInterval(3 * time.Second)
	opts.SetOnConnectHandler(a.onConnect)
	opts.SetConnectionLostHandler(a.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		if a.metrics != nil {
			a.metrics.BusReconnects.Inc()
		}
		logger.Warn().Msg("reconnecting to MQTT broker")
	})

	a.client = mqtt.NewClient(opts)
	token := a.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker %s:%d: %w", a.cfg.Host, a.cfg.Port, err)
	}
	return nil
}

func (a *Adapter) onConnect(client mqtt.Client) {
	logger := logging.WithComponent("bus")
	logger.Info().Str("host", a.cfg.Host).Int("port", a.cfg.Port).Msg("connected to MQTT broker")
	if a.metrics != nil {
		a.metrics.SetBusConnected(true)
	}

	if token := client.Publish(a.statusTopic, 1, true, a.onlinePayload); token.Wait() && token.Error() != nil {
		logger.Warn().Err(token.Error()).Msg("failed to publish online status")
	}

	if token := client.Subscribe(finalSubscribeTopic, 1, a.onMessage); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", finalSubscribeTopic).Msg("subscribe failed")
	}
	if token := client.Subscribe(partialSubscribeTopic, 1, a.onMessage); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("topic", partialSubscribeTopic).Msg("subscribe failed")
	}
	logger.Info().Msg("subscribed to transcriber/out/+/+/final and partial")
}

func (a *Adapter) onConnectionLost(_ mqtt.Client, err error) {
	logging.WithComponent("bus").Warn().Err(err).Msg("MQTT connection lost")
	if a.metrics != nil {
		a.metrics.SetBusConnected(false)
	}
}

// onMessage is the paho subscription callback: it adapts an mqtt.Message
// into the logging/metrics-wrapped handler chain.
func (a *Adapter) onMessage(_ mqtt.Client, msg mqtt.Message) {
	_ = a.handle(context.Background(), msg.Topic(), msg.Payload())
}

// process applies the filtering rules to one inbound message and, if it
// passes, dispatches it into the pipeline. A non-nil return means the
// message was dropped; dropReason labels why.
func (a *Adapter) process(_ context.Context, topic string, payload []byte) error {
	parsed, ok := parseTopic(topic)
	if !ok {
		return &dropError{reason: "unrecognized_topic"}
	}

	var evt models.TranscriptionEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", &dropError{reason: "invalid_json"}, err)
	}

	targets, err := a.validator.Validate(evt)
	if err != nil {
		return err
	}

	if a.metrics != nil {
		a.metrics.RecordEventReceived(parsed.Action)
	}

	if parsed.Action == "final" {
		a.handler.HandleFinal(parsed.SessionID, parsed.ChannelID, evt, targets)
	} else {
		a.handler.HandlePartial(parsed.SessionID, parsed.ChannelID, evt, targets)
	}
	return nil
}

// PublishTranslation publishes a translation payload to the bus. Its
// signature matches pipeline.PublishFunc.
func (a *Adapter) PublishTranslation(ctx context.Context, sessionID, channelID, action string, payload models.TranslationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal translation payload: %w", err)
	}

	topic := publishTopic(sessionID, channelID, action)
	token := a.client.Publish(topic, 1, false, body)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	return token.Error()
}

// IsConnected reports whether the adapter currently has a live broker
// connection. Used to back the relay's /readyz probe.
func (a *Adapter) IsConnected() bool {
	return a.client != nil && a.client.IsConnected()
}

// Shutdown publishes the offline status and disconnects cleanly.
func (a *Adapter) Shutdown() {
	logger := logging.WithComponent("bus")
	if a.client == nil || !a.client.IsConnected() {
		return
	}

	if token := a.client.Publish(a.statusTopic, 1, true, a.offlinePayload); token.WaitTimeout(2 * time.Second) {
		if err := token.Error(); err != nil {
			logger.Warn().Err(err).Msg("failed to publish offline status during shutdown")
		} else {
			logger.Info().Msg("published offline status")
		}
	}

	a.client.Disconnect(250)
	if a.metrics != nil {
		a.metrics.SetBusConnected(false)
	}
}
