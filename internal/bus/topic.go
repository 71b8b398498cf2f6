package bus

import (
	"fmt"
	"strings"
)

const (
	finalSubscribeTopic   = "transcriber/out/+/+/final"
	partialSubscribeTopic = "transcriber/out/+/+/partial"
)

// parsedTopic is the result of splitting an inbound transcriber topic into
// its (sessionId, channelId, action) parts.
type parsedTopic struct {
	SessionID string
	ChannelID string
	Action    string
}

// parseTopic splits "transcriber/out/{sessionId}/{channelId}/{action}" into
// its parts. It rejects anything that isn't exactly that five-segment shape
// with a recognized action.
func parseTopic(topic string) (parsedTopic, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "transcriber" || parts[1] != "out" {
		return parsedTopic{}, false
	}
	action := parts[4]
	if action != "final" && action != "partial" {
		return parsedTopic{}, false
	}
	return parsedTopic{SessionID: parts[2], ChannelID: parts[3], Action: action}, true
}

// publishTopic builds the outbound translation topic for a session/channel.
func publishTopic(sessionID, channelID, action string) string {
	return fmt.Sprintf("transcriber/out/%s/%s/%s/translations", sessionID, channelID, action)
}

// statusTopic builds the retained last-will/status topic for a translator.
func statusTopic(translatorName string) string {
	return fmt.Sprintf("translator/out/%s/status", translatorName)
}
