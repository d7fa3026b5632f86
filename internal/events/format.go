package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/knx2openhab/dashboard/internal/models"
)

// MessageLog is the type whose tag comes from the message level.
const MessageLog = "log"

// FinishedText is appended when the done event arrives.
const FinishedText = "Job finished"

// FormatMessage turns a stream message into a log line of the form
// "[HH:MM:SS] [TAG] message".
func FormatMessage(msg models.StreamMessage, at time.Time) models.LogEntry {
	level := levelFor(msg)
	tag := msg.Type
	if msg.Type == MessageLog || tag == "" {
		tag = string(level)
	}
	return models.LogEntry{
		Level: level,
		Text:  fmt.Sprintf("[%s] [%s] %s", at.Format("15:04:05"), strings.ToUpper(tag), msg.Message),
	}
}

func levelFor(msg models.StreamMessage) models.LogLevel {
	if msg.Level.Valid() {
		return msg.Level
	}
	if t := models.LogLevel(msg.Type); t.Valid() {
		return t
	}
	return models.LevelInfo
}

// Entry decodes the data of a generic event. Data that is not a stream
// message is kept verbatim as an info line.
func Entry(data string, at time.Time) models.LogEntry {
	var msg models.StreamMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil || msg.Type == "" {
		return models.LogEntry{Level: models.LevelInfo, Text: data}
	}
	return FormatMessage(msg, at)
}
