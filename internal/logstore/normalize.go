package logstore

import (
	"encoding/json"
	"fmt"

	"github.com/knx2openhab/dashboard/internal/models"
)

// NormalizeEntries converts the heterogeneous shapes found in stored job
// logs into LogEntry values:
//
//	"text"                       -> {info, "text"}
//	{"text": "b"}                -> {info, "b"}
//	{"level": "warning", ...}    -> {warning, ...}
//	anything else                -> {info, x rendered as text}
func NormalizeEntries(raw []any) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(raw))
	for _, item := range raw {
		out = append(out, normalize(item))
	}
	return out
}

func normalize(item any) models.LogEntry {
	switch v := item.(type) {
	case string:
		return models.LogEntry{Level: models.LevelInfo, Text: v}
	case models.LogEntry:
		if v.Level == "" {
			v.Level = models.LevelInfo
		}
		return v
	case map[string]any:
		text, ok := v["text"]
		if !ok {
			break
		}
		entry := models.LogEntry{Level: models.LevelInfo, Text: stringify(text)}
		if lvl, ok := v["level"].(string); ok && lvl != "" {
			entry.Level = models.LogLevel(lvl)
		}
		return entry
	}
	return models.LogEntry{Level: models.LevelInfo, Text: stringify(item)}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "null"
	case map[string]any, []any:
		if b, err := json.Marshal(s); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
