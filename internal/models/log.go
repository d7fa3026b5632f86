package models

// LogLevel classifies a log entry.
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
	LevelStatus  LogLevel = "status"
	LevelBackup  LogLevel = "backup"
	LevelStats   LogLevel = "stats"
)

// Levels lists every level in display order.
var Levels = []LogLevel{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelStatus, LevelBackup, LevelStats}

// Valid reports whether l is one of the known levels.
func (l LogLevel) Valid() bool {
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}

// LogEntry is one line of a job log.
type LogEntry struct {
	Level LogLevel `json:"level"`
	Text  string   `json:"text"`
}

// StreamMessage is the payload of a generic event on the job event channel.
type StreamMessage struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Level   LogLevel `json:"level,omitempty"`
}
