package events

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLine bounds a single line of the stream.
const maxLine = 1 << 20

// Event is one dispatched server-sent event. Retry is the reconnection
// time in milliseconds last announced on the stream, 0 if none.
type Event struct {
	ID    string
	Name  string
	Data  string
	Retry int
}

// Decoder reads server-sent events from a text/event-stream body.
type Decoder struct {
	sc    *bufio.Scanner
	retry int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	sc.Split(scanLines)
	return &Decoder{sc: sc}
}

// Next blocks until a full event is available. It returns io.EOF when the
// stream ends; a trailing event without a terminating blank line is dropped.
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for d.sc.Scan() {
		line := d.sc.Text()
		if line == "" {
			if !hasData && ev.Name == "" {
				ev = Event{}
				continue
			}
			ev.Data = data.String()
			ev.Retry = d.retry
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			ev.ID = value
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				d.retry = n
			}
		}
	}
	if err := d.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Retry returns the reconnection delay announced by the server, 0 if none.
// A retry field applies to the connection even in a frame without data.
func (d *Decoder) Retry() time.Duration {
	return time.Duration(d.retry) * time.Millisecond
}

// scanLines splits on \n, \r\n or a lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// need one more byte to tell \r from \r\n
			return 0, nil, nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
