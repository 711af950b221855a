package feed

import (
	"bufio"
	"io"
	"strings"
)

// Scanner buffer sizing for feed frames. Cast payloads can carry embedded
// media metadata, so lines run well past bufio's default.
const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 1024 * 1024
)

// event is one decoded SSE frame from the upstream feed.
type event struct {
	name string
	data string
}

// eventReader incrementally decodes SSE frames from a streaming response
// body. It only understands as much of the protocol as the feed uses:
// event/data fields, comment lines, and blank-line frame termination.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)
	return &eventReader{scanner: s}
}

// Next blocks until a complete event with a data payload arrives. It returns
// io.EOF when the stream ends and the underlying read error otherwise.
// Comment frames and dataless events are skipped.
func (r *eventReader) Next() (event, error) {
	var ev event
	var dataLines []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			// Blank line ends the frame.
			if len(dataLines) > 0 {
				ev.data = strings.Join(dataLines, "\n")
				return ev, nil
			}
			ev = event{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			// Comment (keepalive) frame.
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.name = value
		case "data":
			dataLines = append(dataLines, value)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return event{}, err
	}
	return event{}, io.EOF
}
