// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxEventSize is the maximum allowed size for a single SSE event (1MB).
const MaxEventSize = 1024 * 1024

// ErrEventTooLarge is returned for an SSE event above MaxEventSize.
var ErrEventTooLarge = errors.New("SSE event exceeds maximum size")

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, data, and any error. The event type is empty for
// chat completion streams. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush a final event that lacks the blank terminator line
				if len(bytes.TrimSpace(line)) > 0 {
					if data, ok := parseDataLine(bytes.TrimRight(line, "\r\n")); ok {
						dataLines = append(dataLines, data)
					}
				}
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
			continue
		}
		if data, ok := parseDataLine(line); ok {
			size += len(data)
			if size > MaxEventSize {
				return "", nil, ErrEventTooLarge
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

func parseDataLine(line []byte) ([]byte, bool) {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return nil, false
	}
	data := line[5:]
	// A single leading space is part of the field separator
	if len(data) > 0 && data[0] == ' ' {
		data = data[1:]
	}
	return data, true
}
