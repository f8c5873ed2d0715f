// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame line (1MB). Tool results are the
// largest frames and stay well under this.
const MaxFrameSize = 1024 * 1024

// ErrFrameTooLarge is returned when a line exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("stream frame exceeds maximum size")

// Reader decodes frames from a stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a new frame reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event. Blank lines and frames with unknown codes
// are skipped. A final line without a newline is still decoded. Returns
// io.EOF when the stream ends.
func (r *Reader) Next() (Event, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return Event{}, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		e, err := Decode(line)
		if err != nil {
			var unknown *UnknownCodeError
			if errors.As(err, &unknown) {
				continue
			}
			return Event{}, err
		}
		return e, nil
	}
}

func (r *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.reader.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxFrameSize {
			return nil, fmt.Errorf("%w (%d bytes)", ErrFrameTooLarge, len(buf))
		}
		switch {
		case err == nil:
			return buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF && len(buf) > 0:
			return buf, nil
		default:
			return nil, err
		}
	}
}
