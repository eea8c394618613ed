// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses the NDJSON lines of a streaming chat response.
type StreamReader struct {
	reader *bufio.Reader

	// strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	tokenCount  int
}

// NewStreamReader creates a stream reader over an NDJSON response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each content
// chunk. Blocks until the stream completes, fails, or the context is
// cancelled.
func (s *StreamReader) Process(ctx context.Context, callback TokenCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := s.readLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if resp == nil {
			continue
		}

		if resp.Error != "" {
			return &ClientError{Message: resp.Error}
		}

		if resp.Message.Content != "" {
			s.accumulator.WriteString(resp.Message.Content)
			s.tokenCount++
			if callback != nil {
				callback(resp.Message.Content)
			}
		}

		if resp.Done {
			return nil
		}
	}
}

// readLine reads and parses a single NDJSON line. Returns (nil, nil)
// for blank or malformed lines.
func (s *StreamReader) readLine() (*streamResponse, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Process a final unterminated line before surfacing EOF.
		if len(line) == 0 {
			return nil, err
		}
	}

	if len(line) == 0 {
		return nil, nil
	}

	var resp streamResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		// Skip malformed lines
		return nil, nil
	}
	return &resp, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// TokenCount returns the number of content chunks received.
func (s *StreamReader) TokenCount() int {
	return s.tokenCount
}
