// Package frame recovers discrete protocol messages from a TCP byte stream.
// Frames are JSON objects sent back to back, so boundaries are found by
// brace depth, ignoring braces inside string literals.
package frame

import (
	"bytes"

	"github.com/andy6609/rchan/internal/protocol"
)

// Split scans carry followed by data and decodes every complete object.
// Bytes outside any object are discarded. A closed object that fails to
// decode is dropped and counted. The unterminated tail, if any, is returned
// as rest and must be passed back as carry on the next call.
//
// Split never retains or modifies its arguments.
func Split(carry, data []byte) (rest []byte, msgs []protocol.Message, dropped int) {
	buf := make([]byte, 0, len(carry)+len(data))
	buf = append(buf, carry...)
	buf = append(buf, data...)

	var (
		depth    int
		inString bool
		escaped  bool
		start    = -1
	)
	for i, c := range buf {
		if depth == 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth > 0 {
				continue
			}
			m, err := protocol.Decode(buf[start : i+1])
			if err != nil {
				dropped++
			} else {
				msgs = append(msgs, m)
			}
			start = -1
		}
	}

	if start >= 0 {
		rest = bytes.Clone(buf[start:])
	}
	return rest, msgs, dropped
}
