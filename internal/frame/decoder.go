package frame

import (
	"errors"
	"fmt"

	"github.com/andy6609/rchan/internal/protocol"
)

var ErrRemainderOverflow = errors.New("frame remainder exceeds limit")

// Decoder carries the unterminated tail of one connection between reads.
// It is not safe for concurrent use; each read loop owns its own Decoder.
type Decoder struct {
	carry []byte
	max   int
}

// NewDecoder returns a Decoder that fails once the pending tail grows past
// max bytes. max <= 0 disables the limit.
func NewDecoder(max int) *Decoder {
	return &Decoder{max: max}
}

// Feed consumes one read and returns the messages it completed along with
// the number of malformed frames dropped. Messages completed before an
// overflow are still returned with the error.
func (d *Decoder) Feed(p []byte) ([]protocol.Message, int, error) {
	rest, msgs, dropped := Split(d.carry, p)
	d.carry = rest
	if d.max > 0 && len(rest) > d.max {
		return msgs, dropped, fmt.Errorf("%w: %d > %d bytes", ErrRemainderOverflow, len(rest), d.max)
	}
	return msgs, dropped, nil
}

// Pending is the size of the carried tail.
func (d *Decoder) Pending() int {
	return len(d.carry)
}
