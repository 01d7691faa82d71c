package chat

import (
	"bufio"
)

// startOutboundWriter drains the session queue onto the connection until the
// session closes. Frames already queued are coalesced into one flush.
func startOutboundWriter(s *Session) {
	go func() {
		defer close(s.writerDone)

		w := bufio.NewWriter(s.conn)
		for {
			select {
			case msg := <-s.out:
				if _, err := w.Write(msg); err != nil {
					s.close()
					return
				}
				if len(s.out) > 0 {
					continue
				}
				if err := w.Flush(); err != nil {
					s.close()
					return
				}
			case <-s.draining:
				if err := flushQueued(w, s.out); err != nil {
					s.logger.Debug("drain outbound queue", "remote", s.remote, "error", err)
				}
				return
			case <-s.done:
				return
			}
		}
	}()
}

// flushQueued writes every frame still in out, then flushes.
func flushQueued(w *bufio.Writer, out <-chan []byte) error {
	for {
		select {
		case msg := <-out:
			if _, err := w.Write(msg); err != nil {
				return err
			}
		default:
			return w.Flush()
		}
	}
}
