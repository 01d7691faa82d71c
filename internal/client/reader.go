package client

import (
	"net"

	"github.com/andy6609/rchan/internal/frame"
	"github.com/andy6609/rchan/internal/protocol"
)

func (c *Client) readLoop(conn net.Conn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	dec := frame.NewDecoder(c.cfg.MaxRemainder)
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			msgs, _, ferr := dec.Feed(buf[:n])
			for _, m := range msgs {
				c.handle(m)
			}
			if ferr != nil {
				err = ferr
			}
		}
		if err == nil {
			continue
		}

		select {
		case <-stop:
			return
		default:
		}
		c.logger.Warn("connection lost", "error", err)
		_ = conn.Close()
		c.ui.Disconnected(err)
		return
	}
}

func (c *Client) handle(m protocol.Message) {
	if m.IsError() {
		if m.Type == protocol.TypeUsername {
			c.ui.UsernameRejected(m.Message)
			return
		}
		c.ui.Error(m.Message)
		return
	}

	switch m.Type {
	case protocol.TypeChat:
		c.ui.Chat(m.Message)
	case protocol.TypeAvailableServers:
		c.stateMu.Lock()
		c.servers = m.Servers
		if c.servers == nil {
			c.servers = map[string]string{}
		}
		c.stateMu.Unlock()
		c.ui.Directory(c.Servers())
	case protocol.TypeChatHistory:
		c.ui.History(m.Message)
	case protocol.TypeUsername, protocol.TypeAddServer, protocol.TypeRemoveServer:
		c.ui.Notice(m.Message)
	default:
		c.logger.Debug("ignoring message", "type", m.Type)
	}
}
