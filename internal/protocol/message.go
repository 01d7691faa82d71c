// Package protocol defines the JSON envelope exchanged between relay and
// clients. Frames are bare JSON objects written back to back with no
// delimiter, so Encode must only ever produce a single object.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request types. AvailableServers is only ever sent by the relay.
const (
	TypeGetServers       = "get_servers"
	TypeChatHistory      = "chat_history"
	TypeUsername         = "username"
	TypeAddServer        = "add_server"
	TypeRemoveServer     = "remove_server"
	TypeChat             = "chat"
	TypeAvailableServers = "available_servers"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message is the flat envelope for every frame. Only Type is mandatory on
// the wire; the other fields depend on Type.
type Message struct {
	Type           string            `json:"type"`
	Status         string            `json:"status,omitempty"`
	Message        string            `json:"message,omitempty"`
	Username       string            `json:"username,omitempty"`
	ServerName     string            `json:"server_name,omitempty"`
	ServerIP       string            `json:"server_ip,omitempty"`
	ServerPort     int               `json:"server_port,omitempty"`
	RootPassword   string            `json:"root_password,omitempty"`
	ServerPassword string            `json:"server_password,omitempty"`
	Servers        map[string]string `json:"servers,omitempty"`

	// invalid is the first field that arrived with the wrong JSON type.
	invalid string
}

// IsError reports whether m is a status-bearing error response.
func (m Message) IsError() bool {
	return m.Status == StatusError
}

// Decode parses one complete frame. A field holding the wrong JSON type does
// not fail the frame: it is left zero and reported by the typed request
// accessors, so the sender still gets an error response.
func Decode(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	if err == nil {
		return m, nil
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	m.invalid = typeErr.Field
	return m, nil
}

// Encode serializes m as a single compact JSON object.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return b, nil
}

func Success(typ, text string) Message {
	return Message{Type: typ, Status: StatusSuccess, Message: text}
}

func Error(typ, text string) Message {
	return Message{Type: typ, Status: StatusError, Message: text}
}

// Directory builds the available_servers response from name -> "ip:port".
func Directory(servers map[string]string) Message {
	if servers == nil {
		servers = map[string]string{}
	}
	return Message{Type: TypeAvailableServers, Status: StatusSuccess, Servers: servers}
}

// ChatLine is the relay's rebroadcast of one formatted chat line.
func ChatLine(line string) Message {
	return Success(TypeChat, line)
}
