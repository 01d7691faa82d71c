package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest matches every *RequestError.
var ErrInvalidRequest = errors.New("invalid request")

// RequestError reports a recognized request type with a missing or
// malformed field.
type RequestError struct {
	Type  string
	Field string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s request", e.Type)
	}
	return fmt.Sprintf("invalid %s request: missing or invalid field %s", e.Type, e.Field)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

type UsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

type AddServerRequest struct {
	ServerName     string `json:"server_name" validate:"required"`
	ServerIP       string `json:"server_ip" validate:"required,ip|hostname_rfc1123"`
	ServerPort     int    `json:"server_port" validate:"required,min=1,max=65535"`
	RootPassword   string `json:"root_password" validate:"required"`
	ServerPassword string `json:"server_password" validate:"required"`
}

type RemoveServerRequest struct {
	ServerName   string `json:"server_name" validate:"required"`
	RootPassword string `json:"root_password" validate:"required"`
}

type ChatRequest struct {
	Username string `json:"username" validate:"required"`
	Text     string `json:"message" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func check(typ string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &RequestError{Type: typ, Field: fieldErrs[0].Field()}
	}
	return &RequestError{Type: typ}
}

// mistyped reports a field among fields that failed to decode.
func (m Message) mistyped(typ string, fields ...string) error {
	if m.invalid != "" && slices.Contains(fields, m.invalid) {
		return &RequestError{Type: typ, Field: m.invalid}
	}
	return nil
}

func (m Message) UsernameRequest() (UsernameRequest, error) {
	req := UsernameRequest{Username: m.Username}
	if err := m.mistyped(TypeUsername, "username"); err != nil {
		return req, err
	}
	return req, check(TypeUsername, req)
}

func (m Message) AddServerRequest() (AddServerRequest, error) {
	req := AddServerRequest{
		ServerName:     m.ServerName,
		ServerIP:       m.ServerIP,
		ServerPort:     m.ServerPort,
		RootPassword:   m.RootPassword,
		ServerPassword: m.ServerPassword,
	}
	if err := m.mistyped(TypeAddServer, "server_name", "server_ip", "server_port", "root_password", "server_password"); err != nil {
		return req, err
	}
	return req, check(TypeAddServer, req)
}

func (m Message) RemoveServerRequest() (RemoveServerRequest, error) {
	req := RemoveServerRequest{ServerName: m.ServerName, RootPassword: m.RootPassword}
	if err := m.mistyped(TypeRemoveServer, "server_name", "root_password"); err != nil {
		return req, err
	}
	return req, check(TypeRemoveServer, req)
}

func (m Message) ChatRequest() (ChatRequest, error) {
	req := ChatRequest{Username: m.Username, Text: m.Message}
	if err := m.mistyped(TypeChat, "username", "message"); err != nil {
		return req, err
	}
	return req, check(TypeChat, req)
}
