//go:generate go run go.uber.org/mock/mockgen -source=ui.go -destination=../mocks/mock_ui.go -package=mocks
package client

// UI receives everything the relay sends. Methods are called from the
// read loop goroutine and must not block for long.
type UI interface {
	Chat(line string)
	Notice(text string)
	Error(text string)
	Directory(servers map[string]string)
	History(text string)
	UsernameRejected(text string)
	Disconnected(err error)
}
