package client

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Console is the terminal UI. Output from the read loop and from the prompt
// goroutine is serialized by mu.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	needName atomic.Bool
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Chat(line string) {
	c.println(strings.TrimRight(line, "\n"))
}

func (c *Console) Notice(text string) {
	c.println(color.Green.Sprint(text))
}

func (c *Console) Error(text string) {
	c.println(color.Red.Sprintf("Error: %s", text))
}

func (c *Console) Directory(servers map[string]string) {
	names := lo.Keys(servers)
	slices.Sort(names)

	c.mu.Lock()
	defer c.mu.Unlock()

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Server", "Address"})
	for _, name := range names {
		table.Append([]string{name, servers[name]})
	}
	table.Render()
}

func (c *Console) History(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out, color.Cyan.Sprint("Chat history loaded!"))
}

// UsernameRejected asks for another name on the next input line.
func (c *Console) UsernameRejected(text string) {
	c.needName.Store(true)
	c.println(color.Red.Sprintf("Error: %s", text))
	c.Prompt("Enter username> ")
}

func (c *Console) Disconnected(err error) {
	c.println(color.Yellow.Sprintf("Disconnected: %v", err))
}

// TakeNameRequest reports, once, that the relay rejected the last username.
func (c *Console) TakeNameRequest() bool {
	return c.needName.Swap(false)
}

// Prompt writes text without a trailing newline.
func (c *Console) Prompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, text)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, s)
}
