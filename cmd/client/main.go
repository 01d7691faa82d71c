package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/andy6609/rchan/internal/client"
	"github.com/andy6609/rchan/internal/config"
	"golang.org/x/term"
)

const help = `commands:
  /name <username>   set your username
  /host              publish a server in the directory
  /unhost            remove a server you published
  /enter <server>    move to a server from the directory
  /servers           refresh the directory
  /history           show chat history
  /quit              leave
anything else is sent as chat`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "optional env file")
	server := flag.String("server", "", "relay address (overrides RCHAN_SERVER)")
	flag.Parse()

	cfg, err := config.LoadClient(*envFile)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server = *server
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.Level(cfg.LogLevel),
	}))

	ui := client.NewConsole(os.Stdout)
	c := client.New(client.Config{
		ReadBufferSize: cfg.ReadBuffer,
		MaxRemainder:   cfg.MaxRemainder,
		DialTimeout:    cfg.DialTimeout,
	}, ui, logger)

	ctx := context.Background()
	if err := c.Connect(ctx, cfg.Server); err != nil {
		return err
	}
	defer c.Close()
	ui.Notice("Connected to " + cfg.Server)

	p := newPrompter(os.Stdin, ui)
	name, ok := p.line("Enter username> ")
	if !ok {
		return nil
	}
	if err := c.SetUsername(name); err != nil {
		return err
	}
	if err := c.RequestHistory(); err != nil {
		return err
	}

	// Prompts inside commands read from the same scanner, so input is
	// consumed on this goroutine only.
	for {
		line, ok := p.line("")
		if !ok {
			return nil
		}
		quit, err := dispatch(ctx, c, ui, p, line)
		if err != nil {
			ui.Error(err.Error())
		}
		if quit {
			return nil
		}
	}
}

func dispatch(ctx context.Context, c *client.Client, ui *client.Console, p *prompter, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if ui.TakeNameRequest() && !strings.HasPrefix(line, "/") {
		return false, c.SetUsername(line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit":
		return true, nil
	case "/help":
		ui.Notice(help)
		return false, nil
	case "/name":
		if arg == "" {
			return false, errors.New("usage: /name <username>")
		}
		return false, c.SetUsername(arg)
	case "/servers":
		return false, c.RequestDirectory()
	case "/history":
		return false, c.RequestHistory()
	case "/enter":
		if arg == "" {
			return false, errors.New("usage: /enter <server>")
		}
		return false, c.Enter(ctx, arg)
	case "/host":
		req, err := p.hostRequest()
		if err != nil {
			return false, err
		}
		return false, c.Host(req)
	case "/unhost":
		name, _ := p.line("Enter server name> ")
		root, err := p.secret("Enter root password> ")
		if err != nil {
			return false, err
		}
		return false, c.Unhost(name, root)
	}
	if strings.HasPrefix(cmd, "/") {
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, c.Send(line)
}

// prompter reads answers from stdin. Secrets are read without echo when
// stdin is a terminal.
type prompter struct {
	in  *bufio.Scanner
	ui  *client.Console
	fd  int
	tty bool
}

func newPrompter(f *os.File, ui *client.Console) *prompter {
	fd := int(f.Fd())
	return &prompter{in: bufio.NewScanner(f), ui: ui, fd: fd, tty: term.IsTerminal(fd)}
}

func (p *prompter) line(label string) (string, bool) {
	if label != "" {
		p.ui.Prompt(label)
	}
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *prompter) secret(label string) (string, error) {
	if !p.tty {
		s, _ := p.line(label)
		return s, nil
	}
	p.ui.Prompt(label)
	b, err := term.ReadPassword(p.fd)
	p.ui.Prompt("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (p *prompter) hostRequest() (client.HostRequest, error) {
	var req client.HostRequest
	req.IP, _ = p.line("Enter server IP> ")
	portText, _ := p.line("Enter server port> ")
	port, err := strconv.Atoi(portText)
	if err != nil {
		return req, fmt.Errorf("invalid port %q", portText)
	}
	req.Port = port
	req.Name, _ = p.line("Enter server name> ")
	if req.RootPassword, err = p.secret("Enter root password> "); err != nil {
		return req, err
	}
	if req.ServerPassword, err = p.secret("Enter server password> "); err != nil {
		return req, err
	}
	return req, nil
}
