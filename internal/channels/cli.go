package channels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

// ErrQuit is returned by the CLI channel when the user asks to leave.
var ErrQuit = errors.New("cli: quit")

const (
	cliSender = "user"
	cliChat   = "direct"
)

var cliExitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// CLIChannel reads commands from a terminal and prints replies to it. Every
// line is a direct message, so the command prefix is optional.
//
// A menu choice is typed as "!select <menu> <value>".
type CLIChannel struct {
	Base
	cfg *channel.CLIConfig
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	nextID int
	lastID string
}

// NewCLIChannel creates a CLIChannel. A nil in or out means stdin or stdout.
func NewCLIChannel(cfg *channel.CLIConfig, b bus.Bus, in io.Reader, out io.Writer) *CLIChannel {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &CLIChannel{
		Base: NewBase(bus.ChannelCLI, b, nil),
		cfg:  cfg,
		in:   in,
		out:  out,
	}
}

func (c *CLIChannel) Name() string { return bus.ChannelCLI.String() }

// Start reads lines until ctx is cancelled, the input ends or an exit
// command is typed. The last two return ErrQuit.
func (c *CLIChannel) Start(ctx context.Context) error {
	c.print("CLI channel ready. Type 'exit' or press Ctrl+C to quit.\n\n")

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		c.print(c.cfg.Prompt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.print("\nGoodbye!\n")
				return ErrQuit
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if cliExitCommands[strings.ToLower(line)] {
				c.print("Goodbye!\n")
				return ErrQuit
			}
			c.handleLine(line)
		}
	}
}

func (c *CLIChannel) handleLine(line string) {
	c.mu.Lock()
	anchor := c.lastID
	c.mu.Unlock()

	if rest, ok := strings.CutPrefix(line, "!select "); ok {
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			c.print("usage: !select <menu> <value>\n")
			return
		}
		sel := bus.Selection{MenuID: fields[0], Values: fields[1:]}
		c.HandleSelection(cliSender, cliSender, cliChat, sel, map[string]any{
			bus.MetaMessageID: anchor,
			bus.MetaDirect:    true,
		})
		return
	}
	c.HandleMessage(cliSender, cliSender, cliChat, line, map[string]any{
		bus.MetaDirect: true,
	})
}

func (c *CLIChannel) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

// Send prints msg. Menus are listed as "menu: options" with the value to
// select after each label that differs from it.
func (c *CLIChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	var b strings.Builder
	if msg.Content() != "" {
		b.WriteString(msg.Content())
		b.WriteString("\n")
	}
	for _, f := range msg.Files() {
		fmt.Fprintf(&b, "[attachment: %s, %d bytes]\n", f.Name, len(f.Data))
	}
	if menus := menuText(msg.Menus()); menus != "" {
		b.WriteString(menus)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return nil
	}

	c.mu.Lock()
	c.nextID++
	id := strconv.Itoa(c.nextID)
	c.lastID = id
	_, err := fmt.Fprint(c.out, "\n"+b.String())
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("cli: write: %w", err)
	}
	msg.Sent(id)
	return nil
}
