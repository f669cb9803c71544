// Package commands defines the command model shared by every channel: a
// command describes its options once and runs the same way whether it was
// typed as text or invoked as a platform slash command.
package commands

import (
	"context"
	"time"

	"github.com/feynmanium/feynmanium/internal/bus"
)

// OptionKind is the type of an option value.
type OptionKind int

const (
	KindString OptionKind = iota
	KindInteger
	KindBoolean
)

func (k OptionKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	}
	return "string"
}

// Option describes one argument of a command.
type Option struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
	// Min and Max bound integer options when HasRange is set.
	HasRange bool
	Min, Max int64
	// Default is used when an optional option is omitted.
	Default any
	// Rest makes the option consume the remainder of a text invocation.
	// Only the last option may set it.
	Rest bool
	// Accept, when set, tells the text parser whether a token can fill this
	// optional option, given the text that follows it. A rejected token is
	// left for the next option.
	Accept func(token, rest string) bool
}

// Descriptor is the static description of a command.
type Descriptor struct {
	Name        string
	Aliases     []string
	Group       string
	Description string
	Options     []Option
	Ephemeral   bool
	// Hidden commands are callable but not listed by help or registered as
	// slash commands.
	Hidden bool
}

// Usage renders the descriptor as "name <required> [optional=default]".
func (d Descriptor) Usage() string {
	s := d.Name
	for _, o := range d.Options {
		switch {
		case o.Required:
			s += " <" + o.Name + ">"
		case o.Default != nil && o.Default != "":
			s += " [" + o.Name + "=" + formatValue(o.Default) + "]"
		default:
			s += " [" + o.Name + "]"
		}
	}
	return s
}

// Request is one invocation of a command.
type Request struct {
	Name    string
	Args    Args
	Channel bus.ChannelType
	ChatID  string
	UserID  string
	User    string
	// Latency is the channel's last measured heartbeat round trip.
	Latency time.Duration
	Inbound *bus.InboundMessage
}

// Reply is one message produced by a command.
type Reply struct {
	Content   string
	Files     []bus.File
	Menus     []bus.Menu
	Ephemeral bool
	// OnSent receives the platform message id once the reply is delivered.
	OnSent func(messageID string)
}

// Text returns a single plain reply.
func Text(content string) []Reply { return []Reply{{Content: content}} }

// Command is a chat command.
type Command interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, req *Request) ([]Reply, error)
}

// Func adapts a function to the Command interface.
type Func struct {
	Desc Descriptor
	Run  func(ctx context.Context, req *Request) ([]Reply, error)
}

func (f Func) Descriptor() Descriptor { return f.Desc }

func (f Func) Execute(ctx context.Context, req *Request) ([]Reply, error) {
	return f.Run(ctx, req)
}
