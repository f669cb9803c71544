package commands

import (
	"strings"
	"unicode"
)

// Registry holds the commands available to every channel.
type Registry struct {
	byName  map[string]Command
	ordered []Command
	groups  []string
}

// Get returns the command with the given name or alias, case-insensitively.
func (r *Registry) Get(name string) (Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// All returns the commands in registration order.
func (r *Registry) All() []Command {
	return append([]Command(nil), r.ordered...)
}

// Descriptors returns the descriptors of the visible commands.
func (r *Registry) Descriptors() []Descriptor {
	var out []Descriptor
	for _, c := range r.ordered {
		if d := c.Descriptor(); !d.Hidden {
			out = append(out, d)
		}
	}
	return out
}

// Invocation is a text command split into name and argument text.
type Invocation struct {
	Name string
	Args string
}

// Split recognises "<prefix>name args" or "<mention> name args" in text.
// It reports false when text is not addressed to the bot.
func Split(text, prefix string, mentions ...string) (Invocation, bool) {
	s := strings.TrimSpace(text)
	matched := false
	for _, m := range mentions {
		if m != "" && strings.HasPrefix(s, m) {
			s = strings.TrimSpace(s[len(m):])
			matched = true
			break
		}
	}
	if !matched {
		if prefix == "" || !strings.HasPrefix(s, prefix) {
			return Invocation{}, false
		}
		s = s[len(prefix):]
	}
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return Invocation{Name: s}, s != ""
	}
	return Invocation{Name: s[:end], Args: strings.TrimSpace(s[end:])}, true
}

// Resolve looks up the command for inv and binds its arguments.
func (r *Registry) Resolve(inv Invocation) (Command, Args, error) {
	c, ok := r.Get(inv.Name)
	if !ok {
		return nil, nil, &NotFoundError{Command: inv.Name}
	}
	args, err := ParseText(c.Descriptor(), inv.Args)
	if err != nil {
		return nil, nil, err
	}
	return c, args, nil
}
