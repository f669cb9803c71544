package commands

import "strings"

// RegistryBuilder accumulates commands during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	commands []Command
	groups   []string
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithCommand adds a command and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithCommand(cmds ...Command) *RegistryBuilder {
	for _, c := range cmds {
		b.commands = append(b.commands, c)
		g := c.Descriptor().Group
		if !containsFold(b.groups, g) {
			b.groups = append(b.groups, g)
		}
	}
	return b
}

// Build produces an immutable Registry from the accumulated commands, plus
// a help command listing them. Later registrations win on name clashes.
func (b *RegistryBuilder) Build() *Registry {
	r := &Registry{byName: make(map[string]Command, len(b.commands)+1)}
	help := newHelpCommand(r)
	for _, c := range append(append([]Command(nil), b.commands...), help) {
		d := c.Descriptor()
		if _, dup := r.byName[strings.ToLower(d.Name)]; !dup {
			r.ordered = append(r.ordered, c)
		}
		r.byName[strings.ToLower(d.Name)] = c
		for _, a := range d.Aliases {
			r.byName[strings.ToLower(a)] = c
		}
	}
	r.groups = append([]string(nil), b.groups...)
	if !containsFold(r.groups, helpGroup) {
		r.groups = append(r.groups, helpGroup)
	}
	return r
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
