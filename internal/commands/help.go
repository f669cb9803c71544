package commands

import (
	"context"
	"fmt"
	"strings"
)

const helpGroup = "Help"

type helpCommand struct {
	registry *Registry
}

func newHelpCommand(r *Registry) *helpCommand { return &helpCommand{registry: r} }

func (h *helpCommand) Descriptor() Descriptor {
	return Descriptor{
		Name:        "help",
		Group:       helpGroup,
		Description: "Show the available commands, or the usage of one command.",
		Options: []Option{
			{Name: "command", Description: "Command to describe", Kind: KindString},
		},
		Ephemeral: true,
	}
}

func (h *helpCommand) Execute(_ context.Context, req *Request) ([]Reply, error) {
	if name := req.Args.String("command"); name != "" {
		c, ok := h.registry.Get(name)
		if !ok {
			return nil, &NotFoundError{Command: name}
		}
		return []Reply{{Content: describe(c.Descriptor()), Ephemeral: true}}, nil
	}
	return []Reply{{Content: h.overview(), Ephemeral: true}}, nil
}

func (h *helpCommand) overview() string {
	var sb strings.Builder
	for _, g := range h.registry.groups {
		var lines []string
		for _, c := range h.registry.ordered {
			d := c.Descriptor()
			if d.Hidden || !strings.EqualFold(d.Group, g) {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %-10s %s", d.Name, d.Description))
		}
		if len(lines) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(g + ":\n" + strings.Join(lines, "\n") + "\n")
	}
	return "```\n" + sb.String() + "```"
}

func describe(d Descriptor) string {
	var sb strings.Builder
	sb.WriteString("```\n" + d.Usage() + "\n\n" + d.Description + "\n")
	if len(d.Aliases) > 0 {
		sb.WriteString("\nAliases: " + strings.Join(d.Aliases, ", ") + "\n")
	}
	if len(d.Options) > 0 {
		sb.WriteString("\n")
		for _, o := range d.Options {
			line := fmt.Sprintf("  %-6s %s", o.Name, o.Description)
			if o.HasRange {
				line += fmt.Sprintf(" (%d to %d)", o.Min, o.Max)
			}
			sb.WriteString(line + "\n")
		}
	}
	sb.WriteString("```")
	return sb.String()
}
