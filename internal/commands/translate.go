package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/feynmanium/feynmanium/internal/translate"
)

const translateGroup = "Translation"

// Translator translates and detects languages.
type Translator interface {
	Translate(ctx context.Context, text, dest, src string) (translate.Result, error)
	Detect(ctx context.Context, text string) (string, error)
}

// PageFetcher extracts the readable text of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (translate.Article, error)
}

func isLanguage(tok string) bool {
	if strings.EqualFold(tok, "auto") {
		return true
	}
	_, ok := translate.Lookup(tok)
	return ok
}

func quote(text string) string {
	return "> " + strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n> ")
}

func ephemeral(content string) []Reply {
	return []Reply{{Content: content, Ephemeral: true}}
}

// NewTranslateCommand translates text through tr.
func NewTranslateCommand(tr Translator) Command {
	return Func{
		Desc: Descriptor{
			Name:        "trans",
			Aliases:     []string{"translate"},
			Group:       translateGroup,
			Description: "Translate text.",
			Options: []Option{
				{Name: "dest", Description: "Destination language code", Kind: KindString, Required: true},
				{Name: "src", Description: "Source language code", Kind: KindString, Default: "auto", Accept: func(tok, _ string) bool { return isLanguage(tok) }},
				{Name: "text", Description: "Text to translate", Kind: KindString, Required: true, Rest: true},
			},
			Ephemeral: true,
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			res, err := tr.Translate(ctx, req.Args.String("text"), req.Args.String("dest"), req.Args.String("src"))
			if err != nil {
				return nil, err
			}
			return ephemeral(fmt.Sprintf("%s:\n%s\n%s:\n%s",
				translate.Name(res.Src), quote(res.Origin), translate.Name(res.Dest), quote(res.Text))), nil
		},
	}
}

// NewDetectCommand names the language of a text.
func NewDetectCommand(tr Translator) Command {
	return Func{
		Desc: Descriptor{
			Name:        "lang",
			Aliases:     []string{"detect"},
			Group:       translateGroup,
			Description: "Detect the language of a text.",
			Options: []Option{
				{Name: "text", Description: "Text to inspect", Kind: KindString, Required: true, Rest: true},
			},
			Ephemeral: true,
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			text := req.Args.String("text")
			code, err := tr.Detect(ctx, text)
			if err != nil {
				return nil, err
			}
			return ephemeral(fmt.Sprintf("%s:\n%s", translate.Name(code), quote(text))), nil
		},
	}
}

// NewCodesCommand lists the supported language codes.
func NewCodesCommand() Command {
	return Func{
		Desc: Descriptor{
			Name:        "code",
			Aliases:     []string{"codes"},
			Group:       translateGroup,
			Description: "List the available language codes.",
			Ephemeral:   true,
		},
		Run: func(context.Context, *Request) ([]Reply, error) {
			langs := translate.Languages()
			parts := make([]string, len(langs))
			for i, l := range langs {
				parts[i] = l.Code + " - " + l.Name
			}
			return ephemeral("Available language codes:\n" + strings.Join(parts, ", ")), nil
		},
	}
}

// NewTranslatePageCommand translates the start of a web page's article.
func NewTranslatePageCommand(tr Translator, pages PageFetcher, maxChars int) Command {
	return Func{
		Desc: Descriptor{
			Name:        "transpage",
			Group:       translateGroup,
			Description: "Translate the article on a web page.",
			Options: []Option{
				{Name: "dest", Description: "Destination language code", Kind: KindString, Required: true},
				{Name: "url", Description: "Page address", Kind: KindString, Required: true},
			},
			Ephemeral: true,
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			dest := req.Args.String("dest")
			if !isLanguage(dest) || strings.EqualFold(dest, "auto") {
				return nil, usageErrorf(BadArgument, "transpage", "unknown language code %q", dest)
			}
			art, err := pages.Fetch(ctx, req.Args.String("url"))
			if err != nil {
				return nil, err
			}
			res, err := tr.Translate(ctx, translate.Truncate(art.Text, maxChars), dest, "auto")
			if err != nil {
				return nil, err
			}
			var sb strings.Builder
			if art.Title != "" {
				sb.WriteString("**" + art.Title + "**\n")
			}
			fmt.Fprintf(&sb, "%s → %s:\n%s", translate.Name(res.Src), translate.Name(res.Dest), quote(res.Text))
			return ephemeral(sb.String()), nil
		},
	}
}

// TranslateCommands returns every translation command.
func TranslateCommands(tr Translator, pages PageFetcher, maxChars int) []Command {
	return []Command{
		NewTranslateCommand(tr),
		NewDetectCommand(tr),
		NewCodesCommand(),
		NewTranslatePageCommand(tr, pages, maxChars),
	}
}
