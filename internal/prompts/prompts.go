// Package prompts renders the prompt library: markdown prose with fenced
// ```prompt blocks that visitors copy verbatim.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

//go:embed library.md
var builtin []byte

var promptFence = regexp.MustCompile("(?s)```prompt\\s*\\n(.*?)```")

// Block is either rendered prose (HTML) or one copyable prompt (Prompt).
type Block struct {
	HTML   template.HTML
	Prompt string
}

func (b Block) IsPrompt() bool { return b.Prompt != "" }

type Library struct {
	Blocks []Block
}

// Prompts returns the copyable prompts in document order.
func (l *Library) Prompts() []string {
	var out []string
	for _, b := range l.Blocks {
		if b.IsPrompt() {
			out = append(out, b.Prompt)
		}
	}
	return out
}

// Load reads the library from path, or the built-in one when path is empty.
func Load(path string) (*Library, error) {
	if path == "" {
		return Parse(builtin)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt library: %w", err)
	}
	return Parse(src)
}

// Parse splits src on prompt fences and renders the prose between them.
// Raw HTML in the prose is not passed through.
func Parse(src []byte) (*Library, error) {
	md := goldmark.New()
	lib := &Library{}

	prose := func(text []byte) error {
		if len(bytes.TrimSpace(text)) == 0 {
			return nil
		}
		var buf bytes.Buffer
		if err := md.Convert(text, &buf); err != nil {
			return fmt.Errorf("render prompt library: %w", err)
		}
		lib.Blocks = append(lib.Blocks, Block{HTML: template.HTML(buf.String())})
		return nil
	}

	last := 0
	for _, m := range promptFence.FindAllSubmatchIndex(src, -1) {
		if err := prose(src[last:m[0]]); err != nil {
			return nil, err
		}
		if text := strings.TrimSpace(string(src[m[2]:m[3]])); text != "" {
			lib.Blocks = append(lib.Blocks, Block{Prompt: text})
		}
		last = m[1]
	}
	if err := prose(src[last:]); err != nil {
		return nil, err
	}
	return lib, nil
}
