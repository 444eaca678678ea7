package source

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. Catalogs are
// conventionally embedded in fenced code blocks; the extractor collects
// the contents of every fence in document order. A document with no
// fences at all is assumed to be catalog text written straight into the
// file and is returned as-is.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	found := false

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch block := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			found = true
			lines := block.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(src))
			}
			if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
				buf.WriteByte('\n')
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return string(src), nil
	}
	return buf.String(), nil
}
