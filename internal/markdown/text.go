package markdown

import (
	"strings"
	"unicode/utf8"

	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

const ellipsis = "…"

// PlainText returns the readable words of a markdown body: text and inline
// code are kept, while code blocks, images and raw HTML are left out.
func PlainText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	var out strings.Builder
	doc := md.Parse([]byte(body), parser.NewWithExtensions(extensions))
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.CodeBlock, *ast.Image, *ast.HTMLBlock, *ast.HTMLSpan:
			return ast.SkipChildren
		case *ast.Text:
			out.Write(n.Literal)
		case *ast.Code:
			out.Write(n.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			out.WriteByte(' ')
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.BlockQuote, *ast.TableCell:
			if !entering {
				out.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})

	return strings.Join(strings.Fields(out.String()), " ")
}

// Truncate collapses whitespace in text and cuts it to at most maxChars
// runes on a word boundary, appending an ellipsis when anything was cut.
// A first word longer than maxChars is cut mid-word.
func Truncate(text string, maxChars int) string {
	if maxChars < 1 {
		return ""
	}

	var out strings.Builder
	length := 0
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if length == 0 && wordLen > maxChars {
			return string([]rune(word)[:maxChars]) + ellipsis
		}
		if length > 0 && length+1+wordLen > maxChars {
			return out.String() + ellipsis
		}
		if length > 0 {
			out.WriteByte(' ')
			length++
		}
		out.WriteString(word)
		length += wordLen
	}

	return out.String()
}
