// Package markdown flattens model output into plain text for chat clients
// that do not render markdown.
package markdown

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const bullet = "• "

var (
	md         = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Table))
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// ToPlainText strips markdown syntax from src while keeping its text,
// list structure and code content. Images and raw HTML are dropped.
func ToPlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(node.Label(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Image, *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				writeLines(&buf, n, source)
				buf.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				buf.WriteString(strings.Repeat("  ", listDepth(n)-1))
				buf.WriteString(itemPrefix(node))
			}
		case *ast.List:
			if !entering {
				if _, nested := n.Parent().(*ast.ListItem); !nested {
					buf.WriteByte('\n')
				}
			}
		case *ast.TextBlock:
			if !entering {
				buf.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading:
			if !entering {
				if _, inItem := n.Parent().(*ast.ListItem); inItem {
					buf.WriteByte('\n')
				} else {
					buf.WriteString("\n\n")
				}
			}
		case *extast.TableCell:
			if !entering && n.NextSibling() != nil {
				buf.WriteString(" | ")
			}
		case *extast.TableHeader, *extast.TableRow:
			if !entering {
				buf.WriteByte('\n')
			}
		case *extast.Table:
			if !entering {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	out := blankLines.ReplaceAllString(buf.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeLines(buf *bytes.Buffer, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	trimmed := bytes.TrimRight(buf.Bytes(), "\n")
	buf.Truncate(len(trimmed))
}

func listDepth(n ast.Node) int {
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.List); ok {
			depth++
		}
	}
	if depth == 0 {
		return 1
	}
	return depth
}

func itemPrefix(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return bullet
	}
	index := list.Start
	for prev := item.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
		index++
	}
	return strconv.Itoa(index) + ". "
}
