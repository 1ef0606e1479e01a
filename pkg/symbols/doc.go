package symbols

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

var markdown = goldmark.New()

// docFromTrivia extracts the comment written directly above a declaration
// and any #pragma deprecated line preceding it.
func docFromTrivia(leading []lexer.Trivia) (string, bool, string) {
	deprecated := false
	note := ""
	for _, tr := range leading {
		if tr.Kind != lexer.KindDirectiveLine {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(tr.Text, "\\\n", " "))
		if len(fields) >= 2 && fields[0] == "#pragma" && fields[1] == "deprecated" {
			deprecated = true
			note = strings.Join(fields[2:], " ")
		}
	}

	var comments []string
	newlines := 0
scan:
	for i := len(leading) - 1; i >= 0; i-- {
		tr := leading[i]
		switch tr.Kind {
		case lexer.KindWhitespace:
		case lexer.KindNewline:
			newlines++
			if newlines > 1 {
				break scan
			}
		case lexer.KindLineComment, lexer.KindBlockComment:
			comments = append(comments, tr.Text)
			newlines = 0
		default:
			break scan
		}
	}

	var lines []string
	for i := len(comments) - 1; i >= 0; i-- {
		lines = append(lines, cleanComment(comments[i])...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), deprecated, note
}

func cleanComment(c string) []string {
	if strings.HasPrefix(c, "//") {
		line := strings.TrimLeft(c, "/")
		return []string{strings.TrimPrefix(line, " ")}
	}
	c = strings.TrimPrefix(c, "/*")
	c = strings.TrimLeft(c, "*")
	c = strings.TrimSuffix(c, "*/")
	var out []string
	for _, line := range strings.Split(c, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		out = append(out, strings.TrimPrefix(line, " "))
	}
	return out
}

// Summary returns the first paragraph of a doc comment, on one line.
func Summary(doc string) string {
	if doc == "" {
		return ""
	}
	src := []byte(doc)
	root := markdown.Parser().Parse(text.NewReader(src))

	var summary string
	//nolint:errcheck // the walker never fails
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		para, ok := n.(*ast.Paragraph)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		var parts []string
		lines := para.Lines()
		for i := range lines.Len() {
			seg := lines.At(i)
			parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
		}
		summary = strings.Join(parts, " ")
		return ast.WalkStop, nil
	})
	return summary
}
