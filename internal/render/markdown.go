package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// Markdown writes the view as GitHub-style tables. Service values are escaped so
// they always render as literal text.
func Markdown(v View) string {
	var b strings.Builder
	if v.Timing != nil {
		mdTable(&b, "## "+TitleTiming, "Stage", "Seconds", v.Timing)
	}
	if v.Header != nil {
		mdTable(&b, "## "+TitleHeader, "Field", "Value", v.Header)
	}
	if v.Items != nil {
		fmt.Fprintf(&b, "## %s\n\n", TitleItems)
		for i, item := range v.Items {
			mdTable(&b, "### "+escapeMarkdown(itemTitle(i, item)), "Field", "Value", item.Fields)
		}
	}
	if v.Additional != nil {
		mdTable(&b, "## "+TitleAdditional, "Field", "Value", v.Additional)
	}
	return b.String()
}

func HTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(Markdown(v)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func mdTable(b *strings.Builder, heading, left, right string, rows []Row) {
	fmt.Fprintf(b, "%s\n\n", heading)
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "| %s | %s |\n| --- | --- |\n", left, right)
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", escapeMarkdown(r.Label), escapeMarkdown(r.Value))
	}
	b.WriteString("\n")
}

// escapeMarkdown escapes the characters that open inline markup or break a table
// row, and folds line breaks so a value stays inside its cell.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\r':
		case r == '\n':
			b.WriteByte(' ')
		case strings.ContainsRune("\\`*_[]<>|&", r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
