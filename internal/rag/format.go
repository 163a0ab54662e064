package rag

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// BulletGlyph replaces every list marker in a reply
const BulletGlyph = "🔹"

var (
	bulletMarker = regexp.MustCompile(`(?m)^([ \t]*)(?:[-*•]|🔹)[ \t]+`)
	excessBlank  = regexp.MustCompile(`\n{3,}`)
	headingLine  = regexp.MustCompile(`^#{1,6}\s`)
	trailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
)

// FormatReply normalizes a raw model reply for display:
// list markers become BulletGlyph, headings get a blank line on each side,
// and runs of three or more newlines collapse to two.
func FormatReply(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = trailingWS.ReplaceAllString(text, "")
	text = bulletMarker.ReplaceAllString(text, "${1}"+BulletGlyph+" ")
	text = padHeadings(text)
	text = excessBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func padHeadings(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+8)
	for i, line := range lines {
		if !headingLine.MatchString(line) {
			out = append(out, line)
			continue
		}
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, line)
		if i+1 < len(lines) && lines[i+1] != "" {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a formatted reply to HTML. Glyph bullets are turned back into
// markdown list items first so they render as a list.
func RenderHTML(reply string) (string, error) {
	src := strings.ReplaceAll(reply, BulletGlyph+" ", "- ")
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
