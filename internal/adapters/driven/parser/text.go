// Package parser extracts text and structured content from stored files.
//
// The shipped parser handles the plain-text family (txt, md, html). The
// binary formats on the upload allow-list (pdf, docx, xlsx, pptx, rtf)
// need a conversion sidecar; their pipeline runs fail at the parse stage
// until one is configured.
package parser

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/chunker"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Parser = (*TextParser)(nil)

// maxParseBytes bounds how much of a file the parser will read.
const maxParseBytes = 50 << 20

var supportedParseTypes = map[string]bool{
	"txt":  true,
	"md":   true,
	"html": true,
}

// TextParser parses plain-text, markdown and HTML files. Markdown
// headings, pipe tables and image references are lifted into structured
// content so the chunker can treat them atomically.
type TextParser struct {
	files driven.FileStore
}

// NewTextParser creates a parser reading through the given file store.
func NewTextParser(files driven.FileStore) *TextParser {
	return &TextParser{files: files}
}

// Supports reports whether the parser can handle the file type
func (p *TextParser) Supports(fileType string) bool {
	return supportedParseTypes[strings.ToLower(fileType)]
}

// Parse reads the file at path and extracts its content
func (p *TextParser) Parse(ctx context.Context, path, fileType string) (*driven.ParseResult, error) {
	fileType = strings.ToLower(fileType)
	if !p.Supports(fileType) {
		return nil, fmt.Errorf("unsupported file type %q: no parser configured", fileType)
	}

	f, err := p.files.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxParseBytes))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	content := string(raw)
	switch fileType {
	case "md":
		return parseMarkdown(content), nil
	case "html":
		return parseHTML(content), nil
	default:
		return &driven.ParseResult{Text: content}, nil
	}
}

var (
	mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdImageRe   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdTableSep  = regexp.MustCompile(`^\s*\|?[\s:|-]+\|[\s:|-]*$`)
)

// parseMarkdown walks the document line by line, collecting headings as
// outline elements and pipe tables as table rows. Table lines are
// removed from the prose text so they are not chunked twice.
func parseMarkdown(content string) *driven.ParseResult {
	result := &driven.ParseResult{
		Metadata: map[string]string{"format": "markdown"},
	}

	var prose []string
	var tableRows [][]string
	var tableCaption string

	flushTable := func() {
		if len(tableRows) > 0 {
			result.Structured.Tables = append(result.Structured.Tables, chunker.Table{
				Caption: tableCaption,
				Rows:    tableRows,
			})
			tableRows = nil
			tableCaption = ""
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lastHeading string
	for scanner.Scan() {
		line := scanner.Text()

		if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
			flushTable()
			level := len(m[1])
			text := strings.TrimSpace(m[2])
			result.Structured.Elements = append(result.Structured.Elements, chunker.Element{
				Type:  "heading",
				Level: level,
				Text:  text,
			})
			if result.Metadata["title"] == "" && level == 1 {
				result.Metadata["title"] = text
			}
			lastHeading = text
			prose = append(prose, text)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2 {
			if mdTableSep.MatchString(trimmed) {
				continue
			}
			if len(tableRows) == 0 {
				tableCaption = lastHeading
			}
			tableRows = append(tableRows, splitTableRow(trimmed))
			continue
		}
		flushTable()

		for _, m := range mdImageRe.FindAllStringSubmatch(line, -1) {
			result.Structured.Images = append(result.Structured.Images, chunker.Image{Caption: m[1]})
		}
		prose = append(prose, mdImageRe.ReplaceAllString(line, ""))
	}
	flushTable()

	result.Text = strings.TrimSpace(strings.Join(prose, "\n"))
	return result
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}

var (
	htmlTitleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlHeadingRe = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	htmlScriptRe  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlBlockRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table|section|article)>|<br\s*/?>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
)

// parseHTML strips markup and lifts headings into outline elements.
// Block-level closing tags become newlines so paragraph boundaries
// survive the tag strip.
func parseHTML(content string) *driven.ParseResult {
	result := &driven.ParseResult{
		Metadata: map[string]string{"format": "html"},
	}

	if m := htmlTitleRe.FindStringSubmatch(content); m != nil {
		result.Metadata["title"] = strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(m[1], "")))
	}

	for _, m := range htmlHeadingRe.FindAllStringSubmatch(content, -1) {
		level := int(m[1][0] - '0')
		text := strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(m[2], "")))
		if text == "" {
			continue
		}
		result.Structured.Elements = append(result.Structured.Elements, chunker.Element{
			Type:  "heading",
			Level: level,
			Text:  text,
		})
	}

	text := htmlScriptRe.ReplaceAllString(content, "")
	text = htmlBlockRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.Join(strings.Fields(line), " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	result.Text = strings.TrimSpace(text)
	return result
}
