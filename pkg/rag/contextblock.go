package rag

import (
	"fmt"
	"strings"
)

// DefaultMaxContextChars bounds the assembled context block handed to the
// generator. Oversized corpora would otherwise blow the model's window.
const DefaultMaxContextChars = 50000

// contentTypeAbstract marks passages that summarize a whole document.
// Abstracts are placed first in the context block.
const contentTypeAbstract = "abstract"

// FormatPassages assembles the context block for the prompt: each passage's
// text followed by a citation label, abstracts first, blocks separated by a
// blank line. Output is truncated at whole-passage granularity once maxChars
// is reached; the first passage is always included.
func FormatPassages(passages []Passage, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var abstracts, others []Passage
	for _, p := range passages {
		if p.ContentType == contentTypeAbstract {
			abstracts = append(abstracts, p)
		} else {
			others = append(others, p)
		}
	}

	var builder strings.Builder
	for _, p := range append(abstracts, others...) {
		block := p.Text + "\n" + citationLabel(p)
		if builder.Len() > 0 {
			if builder.Len()+len(block)+2 > maxChars {
				break
			}
			builder.WriteString("\n\n")
		}
		builder.WriteString(block)
	}

	return builder.String()
}

// citationLabel builds the source citation appended below a passage, as a
// markdown link when the passage carries a URL.
func citationLabel(p Passage) string {
	parts := []string{passageTitle(p)}
	if p.Page > 0 {
		parts = append(parts, fmt.Sprintf("p.%d", p.Page))
	}
	if p.ContentType != "" {
		parts = append(parts, "("+p.ContentType+")")
	}
	if p.Chapter != "" {
		parts = append(parts, "Ch."+p.Chapter)
	}

	label := strings.Join(parts, " ")
	if p.URL != "" {
		return fmt.Sprintf("[%s](%s)", label, p.URL)
	}

	return "[" + label + "]"
}

// passageTitle prefers the explicit title and falls back to a cleaned-up
// form of the source filename.
func passageTitle(p Passage) string {
	if p.Title != "" {
		return p.Title
	}
	if p.Source == "" {
		return "Document"
	}

	name := p.Source
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}

	name = strings.ReplaceAll(name, "Ordno-", "Ordinance No. ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	return name
}
