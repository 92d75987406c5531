// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// HighlightFences replaces fenced code blocks in text with syntax
// highlighted, framed versions. Used for transcript previews where the
// full markdown renderer is too heavy.
func HighlightFences(text string, maxWidth int) string {
	lines := strings.Split(text, "\n")
	var out []string
	var code []string
	var language string
	inBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			if inBlock {
				out = append(out, renderCodeBlock(language, strings.Join(code, "\n"), maxWidth))
				code = nil
				language = ""
				inBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inBlock = true
			}
		case inBlock:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}
	// Unclosed fence: render what accumulated.
	if inBlock && len(code) > 0 {
		out = append(out, renderCodeBlock(language, strings.Join(code, "\n"), maxWidth))
	}
	return strings.Join(out, "\n")
}

func renderCodeBlock(language, code string, maxWidth int) string {
	code = strings.TrimRight(code, "\n")
	highlighted := highlight(code, language)

	width := maxWidth - 4
	if width < 20 {
		width = 20
	}

	frame := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		MaxWidth(width)

	if language != "" {
		badge := lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true).
			Render(language)
		return frame.Render(badge + "\n" + highlighted)
	}
	return frame.Render(highlighted)
}

// highlight runs chroma over the code; plain text comes back on failure.
func highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
