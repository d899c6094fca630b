package agent

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Translating the agent's lightweight markdown to the chat SDK's
// HTML-like subset (§4.2, §6) happens in a fixed order: extract and
// protect fenced code blocks, then inline code spans, escape what's
// left, apply inline transformations, then splice the protected
// segments back in. This order is contractual — running it any other
// way risks double-escaping or corrupting code content.

var (
	fencedCodePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	boldPattern        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscore     = regexp.MustCompile(`__(.+?)__`)
	linkPattern        = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

const (
	codePlaceholder   = "\x00CODE%d\x00"
	inlinePlaceholder = "\x00INLINE%d\x00"
)

// TranslateMarkup converts the agent's markdown into the target chat
// HTML subset, preserving fenced and inline code content byte-for-byte.
func TranslateMarkup(text string) string {
	if text == "" {
		return ""
	}

	var codeBlocks []string
	text = fencedCodePattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := fencedCodePattern.FindStringSubmatch(match)
		lang, code := groups[1], groups[2]
		escaped := html.EscapeString(strings.TrimSuffix(code, "\n"))
		var block string
		if lang != "" {
			block = fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, escaped)
		} else {
			block = fmt.Sprintf(`<pre><code>%s</code></pre>`, escaped)
		}
		codeBlocks = append(codeBlocks, block)
		return fmt.Sprintf(codePlaceholder, len(codeBlocks)-1)
	})

	var inlineCodes []string
	text = inlineCodePattern.ReplaceAllStringFunc(text, func(match string) string {
		code := inlineCodePattern.FindStringSubmatch(match)[1]
		inlineCodes = append(inlineCodes, fmt.Sprintf("<code>%s</code>", html.EscapeString(code)))
		return fmt.Sprintf(inlinePlaceholder, len(inlineCodes)-1)
	})

	text = html.EscapeString(text)

	text = boldPattern.ReplaceAllString(text, "<b>$1</b>")
	text = boldUnderscore.ReplaceAllString(text, "<b>$1</b>")
	text = translateItalic(text)
	text = linkPattern.ReplaceAllString(text, `<a href="$2">$1</a>`)

	for i, block := range codeBlocks {
		text = strings.ReplaceAll(text, fmt.Sprintf(codePlaceholder, i), block)
	}
	for i, code := range inlineCodes {
		text = strings.ReplaceAll(text, fmt.Sprintf(inlinePlaceholder, i), code)
	}

	return text
}

// isWordByte reports whether b is a word character for the purposes of
// the italic boundary check below (mirrors Python's \w for ASCII).
func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// translateItalic converts *text* and _text_ to <i>text</i>, but only
// where the delimiter is not adjacent to a word character on the
// opposite side — Go's RE2 engine has no lookaround, so the
// (?<!\w)*...*(?!\w) pattern from the reference implementation is
// reproduced with an explicit boundary scan instead.
func translateItalic(text string) string {
	for _, delim := range []byte{'*', '_'} {
		text = translateItalicDelim(text, delim)
	}
	return text
}

func translateItalicDelim(text string, delim byte) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if text[i] != delim {
			out.WriteByte(text[i])
			i++
			continue
		}
		// Candidate opening delimiter: must not be preceded by a word char.
		if i > 0 && isWordByte(text[i-1]) {
			out.WriteByte(text[i])
			i++
			continue
		}
		end := -1
		for j := i + 1; j < len(text); j++ {
			if text[j] == delim {
				end = j
				break
			}
		}
		if end == -1 || end == i+1 {
			out.WriteByte(text[i])
			i++
			continue
		}
		// Candidate closing delimiter: must not be followed by a word char.
		if end+1 < len(text) && isWordByte(text[end+1]) {
			out.WriteByte(text[i])
			i++
			continue
		}
		inner := text[i+1 : end]
		if strings.ContainsRune(inner, rune(delim)) {
			out.WriteByte(text[i])
			i++
			continue
		}
		out.WriteString("<i>")
		out.WriteString(inner)
		out.WriteString("</i>")
		i = end + 1
	}
	return out.String()
}

// SplitForDelivery splits HTML-translated text into chunks no longer
// than maxLen, breaking only on line boundaries (§6: the chat SDK's
// 4096-char message limit). A single line longer than maxLen is not cut
// and becomes a chunk of its own that exceeds maxLen.
func SplitForDelivery(text string, maxLen int) []string {
	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > maxLen && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
