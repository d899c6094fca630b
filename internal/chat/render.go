package chat

import "strings"

// splitMessage breaks text into chunks no longer than limit, splitting
// only on line boundaries (§6: "split on line boundaries into
// consecutive sends"). A single line longer than limit is placed alone
// in its own chunk rather than cut mid-line.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	lines := strings.Split(text, "\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range lines {
		candidateLen := current.Len() + len(line) + 1
		if current.Len() > 0 && candidateLen > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// stripTags removes the chat HTML-like markup subset for the plain-text
// fallback send (§7).
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	out := b.String()
	out = strings.ReplaceAll(out, "&amp;", "&")
	out = strings.ReplaceAll(out, "&lt;", "<")
	out = strings.ReplaceAll(out, "&gt;", ">")
	out = strings.ReplaceAll(out, "&quot;", `"`)
	out = strings.ReplaceAll(out, "&#39;", "'")
	return out
}
