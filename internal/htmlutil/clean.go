package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts user-supplied HTML to plain text, collapsing runs of
// whitespace and trimming the result to at most maxRunes runes (0 = no limit).
func ToText(s string, maxRunes int) string {
	text := strings.Join(strings.Fields(html2text.HTML2Text(s)), " ")
	if maxRunes > 0 {
		if r := []rune(text); len(r) > maxRunes {
			text = strings.TrimSpace(string(r[:maxRunes]))
		}
	}
	return text
}
