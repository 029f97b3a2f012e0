package wake

import (
	"strings"
	"unicode"
)

// CleanText normalizes a transcript fragment for wake-word matching:
// lowercase, punctuation stripped (apostrophes kept), whitespace collapsed.
func CleanText(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		default:
			// Punctuation becomes a separator so "mira," still matches.
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ContainsWakeWord reports whether the cleaned text contains any of the
// configured wake-word variants on word boundaries.
func ContainsWakeWord(cleaned string, wakeWords []string) bool {
	return wakeWordIndex(cleaned, wakeWords) >= 0
}

// EndsWithWakeWord reports whether the cleaned text ends exactly with a
// wake-word variant, meaning the user said the wake word and nothing after.
func EndsWithWakeWord(cleaned string, wakeWords []string) bool {
	for _, w := range wakeWords {
		if cleaned == w || strings.HasSuffix(cleaned, " "+w) {
			return true
		}
	}
	return false
}

// StripWakeWord removes everything through the first wake-word occurrence,
// leaving the trailing query text. Text without a wake word is returned
// cleaned but otherwise intact.
func StripWakeWord(raw string, wakeWords []string) string {
	cleaned := CleanText(raw)
	idx := wakeWordIndex(cleaned, wakeWords)
	if idx < 0 {
		return cleaned
	}
	end := idx
	for _, w := range wakeWords {
		if strings.HasPrefix(cleaned[idx:], w) && idx+len(w) > end {
			end = idx + len(w)
		}
	}
	return strings.TrimSpace(cleaned[end:])
}

// wakeWordIndex returns the byte offset of the earliest wake-word match on
// word boundaries, or -1.
func wakeWordIndex(cleaned string, wakeWords []string) int {
	best := -1
	for _, w := range wakeWords {
		if w == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(cleaned[from:], w)
			if i < 0 {
				break
			}
			idx := from + i
			if onWordBoundary(cleaned, idx, len(w)) {
				if best < 0 || idx < best {
					best = idx
				}
				break
			}
			from = idx + 1
		}
	}
	return best
}

func onWordBoundary(s string, idx, length int) bool {
	if idx > 0 && s[idx-1] != ' ' {
		return false
	}
	if end := idx + length; end < len(s) && s[end] != ' ' {
		return false
	}
	return true
}
