package markup

import "strings"

const blinkMarker = "^blink("

// HasBlink reports whether s contains a blink region marker.
func HasBlink(s string) bool {
	return strings.Contains(s, blinkMarker)
}

// SplitBlink splits s into the two variants the writer alternates between:
// lit has every blink region's content in place with the markers removed,
// and dark has the same content wrapped in a foreground directive using the
// dim color so the region reads as switched off. Text outside blink regions
// is identical in both. Nested parentheses inside a region belong to the
// region; a marker with no balanced closing paren is kept as literal text.
// When s has no blink regions both variants are s itself.
func SplitBlink(s, dim string) (lit, dark string) {
	if !HasBlink(s) {
		return s, s
	}
	var l, d strings.Builder
	l.Grow(len(s))
	d.Grow(len(s) + 32)
	for {
		i := strings.Index(s, blinkMarker)
		if i < 0 {
			l.WriteString(s)
			d.WriteString(s)
			break
		}
		l.WriteString(s[:i])
		d.WriteString(s[:i])
		body, rest, ok := splitBalanced(s[i+len(blinkMarker):])
		if !ok {
			l.WriteString(s[i:])
			d.WriteString(s[i:])
			break
		}
		l.WriteString(body)
		d.WriteString(FgColor(dim))
		d.WriteString(body)
		d.WriteString(Reset())
		s = rest
	}
	return l.String(), d.String()
}
