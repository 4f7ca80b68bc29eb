// Package markup builds and transforms the dzen2-style directive strings
// that sdorfehs-bar emits. Directives have the shape ^cmd(args); a literal
// caret is written ^^. The package also implements the ^blink(...) region
// splitter used by the renderer writer and helpers for stripping or
// translating markup when the bar is previewed in a terminal.
package markup

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// Fg wraps text in a foreground color directive followed by a reset.
// An empty color returns text unchanged.
func Fg(color, text string) string {
	if color == "" {
		return text
	}
	return "^fg(" + color + ")" + text + "^fg()"
}

// FgColor returns the bare color-set directive for color.
func FgColor(color string) string {
	return "^fg(" + color + ")"
}

// Reset returns the foreground reset directive.
func Reset() string {
	return "^fg()"
}

// Clickable wraps text in a clickable-region directive that runs command
// when the region is clicked with the given mouse button (1 = left).
func Clickable(button int, command, text string) string {
	return fmt.Sprintf("^ca(%d, %s)%s^ca()", button, command, text)
}

// Icon returns the directive that draws the XBM image at path inline.
func Icon(path string) string {
	return "^i(" + path + ")"
}

// Blink wraps text in a blink region. Blink regions are consumed by the
// renderer writer and never forwarded to the renderer raw.
func Blink(text string) string {
	return blinkMarker + text + ")"
}

// Separator returns the fragment separator used between modules, with the
// divider glyph drawn in the dim color.
func Separator(dim string) string {
	return " " + Fg(dim, "|") + " "
}

// Escape doubles any literal carets in s so the renderer does not interpret
// them as directives.
func Escape(s string) string {
	return strings.ReplaceAll(s, "^", "^^")
}

// Strip removes all markup from s, returning only the visible text. Blink
// region content is visible text and is preserved; other directive
// arguments (colors, commands) are not.
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		i := strings.IndexByte(s, '^')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		if strings.HasPrefix(s, "^^") {
			b.WriteByte('^')
			s = s[2:]
			continue
		}
		cmd, body, rest, ok := splitDirective(s)
		if !ok {
			// Not a well-formed directive; emit the caret literally.
			b.WriteByte('^')
			s = s[1:]
			continue
		}
		if cmd == "blink" {
			b.WriteString(Strip(body))
		}
		s = rest
	}
	return b.String()
}

// ANSI translates s into a plain terminal string for preview output:
// ^fg(color) becomes the equivalent ANSI color sequence under the given
// termenv profile, ^fg() becomes a reset, blink content is kept lit, and
// every other directive is dropped.
func ANSI(s string, profile termenv.Profile) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		i := strings.IndexByte(s, '^')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		if strings.HasPrefix(s, "^^") {
			b.WriteByte('^')
			s = s[2:]
			continue
		}
		cmd, body, rest, ok := splitDirective(s)
		if !ok {
			b.WriteByte('^')
			s = s[1:]
			continue
		}
		switch cmd {
		case "fg":
			if body == "" {
				if profile != termenv.Ascii {
					b.WriteString(termenv.CSI + termenv.ResetSeq + "m")
				}
			} else if c := profile.Color(body); c != nil {
				// Ascii profiles convert to NoColor, whose sequence is empty.
				if seq := c.Sequence(false); seq != "" {
					b.WriteString(termenv.CSI + seq + "m")
				}
			}
		case "blink":
			b.WriteString(ANSI(body, profile))
		}
		s = rest
	}
	return b.String()
}

// splitDirective parses a directive at the start of s (which must begin
// with '^'). It returns the command name, the balanced argument body, and
// the remainder after the closing paren. ok is false when s does not start
// a complete directive.
func splitDirective(s string) (cmd, body, rest string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 2 {
		return "", "", "", false
	}
	cmd = s[1:open]
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return "", "", "", false
		}
	}
	body, rest, ok = splitBalanced(s[open+1:])
	if !ok {
		return "", "", "", false
	}
	return cmd, body, rest, true
}

// splitBalanced scans s for the paren that closes an already-open group,
// tracking nested pairs. It returns the group content and the text after
// the closing paren.
func splitBalanced(s string) (body, rest string, ok bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}
