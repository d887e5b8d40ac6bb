package ansihtml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// palette is the 16-color base table used for SGR 30-37, 40-47, 90-97 and
// 100-107, and for the first 16 entries of the 256-color cube.
var palette = [16]string{
	"#000316", "#aa0000", "#00aa00", "#aa5500",
	"#0000aa", "#E850A8", "#00aaaa", "#F5F1DE",
	"#7f7f7f", "#ff0000", "#00ff00", "#ffff00",
	"#5c5cff", "#ff00ff", "#00ffff", "#ffffff",
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// style is the SGR state in effect for a run of text.
type style struct {
	fg        string
	bg        string
	bold      bool
	faint     bool
	italic    bool
	underline bool
	blink     bool
	inverse   bool
	conceal   bool
	strike    bool
}

func (s style) isZero() bool {
	return s == style{}
}

func (s style) css() string {
	fg, bg := s.fg, s.bg
	if s.inverse {
		fg, bg = bg, fg
		if fg == "" {
			fg = palette[0]
		}
		if bg == "" {
			bg = palette[7]
		}
	}

	var decls []string
	if fg != "" {
		decls = append(decls, "color: "+fg)
	}
	if bg != "" {
		decls = append(decls, "background-color: "+bg)
	}
	if s.bold {
		decls = append(decls, "font-weight: bold")
	}
	if s.faint {
		decls = append(decls, "opacity: 0.5")
	}
	if s.italic {
		decls = append(decls, "font-style: italic")
	}

	var lines []string
	if s.underline {
		lines = append(lines, "underline")
	}
	if s.strike {
		lines = append(lines, "line-through")
	}
	if len(lines) > 0 {
		decls = append(decls, "text-decoration: "+strings.Join(lines, " "))
	}
	if s.blink {
		decls = append(decls, "text-decoration: blink")
	}
	if s.conceal {
		decls = append(decls, "visibility: hidden")
	}
	return strings.Join(decls, "; ")
}

// Convert renders text containing ANSI escape sequences as HTML. SGR
// sequences become <span style="..."> elements; every other escape sequence
// is dropped. Text is HTML-escaped, so plain text without '&', '<' or '>'
// comes back unchanged.
func Convert(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	var (
		current style
		pending style
		open    bool
		state   byte
	)

	remaining := text
	for len(remaining) > 0 {
		seq, _, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		if n <= 0 {
			break
		}
		remaining = remaining[n:]

		if isEscape(seq) {
			if params, ok := sgrParams(seq); ok {
				pending = apply(pending, params)
			}
			continue
		}

		if pending != current {
			if open {
				b.WriteString("</span>")
				open = false
			}
			if !pending.isZero() {
				fmt.Fprintf(&b, `<span style="%s">`, pending.css())
				open = true
			}
			current = pending
		}
		b.WriteString(escaper.Replace(seq))
	}

	if open {
		b.WriteString("</span>")
	}
	return b.String()
}

func isEscape(seq string) bool {
	return seq != "" && (seq[0] == ansi.ESC || seq[0] == ansi.CSI || seq[0] == ansi.OSC || seq[0] == ansi.DCS || seq[0] == ansi.APC)
}

// sgrParams extracts the parameters of a "Select Graphic Rendition" CSI
// sequence. ok is false for any other sequence.
func sgrParams(seq string) ([]string, bool) {
	var body string
	switch {
	case strings.HasPrefix(seq, "\x1b["):
		body = seq[2:]
	case seq[0] == ansi.CSI:
		body = seq[1:]
	default:
		return nil, false
	}
	if !strings.HasSuffix(body, "m") {
		return nil, false
	}
	body = strings.TrimSuffix(body, "m")
	if body != "" && strings.ContainsAny(body[:1], "?<=>") {
		return nil, false
	}
	if body == "" {
		return []string{"0"}, true
	}
	return strings.Split(body, ";"), true
}

func apply(s style, params []string) style {
	for i := 0; i < len(params); i++ {
		param := params[i]

		// ISO 8613-6 colon form, e.g. 38:2::255:0:0 or 38:5:196.
		if strings.Contains(param, ":") {
			sub := strings.Split(param, ":")
			code := atoi(sub[0])
			if code == 38 || code == 48 || code == 58 {
				color := extendedColor(colonArgs(sub[1:]))
				s = setExtended(s, code, color)
			}
			continue
		}

		code := atoi(param)
		switch {
		case code == 0:
			s = style{}
		case code == 1:
			s.bold = true
		case code == 2:
			s.faint = true
		case code == 3:
			s.italic = true
		case code == 4:
			s.underline = true
		case code == 5 || code == 6:
			s.blink = true
		case code == 7:
			s.inverse = true
		case code == 8:
			s.conceal = true
		case code == 9:
			s.strike = true
		case code == 21 || code == 22:
			s.bold = false
			s.faint = false
		case code == 23:
			s.italic = false
		case code == 24:
			s.underline = false
		case code == 25:
			s.blink = false
		case code == 27:
			s.inverse = false
		case code == 28:
			s.conceal = false
		case code == 29:
			s.strike = false
		case code >= 30 && code <= 37:
			s.fg = palette[code-30]
		case code == 38 || code == 48 || code == 58:
			color, consumed := extendedColorArgs(params[i+1:])
			i += consumed
			s = setExtended(s, code, color)
		case code == 39:
			s.fg = ""
		case code >= 40 && code <= 47:
			s.bg = palette[code-40]
		case code == 49:
			s.bg = ""
		case code >= 90 && code <= 97:
			s.fg = palette[code-90+8]
		case code >= 100 && code <= 107:
			s.bg = palette[code-100+8]
		}
	}
	return s
}

func setExtended(s style, code int, color string) style {
	if color == "" {
		return s
	}
	switch code {
	case 38:
		s.fg = color
	case 48:
		s.bg = color
	}
	// 58 (underline color) has no inline equivalent; it is consumed and ignored.
	return s
}

// extendedColorArgs reads a 5;n or 2;r;g;b tail following 38/48/58 in the
// semicolon form and reports how many parameters it consumed.
func extendedColorArgs(rest []string) (string, int) {
	if len(rest) == 0 {
		return "", 0
	}
	switch atoi(rest[0]) {
	case 5:
		if len(rest) < 2 {
			return "", len(rest)
		}
		return color256(atoi(rest[1])), 2
	case 2:
		if len(rest) < 4 {
			return "", len(rest)
		}
		return rgb(atoi(rest[1]), atoi(rest[2]), atoi(rest[3])), 4
	}
	return "", 1
}

func colonArgs(sub []string) []string {
	// 38:2:<colorspace>:r:g:b carries an optional color space id.
	if len(sub) == 5 && atoi(sub[0]) == 2 {
		return []string{sub[0], sub[2], sub[3], sub[4]}
	}
	return sub
}

func extendedColor(args []string) string {
	color, _ := extendedColorArgs(args)
	return color
}

func color256(n int) string {
	switch {
	case n < 0 || n > 255:
		return ""
	case n < 16:
		return palette[n]
	case n < 232:
		n -= 16
		levels := [6]int{0, 95, 135, 175, 215, 255}
		return rgb(levels[n/36], levels[(n/6)%6], levels[n%6])
	default:
		gray := 8 + (n-232)*10
		return rgb(gray, gray, gray)
	}
}

func rgb(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
