package cpu

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// source is the unconsumed remainder of one input file.
type source struct {
	file   string // Name of the input, for diagnostics.
	text   string // Remaining source text.
	lineno int    // Line number of text[0].
}

// mark is a saved source position.
type mark struct {
	text   string
	lineno int
}

func (src *source) mark() mark {
	return mark{text: src.text, lineno: src.lineno}
}

func (src *source) restore(m mark) {
	src.text = m.text
	src.lineno = m.lineno
}

// since returns the text consumed after m.
func (src *source) since(m mark) string {
	return m.text[:len(m.text)-len(src.text)]
}

func (src *source) empty() bool {
	return len(src.text) == 0
}

// advance consumes n bytes.
func (src *source) advance(n int) (consumed string) {
	consumed = src.text[:n]
	src.lineno += strings.Count(consumed, "\n")
	src.text = src.text[n:]
	return
}

func notSpace(r rune) bool {
	return !unicode.IsSpace(r)
}

// spaces consumes whitespace, returning true if there was any.
func (src *source) spaces() bool {
	n := strings.IndexFunc(src.text, notSpace)
	if n < 0 {
		n = len(src.text)
	}
	src.advance(n)
	return n > 0
}

// skip consumes whitespace, line comments and block comments.
func (src *source) skip() {
	for {
		switch {
		case src.spaces():
		case strings.HasPrefix(src.text, "#"), strings.HasPrefix(src.text, "//"):
			end := strings.IndexByte(src.text, '\n')
			if end < 0 {
				end = len(src.text)
			} else {
				end++
			}
			src.advance(end)
		case strings.HasPrefix(src.text, "/*"):
			end := strings.Index(src.text[2:], "*/")
			if end < 0 {
				// Unterminated; left for the unknown token path.
				return
			}
			src.advance(2 + end + 2)
		default:
			return
		}
	}
}

// field consumes a maximal run of non-whitespace.
func (src *source) field() string {
	n := strings.IndexFunc(src.text, unicode.IsSpace)
	if n < 0 {
		n = len(src.text)
	}
	return src.advance(n)
}

// literal consumes s if the text starts with it.
func (src *source) literal(s string) bool {
	if !strings.HasPrefix(src.text, s) {
		return false
	}
	src.advance(len(s))
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && c >= 'a' && c <= 'f':
		return true
	case base == 16 && c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// boundary reports whether the next byte cannot continue a word.
func (src *source) boundary() bool {
	return src.empty() || !isIdentChar(src.text[0])
}

// word returns, without consuming, the word-like prefix of the text.
func (src *source) word() string {
	n := 0
	for n < len(src.text) && (isIdentChar(src.text[n]) || src.text[n] == '$') {
		n++
	}
	return src.text[:n]
}

// identifier consumes [A-Za-z_][A-Za-z0-9_]*.
func (src *source) identifier() (word string, ok bool) {
	if src.empty() || !isIdentStart(src.text[0]) {
		return
	}

	n := 1
	for n < len(src.text) && isIdentChar(src.text[n]) {
		n++
	}

	word = src.advance(n)
	ok = true
	return
}

// digits consumes a run of decimal digits.
func (src *source) digits() string {
	n := 0
	for n < len(src.text) && isDigit(src.text[n], 10) {
		n++
	}
	return src.advance(n)
}

// separator consumes an operand separating comma and its surrounding whitespace.
func (src *source) separator() (err error) {
	src.spaces()
	if !src.literal(",") {
		err = ErrSeparatorMissing
		return
	}
	src.spaces()
	return
}

// register consumes R<n>, returning n truncated to 32 bits.
func (src *source) register() (value uint32, err error) {
	if !src.literal("R") {
		err = ErrRegisterInvalid
		return
	}

	digits := src.digits()
	if len(digits) == 0 || !src.boundary() {
		err = ErrRegisterInvalid
		return
	}

	value, _ = truncate(digits, 10)
	return
}

// pair consumes R01 or R23, returning the pair select bit.
func (src *source) pair() (value uint32, err error) {
	if !src.literal("R") {
		err = ErrPairInvalid
		return
	}

	digits := src.digits()
	switch {
	case !src.boundary():
		err = ErrPairInvalid
	case digits == "01":
		value = 0
	case digits == "23":
		value = 1
	default:
		err = ErrPairInvalid
	}

	return
}

// number consumes a decimal or 0x prefixed hexadecimal literal.
func (src *source) number() (value uint32, err error) {
	base := 10
	n := 0
	if strings.HasPrefix(src.text, "0x") {
		base = 16
		n = 2
	}

	start := n
	for n < len(src.text) && isDigit(src.text[n], base) {
		n++
	}

	if n == start || (n < len(src.text) && isIdentChar(src.text[n])) {
		err = ErrParseNumber(src.word())
		return
	}

	value, err = parseNumber(src.advance(n))
	return
}

// expression consumes $(...), returning the text between the outer
// parentheses. Expressions do not span lines.
func (src *source) expression() (expr string, ok bool) {
	if !strings.HasPrefix(src.text, "$(") {
		return
	}

	depth := 0
	for n := 1; n < len(src.text); n++ {
		switch src.text[n] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				expr = src.text[2:n]
				src.advance(n + 1)
				ok = true
				return
			}
		case '\n':
			return
		}
	}

	return
}

// quoted consumes a double quoted string, returning its undecoded body.
func (src *source) quoted() (body string, ok bool) {
	if !strings.HasPrefix(src.text, `"`) {
		return
	}

	for n := 1; n < len(src.text); n++ {
		switch src.text[n] {
		case '\\':
			if n+1 >= len(src.text) || src.text[n+1] == '\n' {
				return
			}
			n++
		case '"':
			body = src.text[1:n]
			src.advance(n + 1)
			ok = true
			return
		}
	}

	return
}

// truncate parses digits of any length, keeping the low 32 bits.
func truncate(digits string, base int) (value uint32, ok bool) {
	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return
	}

	value = uint32(v.And(v, big.NewInt(0xffffffff)).Uint64())
	return
}

// parseNumber parses a decimal or 0x prefixed hexadecimal literal,
// keeping the low 32 bits.
func parseNumber(text string) (value uint32, err error) {
	digits, base := text, 10
	if strings.HasPrefix(text, "0x") {
		digits, base = text[2:], 16
	}

	if len(digits) == 0 {
		err = ErrParseNumber(text)
		return
	}

	for n := range len(digits) {
		if !isDigit(digits[n], base) {
			err = ErrParseNumber(text)
			return
		}
	}

	value, ok := truncate(digits, base)
	if !ok {
		err = ErrParseNumber(text)
	}

	return
}

// decodeAscii decodes the escapes of a string body. Every resulting
// character must be 7-bit ASCII.
func decodeAscii(body string) (data []byte, err error) {
	data = []byte{}

	for len(body) > 0 {
		if strings.HasPrefix(body, `\'`) {
			data = append(data, '\'')
			body = body[2:]
			continue
		}

		// Octal escapes take one to three digits.
		if len(body) > 1 && body[0] == '\\' && body[1] >= '0' && body[1] <= '7' {
			n := 1
			for n < 4 && n < len(body) && body[n] >= '0' && body[n] <= '7' {
				n++
			}
			octal, _ := strconv.ParseUint(body[1:n], 8, 16)
			if octal > unicode.MaxASCII {
				err = ErrStringNotAscii
				return
			}
			data = append(data, byte(octal))
			body = body[n:]
			continue
		}

		r, _, tail, uerr := strconv.UnquoteChar(body, '"')
		if uerr != nil {
			if len(body) < 2 || body[0] != '\\' || strings.ContainsRune("xuU", rune(body[1])) {
				err = ErrStringInvalid
				return
			}
			// Unknown escapes are kept verbatim.
			r, tail = '\\', body[1:]
		}

		if r > unicode.MaxASCII {
			err = ErrStringNotAscii
			return
		}

		data = append(data, byte(r))
		body = tail
	}

	return
}
