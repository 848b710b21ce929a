// Package scan provides the character cursor shared by the operand parser,
// the expression engine, and the assembler driver. A Scanner walks a single
// source line; the column it reports is 1-based and survives backtracking,
// which operand recognition relies on heavily.
package scan

import (
	"errors"
	"strings"
)

var ErrMissingNumber = errors.New("missing number")

type Scanner struct {
	s   string
	pos int
}

func New(line string) *Scanner {
	return &Scanner{s: line}
}

// Pos returns the current byte offset; Col the 1-based column.
func (sc *Scanner) Pos() int { return sc.pos }
func (sc *Scanner) Col() int { return sc.pos + 1 }

// SetPos backtracks (or advances) to a previously captured position.
func (sc *Scanner) SetPos(pos int) { sc.pos = pos }

func (sc *Scanner) EOF() bool { return sc.pos >= len(sc.s) }

// Rest returns the unconsumed remainder of the line.
func (sc *Scanner) Rest() string { return sc.s[sc.pos:] }

func (sc *Scanner) Peek() byte {
	if sc.EOF() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *Scanner) Next() byte {
	c := sc.Peek()
	if c != 0 {
		sc.pos++
	}
	return c
}

func (sc *Scanner) SkipSpaces() {
	for !sc.EOF() && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t') {
		sc.pos++
	}
}

// Expect consumes c if it is the next byte, reporting whether it did.
func (sc *Scanner) Expect(c byte) bool {
	if sc.Peek() == c {
		sc.pos++
		return true
	}
	return false
}

func isNameStart(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func IsDigit(c byte) bool { return c >= '0' && c <= '9' }

// Name consumes an identifier ([._$a-zA-Z][._$a-zA-Z0-9]*). Empty result
// means the cursor did not move.
func (sc *Scanner) Name() string {
	start := sc.pos
	if sc.EOF() || !isNameStart(sc.s[sc.pos]) {
		return ""
	}
	sc.pos++
	for !sc.EOF() && isNameChar(sc.s[sc.pos]) {
		sc.pos++
	}
	return sc.s[start:sc.pos]
}

// Byte consumes a decimal register index in 0..255.
func (sc *Scanner) Byte() (byte, error) {
	if sc.EOF() || !IsDigit(sc.s[sc.pos]) {
		return 0, ErrMissingNumber
	}
	v := 0
	for !sc.EOF() && IsDigit(sc.s[sc.pos]) {
		v = v*10 + int(sc.s[sc.pos]-'0')
		if v >= 256 {
			return 0, errors.New("number is too big")
		}
		sc.pos++
	}
	return byte(v), nil
}

// Uint64 consumes an unsigned integer literal in C syntax: decimal,
// hexadecimal 0x…, octal 0…, or binary 0b….
func (sc *Scanner) Uint64() (uint64, error) {
	if sc.EOF() || !IsDigit(sc.s[sc.pos]) {
		return 0, ErrMissingNumber
	}
	var v uint64
	if sc.s[sc.pos] == '0' && sc.pos+1 < len(sc.s) {
		switch sc.s[sc.pos+1] {
		case 'x', 'X':
			sc.pos += 2
			return sc.digits(16)
		case 'b', 'B':
			sc.pos += 2
			return sc.digits(2)
		default:
			if IsDigit(sc.s[sc.pos+1]) {
				sc.pos++
				return sc.digits(8)
			}
		}
	}
	for !sc.EOF() && IsDigit(sc.s[sc.pos]) {
		v = v*10 + uint64(sc.s[sc.pos]-'0')
		sc.pos++
	}
	return v, nil
}

func (sc *Scanner) digits(base uint64) (uint64, error) {
	var v uint64
	n := 0
	for !sc.EOF() {
		c := sc.s[sc.pos]
		var d uint64
		switch {
		case IsDigit(c):
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			d = base // terminate
		}
		if d >= base {
			break
		}
		v = v*base + d
		n++
		sc.pos++
	}
	if n == 0 {
		return 0, ErrMissingNumber
	}
	return v, nil
}

// IsOnlyFloat reports whether s is exclusively a floating-point literal:
// neither a plain integer nor a symbol. A decimal point or an exponent is
// required; both decimal and hexadecimal float syntax are accepted.
func IsOnlyFloat(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return isOnlyFloatTail(s[2:], isHexDigit, "pP")
	}
	return isOnlyFloatTail(s, func(c byte) bool { return IsDigit(c) }, "eE")
}

func isHexDigit(c byte) bool {
	return IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOnlyFloatTail(s string, digit func(byte) bool, expChars string) bool {
	i := 0
	for i < len(s) && digit(s[i]) {
		i++
	}
	intDigits := i
	if i == len(s) || s[i] != '.' {
		// no point: an exponent alone still makes it a float
		if intDigits > 0 && i < len(s) && strings.IndexByte(expChars, s[i]) >= 0 {
			j := i + 1
			if j < len(s) && (s[j] == '-' || s[j] == '+') {
				j++
			}
			expStart := j
			for j < len(s) && IsDigit(s[j]) {
				j++
			}
			return j > expStart
		}
		return false
	}
	i++ // '.'
	fracStart := i
	for i < len(s) && digit(s[i]) {
		i++
	}
	return intDigits > 0 || i > fracStart
}
