package parse

import (
	"regexp"

	verr "github.com/mikeagun/concat-sub000/internal/errors"
)

// The rule table spec §4.5 calls out as "a shared rule table (a static
// DFA-like character-class map loaded once at process start)": compiled
// once here, shared by every Scanner instance.
var (
	intLiteral   = regexp.MustCompile(`^-?[0-9]+$`)
	floatLiteral = regexp.MustCompile(`^-?[0-9]+\.[0-9]*([eE][+-]?[0-9]+)?$`)
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokInt
	tokFloat
	tokString
	tokIdent
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
)

type token struct {
	kind   tokKind
	text   string
	escape int
	pos    verr.Position
}

// nextToken reads and returns the next token, skipping whitespace and
// line comments first. A zero-value tokEOF token (no error) marks a
// clean end of input.
func nextToken(s *scanner) (token, error) {
	if err := skipSpaceAndComments(s); err != nil {
		return token{}, err
	}
	b, ok := s.peek()
	if !ok {
		return token{kind: tokEOF}, nil
	}
	pos := s.pos()
	switch b {
	case '(':
		s.next()
		return token{kind: tokLParen, pos: pos}, nil
	case ')':
		s.next()
		return token{kind: tokRParen, pos: pos}, nil
	case '[':
		s.next()
		return token{kind: tokLBrack, pos: pos}, nil
	case ']':
		s.next()
		return token{kind: tokRBrack, pos: pos}, nil
	case '"':
		return readString(s, pos)
	default:
		return readAtom(s, pos)
	}
}

func skipSpaceAndComments(s *scanner) error {
	for {
		b, ok := s.peek()
		if !ok {
			return nil
		}
		if isSpace(b) {
			s.next()
			continue
		}
		if b == '#' {
			for {
				b, ok := s.next()
				if !ok || b == '\n' {
					break
				}
			}
			continue
		}
		return nil
	}
}

// readAtom scans a run of non-delimiter bytes, splitting off any
// leading backslashes (escaped-identifier markers, spec §4.5) before
// classifying what remains as an int, a float, or a plain identifier.
func readAtom(s *scanner, pos verr.Position) (token, error) {
	escape := 0
	for {
		b, ok := s.peek()
		if !ok || b != '\\' {
			break
		}
		s.next()
		escape++
	}
	var buf []byte
	for {
		b, ok := s.peek()
		if !ok || isDelim(b) {
			break
		}
		s.next()
		buf = append(buf, b)
	}
	text := string(buf)
	if escape > 0 {
		return token{kind: tokIdent, text: text, escape: escape, pos: pos}, nil
	}
	switch {
	case intLiteral.MatchString(text):
		return token{kind: tokInt, text: text, pos: pos}, nil
	case floatLiteral.MatchString(text):
		return token{kind: tokFloat, text: text, pos: pos}, nil
	default:
		return token{kind: tokIdent, text: text, pos: pos}, nil
	}
}

// readString consumes a double-quoted string literal with C-style
// escapes (spec §4.5: \n \t \r \\ \" \xHH \0).
func readString(s *scanner, pos verr.Position) (token, error) {
	s.next() // opening quote
	var buf []byte
	for {
		b, ok := s.next()
		if !ok {
			return token{}, verr.New(verr.UnexpectedEOL, "unterminated string starting at line %d:%d", pos.Line, pos.Column)
		}
		if b == '"' {
			return token{kind: tokString, text: string(buf), pos: pos}, nil
		}
		if b != '\\' {
			buf = append(buf, b)
			continue
		}
		eb, ok := s.next()
		if !ok {
			return token{}, verr.New(verr.UnexpectedEOL, "unterminated escape in string starting at line %d:%d", pos.Line, pos.Column)
		}
		switch eb {
		case 'n':
			buf = append(buf, '\n')
		case 't':
			buf = append(buf, '\t')
		case 'r':
			buf = append(buf, '\r')
		case '\\':
			buf = append(buf, '\\')
		case '"':
			buf = append(buf, '"')
		case '0':
			buf = append(buf, 0)
		case 'x':
			hi, ok1 := s.next()
			lo, ok2 := s.next()
			if !ok1 || !ok2 {
				return token{}, verr.New(verr.UnexpectedEOL, "unterminated \\x escape starting at line %d:%d", pos.Line, pos.Column)
			}
			v, ok := hexByte(hi, lo)
			if !ok {
				return token{}, verr.New(verr.BadEscape, "bad \\x escape at line %d:%d", pos.Line, pos.Column)
			}
			buf = append(buf, v)
		default:
			return token{}, verr.New(verr.BadEscape, "unknown escape \\%c at line %d:%d", eb, pos.Line, pos.Column)
		}
	}
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}
