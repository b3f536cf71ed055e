package step

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKeyword
	tokInstance
	tokString
	tokInteger
	tokReal
	tokEnum
	tokBinary
	tokDollar
	tokStar
	tokLParen
	tokRParen
	tokComma
	tokSemicolon
	tokEquals
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokKeyword:
		return "keyword"
	case tokInstance:
		return "instance name"
	case tokString:
		return "string"
	case tokInteger:
		return "integer"
	case tokReal:
		return "real"
	case tokEnum:
		return "enumeration"
	case tokBinary:
		return "binary"
	case tokDollar:
		return "'$'"
	case tokStar:
		return "'*'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokSemicolon:
		return "';'"
	case tokEquals:
		return "'='"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits an exchange structure into tokens.
type lexer struct {
	r    *bufio.Reader
	line int
	peek *token
}

func newLexer(r io.Reader) *lexer {
	return &lexer{r: bufio.NewReaderSize(r, 64<<10), line: 1}
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, l.line, fmt.Sprintf(format, args...))
}

func (l *lexer) readByte() (byte, error) {
	c, err := l.r.ReadByte()
	if err == nil && c == '\n' {
		l.line++
	}
	return c, err
}

func (l *lexer) unreadByte(c byte) {
	if c == '\n' {
		l.line--
	}
	_ = l.r.UnreadByte()
}

// unexpectedEOF converts io.EOF inside a token into a syntax error.
func (l *lexer) unexpectedEOF(err error, what string) error {
	if errors.Is(err, io.EOF) {
		return l.errorf("unterminated %s", what)
	}
	return err
}

// Peek returns the next token without consuming it.
func (l *lexer) Peek() (token, error) {
	if l.peek == nil {
		tok, err := l.scan()
		if err != nil {
			return token{}, err
		}
		l.peek = &tok
	}
	return *l.peek, nil
}

// Next consumes and returns the next token.
func (l *lexer) Next() (token, error) {
	if l.peek != nil {
		tok := *l.peek
		l.peek = nil
		return tok, nil
	}
	return l.scan()
}

func (l *lexer) scan() (token, error) {
	if err := l.skipSpace(); err != nil {
		if errors.Is(err, io.EOF) {
			return token{kind: tokEOF, line: l.line}, nil
		}
		return token{}, err
	}

	c, err := l.readByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return token{kind: tokEOF, line: l.line}, nil
		}
		return token{}, err
	}
	line := l.line

	switch {
	case c == '$':
		return token{kind: tokDollar, line: line}, nil
	case c == '*':
		return token{kind: tokStar, line: line}, nil
	case c == '(':
		return token{kind: tokLParen, line: line}, nil
	case c == ')':
		return token{kind: tokRParen, line: line}, nil
	case c == ',':
		return token{kind: tokComma, line: line}, nil
	case c == ';':
		return token{kind: tokSemicolon, line: line}, nil
	case c == '=':
		return token{kind: tokEquals, line: line}, nil
	case c == '#':
		digits, err := l.readWhile(isDigit)
		if err != nil {
			return token{}, err
		}
		if digits == "" {
			return token{}, l.errorf("instance name without digits")
		}
		return token{kind: tokInstance, text: digits, line: line}, nil
	case c == '\'':
		s, err := l.readString()
		return token{kind: tokString, text: s, line: line}, err
	case c == '"':
		s, err := l.readDelimited('"', "binary")
		return token{kind: tokBinary, text: s, line: line}, err
	case c == '.':
		s, err := l.readDelimited('.', "enumeration")
		return token{kind: tokEnum, text: s, line: line}, err
	case isDigit(c) || c == '+' || c == '-':
		return l.readNumber(c, line)
	case isLetter(c):
		rest, err := l.readWhile(isKeywordChar)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokKeyword, text: strings.ToUpper(string(c) + rest), line: line}, nil
	default:
		return token{}, l.errorf("unexpected character %q", c)
	}
}

// skipSpace skips whitespace and /* */ comments.
func (l *lexer) skipSpace() error {
	for {
		c, err := l.readByte()
		if err != nil {
			return err
		}
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			continue
		case c == '/':
			next, err := l.readByte()
			if err != nil || next != '*' {
				if err == nil {
					l.unreadByte(next)
				}
				return l.errorf("unexpected character '/'")
			}
			if err := l.skipComment(); err != nil {
				return err
			}
		default:
			l.unreadByte(c)
			return nil
		}
	}
}

func (l *lexer) skipComment() error {
	var prev byte
	for {
		c, err := l.readByte()
		if err != nil {
			return l.unexpectedEOF(err, "comment")
		}
		if prev == '*' && c == '/' {
			return nil
		}
		prev = c
	}
}

func (l *lexer) readWhile(accept func(byte) bool) (string, error) {
	var sb strings.Builder
	for {
		c, err := l.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return "", err
		}
		if !accept(c) {
			l.unreadByte(c)
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

// readString reads a quoted string after the opening apostrophe.
// A doubled apostrophe stands for one apostrophe.
func (l *lexer) readString() (string, error) {
	var sb strings.Builder
	for {
		c, err := l.readByte()
		if err != nil {
			return "", l.unexpectedEOF(err, "string")
		}
		if c != '\'' {
			sb.WriteByte(c)
			continue
		}
		next, err := l.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return "", err
		}
		if next == '\'' {
			sb.WriteByte('\'')
			continue
		}
		l.unreadByte(next)
		return sb.String(), nil
	}
}

func (l *lexer) readDelimited(delim byte, what string) (string, error) {
	var sb strings.Builder
	for {
		c, err := l.readByte()
		if err != nil {
			return "", l.unexpectedEOF(err, what)
		}
		if c == delim {
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

func (l *lexer) readNumber(first byte, line int) (token, error) {
	var sb strings.Builder
	sb.WriteByte(first)

	intPart, err := l.readWhile(isDigit)
	if err != nil {
		return token{}, err
	}
	sb.WriteString(intPart)
	if !isDigit(first) && intPart == "" {
		return token{}, l.errorf("sign without digits")
	}

	isReal := false
	c, err := l.readByte()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return token{}, err
		}
		c = 0
	}
	if c == '.' {
		isReal = true
		sb.WriteByte('.')
		frac, err := l.readWhile(isDigit)
		if err != nil {
			return token{}, err
		}
		sb.WriteString(frac)
		c, err = l.readByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return token{}, err
			}
			c = 0
		}
	}

	if c == 'E' || c == 'e' {
		isReal = true
		sb.WriteByte('E')
		sign, err := l.readByte()
		if err != nil {
			return token{}, l.unexpectedEOF(err, "exponent")
		}
		if sign == '+' || sign == '-' {
			sb.WriteByte(sign)
		} else {
			l.unreadByte(sign)
		}
		exp, err := l.readWhile(isDigit)
		if err != nil {
			return token{}, err
		}
		if exp == "" {
			return token{}, l.errorf("exponent without digits")
		}
		sb.WriteString(exp)
	} else if c != 0 {
		l.unreadByte(c)
	}

	if isReal {
		return token{kind: tokReal, text: sb.String(), line: line}, nil
	}
	return token{kind: tokInteger, text: sb.String(), line: line}, nil
}

func (t token) integer() (int64, error) {
	return strconv.ParseInt(t.text, 10, 64)
}

func (t token) real() (float64, error) {
	return strconv.ParseFloat(t.text, 64)
}

func (t token) label() (uint64, error) {
	return strconv.ParseUint(t.text, 10, 64)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isKeywordChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-'
}
