package step

import (
	"fmt"
	"io"

	"github.com/poiesic/ifcingest/core"
)

const maxNesting = 64

// Decode parses an exchange structure from r. The header is returned once the
// whole input was read; fn is called for every DATA instance in file order.
// Decoding stops at the first error returned by fn.
func Decode(r io.Reader, fn func(*core.Entity) error) (Header, error) {
	d := &decoder{lex: newLexer(r)}
	return d.decode(fn)
}

// DecodeHeader parses only the HEADER section of r.
func DecodeHeader(r io.Reader) (Header, error) {
	d := &decoder{lex: newLexer(r)}
	if err := d.expectKeyword("ISO-10303-21"); err != nil {
		return Header{}, err
	}
	if err := d.expect(tokSemicolon); err != nil {
		return Header{}, err
	}
	return d.header()
}

type decoder struct {
	lex *lexer
}

func (d *decoder) decode(fn func(*core.Entity) error) (Header, error) {
	if err := d.expectKeyword("ISO-10303-21"); err != nil {
		return Header{}, err
	}
	if err := d.expect(tokSemicolon); err != nil {
		return Header{}, err
	}

	header, err := d.header()
	if err != nil {
		return Header{}, err
	}

	for {
		tok, err := d.lex.Next()
		if err != nil {
			return header, err
		}
		if tok.kind != tokKeyword {
			return header, d.unexpected(tok, "DATA or END-ISO-10303-21")
		}
		switch tok.text {
		case "DATA":
			if err := d.data(fn); err != nil {
				return header, err
			}
		case "END-ISO-10303-21":
			return header, d.expect(tokSemicolon)
		default:
			return header, d.unexpected(tok, "DATA or END-ISO-10303-21")
		}
	}
}

func (d *decoder) header() (Header, error) {
	var h Header
	if err := d.expectKeyword("HEADER"); err != nil {
		return h, err
	}
	if err := d.expect(tokSemicolon); err != nil {
		return h, err
	}

	for {
		tok, err := d.lex.Next()
		if err != nil {
			return h, err
		}
		if tok.kind != tokKeyword {
			return h, d.unexpected(tok, "header entity")
		}
		if tok.text == "ENDSEC" {
			return h, d.expect(tokSemicolon)
		}

		params, err := d.parameters(0)
		if err != nil {
			return h, err
		}
		if err := d.expect(tokSemicolon); err != nil {
			return h, err
		}
		h.apply(tok.text, params)
	}
}

func (d *decoder) data(fn func(*core.Entity) error) error {
	// Edition 3 allows DATA('name',('schema'));
	tok, err := d.lex.Peek()
	if err != nil {
		return err
	}
	if tok.kind == tokLParen {
		if _, err := d.parameters(0); err != nil {
			return err
		}
	}
	if err := d.expect(tokSemicolon); err != nil {
		return err
	}

	for {
		tok, err := d.lex.Next()
		if err != nil {
			return err
		}
		switch {
		case tok.kind == tokKeyword && tok.text == "ENDSEC":
			return d.expect(tokSemicolon)
		case tok.kind == tokInstance:
			entity, err := d.instance(tok)
			if err != nil {
				return err
			}
			if err := fn(entity); err != nil {
				return err
			}
		default:
			return d.unexpected(tok, "instance name or ENDSEC")
		}
	}
}

func (d *decoder) instance(name token) (*core.Entity, error) {
	label, err := name.label()
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: bad instance name #%s", ErrSyntax, name.line, name.text)
	}
	if err := d.expect(tokEquals); err != nil {
		return nil, err
	}

	tok, err := d.lex.Next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokLParen {
		return nil, fmt.Errorf("%w: #%d", ErrComplexInstance, label)
	}
	if tok.kind != tokKeyword {
		return nil, d.unexpected(tok, "entity type")
	}

	params, err := d.parameters(0)
	if err != nil {
		return nil, err
	}
	if err := d.expect(tokSemicolon); err != nil {
		return nil, err
	}

	return &core.Entity{
		Label:      label,
		Type:       tok.text,
		Attributes: params,
	}, nil
}

// parameters parses a parenthesised, comma separated parameter list.
func (d *decoder) parameters(depth int) ([]core.Value, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("%w: line %d: nesting deeper than %d", ErrSyntax, d.lex.line, maxNesting)
	}
	if err := d.expect(tokLParen); err != nil {
		return nil, err
	}

	values := []core.Value{}
	tok, err := d.lex.Peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokRParen {
		_, err := d.lex.Next()
		return values, err
	}

	for {
		v, err := d.value(depth)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		tok, err := d.lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return values, nil
		default:
			return nil, d.unexpected(tok, "',' or ')'")
		}
	}
}

func (d *decoder) value(depth int) (core.Value, error) {
	tok, err := d.lex.Peek()
	if err != nil {
		return core.Value{}, err
	}

	switch tok.kind {
	case tokLParen:
		items, err := d.parameters(depth + 1)
		if err != nil {
			return core.Value{}, err
		}
		return core.List(items...), nil
	case tokKeyword:
		d.lex.Next()
		inner, err := d.parameters(depth + 1)
		if err != nil {
			return core.Value{}, err
		}
		if len(inner) != 1 {
			return core.Value{}, fmt.Errorf("%w: line %d: typed parameter %s takes one value", ErrSyntax, tok.line, tok.text)
		}
		return core.Typed(tok.text, inner[0]), nil
	}

	d.lex.Next()
	switch tok.kind {
	case tokDollar:
		return core.Null(), nil
	case tokStar:
		return core.Value{Kind: core.KindDerived}, nil
	case tokString:
		return core.String(tok.text), nil
	case tokEnum:
		return core.Enum(tok.text), nil
	case tokBinary:
		return core.Value{Kind: core.KindBinary, Str: tok.text}, nil
	case tokInteger:
		i, err := tok.integer()
		if err != nil {
			return core.Value{}, fmt.Errorf("%w: line %d: %w", ErrSyntax, tok.line, err)
		}
		return core.Integer(i), nil
	case tokReal:
		f, err := tok.real()
		if err != nil {
			return core.Value{}, fmt.Errorf("%w: line %d: %w", ErrSyntax, tok.line, err)
		}
		return core.Real(f), nil
	case tokInstance:
		label, err := tok.label()
		if err != nil {
			return core.Value{}, fmt.Errorf("%w: line %d: %w", ErrSyntax, tok.line, err)
		}
		return core.Ref(label), nil
	default:
		return core.Value{}, d.unexpected(tok, "parameter")
	}
}

func (d *decoder) expect(kind tokenKind) error {
	tok, err := d.lex.Next()
	if err != nil {
		return err
	}
	if tok.kind != kind {
		return d.unexpected(tok, kind.String())
	}
	return nil
}

func (d *decoder) expectKeyword(text string) error {
	tok, err := d.lex.Next()
	if err != nil {
		return err
	}
	if tok.kind != tokKeyword || tok.text != text {
		return d.unexpected(tok, text)
	}
	return nil
}

func (d *decoder) unexpected(tok token, want string) error {
	got := tok.kind.String()
	if tok.text != "" {
		got = fmt.Sprintf("%s %q", got, tok.text)
	}
	return fmt.Errorf("%w: line %d: expected %s, got %s", ErrSyntax, tok.line, want, got)
}
