package step

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/ifcingest/core"
)

// Writer encodes an exchange structure. WriteHeader must be called once before
// any WriteEntity; Close terminates the DATA section and flushes.
// The first error is sticky and returned by every later call.
type Writer struct {
	w         *bufio.Writer
	buf       []byte
	headerOut bool
	closed    bool
	err       error
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64<<10)}
}

// WriteHeader writes the file preamble, the HEADER section and opens DATA.
func (w *Writer) WriteHeader(h Header) error {
	if err := w.check(); err != nil {
		return err
	}
	if w.headerOut {
		w.err = fmt.Errorf("%w: header already written", ErrSyntax)
		return w.err
	}
	w.headerOut = true

	level := h.ImplementationLevel
	if level == "" {
		level = "2;1"
	}

	w.buf = w.buf[:0]
	w.buf = append(w.buf, "ISO-10303-21;\nHEADER;\n"...)
	w.buf = appendRecord(w.buf, "FILE_DESCRIPTION", []core.Value{
		stringList(h.Description),
		core.String(level),
	})
	w.buf = appendRecord(w.buf, "FILE_NAME", []core.Value{
		core.String(h.Name),
		core.String(h.TimeStamp),
		stringList(h.Author),
		stringList(h.Organization),
		core.String(h.PreprocessorVersion),
		core.String(h.OriginatingSystem),
		core.String(h.Authorization),
	})
	w.buf = appendRecord(w.buf, "FILE_SCHEMA", []core.Value{stringList(h.Schemas)})
	w.buf = append(w.buf, "ENDSEC;\nDATA;\n"...)
	return w.flushBuf()
}

// WriteEntity writes one DATA instance.
func (w *Writer) WriteEntity(e *core.Entity) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.headerOut {
		w.err = fmt.Errorf("%w: entity written before header", ErrSyntax)
		return w.err
	}
	for _, attr := range e.Attributes {
		if err := encodable(attr); err != nil {
			return fmt.Errorf("#%d: %w", e.Label, err)
		}
	}

	w.buf = w.buf[:0]
	w.buf = append(w.buf, '#')
	w.buf = strconv.AppendUint(w.buf, e.Label, 10)
	w.buf = append(w.buf, '=')
	w.buf = appendRecord(w.buf, e.Type, e.Attributes)
	return w.flushBuf()
}

// Close terminates the exchange structure and flushes buffered output.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	if w.err != nil {
		w.closed = true
		return w.err
	}
	if !w.headerOut {
		if err := w.WriteHeader(Header{}); err != nil {
			w.closed = true
			return err
		}
	}
	w.closed = true
	if _, err := w.w.WriteString("ENDSEC;\nEND-ISO-10303-21;\n"); err != nil {
		w.err = err
		return err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
	}
	return w.err
}

func (w *Writer) check() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrWriterClosed
	}
	return nil
}

func (w *Writer) flushBuf() error {
	if _, err := w.w.Write(w.buf); err != nil {
		w.err = err
	}
	return w.err
}

func appendRecord(dst []byte, name string, params []core.Value) []byte {
	dst = append(dst, name...)
	dst = appendParams(dst, params)
	return append(dst, ";\n"...)
}

func appendParams(dst []byte, params []core.Value) []byte {
	dst = append(dst, '(')
	for i, p := range params {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendValue(dst, p)
	}
	return append(dst, ')')
}

func appendValue(dst []byte, v core.Value) []byte {
	switch v.Kind {
	case core.KindNull:
		return append(dst, '$')
	case core.KindDerived:
		return append(dst, '*')
	case core.KindString:
		dst = append(dst, '\'')
		dst = append(dst, strings.ReplaceAll(v.Str, "'", "''")...)
		return append(dst, '\'')
	case core.KindInteger:
		return strconv.AppendInt(dst, v.Int, 10)
	case core.KindReal:
		return appendReal(dst, v.Real)
	case core.KindEnum:
		dst = append(dst, '.')
		dst = append(dst, v.Str...)
		return append(dst, '.')
	case core.KindBinary:
		dst = append(dst, '"')
		dst = append(dst, v.Str...)
		return append(dst, '"')
	case core.KindRef:
		dst = append(dst, '#')
		return strconv.AppendUint(dst, v.Ref, 10)
	case core.KindList:
		return appendParams(dst, v.List)
	case core.KindTyped:
		dst = append(dst, v.Str...)
		return appendParams(dst, v.List)
	default:
		return append(dst, '$')
	}
}

// appendReal writes f in the shortest form that parses back to f. A real
// literal always carries a decimal point, e.g. 0. or 1.E-05.
func appendReal(dst []byte, f float64) []byte {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if strings.ContainsRune(s, '.') {
		return append(dst, s...)
	}
	if i := strings.IndexByte(s, 'E'); i >= 0 {
		dst = append(dst, s[:i]...)
		dst = append(dst, '.')
		return append(dst, s[i:]...)
	}
	dst = append(dst, s...)
	return append(dst, '.')
}

func encodable(v core.Value) error {
	switch v.Kind {
	case core.KindReal:
		if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
			return fmt.Errorf("%w: real %v", ErrUnencodable, v.Real)
		}
	case core.KindList, core.KindTyped:
		for _, item := range v.List {
			if err := encodable(item); err != nil {
				return err
			}
		}
	}
	return nil
}
