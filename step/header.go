package step

import (
	"strings"

	"github.com/poiesic/ifcingest/core"
)

// Header holds the HEADER section of an exchange structure.
type Header struct {
	Description         []string
	ImplementationLevel string
	Name                string
	TimeStamp           string
	Author              []string
	Organization        []string
	PreprocessorVersion string
	OriginatingSystem   string
	Authorization       string
	Schemas             []string
}

// Schema returns the first schema identifier from FILE_SCHEMA, upper-cased,
// or "" when none was declared.
func (h Header) Schema() string {
	if len(h.Schemas) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(h.Schemas[0]))
}

// apply records one header entity. Unknown header entities are ignored.
func (h *Header) apply(name string, params []core.Value) {
	switch name {
	case "FILE_DESCRIPTION":
		h.Description = stringsOf(param(params, 0))
		h.ImplementationLevel = stringOf(param(params, 1))
	case "FILE_NAME":
		h.Name = stringOf(param(params, 0))
		h.TimeStamp = stringOf(param(params, 1))
		h.Author = stringsOf(param(params, 2))
		h.Organization = stringsOf(param(params, 3))
		h.PreprocessorVersion = stringOf(param(params, 4))
		h.OriginatingSystem = stringOf(param(params, 5))
		h.Authorization = stringOf(param(params, 6))
	case "FILE_SCHEMA":
		h.Schemas = stringsOf(param(params, 0))
	}
}

func param(params []core.Value, i int) core.Value {
	if i < len(params) {
		return params[i]
	}
	return core.Null()
}

func stringOf(v core.Value) string {
	v = v.Unwrap()
	if v.Kind == core.KindString {
		return v.Str
	}
	return ""
}

func stringsOf(v core.Value) []string {
	if v.Kind != core.KindList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		out = append(out, stringOf(item))
	}
	return out
}

func stringList(items []string) core.Value {
	if len(items) == 0 {
		return core.List(core.String(""))
	}
	values := make([]core.Value, len(items))
	for i, item := range items {
		values[i] = core.String(item)
	}
	return core.List(values...)
}
