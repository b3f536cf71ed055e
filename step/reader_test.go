package step

import (
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/ifcingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('ViewDefinition [CoordinationView]'),'2;1');
FILE_NAME('wall.ifc','2024-01-01T00:00:00',('Jane'),('ACME'),'pre','sys','');
FILE_SCHEMA(('ifc2x3'));
ENDSEC;
DATA;
/* owner */
#1=IFCPERSON($,'Doe','It''s',*,.T.,-12,3.5E+02,"0FF",(#2,#3),IFCLABEL('x'));
#2=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOH',#1,$,());
#3 = IfcSlab ( '0000000000000000000001' , 1. ) ;
ENDSEC;
END-ISO-10303-21;
`

func decodeAll(t *testing.T, input string) (Header, []*core.Entity) {
	t.Helper()
	var entities []*core.Entity
	h, err := Decode(strings.NewReader(input), func(e *core.Entity) error {
		entities = append(entities, e)
		return nil
	})
	require.NoError(t, err)
	return h, entities
}

func TestDecode_Header(t *testing.T) {
	h, _ := decodeAll(t, sampleFile)

	assert.Equal(t, []string{"ViewDefinition [CoordinationView]"}, h.Description)
	assert.Equal(t, "2;1", h.ImplementationLevel)
	assert.Equal(t, "wall.ifc", h.Name)
	assert.Equal(t, []string{"Jane"}, h.Author)
	assert.Equal(t, []string{"ACME"}, h.Organization)
	assert.Equal(t, "sys", h.OriginatingSystem)
	assert.Equal(t, "IFC2X3", h.Schema())
}

func TestDecode_Entities(t *testing.T) {
	_, entities := decodeAll(t, sampleFile)
	require.Len(t, entities, 3)

	person := entities[0]
	assert.Equal(t, uint64(1), person.Label)
	assert.Equal(t, "IFCPERSON", person.Type)
	require.Len(t, person.Attributes, 10)

	assert.Equal(t, core.KindNull, person.Attributes[0].Kind)
	assert.Equal(t, "Doe", person.Attributes[1].Str)
	assert.Equal(t, "It's", person.Attributes[2].Str)
	assert.Equal(t, core.KindDerived, person.Attributes[3].Kind)
	assert.True(t, person.Attributes[4].Equal(core.Enum("T")))
	assert.True(t, person.Attributes[5].Equal(core.Integer(-12)))
	assert.True(t, person.Attributes[6].Equal(core.Real(350)))
	assert.Equal(t, core.KindBinary, person.Attributes[7].Kind)
	assert.Equal(t, "0FF", person.Attributes[7].Str)
	assert.True(t, person.Attributes[8].Equal(core.List(core.Ref(2), core.Ref(3))))
	assert.True(t, person.Attributes[9].Equal(core.Typed("IFCLABEL", core.String("x"))))
	assert.Equal(t, []uint64{2, 3}, person.References())

	wall := entities[1]
	assert.Equal(t, "IFCWALL", wall.Type)
	assert.Equal(t, "2O2Fr$t4X7Zf8NOew3FLOH", wall.Attributes[0].Str)
	assert.Equal(t, core.KindList, wall.Attributes[3].Kind)
	assert.Empty(t, wall.Attributes[3].List)

	slab := entities[2]
	assert.Equal(t, uint64(3), slab.Label)
	assert.Equal(t, "IFCSLAB", slab.Type)
	assert.True(t, slab.Attributes[1].Equal(core.Real(1)))
}

func TestDecode_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	_, err := Decode(strings.NewReader(sampleFile), func(*core.Entity) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDecodeHeader(t *testing.T) {
	h, err := DecodeHeader(strings.NewReader(sampleFile))
	require.NoError(t, err)
	assert.Equal(t, "IFC2X3", h.Schema())
}

func TestDecode_DataSectionParameters(t *testing.T) {
	input := `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA('main',('IFC4'));
#5=IFCWALL('a');
ENDSEC;
END-ISO-10303-21;
`
	h, entities := decodeAll(t, input)
	assert.Equal(t, "IFC4", h.Schema())
	require.Len(t, entities, 1)
	assert.Equal(t, uint64(5), entities[0].Label)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			name:  "not an exchange structure",
			input: "hello",
			want:  ErrSyntax,
		},
		{
			name:  "complex instance",
			input: "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=(IFCA()IFCB());\nENDSEC;\nEND-ISO-10303-21;\n",
			want:  ErrComplexInstance,
		},
		{
			name:  "missing semicolon",
			input: "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL('a')\n#2=IFCWALL('b');\nENDSEC;\nEND-ISO-10303-21;\n",
			want:  ErrSyntax,
		},
		{
			name:  "unterminated string",
			input: "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL('a);\n",
			want:  ErrSyntax,
		},
		{
			name:  "unterminated comment",
			input: "ISO-10303-21;\nHEADER;\n/* never closed",
			want:  ErrSyntax,
		},
		{
			name:  "truncated file",
			input: "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL('a');\n",
			want:  ErrSyntax,
		},
		{
			name:  "typed parameter with two values",
			input: "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL(IFCLABEL('a','b'));\nENDSEC;\nEND-ISO-10303-21;\n",
			want:  ErrSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), func(*core.Entity) error { return nil })
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_NestingLimit(t *testing.T) {
	deep := strings.Repeat("(", maxNesting+2) + strings.Repeat(")", maxNesting+2)
	input := "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL(" + deep + ");\nENDSEC;\nEND-ISO-10303-21;\n"
	_, err := Decode(strings.NewReader(input), func(*core.Entity) error { return nil })
	assert.ErrorIs(t, err, ErrSyntax)
}
