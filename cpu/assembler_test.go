package cpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func quietAssembler() *Assembler {
	return &Assembler{Logger: log.New(io.Discard, "", 0)}
}

func assemble(t *testing.T, program ...string) (prog *Program, err error) {
	t.Helper()
	asm := quietAssembler()
	return asm.Parse(strings.NewReader(strings.Join(program, "\n")))
}

// imageWord reads the big-endian 16-bit value at addr of the program image.
func imageWord(prog *Program, addr int) uint16 {
	return binary.BigEndian.Uint16(prog.Binary()[addr:])
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(IMAGE_SIZE, len(prog.Binary()))
	assert.Equal(STATE_DONE, asm.State)
	assert.Equal(ARENA_CODE, asm.Ip)
	assert.Equal(ARENA_DATA, asm.DataIp)
}

func TestAssemblerEncoding(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		source   string
		expected []byte
	}){
		{"NOP", []byte{0x00}},
		{"HLT", []byte{0x01}},
		{"RET", []byte{0x21}},
		{"LDI R0, 0", []byte{0x02, 0x00, 0x00}},
		{"LDI R3, 255", []byte{0x02, 0x03, 0xff}},
		{"LDI R1,0x7f", []byte{0x02, 0x01, 0x7f}},
		{"LD R0, 0", []byte{0x03, 0x00, 0x00}},
		{"LD R3, 0x3fff", []byte{0x03, 0xff, 0xff}},
		{"LD R1, 0x1234", []byte{0x03, 0x52, 0x34}},
		{"ST R0, 0", []byte{0x04, 0x00, 0x00}},
		{"ST R2, 0x10", []byte{0x04, 0x80, 0x10}},
		{"ST R3, 16383", []byte{0x04, 0xff, 0xff}},
		{"MOV R0, R0", []byte{0x05, 0x00}},
		{"MOV R1, R2", []byte{0x05, 0x06}},
		{"MOV R3, R3", []byte{0x05, 0x0f}},
		{"ADD R1, R2, R3", []byte{0x06, 0x1b}},
		{"ADD R3, R3, R3", []byte{0x06, 0x3f}},
		{"ADC R0, R0, R0", []byte{0x07, 0x00}},
		{"ADC R2 , R1 , R0", []byte{0x07, 0x24}},
		{"AND R3, R0, R1", []byte{0x08, 0x31}},
		{"OUT R0", []byte{0x0a, 0x00}},
		{"OUT R3", []byte{0x0a, 0x03}},
		{"CPI R0, 0", []byte{0x0b, 0x00, 0x00}},
		{"CPI R3, 0xff", []byte{0x0b, 0x03, 0xff}},
		{"LDIR R3, (R1)", []byte{0x0e, 0x00, 0x0d}},
		{"LDIR R0, (R0)", []byte{0x0e, 0x00, 0x00}},
		{"STIR (R1), R3", []byte{0x0f, 0x00, 0x0d}},
		{"STIR (R3), R0", []byte{0x0f, 0x00, 0x03}},
		{"LDIRP R3, (R23)", []byte{0x10, 0x31}},
		{"LDIRP R0, (R01)", []byte{0x10, 0x00}},
		{"STIRP (R01), R2", []byte{0x11, 0x20}},
		{"STIRP (R23), R3", []byte{0x11, 0x31}},
		{"ADDIW R01, 0", []byte{0x12, 0x00, 0x00, 0x00}},
		{"ADDIW R23, 0xffff", []byte{0x12, 0x01, 0xff, 0xff}},
		{"ADDIW R23, 65535", []byte{0x12, 0x01, 0xff, 0xff}},
		{"ADDI R0, 0", []byte{0x13, 0x00, 0x00}},
		{"ADDI R2, 7", []byte{0x13, 0x02, 0x07}},
		{"ADDI R3, 255", []byte{0x13, 0x03, 0xff}},
		{"OUTP R01", []byte{0x14, 0x00}},
		{"OUTP R23", []byte{0x14, 0x01}},
		{"OUTA R0", []byte{0x15, 0x00}},
		{"OUTA R2", []byte{0x15, 0x02}},
		{"OR R1, R1, R1", []byte{0x16, 0x15}},
		{"NOT R3, R2", []byte{0x17, 0x38}},
		{"NOT R0, R0", []byte{0x17, 0x00}},
		{"XOR R2, R1, R0", []byte{0x18, 0x24}},
		{"XOR R3, R3, R3", []byte{0x18, 0x3f}},
		{"t: JMP t", []byte{0x09, 0x00, 0x00}},
		{"t: BEQ t", []byte{0x0c, 0x00, 0x00}},
		{"t: BGT t", []byte{0x0d, 0x00, 0x00}},
		{"t: BLT t", []byte{0x19, 0x00, 0x00}},
		{"t: CALL t", []byte{0x20, 0x00, 0x00}},
	}

	for _, entry := range table {
		prog, err := assemble(t, entry.source)
		if !assert.NoError(err, entry.source) {
			continue
		}
		assert.Empty(prog.Unknown, entry.source)
		assert.Equal(entry.expected, prog.Binary()[:len(entry.expected)], entry.source)
		assert.Equal(1, len(prog.Opcodes), entry.source)
		assert.Equal(len(entry.expected), prog.Opcodes[0].Code.Width(), entry.source)
	}
}

func TestAssemblerMasking(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		wide   string
		narrow string
	}){
		{"LDI R0, 0x105", "LDI R0, 0x05"},
		{"LDI R0, 0x10000000000000005", "LDI R0, 5"},
		{"LDI R4, 1", "LDI R0, 1"},
		{"LDI R7, 1", "LDI R3, 1"},
		{"LD R0, 0x7fff", "LD R0, 0x3fff"},
		{"ST R1, 0xc123", "ST R1, 0x0123"},
		{"CPI R2, 256", "CPI R2, 0"},
		{"ADDI R1, 0x1ff", "ADDI R1, 0xff"},
		{"ADDIW R01, 0x12345", "ADDIW R01, 0x2345"},
		{"MOV R5, R6", "MOV R1, R2"},
		{"ADD R4, R5, R6", "ADD R0, R1, R2"},
		{"OUT R100", "OUT R0"},
		{"LDIR R9, (R10)", "LDIR R1, (R2)"},
	}

	for _, entry := range table {
		wide, err := assemble(t, entry.wide)
		assert.NoError(err, entry.wide)
		narrow, err := assemble(t, entry.narrow)
		assert.NoError(err, entry.narrow)
		if wide == nil || narrow == nil {
			continue
		}
		assert.Empty(wide.Unknown, entry.wide)
		assert.Equal(narrow.Binary()[:8], wide.Binary()[:8], entry.wide)
	}
}

func TestAssemblerScenario(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"start: LDI R0, 0x05",
		"OUT R0",
		"JMP start",
	)
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]byte{
		0x02, 0x00, 0x05,
		0x0a, 0x00,
		0x09, 0x00, 0x00,
	}, prog.Binary()[:8])
	assert.Equal(map[string]uint16{"start": 0}, prog.Symbols)

	for _, value := range prog.Binary()[8:] {
		if !assert.Equal(byte(0), value) {
			break
		}
	}
}

func TestAssemblerAscii(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"NOP",
		`.ascii "HI"`,
		"HLT",
		`.ascii "\tA\\\"\x41\101\0"`,
	)
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]byte{0x00, 0x01}, prog.Binary()[:2])
	assert.Equal([]byte{0x48, 0x49}, prog.Binary()[ARENA_DATA:ARENA_DATA+2])
	assert.Equal([]byte{'\t', 'A', '\\', '"', 'A', 'A', 0}, prog.Binary()[ARENA_DATA+2:ARENA_DATA+9])

	assert.Equal(4, len(prog.Opcodes))
	assert.Equal(ARENA_DATA, prog.Opcodes[1].Ip)
	assert.Equal(MN_ASCII, prog.Opcodes[1].Code.Mnemonic)
	assert.Equal(1, prog.Opcodes[2].Ip)
}

func TestAssemblerAsciiInvalid(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		source string
		err    error
	}){
		{`.ascii "caf` + "é" + `"`, ErrStringNotAscii},
		{`.ascii "\xff"`, ErrStringNotAscii},
		{`.ascii "\x4"`, ErrStringInvalid},
		{`.ascii "open`, ErrStringInvalid},
		{`.ascii`, ErrOperandMissing},
		{`.ascii HI`, ErrStringInvalid},
	}

	for _, entry := range table {
		prog, err := assemble(t, entry.source)
		if !assert.NoError(err, entry.source) {
			continue
		}
		if assert.NotEmpty(prog.Unknown, entry.source) {
			assert.Equal(".ascii", prog.Unknown[0].Token, entry.source)
			assert.ErrorIs(prog.Unknown[0], entry.err, entry.source)
		}
		assert.Equal(byte(0), prog.Binary()[ARENA_DATA], entry.source)
	}
}

func TestAssemblerComments(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"# full line comment",
		"HLT // trailing comment",
		"/* block",
		"   comment */ RET",
		"NOP# hash directly after",
		"/* one */ NOP /* two */",
		"// comment at end of input",
	)
	if !assert.NoError(err) {
		return
	}

	assert.Empty(prog.Unknown)
	assert.Equal([]byte{0x01, 0x21, 0x00, 0x00}, prog.Binary()[:4])
	assert.Equal(2, prog.Opcodes[0].LineNo)
	assert.Equal(4, prog.Opcodes[1].LineNo)
	assert.Equal(6, prog.Opcodes[3].LineNo)
}

func TestAssemblerUnknownToken(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		source string
		tokens []string
		err    error
		bytes  []byte
	}){
		{"FOO\nNOP", []string{"FOO"}, nil, []byte{0x00}},
		{"NOPE HLT", []string{"NOPE"}, nil, []byte{0x01}},
		{"nop", []string{"nop"}, nil, []byte{0x00}},
		{"LDI R0, foo", []string{"LDI", "R0,", "foo"}, ErrParseNumber("foo"), []byte{0x00}},
		{"LDI R0 5", []string{"LDI", "R0", "5"}, ErrSeparatorMissing, []byte{0x00}},
		{"LDI", []string{"LDI"}, ErrOperandMissing, []byte{0x00}},
		{"OUT X1", []string{"OUT", "X1"}, ErrRegisterInvalid, []byte{0x00}},
		{"OUT R0x", []string{"OUT", "R0x"}, ErrRegisterInvalid, []byte{0x00}},
		{"OUTP R02", []string{"OUTP", "R02"}, ErrPairInvalid, []byte{0x00}},
		{"OUTP R012", []string{"OUTP", "R012"}, ErrPairInvalid, []byte{0x00}},
		{"LDI R0, 0x1G", []string{"LDI", "R0,", "0x1G"}, ErrParseNumber("0x1G"), []byte{0x00}},
		{"JMP 5", []string{"JMP", "5"}, ErrLabelInvalid, []byte{0x00}},
		{"LDIR R0, R1", []string{"LDIR", "R0,", "R1"}, ErrOperandMissing, []byte{0x00}},
		{"/* never closed\nHLT", []string{"/*", "never", "closed"}, nil, []byte{0x01}},
		{"} RET", []string{"}"}, nil, []byte{0x21}},
	}

	for _, entry := range table {
		prog, err := assemble(t, entry.source)
		if !assert.NoError(err, entry.source) {
			continue
		}

		var tokens []string
		for _, unknown := range prog.Unknown {
			tokens = append(tokens, unknown.Token)
		}
		assert.Equal(entry.tokens, tokens, entry.source)
		if entry.err != nil && assert.NotEmpty(prog.Unknown, entry.source) {
			assert.ErrorIs(prog.Unknown[0], entry.err, entry.source)
		}
		assert.Equal(entry.bytes, prog.Binary()[:len(entry.bytes)], entry.source)
	}
}

func TestAssemblerUnknownTokenLineNo(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"NOP",
		"",
		"  bogus",
		"/* two",
		"lines */ also",
	)
	if !assert.NoError(err) {
		return
	}

	if assert.Equal(2, len(prog.Unknown)) {
		assert.Equal(3, prog.Unknown[0].LineNo)
		assert.Equal("bogus", prog.Unknown[0].Token)
		assert.Equal(5, prog.Unknown[1].LineNo)
		assert.Equal("also", prog.Unknown[1].Token)
	}
}

func TestAssemblerOperandsSpanLines(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"ADD R1,",
		"    R2,",
		"    R3",
		"HLT",
	)
	if !assert.NoError(err) {
		return
	}

	assert.Empty(prog.Unknown)
	assert.Equal([]byte{0x06, 0x1b, 0x01}, prog.Binary()[:3])
	assert.Equal(1, prog.Opcodes[0].LineNo)
	assert.Equal(4, prog.Opcodes[1].LineNo)
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(t,
		"JMP second",     // 0
		"first: NOP",     // 3
		"LDI R0, 1",      // 4
		"second: third:", // 7
		"BEQ first",      // 7
		"ADDIW R01, 1",   // 10
		"CALL third",     // 14
		"BLT fourth",     // 17
		"fourth:",        // 20
		"BGT first",      // 20
	)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(map[string]uint16{
		"first":  3,
		"second": 7,
		"third":  7,
		"fourth": 20,
	}, prog.Symbols)

	assert.Equal(uint16(7), imageWord(prog, 1))
	assert.Equal(uint16(3), imageWord(prog, 8))
	assert.Equal(uint16(7), imageWord(prog, 15))
	assert.Equal(uint16(20), imageWord(prog, 18))
	assert.Equal(uint16(3), imageWord(prog, 21))

	assert.Equal("second", prog.Opcodes[0].LinkLabel)
	target, ok := prog.Opcodes[0].Code.Target()
	assert.True(ok)
	assert.Equal(uint16(7), target)
}

func TestAssemblerLabelRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, padding := range []int{0, 1, 7, 100, 1000} {
		filler := strings.Repeat("ADDIW R23, 0x1234\n", padding)

		backward, err := assemble(t, filler+"target: NOP\n"+filler+"JMP target")
		if !assert.NoError(err) {
			continue
		}
		forward, err := assemble(t, filler+"JMP target\n"+filler+"target: NOP")
		if !assert.NoError(err) {
			continue
		}

		address := uint16(padding * 4)
		assert.Equal(address, backward.Symbols["target"])
		jmp := int(address) + 1 + padding*4
		assert.Equal(byte(0x09), backward.Binary()[jmp])
		assert.Equal(address, imageWord(backward, jmp+1))

		address = uint16(padding*8 + 3)
		assert.Equal(address, forward.Symbols["target"])
		jmp = padding * 4
		assert.Equal(byte(0x09), forward.Binary()[jmp])
		assert.Equal(address, imageWord(forward, jmp+1))
	}
}

func TestAssemblerLabelDuplicate(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	_, err := asm.Parse(strings.NewReader("a: NOP\nb: NOP\na: HLT\n"))

	assert.ErrorIs(err, ErrLabelDuplicate)
	var se ErrSyntax
	if assert.True(errors.As(err, &se)) {
		assert.Equal(3, se.LineNo)
		assert.Equal("<input>", se.File)
	}
	assert.Equal(STATE_FAILED, asm.State)
}

func TestAssemblerLabelMissing(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	prog, err := asm.Parse(strings.NewReader("here: JMP nowhere\nNOP\nCALL gone\nBEQ here\n"))

	assert.Nil(prog)
	assert.Error(err)
	assert.Equal(STATE_FAILED, asm.State)

	var missing ErrLabelMissing
	if assert.True(errors.As(err, &missing)) {
		assert.Equal(ErrLabelMissing("nowhere"), missing)
	}
	assert.ErrorContains(err, "nowhere")
	assert.ErrorContains(err, "gone")

	var se ErrSyntax
	if assert.True(errors.As(err, &se)) {
		assert.Equal(1, se.LineNo)
	}
}

func TestAssemblerExpression(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	assert.NoError(asm.Predefine("PORT", "0x10"))
	assert.ErrorIs(asm.Predefine("NAME", "not a number"), ErrParseNumber("not a number"))

	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		"LDI R0, $(2 + 3)",            // 0
		"LDI R1, $(ARENA_DATA >> 8)",  // 3
		"here: LD R2, $(here + 1)",    // 6
		"ST R3, $(PORT)",              // 9
		"ADDIW R01, $((1 << 16) + 7)", // 12
		"LDI R0, $(-1)",               // 16
	}, "\n")))
	if !assert.NoError(err) {
		return
	}

	assert.Empty(prog.Unknown)
	assert.Equal([]byte{
		0x02, 0x00, 0x05,
		0x02, 0x01, 0x80,
		0x03, 0x80, 0x07,
		0x04, 0xc0, 0x10,
		0x12, 0x00, 0x00, 0x07,
		0x02, 0x00, 0xff,
	}, prog.Binary()[:19])
}

func TestAssemblerExpressionInvalid(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		source string
		symbol string
	}){
		{"LDI R0, $(nope)", "nope"},
		{`LDI R0, $("text")`, ""},
		{"LDI R0, $(1 +", ""},
		{"LDI R0, $(1 / 0)", ""},
		{"LDI R0, $(1, 2)", ""},
		{"LDI R0, $(1 < 2)", ""},
		{"LDI R0, $(len([0] * 500000000))", ""},
		{`LDI R0, $(int("9" * 100000000))`, ""},
		{"LDI R0, $([x for x in (1, 2)][0])", ""},
		{"LDI R0, $(NAME)", "NAME"},
		{"LDI R0, $(later)\nlater: NOP", "later"},
	}

	for _, entry := range table {
		prog, err := assemble(t, entry.source)
		if !assert.NoError(err, entry.source) {
			continue
		}
		if !assert.NotEmpty(prog.Unknown, entry.source) {
			continue
		}

		unknown := prog.Unknown[0]
		assert.Equal("LDI", unknown.Token, entry.source)
		var pe ErrParseExpression
		assert.ErrorAs(unknown, &pe, entry.source)

		var su ErrSymbolUndefined
		if len(entry.symbol) != 0 {
			assert.ErrorAs(unknown, &su, entry.source)
			assert.Equal(ErrSymbolUndefined(entry.symbol), su, entry.source)
			assert.ErrorContains(unknown, "not defined yet", entry.source)
		} else {
			assert.False(errors.As(unknown, &su), entry.source)
		}
	}
}

func TestAssemblerDiagnostics(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	asm := &Assembler{Logger: log.New(&buf, "", 0)}

	_, err := asm.Parse(strings.NewReader("start: NOP\n.ascii \"HI\"\nJMP start\nwhat\n"))
	assert.NoError(err)

	text := buf.String()
	assert.Contains(text, "label start defined at address")
	assert.Contains(text, `.ascii "HI"`)
	assert.Contains(text, "resolving JMP to 'start'")
	assert.Contains(text, "unknown token: what")
	assert.NotContains(text, "NOP 00")

	buf.Reset()
	asm.Verbose = true
	_, err = asm.Parse(strings.NewReader("NOP\n"))
	assert.NoError(err)
	assert.Contains(buf.String(), "NOP 00")
}

func TestAssemblerMultipleInputs(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	asm.Reset()

	assert.NoError(asm.Scan("main.s", strings.NewReader("CALL print\nHLT\n.ascii \"A\"\n")))
	assert.NoError(asm.Scan("lib.s", strings.NewReader("print: OUTA R0\nRET\n.ascii \"B\"\n")))

	prog, err := asm.Resolve()
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]byte{0x20, 0x00, 0x04, 0x01, 0x15, 0x00, 0x21}, prog.Binary()[:7])
	assert.Equal([]byte("AB"), prog.Binary()[ARENA_DATA:ARENA_DATA+2])
	assert.Equal("main.s", prog.Opcodes[0].File)
	assert.Equal("lib.s", prog.Opcodes[3].File)
}

func TestAssemblerMultipleInputsDuplicate(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()

	assert.NoError(asm.Scan("a.s", strings.NewReader("entry: NOP\n")))
	err := asm.Scan("b.s", strings.NewReader("\n\nentry: NOP\n"))

	var se ErrSyntax
	if assert.True(errors.As(err, &se)) {
		assert.Equal("b.s", se.File)
		assert.Equal(3, se.LineNo)
		assert.ErrorIs(se, ErrLabelDuplicate)
	}
}

func TestAssemblerState(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	assert.NoError(asm.Scan("a.s", strings.NewReader("NOP")))
	assert.Equal(STATE_SCANNING, asm.State)

	_, err := asm.Resolve()
	assert.NoError(err)
	assert.Equal(STATE_DONE, asm.State)

	assert.ErrorIs(asm.Scan("b.s", strings.NewReader("NOP")), ErrState)
	_, err = asm.Resolve()
	assert.ErrorIs(err, ErrState)

	asm.Reset()
	assert.Equal(STATE_SCANNING, asm.State)
	assert.Equal(0, asm.Ip)
	assert.NoError(asm.Scan("b.s", strings.NewReader("HLT")))
	prog, err := asm.Resolve()
	assert.NoError(err)
	assert.Equal(byte(0x01), prog.Binary()[0])
}

func TestAssemblerProgramIsolated(t *testing.T) {
	assert := assert.New(t)

	asm := quietAssembler()
	prog, err := asm.Parse(strings.NewReader("HLT"))
	assert.NoError(err)

	asm.Reset()
	assert.Equal(byte(0x01), prog.Binary()[0])
}

func TestAssemblerImageOverflow(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	asm := &Assembler{Logger: log.New(&buf, "", 0)}

	full := strings.Repeat("ADDIW R01, 0\n", IMAGE_SIZE/4)
	assert.NoError(asm.Scan("full.s", strings.NewReader(full)))
	assert.Equal(IMAGE_SIZE, asm.Ip)
	assert.Equal(1, strings.Count(buf.String(), "runs into the data arena"))

	err := asm.Scan("more.s", strings.NewReader("NOP"))
	assert.ErrorIs(err, ErrImageOverflow)
	assert.Equal(STATE_FAILED, asm.State)

	asm.Reset()
	err = asm.Scan("end.s", strings.NewReader(full+"end:"))
	assert.ErrorIs(err, ErrImageOverflow)

	asm.Reset()
	data := `.ascii "` + strings.Repeat("A", IMAGE_SIZE-ARENA_DATA) + `"`
	assert.NoError(asm.Scan("data.s", strings.NewReader(data)))
	assert.ErrorIs(asm.Scan("data.s", strings.NewReader(`.ascii "A"`)), ErrImageOverflow)
}
