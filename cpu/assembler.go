// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"io"
	"log"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// State of an assembler session.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_SCANNING  = State(0) // scanning
	STATE_RESOLVING = State(1) // resolving
	STATE_DONE      = State(2) // done
	STATE_FAILED    = State(3) // failed
)

// Fixup is a branch or call placeholder waiting for a label address.
type Fixup struct {
	Label  string // Target label.
	Offset int    // Address of the instruction; the placeholder is at Offset+1.
	File   string
	LineNo int

	opcode int // Index of the instruction in the listing.
}

// Predefined system equates
var sysEquate = map[string]uint32{
	"IMAGE_SIZE": IMAGE_SIZE,
	"ARENA_CODE": ARENA_CODE,
	"ARENA_DATA": ARENA_DATA,
}

// Assembler is a one pass assembler for the four register CPU, with a
// single label fixup pass once all input has been scanned.
//
// Every input scanned into the same Assembler shares the image, both
// cursors, the labels and the pending fixups.
type Assembler struct {
	Verbose bool        // If set, verbosely logs the assembler actions.
	Logger  *log.Logger // Diagnostic output. If nil, log.Default() is used.

	State   State             // Session state.
	Image   Image             // Memory image being assembled.
	Ip      int               // Code cursor.
	DataIp  int               // Data cursor, for .ascii.
	Label   map[string]uint16 // Map of labels to addresses.
	Fixup   []Fixup           // Pending label fixups, in source order.
	Opcode  []Opcode          // Listing of emitted instructions and data.
	Unknown []ErrUnknownToken // Unrecognised tokens.

	predefine map[string]uint32 // Predefines
	overlap   bool              // Code has run into ARENA_DATA.
}

// Predefine defines a new, or redefines an existing, symbol for $(...)
// expressions. The value must be a numeric literal.
func (asm *Assembler) Predefine(equ string, value string) (err error) {
	number, err := parseNumber(value)
	if err != nil {
		return
	}

	if asm.predefine == nil {
		asm.predefine = map[string]uint32{equ: number}
	} else {
		asm.predefine[equ] = number
	}

	return
}

// Reset the assembler to an empty image. Predefines are kept.
func (asm *Assembler) Reset() {
	asm.State = STATE_SCANNING
	asm.Image = Image{}
	asm.Ip = ARENA_CODE
	asm.DataIp = ARENA_DATA
	asm.Label = make(map[string]uint16, 16)
	asm.Fixup = nil
	asm.Opcode = nil
	asm.Unknown = nil
	asm.overlap = false
}

func (asm *Assembler) init() {
	if asm.Label == nil {
		asm.Reset()
	}
}

func (asm *Assembler) logf(format string, args ...any) {
	logger := asm.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Print(f(format, args...))
}

// Parse assembles a single input into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	asm.Reset()

	err = asm.Scan("<input>", input)
	if err != nil {
		return
	}

	return asm.Resolve()
}

// Scan consumes an entire input, encoding it into the image. Scan may be
// called once per input file before Resolve.
func (asm *Assembler) Scan(name string, input io.Reader) (err error) {
	asm.init()

	if asm.State != STATE_SCANNING {
		err = ErrState
		return
	}

	text, err := io.ReadAll(input)
	if err != nil {
		return
	}

	src := &source{file: name, text: string(text), lineno: 1}
	for !src.empty() {
		err = asm.parseInstruction(src)
		if err != nil {
			asm.State = STATE_FAILED
			return
		}
	}

	return
}

// parseInstruction consumes one label, directive or instruction.
func (asm *Assembler) parseInstruction(src *source) (err error) {
	src.skip()
	if src.empty() {
		return
	}

	lineno := src.lineno
	start := src.mark()

	defer func() {
		if err != nil {
			err = ErrSyntax{File: src.file, LineNo: lineno, Err: err}
		}
	}()

	var reason error

	if src.literal(".ascii") {
		var data []byte
		data, reason = asm.parseAscii(src)
		if reason == nil {
			err = asm.emitAscii(src, lineno, src.since(start), data)
			return
		}
	} else if word, ok := src.identifier(); ok {
		if src.literal(":") {
			err = asm.defineLabel(word)
			return
		}

		mn, ok := LookupMnemonic(word)
		if ok {
			var args []uint32
			var label string
			args, label, reason = asm.parseOperands(src, mn)
			if reason == nil {
				err = asm.emit(src, lineno, src.since(start), mn, args, label)
				return
			}
		}
	}

	src.restore(start)
	unknown := ErrUnknownToken{
		File:   src.file,
		LineNo: lineno,
		Token:  src.field(),
		Err:    reason,
	}
	asm.Unknown = append(asm.Unknown, unknown)
	asm.logf("%v", unknown)

	return
}

// defineLabel binds a label to the code cursor.
func (asm *Assembler) defineLabel(label string) (err error) {
	if _, ok := asm.Label[label]; ok {
		err = ErrLabelDuplicate
		return
	}

	if asm.Ip >= IMAGE_SIZE {
		err = ErrImageOverflow
		return
	}

	asm.Label[label] = uint16(asm.Ip)
	asm.logf("label %v defined at address %#04x", label, asm.Ip)

	return
}

// operandGrammar spells out each operand form:
// 'r' register, 'p' register pair, 'i' immediate, 'l' label,
// ',' separator, and literal '(' and ')'.
var operandGrammar = map[Form]string{
	FORM_NONE:        "",
	FORM_REG:         "r",
	FORM_REG_REG:     "r,r",
	FORM_REG_REG_REG: "r,r,r",
	FORM_REG_IMM:     "r,i",
	FORM_REG_IND:     "r,(r)",
	FORM_IND_REG:     "(r),r",
	FORM_REG_PAIRIND: "r,(p)",
	FORM_PAIRIND_REG: "(p),r",
	FORM_PAIR_IMM:    "p,i",
	FORM_PAIR:        "p",
	FORM_LABEL:       "l",
}

// parseOperands parses the operands of a mnemonic following its grammar.
func (asm *Assembler) parseOperands(src *source, mn Mnemonic) (args []uint32, label string, err error) {
	ins := instructionSet[mn]
	grammar := operandGrammar[ins.Form]

	if len(grammar) == 0 {
		return
	}

	if !src.spaces() {
		err = ErrOperandMissing
		return
	}

	for _, step := range grammar {
		var value uint32
		switch step {
		case 'r':
			value, err = src.register()
			args = append(args, value)
		case 'p':
			value, err = src.pair()
			args = append(args, value)
		case 'i':
			value, err = asm.immediate(src)
			args = append(args, value)
		case 'l':
			var ok bool
			label, ok = src.identifier()
			if !ok {
				err = ErrLabelInvalid
			}
		case ',':
			err = src.separator()
		default:
			if !src.literal(string(step)) {
				err = ErrOperandMissing
			}
		}
		if err != nil {
			return
		}
	}

	return
}

// immediate parses a numeric literal or a $(...) expression.
func (asm *Assembler) immediate(src *source) (value uint32, err error) {
	if strings.HasPrefix(src.text, "$(") {
		expr, ok := src.expression()
		if !ok {
			err = ErrParseExpression(src.word())
			return
		}
		return asm.parenEval(expr)
	}

	return src.number()
}

// Upper bound on the starlark steps of a single $(...) expression.
const maxExpressionSteps = 1 << 16

// arithmetic reports whether expr is built only from integer literals,
// names, and unary or binary operators, and lists the names it uses.
func arithmetic(expr syntax.Expr) (names []string, ok bool) {
	ok = true
	syntax.Walk(expr, func(node syntax.Node) bool {
		switch node := node.(type) {
		case nil:
		case *syntax.Literal:
			ok = ok && node.Token == syntax.INT
		case *syntax.Ident:
			names = append(names, node.Name)
		case *syntax.UnaryExpr, *syntax.BinaryExpr, *syntax.ParenExpr:
		default:
			ok = false
		}
		return ok
	})
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	opts := syntax.FileOptions{}
	tree, err := opts.ParseExpr("expr", expr, 0)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}

	names, ok := arithmetic(tree)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	pred := starlark.StringDict{}
	for key, value32 := range sysEquate {
		pred[key] = starlark.MakeUint64(uint64(value32))
	}
	for key, value32 := range asm.predefine {
		pred[key] = starlark.MakeUint64(uint64(value32))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}

	for _, name := range names {
		if _, ok := pred[name]; !ok {
			// Labels are only visible once defined.
			err = fmt.Errorf("%w: %w", ErrParseExpression(expr), ErrSymbolUndefined(name))
			return
		}
	}

	thread := starlark.Thread{Name: "asm8"}
	thread.SetMaxExecutionSteps(maxExpressionSteps)
	st_rc, err := starlark.EvalExprOptions(&opts, &thread, tree, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseAscii parses the quoted string of a .ascii directive.
func (asm *Assembler) parseAscii(src *source) (data []byte, err error) {
	if !src.spaces() {
		err = ErrOperandMissing
		return
	}

	body, ok := src.quoted()
	if !ok {
		err = ErrStringInvalid
		return
	}

	return decodeAscii(body)
}

// emit encodes an instruction at the code cursor.
func (asm *Assembler) emit(src *source, lineno int, text string, mn Mnemonic, args []uint32, label string) (err error) {
	if len(label) != 0 {
		args = []uint32{0}
	}

	code, err := Encode(mn, args...)
	if err != nil {
		return
	}

	ip := asm.Ip
	err = asm.Image.Write(ip, code.Bytes()...)
	if err != nil {
		return
	}

	if len(label) != 0 {
		asm.Fixup = append(asm.Fixup, Fixup{
			Label:  label,
			Offset: ip,
			File:   src.file,
			LineNo: lineno,
			opcode: len(asm.Opcode),
		})
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		File:      src.file,
		LineNo:    lineno,
		Ip:        ip,
		Words:     strings.Fields(text),
		Code:      code,
		LinkLabel: label,
	})
	asm.Ip += code.Width()

	if asm.Verbose {
		asm.logf("%#04x: %v", ip, code)
	}

	if !asm.overlap && asm.Ip > ARENA_DATA {
		asm.overlap = true
		asm.logf("code at %#04x runs into the data arena at %#04x", ip, ARENA_DATA)
	}

	return
}

// emitAscii writes string data at the data cursor.
func (asm *Assembler) emitAscii(src *source, lineno int, text string, data []byte) (err error) {
	ip := asm.DataIp
	err = asm.Image.Write(ip, data...)
	if err != nil {
		return
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		File:   src.file,
		LineNo: lineno,
		Ip:     ip,
		Words:  strings.Fields(text),
		Code:   Code{Mnemonic: MN_ASCII, Data: data},
	})
	asm.DataIp += len(data)

	asm.logf(".ascii %q → %v", string(data), data)

	return
}
