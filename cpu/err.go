package cpu

import (
	"errors"

	"github.com/ezrec/asm8/translate"
)

var f = translate.From

var (
	// Session errors
	ErrState          = errors.New(f("assembler state invalid"))
	ErrImageOverflow  = errors.New(f("image overflow"))
	ErrLabelDuplicate = errors.New(f("label duplicated"))

	// Instruction encode errors
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrOpcodeExtraArgs = errors.New(f("excessive arguments"))

	// Operand grammar errors
	ErrOperandMissing   = errors.New(f("operand missing"))
	ErrSeparatorMissing = errors.New(f("separator missing"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrPairInvalid      = errors.New(f("register pair invalid"))
	ErrLabelInvalid     = errors.New(f("label invalid"))
	ErrStringInvalid    = errors.New(f("string invalid"))
	ErrStringNotAscii   = errors.New(f("string not ascii"))
)

// ErrLabelMissing is an undefined label referenced by a branch or call.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("undefined label: %v", string(el))
}

// ErrSyntax is a fatal error at a source location.
type ErrSyntax struct {
	File   string
	LineNo int
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("%v:%d: %v", err.File, err.LineNo, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrUnknownToken is a source token that matched no label, directive or
// instruction. It is reported, skipped, and does not stop the assembly.
type ErrUnknownToken struct {
	File   string
	LineNo int
	Token  string
	Err    error // Operand mismatch of a known mnemonic, if any.
}

func (err ErrUnknownToken) Error() string {
	if err.Err != nil {
		return f("%v:%d: unknown token: %v (%v)", err.File, err.LineNo, err.Token, err.Err)
	}
	return f("%v:%d: unknown token: %v", err.File, err.LineNo, err.Token)
}

func (err ErrUnknownToken) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrSymbolUndefined is a $(...) name that is neither predefined nor a
// label defined earlier in the source.
type ErrSymbolUndefined string

func (err ErrSymbolUndefined) Error() string {
	return f("symbol %v not defined yet; labels must precede their use in $(...)", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
