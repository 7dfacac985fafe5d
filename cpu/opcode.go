package cpu

import (
	"fmt"
)

// Mnemonic identifies an instruction, or the .ascii data directive.
type Mnemonic int

//go:generate go tool stringer -linecomment -type=Mnemonic
const (
	MN_NOP   = Mnemonic(0)  // NOP
	MN_HLT   = Mnemonic(1)  // HLT
	MN_LDI   = Mnemonic(2)  // LDI
	MN_LD    = Mnemonic(3)  // LD
	MN_ST    = Mnemonic(4)  // ST
	MN_MOV   = Mnemonic(5)  // MOV
	MN_ADD   = Mnemonic(6)  // ADD
	MN_ADC   = Mnemonic(7)  // ADC
	MN_AND   = Mnemonic(8)  // AND
	MN_JMP   = Mnemonic(9)  // JMP
	MN_OUT   = Mnemonic(10) // OUT
	MN_CPI   = Mnemonic(11) // CPI
	MN_BEQ   = Mnemonic(12) // BEQ
	MN_BGT   = Mnemonic(13) // BGT
	MN_LDIR  = Mnemonic(14) // LDIR
	MN_STIR  = Mnemonic(15) // STIR
	MN_LDIRP = Mnemonic(16) // LDIRP
	MN_STIRP = Mnemonic(17) // STIRP
	MN_ADDIW = Mnemonic(18) // ADDIW
	MN_ADDI  = Mnemonic(19) // ADDI
	MN_OUTP  = Mnemonic(20) // OUTP
	MN_OUTA  = Mnemonic(21) // OUTA
	MN_OR    = Mnemonic(22) // OR
	MN_NOT   = Mnemonic(23) // NOT
	MN_XOR   = Mnemonic(24) // XOR
	MN_BLT   = Mnemonic(25) // BLT
	MN_CALL  = Mnemonic(26) // CALL
	MN_RET   = Mnemonic(27) // RET
	MN_ASCII = Mnemonic(28) // .ascii
)

// Form is the operand grammar of an instruction.
type Form int

//go:generate go tool stringer -linecomment -type=Form
const (
	FORM_NONE        = Form(0)  // none
	FORM_REG         = Form(1)  // Rx
	FORM_REG_REG     = Form(2)  // Rd, Rs
	FORM_REG_REG_REG = Form(3)  // Rd, Rx, Ry
	FORM_REG_IMM     = Form(4)  // Rd, imm
	FORM_REG_IND     = Form(5)  // Rd, (Rx)
	FORM_IND_REG     = Form(6)  // (Rx), Ry
	FORM_REG_PAIRIND = Form(7)  // Rd, (Rp)
	FORM_PAIRIND_REG = Form(8)  // (Rp), Rs
	FORM_PAIR_IMM    = Form(9)  // Rp, imm
	FORM_PAIR        = Form(10) // Rp
	FORM_LABEL       = Form(11) // label
)

// Arity returns the number of operand values the form carries.
func (form Form) Arity() int {
	switch form {
	case FORM_NONE:
		return 0
	case FORM_REG, FORM_PAIR, FORM_LABEL:
		return 1
	case FORM_REG_REG_REG:
		return 3
	default:
		return 2
	}
}

// Instruction describes the operand grammar and encoding of a mnemonic.
type Instruction struct {
	Opcode uint8 // Leading byte of the encoding.
	Form   Form  // Operand grammar.
	Width  int   // Encoded size, in bytes.

	operands func(args []uint32) uint32 // Operand bits below the opcode byte.
}

// Field masks. Operands wider than their field are silently truncated.
func reg(v uint32) uint32    { return v & 0x3 }
func pair(v uint32) uint32   { return v & 0x1 }
func imm8(v uint32) uint32   { return v & 0xff }
func addr14(v uint32) uint32 { return v & 0x3fff }
func imm16(v uint32) uint32  { return v & 0xffff }

func encodeNone(args []uint32) uint32 {
	return 0
}

func encodeReg(args []uint32) uint32 {
	return reg(args[0])
}

func encodeRegImm8(args []uint32) uint32 {
	return (reg(args[0]) << 8) | imm8(args[1])
}

func encodeRegAddr14(args []uint32) uint32 {
	return (reg(args[0]) << 14) | addr14(args[1])
}

func encodeMov(args []uint32) uint32 {
	return (reg(args[0]) << 2) | reg(args[1])
}

func encodeAlu(args []uint32) uint32 {
	return (reg(args[0]) << 4) | (reg(args[1]) << 2) | reg(args[2])
}

func encodeNot(args []uint32) uint32 {
	return (reg(args[0]) << 4) | (reg(args[1]) << 2)
}

func encodeLdir(args []uint32) uint32 {
	return (reg(args[0]) << 2) | reg(args[1])
}

func encodeStir(args []uint32) uint32 {
	return reg(args[0]) | (reg(args[1]) << 2)
}

func encodeLdirp(args []uint32) uint32 {
	return (reg(args[0]) << 4) | pair(args[1])
}

func encodeStirp(args []uint32) uint32 {
	return pair(args[0]) | (reg(args[1]) << 4)
}

func encodeAddiw(args []uint32) uint32 {
	return (pair(args[0]) << 16) | imm16(args[1])
}

func encodePair(args []uint32) uint32 {
	return pair(args[0])
}

// instructionSet is the complete instruction set, keyed by mnemonic.
var instructionSet = map[Mnemonic]Instruction{
	MN_NOP:   {0x00, FORM_NONE, 1, encodeNone},
	MN_HLT:   {0x01, FORM_NONE, 1, encodeNone},
	MN_LDI:   {0x02, FORM_REG_IMM, 3, encodeRegImm8},
	MN_LD:    {0x03, FORM_REG_IMM, 3, encodeRegAddr14},
	MN_ST:    {0x04, FORM_REG_IMM, 3, encodeRegAddr14},
	MN_MOV:   {0x05, FORM_REG_REG, 2, encodeMov},
	MN_ADD:   {0x06, FORM_REG_REG_REG, 2, encodeAlu},
	MN_ADC:   {0x07, FORM_REG_REG_REG, 2, encodeAlu},
	MN_AND:   {0x08, FORM_REG_REG_REG, 2, encodeAlu},
	MN_JMP:   {0x09, FORM_LABEL, 3, encodeNone},
	MN_OUT:   {0x0a, FORM_REG, 2, encodeReg},
	MN_CPI:   {0x0b, FORM_REG_IMM, 3, encodeRegImm8},
	MN_BEQ:   {0x0c, FORM_LABEL, 3, encodeNone},
	MN_BGT:   {0x0d, FORM_LABEL, 3, encodeNone},
	MN_LDIR:  {0x0e, FORM_REG_IND, 3, encodeLdir},
	MN_STIR:  {0x0f, FORM_IND_REG, 3, encodeStir},
	MN_LDIRP: {0x10, FORM_REG_PAIRIND, 2, encodeLdirp},
	MN_STIRP: {0x11, FORM_PAIRIND_REG, 2, encodeStirp},
	MN_ADDIW: {0x12, FORM_PAIR_IMM, 4, encodeAddiw},
	MN_ADDI:  {0x13, FORM_REG_IMM, 3, encodeRegImm8},
	MN_OUTP:  {0x14, FORM_PAIR, 2, encodePair},
	MN_OUTA:  {0x15, FORM_REG, 2, encodeReg},
	MN_OR:    {0x16, FORM_REG_REG_REG, 2, encodeAlu},
	MN_NOT:   {0x17, FORM_REG_REG, 2, encodeNot},
	MN_XOR:   {0x18, FORM_REG_REG_REG, 2, encodeAlu},
	MN_BLT:   {0x19, FORM_LABEL, 3, encodeNone},
	MN_CALL:  {0x20, FORM_LABEL, 3, encodeNone},
	MN_RET:   {0x21, FORM_NONE, 1, encodeNone},
}

// mnemonicMap maps source text to mnemonics.
var mnemonicMap = map[string]Mnemonic{}

func init() {
	for mn := range instructionSet {
		mnemonicMap[mn.String()] = mn
	}
}

// LookupMnemonic returns the mnemonic spelled by word. Matching is case sensitive.
func LookupMnemonic(word string) (mn Mnemonic, ok bool) {
	mn, ok = mnemonicMap[word]
	return
}

// Instruction returns the instruction definition of the mnemonic.
func (mn Mnemonic) Instruction() (ins Instruction, ok bool) {
	ins, ok = instructionSet[mn]
	return
}

// Code is an encoded instruction, or a run of .ascii data.
type Code struct {
	Mnemonic Mnemonic
	Word     uint32 // Instruction word, stored big-endian in Width() bytes.
	Data     []byte // .ascii data bytes.
}

// Encode encodes a mnemonic with its operand values. Label forms take the
// target address as their single operand.
func Encode(mn Mnemonic, args ...uint32) (code Code, err error) {
	ins, ok := instructionSet[mn]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	arity := ins.Form.Arity()
	if len(args) < arity {
		err = ErrOperandMissing
		return
	}
	if len(args) > arity {
		err = ErrOpcodeExtraArgs
		return
	}

	word := uint32(ins.Opcode) << (8 * (ins.Width - 1))
	if ins.Form == FORM_LABEL {
		word |= imm16(args[0])
	} else {
		word |= ins.operands(args)
	}

	code = Code{Mnemonic: mn, Word: word}

	return
}

// Width returns the encoded size, in bytes.
func (code Code) Width() int {
	if code.Mnemonic == MN_ASCII {
		return len(code.Data)
	}

	ins, ok := instructionSet[code.Mnemonic]
	if !ok {
		return 0
	}

	return ins.Width
}

// Bytes returns the encoded bytes, most significant first.
func (code Code) Bytes() (out []byte) {
	if code.Mnemonic == MN_ASCII {
		return code.Data
	}

	width := code.Width()
	out = make([]byte, width)
	for n := range width {
		out[n] = byte(code.Word >> (8 * (width - 1 - n)))
	}

	return
}

// Target returns the 16-bit address field of a label form instruction.
func (code Code) Target() (addr uint16, ok bool) {
	ins, ok := instructionSet[code.Mnemonic]
	if !ok || ins.Form != FORM_LABEL {
		ok = false
		return
	}

	addr = uint16(code.Word & 0xffff)
	return
}

// String returns the mnemonic and encoded bytes of this code.
func (code Code) String() string {
	return fmt.Sprintf("%v % x", code.Mnemonic.String(), code.Bytes())
}
