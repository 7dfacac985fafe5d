package cpu

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/ezrec/asm8/internal"
)

// Opcode is an emitted instruction or .ascii record, with its source location.
type Opcode struct {
	File      string
	LineNo    int
	Ip        int      // Address of the first byte.
	Words     []string // Source words.
	Code      Code
	LinkLabel string // Branch or call target, if any.
}

// All iterates over the address and value of every byte of the opcode.
func (op *Opcode) All() iter.Seq2[uint16, byte] {
	return func(yield func(ip uint16, value byte) bool) {
		for n, value := range op.Code.Bytes() {
			if !yield(uint16(op.Ip+n), value) {
				return
			}
		}
	}
}

// Program is the result of a successful assembly.
type Program struct {
	Image   *Image            // Complete memory image.
	Symbols map[string]uint16 // Label addresses.
	Opcodes []Opcode          // Emitted records, in source order.
	Unknown []ErrUnknownToken // Tokens skipped during the scan.
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode covering an address.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+op.Code.Width() {
			index := int(ip) - op.Ip
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  index,
			}
			break
		}
	}

	return
}

// Binary returns the memory image contents.
func (prog *Program) Binary() []byte {
	return prog.Image[:]
}

// WriteTo writes the whole memory image to w.
func (prog *Program) WriteTo(w io.Writer) (n int64, err error) {
	return prog.Image.WriteTo(w)
}

// Codes iterates over every emitted byte, in source order.
func (prog *Program) Codes() iter.Seq2[uint16, byte] {
	seqs := make([]iter.Seq2[uint16, byte], 0, len(prog.Opcodes))
	for n := range prog.Opcodes {
		seqs = append(seqs, prog.Opcodes[n].All())
	}

	return internal.IterSeq2Concat(seqs...)
}

// Overlaps returns the addresses, in ascending order, written by more than
// one emitted record. Only the last write survives in the image.
func (prog *Program) Overlaps() (addrs []uint16) {
	count := map[uint16]int{}
	for ip := range prog.Codes() {
		count[ip]++
		if count[ip] == 2 {
			addrs = append(addrs, ip)
		}
	}

	slices.Sort(addrs)
	return
}

// Listing writes an address and byte listing of the program. Branches and
// calls are annotated with their resolved target.
func (prog *Program) Listing(w io.Writer) (err error) {
	for _, op := range prog.Opcodes {
		var data []byte
		for _, value := range op.All() {
			data = append(data, value)
		}

		line := fmt.Sprintf("%v:%d\t%04x: %-12s %v",
			op.File, op.LineNo, op.Ip,
			fmt.Sprintf("% x", data),
			strings.Join(op.Words, " "))
		if target, ok := op.Code.Target(); ok {
			line += fmt.Sprintf("\t; %v = %04x", op.LinkLabel, target)
		}

		_, err = fmt.Fprintln(w, line)
		if err != nil {
			return
		}
	}

	return
}
