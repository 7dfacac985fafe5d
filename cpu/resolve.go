package cpu

import (
	"errors"
	"maps"
	"slices"
)

// Resolve patches every pending fixup with the address of its label and
// returns the assembled program. Every undefined label is reported; if any
// is missing the session fails and no program is returned.
func (asm *Assembler) Resolve() (prog *Program, err error) {
	asm.init()

	if asm.State != STATE_SCANNING {
		err = ErrState
		return
	}

	asm.State = STATE_RESOLVING

	var errs []error
	for _, fixup := range asm.Fixup {
		addr, ok := asm.Label[fixup.Label]
		if !ok {
			errs = append(errs, ErrSyntax{
				File:   fixup.File,
				LineNo: fixup.LineNo,
				Err:    ErrLabelMissing(fixup.Label),
			})
			continue
		}

		op := &asm.Opcode[fixup.opcode]
		asm.logf("resolving %v to '%v' at offset %#04x → %#04x", op.Code.Mnemonic, fixup.Label, fixup.Offset, addr)

		err = asm.Image.PutUint16(fixup.Offset+1, addr)
		if err != nil {
			errs = append(errs, ErrSyntax{File: fixup.File, LineNo: fixup.LineNo, Err: err})
			continue
		}
		op.Code.Word = (op.Code.Word &^ 0xffff) | uint32(addr)
	}

	if len(errs) != 0 {
		asm.State = STATE_FAILED
		err = errors.Join(errs...)
		return
	}

	asm.State = STATE_DONE

	image := asm.Image
	prog = &Program{
		Image:   &image,
		Symbols: maps.Clone(asm.Label),
		Opcodes: slices.Clone(asm.Opcode),
		Unknown: slices.Clone(asm.Unknown),
	}

	return
}
