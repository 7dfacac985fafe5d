// Package cpu implements the assembler for the four register, 8/16-bit
// microprocessor.
//
// Source text is consumed one token at a time. Each recognised instruction is
// encoded directly into a 64KiB memory image at the code cursor, and .ascii
// string data is placed at a separate data cursor starting at ARENA_DATA.
// Branch and call targets are left as zeroed placeholders and patched by a
// single resolution pass once every input has been scanned.
//
// Numeric operands may be written as compile-time $(...) expressions, which
// can refer to previously defined labels and predefined symbols.
package cpu
