// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ezrec/asm8/cpu"
	"github.com/ezrec/asm8/translate"
)

var f = translate.From

var ErrDefineInvalid = errors.New(f("define must be NAME=NUMBER"))

// options are the command line settings of one invocation.
type options struct {
	output  string
	defines []string
	listing string
	symbols bool
	verbose bool
}

// assemble scans every input into a single image, resolves labels once,
// and writes the image only if the whole assembly succeeded.
func assemble(opts *options, inputs []string, stdout io.Writer, logger *log.Logger) (err error) {
	asm := &cpu.Assembler{Verbose: opts.verbose, Logger: logger}

	for _, define := range opts.defines {
		name, value, ok := strings.Cut(define, "=")
		if !ok || len(name) == 0 || asm.Predefine(name, value) != nil {
			err = ErrDefineInvalid
			return
		}
	}

	if len(inputs) == 0 {
		logger.Print(f("no input files"))
		return
	}

	for _, input := range inputs {
		err = scanFile(asm, input)
		if err != nil {
			return
		}
	}

	prog, err := asm.Resolve()
	if err != nil {
		return
	}

	if len(prog.Unknown) != 0 {
		logger.Print(f("%v unknown tokens skipped", len(prog.Unknown)))
	}

	if overlaps := prog.Overlaps(); len(overlaps) != 0 {
		logger.Print(f("%v bytes overwritten, first at %#04x", len(overlaps), overlaps[0]))
	}

	ouf, err := os.Create(opts.output)
	if err != nil {
		return
	}

	n, err := prog.WriteTo(ouf)
	if cerr := ouf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(opts.output)
		return
	}

	translate.Fprintf(stdout, "wrote %v bytes to %v\n", n, opts.output)

	if len(opts.listing) != 0 {
		err = writeListing(prog, opts.listing, stdout)
		if err != nil {
			return
		}
	}

	if opts.symbols {
		printer := pp.New()
		printer.SetOutput(stdout)
		printer.SetColoringEnabled(isTerminal(stdout))
		_, err = printer.Println(prog.Symbols)
	}

	return
}

func scanFile(asm *cpu.Assembler, input string) (err error) {
	inf, err := os.Open(input)
	if err != nil {
		return
	}
	defer inf.Close()

	return asm.Scan(input, inf)
}

func writeListing(prog *cpu.Program, listing string, stdout io.Writer) (err error) {
	if listing == "-" {
		return prog.Listing(stdout)
	}

	ouf, err := os.Create(listing)
	if err != nil {
		return
	}
	defer ouf.Close()

	return prog.Listing(ouf)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && isatty.IsTerminal(file.Fd())
}

func newCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "asm8 [flags] INPUT...",
		Short: "Assembler for the four register 8/16-bit CPU",
		Long: `Asm8 assembles one or more source files into a single 64KiB
memory image. Instructions are placed from address 0x0000, and .ascii
string data from address 0x8000. Branch and call targets are resolved
once every input has been read, so labels may be used before they are
defined, in any input file.
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(cmd.ErrOrStderr(), "asm8: ", 0)
			return assemble(opts, args, cmd.OutOrStdout(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "out.bin", "memory image to write")
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, "NAME=VALUE predefine for $(...) expressions")
	flags.StringVarP(&opts.listing, "listing", "l", "", "listing file to write, or - for stdout")
	flags.BoolVarP(&opts.symbols, "symbols", "s", false, "print the symbol table")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose mode")

	return cmd
}

func main() {
	cmd := newCommand()
	cmd.SetOut(os.Stdout)

	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
