package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/irgen"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/lexer"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/parser"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/riscvgen"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Mode flags. Exactly one must be chosen per run.
var (
	modeKoopa bool
	modeRiscv bool
	modePerf  bool
)

var outputPath string

// ErrUsage indicates the command line did not select a valid mode
var ErrUsage = errors.New("invalid usage")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// The judge passes single-dash mode flags; normalize them to
	// double-dash for pflag compatibility.
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// modeFlagNames lists the flags that accept single-dash style
var modeFlagNames = []string{"koopa", "riscv", "perf"}

// normalizeFlags converts single-dash mode flags like -koopa to
// --koopa
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range modeFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	modeKoopa, modeRiscv, modePerf = false, false, false
	outputPath = "a.out"

	rootCmd := &cobra.Command{
		Use:   "compiler <mode> <input> -o <output>",
		Short: "compiler translates SysY source to Koopa IR or RISC-V assembly",
		Long: `compiler is a whole-program SysY compiler. It lowers SysY source
text to Koopa IR, and from Koopa IR to RV32IM RISC-V assembly.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{modeKoopa, modeRiscv, modePerf} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				fmt.Fprintf(errOut, "compiler: exactly one of -koopa, -riscv, -perf must be given\n")
				return ErrUsage
			}
			if len(args) == 0 {
				fmt.Fprintf(errOut, "compiler: no input file\n")
				return ErrUsage
			}
			// -perf is the judge's timing switch; codegen is the same
			// as -riscv.
			toRiscv := modeRiscv || modePerf
			return compile(args[0], outputPath, toRiscv, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&modeKoopa, "koopa", false, "Emit Koopa IR")
	rootCmd.Flags().BoolVar(&modeRiscv, "riscv", false, "Emit RISC-V assembly")
	rootCmd.Flags().BoolVar(&modePerf, "perf", false, "Emit RISC-V assembly (performance judging)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "a.out", "Output file path")

	return rootCmd
}

// compile runs the pipeline on one source file and writes the result
func compile(inputPath, outputPath string, toRiscv bool, errOut io.Writer) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(errOut, "compiler: error reading %s: %v\n", inputPath, err)
		return err
	}

	l := lexer.New(string(source))
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(errOut, "%s: %s\n", inputPath, e)
		}
		return fmt.Errorf("parsing failed with %d errors", len(p.Errors()))
	}

	ir, err := irgen.Generate(program)
	if err != nil {
		fmt.Fprintf(errOut, "compiler: %v\n", err)
		return err
	}

	output := ir
	if toRiscv {
		raw, err := koopa.Parse(ir)
		if err != nil {
			fmt.Fprintf(errOut, "compiler: %v\n", err)
			return err
		}
		output = riscvgen.Generate(raw)
	}

	if err := os.WriteFile(outputPath, []byte(output), 0o644); err != nil {
		fmt.Fprintf(errOut, "compiler: error writing %s: %v\n", outputPath, err)
		return err
	}
	return nil
}
