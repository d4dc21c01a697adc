package main

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/irgen"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/lexer"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/parser"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/riscvgen"
)

// E2ETestSpec represents a single end-to-end test case
type E2ETestSpec struct {
	Name           string   `yaml:"name"`
	Input          string   `yaml:"input"`
	ExpectKoopa    []string `yaml:"expect_koopa"`
	ExpectNotKoopa []string `yaml:"expect_not_koopa"`
	ExpectRiscv    []string `yaml:"expect_riscv"`
	Skip           string   `yaml:"skip,omitempty"`
}

// E2ETestFile represents the e2e.yaml file structure
type E2ETestFile struct {
	Tests []E2ETestSpec `yaml:"tests"`
}

func compilePipeline(t *testing.T, source string) (string, string) {
	t.Helper()
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	ir, err := irgen.Generate(program)
	if err != nil {
		t.Fatalf("irgen error: %v", err)
	}
	raw, err := koopa.Parse(ir)
	if err != nil {
		t.Fatalf("koopa parse error: %v\nIR was:\n%s", err, ir)
	}
	return ir, riscvgen.Generate(raw)
}

func TestEndToEnd(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e.yaml")
	if err != nil {
		t.Fatalf("e2e.yaml not found: %v", err)
	}
	var testFile E2ETestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e.yaml: %v", err)
	}
	if len(testFile.Tests) == 0 {
		t.Fatal("no test cases loaded")
	}

	for _, spec := range testFile.Tests {
		t.Run(spec.Name, func(t *testing.T) {
			if spec.Skip != "" {
				t.Skip(spec.Skip)
			}
			ir, asm := compilePipeline(t, spec.Input)

			for _, want := range spec.ExpectKoopa {
				if !strings.Contains(ir, want) {
					t.Errorf("expected %q in Koopa IR:\n%s", want, ir)
				}
			}
			for _, not := range spec.ExpectNotKoopa {
				if strings.Contains(ir, not) {
					t.Errorf("expected %q to be absent from Koopa IR:\n%s", not, ir)
				}
			}
			for _, want := range spec.ExpectRiscv {
				if !strings.Contains(asm, want) {
					t.Errorf("expected %q in assembly:\n%s", want, asm)
				}
			}
		})
	}
}

// TestEveryEmittedProgramLoads feeds each case's IR back through the
// loader, so the frontend only ever emits what the backend accepts.
func TestEveryEmittedProgramLoads(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e.yaml")
	if err != nil {
		t.Fatalf("e2e.yaml not found: %v", err)
	}
	var testFile E2ETestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e.yaml: %v", err)
	}

	for _, spec := range testFile.Tests {
		t.Run(spec.Name, func(t *testing.T) {
			p := parser.New(lexer.New(spec.Input))
			program := p.ParseProgram()
			if len(p.Errors()) > 0 {
				t.Fatalf("parser errors: %v", p.Errors())
			}
			ir, err := irgen.Generate(program)
			if err != nil {
				t.Fatalf("irgen error: %v", err)
			}
			raw, err := koopa.Parse(ir)
			if err != nil {
				t.Fatalf("generated IR does not load: %v\n%s", err, ir)
			}
			for _, fn := range raw.Funcs {
				if len(fn.Blocks) == 0 {
					continue
				}
				if len(fn.Blocks[0].Insts) == 0 && len(fn.Blocks) == 1 {
					t.Errorf("function %s has no instructions", fn.Name)
				}
			}
		})
	}
}
