// Jonesy CLI - runs, checks and assembles jonesy assembly programs.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/jonesy/manifest"
	"github.com/chazu/jonesy/server"
	"github.com/chazu/jonesy/vm"
)

func main() {
	checkOnly := flag.Bool("check", false, "Parse and semantic-check without running")
	disasm := flag.Bool("disasm", false, "Print a listing of the parsed program")
	imageOut := flag.String("o", "", "Assemble to a program image instead of running")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	verbosity := flag.Int("v", 0, "Log verbosity (0-2)")
	noDump := flag.Bool("no-dump", false, "Skip the final machine state dump")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jonesy [options] program.jas\n\n")
		fmt.Fprintf(os.Stderr, "Runs a jonesy assembly program or a .jyb program image.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jonesy prog.jas              # run a program\n")
		fmt.Fprintf(os.Stderr, "  jonesy -check prog.jas       # static checks only\n")
		fmt.Fprintf(os.Stderr, "  jonesy -o prog.jyb prog.jas  # assemble to an image\n")
		fmt.Fprintf(os.Stderr, "  jonesy prog.jyb              # run an image directly\n")
		fmt.Fprintf(os.Stderr, "  jonesy -lsp                  # language server for editors\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fatal(err)
		}
		return
	}

	path := flag.Arg(0)
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	m, err := manifest.Load(filepath.Dir(path))
	if err != nil {
		fatal(err)
	}

	var program []vm.Instruction
	if vm.IsImage(data) {
		program, err = vm.LoadImage(data)
	} else {
		program, err = vm.ParseProgram(string(data))
	}
	if err != nil {
		fatal(err)
	}

	switch {
	case *disasm:
		fmt.Print(vm.Disassemble(program))
		return
	case *checkOnly:
		if err := vm.Check(program); err != nil {
			fatal(err)
		}
		fmt.Println("ok")
		return
	case *imageOut != "":
		if err := vm.Check(program); err != nil {
			fatal(err)
		}
		image, err := vm.SerializeProgram(program)
		if err != nil {
			fatal(err)
		}
		if err := os.WriteFile(*imageOut, image, 0o644); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *imageOut, len(image))
		return
	}

	opts := []vm.Option{vm.WithStackSize(m.Machine.StackSize)}
	if m.Machine.Trace || *verbosity > 1 {
		opts = append(opts, vm.WithTrace(true))
	}

	interp := vm.NewInterpreter(program, opts...)
	code, err := interp.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !*noDump {
			fmt.Print(interp.Memory().Dump())
		}
		os.Exit(1)
	}

	if !*noDump {
		fmt.Print(interp.Memory().Dump())
	}
	fmt.Printf("Process finished with: %d\n", code)
	os.Exit(code & 0xff)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
