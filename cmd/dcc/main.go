// Command dcc decompiles a 16-bit MZ .EXE (or .COM) image into a C-like
// source listing, falling back to a raw disassembly for any procedure
// the pipeline could not reconstruct.
//
// Grounded on original_source/src/dcc.c's main()/initargs(), rendered in
// a cobra-root-command texture generalized to a single-command flag
// surface.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcc-go/dcc/pkg/backend"
	"github.com/dcc-go/dcc/pkg/interact"
	"github.com/dcc-go/dcc/pkg/pipeline"
)

func main() {
	var (
		verbose     bool
		veryVerbose bool
		stat        bool
		memMap      bool
		interactive bool
		asm1        bool
		asm2        bool
		file        string
	)

	root := &cobra.Command{
		Use:   "dcc",
		Short: "Decompile a 16-bit DOS MZ executable into C",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("usage: dcc [options] -f file")
			}
			return run(file, options{
				Verbose:     verbose,
				VeryVerbose: veryVerbose,
				Stat:        stat,
				MemoryMap:   memMap,
				Interactive: interactive,
				Asm1:        asm1,
				Asm2:        asm2,
			})
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	root.Flags().BoolVarP(&veryVerbose, "very-verbose", "V", false, "Very verbose output")
	root.Flags().BoolVarP(&stat, "stat", "s", false, "Statistics summary")
	root.Flags().BoolVarP(&memMap, "memory-map", "m", false, "Memory map")
	root.Flags().BoolVarP(&interactive, "interactive", "i", false, "Enter interactive disassembler")
	root.Flags().BoolVarP(&asm1, "asm1", "a", false, "Assembler output before re-ordering of input code")
	root.Flags().BoolVarP(&asm2, "asm2", "A", false, "Assembler output after re-ordering of input code")
	root.Flags().StringVarP(&file, "file", "f", "", "Filename of the executable")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dcc: %s\n", err)
		os.Exit(1)
	}
}

type options struct {
	Verbose, VeryVerbose, Stat, MemoryMap, Interactive, Asm1, Asm2 bool
}

func run(file string, opts options) error {
	log := logrus.New()
	switch {
	case opts.VeryVerbose:
		log.SetLevel(logrus.DebugLevel)
	case opts.Verbose:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	base := strings.TrimSuffix(file, filepathExt(file))
	asm1Name, asm2Name := base+".a1", base+".a2"
	if opts.Asm1 || opts.Asm2 {
		os.Remove(asm1Name)
		os.Remove(asm2Name)
	}

	var prompt interact.Prompter = interact.NoOp{}
	if opts.Interactive {
		prompt = interact.NewTerminal(os.Stdin, os.Stdout)
	}

	res, err := pipeline.Run(file, pipeline.Options{Prompt: prompt}, log)
	if err != nil {
		return err
	}

	if opts.VeryVerbose {
		for id, p := range res.Procs.Procs {
			log.Debugf("procedure %d %s:\n%# v", id, p.Name, pretty.Formatter(p))
		}
	}

	if opts.Stat {
		printStats(res)
	}
	if opts.MemoryMap {
		printMemoryMap(res)
	}

	if opts.Asm1 {
		if err := writeAsm1(res, asm1Name); err != nil {
			return err
		}
	}
	if opts.Asm2 {
		if err := writeAsm2(res, asm2Name); err != nil {
			return err
		}
	}

	outName := base + ".b"
	out, err := os.Create(outName)
	if err != nil {
		return err
	}
	defer out.Close()

	asm := backend.NewAsmPrinter(res.Image.Bytes)
	emitter := backend.NewEmitter(out, asm)
	emitter.EmitAll(res.Procs, res.Bundles)

	return nil
}

func printStats(res *pipeline.Result) {
	codeBytes, dataBytes := res.Mem.Stats()
	fmt.Printf("Procedures: %d\n", len(res.Procs.Procs))
	fmt.Printf("Code bytes: %d\n", codeBytes)
	fmt.Printf("Data bytes: %d\n", dataBytes)
}

func printMemoryMap(res *pipeline.Result) {
	codeBytes, dataBytes := res.Mem.Stats()
	total := uint(len(res.Image.Bytes))
	fmt.Printf("Memory map: %d bytes total, %d code, %d data, %d unknown\n",
		total, codeBytes, dataBytes, total-codeBytes-dataBytes)
}

func writeAsm1(res *pipeline.Result, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	asm := backend.NewAsmPrinter(res.Image.Bytes)
	for _, p := range res.Procs.Procs {
		if p.IR.Len() == 0 {
			continue
		}
		fmt.Fprintf(f, "; %s\n", p.Name)
		asm.Print(f, p)
	}
	return nil
}

// writeAsm2 walks each procedure's structured block order (its
// reverse-post-order CFG sequence) rather than address order, showing
// the layout the structurer settled on.
func writeAsm2(res *pipeline.Result, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	asm := backend.NewAsmPrinter(res.Image.Bytes)
	for id, p := range res.Procs.Procs {
		g, ok := res.Graphs[id]
		rpo, hasRPO := res.RPO[id]
		if !ok || !hasRPO {
			continue
		}
		fmt.Fprintf(f, "; %s\n", p.Name)
		for _, bi := range rpo {
			b := g.Blocks[bi]
			if b.Length == 0 {
				continue
			}
			start := p.IR.At(g.Seq[b.Start]).Label
			end := p.IR.At(g.Seq[b.Start+b.Length-1]).Label + 1
			asm.PrintRange(f, start, end)
		}
	}
	return nil
}

func filepathExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		if !strings.ContainsAny(name[i:], "/\\") {
			return name[i:]
		}
	}
	return ""
}
