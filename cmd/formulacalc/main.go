// Command formulacalc evaluates spreadsheet formulas against a workbook
// described in YAML or stored as .xlsx.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

const appName = "formulacalc"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	cmd := os.Args[1]
	switch cmd {
	case "eval":
		os.Exit(a.cmdEval(os.Args[2:]))
	case "cell":
		os.Exit(a.cmdCell(os.Args[2:]))
	case "recalc":
		os.Exit(a.cmdRecalc(os.Args[2:]))
	case "repl":
		os.Exit(a.cmdRepl(os.Args[2:]))
	case "-h", "--help", "help":
		usage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  %s eval [flags] <formula>     Evaluate a formula, e.g. "=SUM(A1:A3)"
  %s cell [flags] <address>     Print the value of a cell after recalculation
  %s recalc [flags]             Recalculate and list every formula cell
  %s repl [flags]               Evaluate formulas interactively

Flags:
  -workbook path   .yaml/.yml fixture or .xlsx workbook
  -sheet name      worksheet formulas are evaluated on
  -config path     YAML engine config (max_depth, cache_size, log_level)
  -v               debug logging
`, appName, appName, appName, appName)
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// options are the flags every command shares
type options struct {
	workbook string
	sheet    string
	config   string
	verbose  bool
}

func (a *app) flags(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(appName+" "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&opts.workbook, "workbook", "", "workbook file (.yaml, .yml or .xlsx)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet to evaluate on (default: the first one)")
	fs.StringVar(&opts.config, "config", "", "engine config file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	return fs
}

// engine builds the engine and logger from the config file and flags
func (a *app) engine(opts options) (*formula.Engine, zerolog.Logger, error) {
	cfg := formula.DefaultConfig()
	if opts.config != "" {
		loaded, err := formula.LoadConfig(opts.config)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		cfg = loaded
	}
	if opts.verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}

	logger := cfg.Logger(zerolog.ConsoleWriter{Out: a.stderr, NoColor: true})
	return formula.New(cfg.Options(logger)...), logger, nil
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "%s: %v\n", appName, err)
	return 1
}

func (a *app) cmdEval(args []string) int {
	var opts options
	fs := a.flags("eval", &opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(a.stderr, "usage: %s eval [flags] <formula>\n", appName)
		return 2
	}

	engine, logger, err := a.engine(opts)
	if err != nil {
		return a.fail(err)
	}
	src, err := openSource(opts.workbook, engine, logger)
	if err != nil {
		return a.fail(err)
	}
	defer src.Close()

	origin := formula.CellAddress{Worksheet: src.sheet(opts.sheet)}
	result, err := engine.Calculate(src, fs.Arg(0), origin)
	if err != nil {
		return a.fail(err)
	}
	printResult(a.stdout, result)
	return 0
}

func (a *app) cmdCell(args []string) int {
	var opts options
	fs := a.flags("cell", &opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(a.stderr, "usage: %s cell [flags] <address>\n", appName)
		return 2
	}

	engine, logger, err := a.engine(opts)
	if err != nil {
		return a.fail(err)
	}
	src, err := openSource(opts.workbook, engine, logger)
	if err != nil {
		return a.fail(err)
	}
	defer src.Close()

	addr, err := formula.ParseCellAddress(fs.Arg(0), src.sheet(opts.sheet))
	if err != nil {
		return a.fail(err)
	}
	// failures are stored in the failing cells as errors
	_ = src.recalculate()
	result, err := engine.EvaluateCell(src, addr)
	if err != nil {
		return a.fail(err)
	}
	printResult(a.stdout, result)
	return 0
}

func (a *app) cmdRecalc(args []string) int {
	var opts options
	fs := a.flags("recalc", &opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.workbook == "" {
		fmt.Fprintf(a.stderr, "usage: %s recalc -workbook <path> [flags]\n", appName)
		return 2
	}

	engine, logger, err := a.engine(opts)
	if err != nil {
		return a.fail(err)
	}
	src, err := openSource(opts.workbook, engine, logger)
	if err != nil {
		return a.fail(err)
	}
	defer src.Close()

	calcErr := src.recalculate()
	for _, addr := range src.formulaCells() {
		result, err := engine.EvaluateCell(src, addr)
		if err != nil {
			result = formula.NewErrorResultf(formula.ErrorCodeValue, err.Error())
		}
		fmt.Fprintf(a.stdout, "%s\t", addr)
		printResult(a.stdout, result)
	}
	if calcErr != nil {
		for _, line := range strings.Split(calcErr.Error(), "\n") {
			fmt.Fprintf(a.stderr, "%s: %s\n", appName, line)
		}
		return 1
	}
	return 0
}

func printResult(w io.Writer, result formula.CompileResult) {
	fmt.Fprintf(w, "%s\t%s\n", result.DataType, result.Text())
}
