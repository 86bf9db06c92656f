package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

const (
	historyFile = ".formulacalc_history"
	replHelp    = `Enter a formula such as =SUM(A1:A3) or 1+2.
  :sheet <name>   evaluate on another worksheet
  :recalc         recalculate the workbook
  :quit           exit
`
)

func (a *app) cmdRepl(args []string) int {
	var opts options
	fs := a.flags("repl", &opts)
	if err := fs.Parse(args); err != nil {
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
	if err := src.recalculate(); err != nil {
		logger.Warn().Err(err).Msg("workbook has failing formulas")
	}

	session := &replSession{app: a, engine: engine, src: src, sheet: src.sheet(opts.sheet)}
	if !liner.TerminalSupported() {
		if err := session.run(a.stdin); err != nil {
			return a.fail(err)
		}
		return 0
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprint(a.stdout, replHelp)
	for {
		line, err := ln.Prompt(session.sheet + "> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(a.stdout)
			return 0
		}
		if err != nil {
			return a.fail(err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if session.handle(line) {
			return 0
		}
	}
}

// replSession evaluates REPL input, from the line editor or from a plain
// reader when the terminal cannot be driven
type replSession struct {
	app    *app
	engine *formula.Engine
	src    source
	sheet  string
}

// handle runs one line of input and reports whether the session ends
func (s *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	command, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(command) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprint(s.app.stdout, replHelp)
		return false
	case ":sheet":
		if arg = strings.TrimSpace(arg); arg == "" {
			fmt.Fprintln(s.app.stdout, s.sheet)
		} else {
			s.sheet = arg
		}
		return false
	case ":recalc":
		if err := s.src.recalculate(); err != nil {
			fmt.Fprintln(s.app.stderr, err)
		}
		return false
	}
	if strings.HasPrefix(command, ":") {
		fmt.Fprintf(s.app.stderr, "unknown command %s, type :help\n", command)
		return false
	}

	result, err := s.engine.Calculate(s.src, line, formula.CellAddress{Worksheet: s.sheet})
	if err != nil {
		fmt.Fprintln(s.app.stderr, err)
		return false
	}
	printResult(s.app.stdout, result)
	return false
}

// run feeds every line of r through the session
func (s *replSession) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		if s.handle(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}
