package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/formula/grid"
	"github.com/vogtb/go-spreadsheet/packages/formula/xlsx"
)

// source is a workbook formulas are evaluated against
type source interface {
	formula.DataProvider
	sheet(name string) string
	recalculate() error
	formulaCells() []formula.CellAddress
	Close() error
}

// openSource loads a workbook by file extension. an empty path gives an
// empty workbook with one worksheet.
func openSource(path string, engine *formula.Engine, logger zerolog.Logger) (source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case path == "":
		w := grid.New(grid.WithEngine(engine), grid.WithLogger(logger))
		if err := w.AddWorksheet("Sheet1"); err != nil {
			return nil, err
		}
		return gridSource{w}, nil
	case ext == ".yaml" || ext == ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		w, err := grid.LoadYAML(f, grid.WithEngine(engine), grid.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return gridSource{w}, nil
	case ext == ".xlsx" || ext == ".xlsm":
		p, err := xlsx.Open(path, xlsx.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return xlsxSource{Provider: p, engine: engine}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported workbook type %q", path, ext)
	}
}

type gridSource struct {
	*grid.Workbook
}

func (s gridSource) sheet(name string) string {
	if name != "" {
		return name
	}
	if sheets := s.ListWorksheets(); len(sheets) > 0 {
		return sheets[0]
	}
	return "Sheet1"
}

func (s gridSource) recalculate() error {
	return s.Calculate()
}

func (s gridSource) formulaCells() []formula.CellAddress {
	return s.FormulaCells()
}

func (s gridSource) Close() error {
	return nil
}

type xlsxSource struct {
	*xlsx.Provider
	engine *formula.Engine
}

func (s xlsxSource) sheet(name string) string {
	if name != "" {
		return name
	}
	if sheets := s.Sheets(); len(sheets) > 0 {
		return sheets[0]
	}
	return "Sheet1"
}

func (s xlsxSource) recalculate() error {
	return s.Recalculate(s.engine)
}

func (s xlsxSource) formulaCells() []formula.CellAddress {
	var result []formula.CellAddress
	for _, sheet := range s.Sheets() {
		result = append(result, s.FormulaCells(sheet)...)
	}
	return result
}
