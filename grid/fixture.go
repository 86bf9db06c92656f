package grid

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"gopkg.in/yaml.v3"
)

// fixture is the YAML layout of a workbook:
//
//	sheets:
//	  Sheet1:
//	    A1: 10
//	    A2: "=A1*2"
//	names:
//	  Rate: "Sheet1!$A$1"
//	tables:
//	  Sales: "Sheet1!A1:C20"
//
// sheets and cells keep document order.
type fixture struct {
	Sheets yaml.Node         `yaml:"sheets"`
	Names  map[string]string `yaml:"names"`
	Tables map[string]string `yaml:"tables"`
}

// LoadYAML builds a workbook from a YAML fixture. formulas are stored but
// not calculated; call Calculate on the result.
func LoadYAML(r io.Reader, opts ...Option) (*Workbook, error) {
	var f fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, wrapApplicationError(InvalidArgument, "decode workbook", err)
	}

	w := New(opts...)
	if err := w.loadSheets(&f.Sheets); err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(f.Names) {
		if err := w.DefineName(name, f.Names[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(f.Tables) {
		if err := w.AddTable(name, f.Tables[name]); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Workbook) loadSheets(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("line %d: sheets must be a mapping", node.Line))
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		sheet, cells := node.Content[i].Value, node.Content[i+1]
		if err := w.AddWorksheet(sheet); err != nil {
			return err
		}
		if cells.Kind == yaml.ScalarNode && cells.ShortTag() == "!!null" {
			continue
		}
		if cells.Kind != yaml.MappingNode {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("line %d: cells of %q must be a mapping", cells.Line, sheet))
		}

		for j := 0; j+1 < len(cells.Content); j += 2 {
			ref, valueNode := cells.Content[j].Value, cells.Content[j+1]
			var value any
			if valueNode.ShortTag() == "!!timestamp" {
				// plain dates decode to strings when the target is any
				var ts time.Time
				if err := valueNode.Decode(&ts); err != nil {
					return wrapApplicationError(InvalidArgument, fmt.Sprintf("line %d", valueNode.Line), err)
				}
				value = ts
			} else if err := valueNode.Decode(&value); err != nil {
				return wrapApplicationError(InvalidArgument, fmt.Sprintf("line %d", valueNode.Line), err)
			}
			if value == nil {
				continue
			}
			if err := w.Set(formula.QuoteSheetName(sheet)+"!"+ref, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
