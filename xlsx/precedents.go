package xlsx

import (
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/xuri/efp"
)

// Precedents lists the range operands of a formula: the cells and blocks
// it reads, resolved against sheet, and the defined names it mentions.
// structured table references are skipped.
func Precedents(text, sheet string) (refs []formula.RangeAddress, names []string) {
	ps := efp.ExcelParser()
	for _, token := range ps.Parse(strings.TrimPrefix(text, "=")) {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		operand := token.TValue
		if strings.Contains(operand, "[") {
			continue
		}
		if ref, err := formula.ParseRangeAddress(operand, sheet); err == nil {
			refs = append(refs, ref)
			continue
		}
		names = append(names, operand)
	}
	return refs, names
}
