// Package table renders tabular command output.
package table

import (
	"strings"

	"github.com/pterm/pterm"
)

// PrintTableNoPad renders data without the blank line pterm puts around
// tables. Cells are trimmed and empty cells shown as "-".
func PrintTableNoPad(data pterm.TableData, withHeader bool) {
	for i, row := range data {
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				cell = "-"
			}
			data[i][j] = cell
		}
	}
	out, err := pterm.DefaultTable.WithHasHeader(withHeader).WithData(data).Srender()
	if err != nil {
		pterm.Error.Println(err)
		return
	}
	pterm.Println(strings.TrimRight(out, "\n"))
}

// PropertyRows starts a two-column Property/Value table.
func PropertyRows() pterm.TableData {
	return pterm.TableData{{"Property", "Value"}}
}
