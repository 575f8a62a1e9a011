package report

import (
	"fmt"
	"net/http"

	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type reportRow struct {
	label string
	value interface{}
}

func reportRows(income, cash, card, expense decimal.Decimal,
	newMembers, totalMembers, checkIns, expiringSoon, attended, male, female int64) []reportRow {
	return []reportRow{
		{"Total income", income.StringFixed(2)},
		{"Cash income", cash.StringFixed(2)},
		{"Card income", card.StringFixed(2)},
		{"Expenses", expense.StringFixed(2)},
		{"New members", newMembers},
		{"Total active members", totalMembers},
		{"Check-ins", checkIns},
		{"Expiring soon", expiringSoon},
		{"Members who attended", attended},
		{"Male members", male},
		{"Female members", female},
	}
}

// writeWorkbook streams a one-sheet xlsx rendering of a report.
func (h *Handler) writeWorkbook(w http.ResponseWriter, filename, title, period string, rows []reportRow) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", title)
	f.SetCellValue(sheet, "B1", period)
	f.SetCellValue(sheet, "A2", "Metric")
	f.SetCellValue(sheet, "B2", "Value")

	for i, row := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+3), row.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+3), row.value)
	}
	f.SetColWidth(sheet, "A", "A", 24)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(w); err != nil {
		utils.LogError(utils.GetLogger(), "report", "writeWorkbook", filename, nil, err)
	}
}
