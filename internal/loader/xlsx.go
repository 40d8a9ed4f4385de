package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) Format() string { return "xlsx" }

func (xlsxLoader) Extensions() []string { return []string{".xlsx"} }

// Load reads the selected sheet (the first one by default). The first row is
// the header; cells are typed like CSV cells.
func (xlsxLoader) Load(data []byte, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet %q not found (available: %s)", opt.Sheet, strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	header := rows[0]
	records := rows[1:]
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+1, len(header), len(rec))
		}
	}
	return fromRecords(header, records), nil
}
