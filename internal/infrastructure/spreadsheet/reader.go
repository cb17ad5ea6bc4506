package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadTable loads the first worksheet. The first non-empty row becomes the
// header row; cells are read raw so dates arrive as Excel serials.
func (r *Reader) ReadTable(src io.Reader) (domain.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return domain.Table{}, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return domain.Table{}, domain.WrapError(domain.ErrInvalidInput, "read workbook", fmt.Errorf("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, domain.WrapError(domain.ErrInvalidInput, "read sheet "+sheet, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !blank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return domain.Table{Name: sheet}, nil
	}

	data := rows[headerIdx+1:]
	for len(data) > 0 && blank(data[len(data)-1]) {
		data = data[:len(data)-1]
	}

	return domain.Table{
		Name:     sheet,
		Headers:  rows[headerIdx],
		Rows:     data,
		FirstRow: headerIdx + 2,
	}, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
