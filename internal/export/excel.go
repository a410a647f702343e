package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/household"

	"github.com/xuri/excelize/v2"
)

// PeopleHeader 居民导出表头
var PeopleHeader = []string{
	"No. KK",
	"NIK",
	"Nama Lengkap",
	"Peran",
	"Jenis Kelamin",
	"Tempat Lahir",
	"Tanggal Lahir",
	"Agama",
	"Pekerjaan",
	"Status Perkawinan",
	"Golongan Darah",
	"RT",
	"RW",
	"Alamat",
	"No. Rumah",
	"Status Tinggal",
	"No. HP",
}

// FinanceHeader 财务导出表头
var FinanceHeader = []string{"Tanggal", "Jenis", "Kategori", "Nominal", "Keterangan", "RT"}

// PeopleWorkbook writes people ordered by family card, head first.
func PeopleWorkbook(people []*domain.Person) ([]byte, error) {
	rows := make([][]any, 0, len(people))
	for _, p := range household.SortForDisplay(people) {
		birth := ""
		if p.BirthDate != nil {
			birth = p.BirthDate.Format("2006-01-02")
		}
		rows = append(rows, []any{
			p.FamilyCardNumber, p.NationalID, p.FullName, string(p.Role), p.Sex,
			p.BirthPlace, birth, p.Religion, p.Occupation, p.MaritalStatus, p.BloodType,
			p.Subdivision, p.Block, p.Address, p.HouseNumber, p.ResidencyStatus, p.Phone,
		})
	}
	widths := []float64{20, 20, 28, 18, 14, 16, 14, 12, 18, 18, 10, 6, 6, 32, 10, 14, 16}
	return writeSheet("Data Warga", PeopleHeader, widths, rows, nil)
}

// FinanceWorkbook writes transactions newest first followed by the totals.
func FinanceWorkbook(txs []*domain.Transaction) ([]byte, error) {
	sorted := make([]*domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	rows := make([][]any, 0, len(sorted))
	for _, t := range sorted {
		rows = append(rows, []any{
			t.CreatedAt.Format("2006-01-02"), string(t.Type), t.Category, t.Amount, t.Note, t.Subdivision,
		})
	}
	s := domain.Summarize(txs)
	footer := [][]any{
		{},
		{"Total Pemasukan", "", "", s.Income},
		{"Total Pengeluaran", "", "", s.Expense},
		{"Saldo", "", "", s.Balance},
	}
	return writeSheet("Keuangan", FinanceHeader, []float64{14, 14, 20, 16, 36, 6}, rows, footer)
}

func writeSheet(sheetName string, headers []string, widths []float64, rows, footer [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; close explicitly on every path

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E2EFDA"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 数据从第 2 行开始
	all := append(append([][]any{}, rows...), footer...)
	for r, values := range all {
		for c, v := range values {
			if v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
