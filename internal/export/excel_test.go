package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestPeopleWorkbook_HeadFirstPerFamily(t *testing.T) {
	people := []*domain.Person{
		{NationalID: "3", FamilyCardNumber: "KK2", FullName: "Anak", Role: domain.FamilyRoleChild, Subdivision: "01"},
		{NationalID: "1", FamilyCardNumber: "KK1", FullName: "Istri", Role: domain.FamilyRoleSpouse, Subdivision: "01"},
		{NationalID: "2", FamilyCardNumber: "KK1", FullName: "Bapak", Role: domain.FamilyRoleHead, Subdivision: "01"},
	}
	data, err := PeopleWorkbook(people)
	require.NoError(t, err)

	rows := readRows(t, data, "Data Warga")
	require.Len(t, rows, 4)
	assert.Equal(t, PeopleHeader[0], rows[0][0])
	assert.Equal(t, "Bapak", rows[1][2])
	assert.Equal(t, "Istri", rows[2][2])
	assert.Equal(t, "KK2", rows[3][0])
}

func TestFinanceWorkbook_NewestFirstWithTotals(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []*domain.Transaction{
		{Type: domain.TransactionIncome, Category: "Iuran Warga", Amount: 100000, CreatedAt: day},
		{Type: domain.TransactionExpense, Category: "Kebersihan", Amount: 40000, CreatedAt: day.AddDate(0, 0, 2)},
	}
	data, err := FinanceWorkbook(txs)
	require.NoError(t, err)

	rows := readRows(t, data, "Keuangan")
	assert.Equal(t, "2026-03-03", rows[1][0])
	assert.Equal(t, "Kebersihan", rows[1][2])
	assert.Equal(t, "2026-03-01", rows[2][0])

	last := rows[len(rows)-1]
	assert.Equal(t, "Saldo", last[0])
	assert.Equal(t, "60000", last[3])
}

func TestPeopleWorkbook_Empty(t *testing.T) {
	data, err := PeopleWorkbook(nil)
	require.NoError(t, err)
	rows := readRows(t, data, "Data Warga")
	assert.Len(t, rows, 1)
}
