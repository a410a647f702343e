package repository

import (
	"context"
	"testing"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T, repo *MemoryLedgerRepo) {
	ctx := context.Background()
	for _, rt := range []string{"01", "02", "02", "03"} {
		require.NoError(t, repo.CreateTransaction(ctx, &domain.Transaction{Type: domain.TransactionIncome, Amount: 1000, Subdivision: rt}))
		require.NoError(t, repo.CreateReport(ctx, &domain.IncidentReport{Kind: "Kebakaran", Status: domain.ReportStatusPending, Subdivision: rt}))
		require.NoError(t, repo.CreateLetter(ctx, &domain.LetterRequest{NationalID: "3201000000000001", Status: domain.LetterStatusPending, Subdivision: rt}))
		require.NoError(t, repo.CreateDues(ctx, &domain.DuesRecord{Amount: 1000, Status: domain.DuesStatusPending, Subdivision: rt}))
		require.NoError(t, repo.CreateDeposit(ctx, &domain.WasteDeposit{NationalID: "3201000000000001", WeightKg: 1, Subdivision: rt}))
	}
}

func TestMemoryLedger_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLedgerRepo()
	seedLedger(t, repo)

	scope := access.SubdivisionScope("02")

	txs, err := repo.ListTransactions(ctx, scope)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, x := range txs {
		assert.Equal(t, "02", x.Subdivision)
	}

	reports, err := repo.ListReports(ctx, scope)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, x := range reports {
		assert.Equal(t, "02", x.Subdivision)
	}

	letters, err := repo.ListLetters(ctx, scope, "")
	require.NoError(t, err)
	require.Len(t, letters, 2)
	for _, x := range letters {
		assert.Equal(t, "02", x.Subdivision)
	}

	dues, err := repo.ListDues(ctx, scope)
	require.NoError(t, err)
	require.Len(t, dues, 2)
	for _, x := range dues {
		assert.Equal(t, "02", x.Subdivision)
	}

	deposits, err := repo.ListDeposits(ctx, scope)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	for _, x := range deposits {
		assert.Equal(t, "02", x.Subdivision)
	}

	all, err := repo.ListTransactions(ctx, access.AllSubdivisions())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryLedger_ScopedWritesRejectForeignRows(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLedgerRepo()

	tx := &domain.Transaction{Type: domain.TransactionExpense, Amount: 500, Subdivision: "01"}
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	err := repo.DeleteTransaction(ctx, access.SubdivisionScope("02"), tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.DeleteTransaction(ctx, access.SubdivisionScope("01"), tx.ID))
	_, err = repo.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLedger_VerifyDuesOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLedgerRepo()

	d := &domain.DuesRecord{Amount: 25000, Status: domain.DuesStatusPending, Subdivision: "02"}
	require.NoError(t, repo.CreateDues(ctx, d))

	income := &domain.Transaction{Type: domain.TransactionIncome, Category: domain.DuesCategory, Amount: 25000, Subdivision: "02"}
	require.NoError(t, repo.VerifyDues(ctx, access.SubdivisionScope("02"), d.ID, income))
	assert.ErrorIs(t, repo.VerifyDues(ctx, access.SubdivisionScope("02"), d.ID, &domain.Transaction{}), ErrStale)

	txs, err := repo.ListTransactions(ctx, access.AllSubdivisions())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.DuesCategory, txs[0].Category)

	got, err := repo.GetDues(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DuesStatusVerified, got.Status)
}

func TestMemoryLedger_DepositsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLedgerRepo()
	for _, nik := range []string{"A", "B", "C"} {
		require.NoError(t, repo.CreateDeposit(ctx, &domain.WasteDeposit{NationalID: nik, Subdivision: "01"}))
	}
	got, err := repo.ListDeposits(ctx, access.AllSubdivisions())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].NationalID)
	assert.Equal(t, "C", got[2].NationalID)
}

func TestMemoryPeople_InsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPeopleRepo()

	require.NoError(t, repo.InsertPeople(ctx, []*domain.Person{{NationalID: "1", FamilyCardNumber: "K", Subdivision: "01"}}))

	err := repo.InsertPeople(ctx, []*domain.Person{
		{NationalID: "2", Subdivision: "01"},
		{NationalID: "1", Subdivision: "01"},
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// all-or-nothing: "2" was not written
	ok, err := repo.ExistsBy(ctx, FieldNationalID, "2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ExistsBy(ctx, FieldFamilyCardNumber, "K")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryPeople_UpsertCollapsesOnNationalID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPeopleRepo()

	require.NoError(t, repo.UpsertPeople(ctx, []*domain.Person{{NationalID: "1", FullName: "Old", Subdivision: "01", FamilyCardPhotoRef: "kk.jpg"}}))
	require.NoError(t, repo.UpsertPeople(ctx, []*domain.Person{{NationalID: "1", FullName: "New", Subdivision: "01"}}))

	people, err := repo.ListPeople(ctx, access.AllSubdivisions(), PeopleFilter{})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "New", people[0].FullName)
	assert.Equal(t, "kk.jpg", people[0].FamilyCardPhotoRef)
}

func TestMemoryPeople_ScopeAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPeopleRepo()
	require.NoError(t, repo.InsertPeople(ctx, []*domain.Person{
		{NationalID: "1", FullName: "Budi", Subdivision: "01"},
		{NationalID: "2", FullName: "Siti", Subdivision: "02"},
		{NationalID: "3", FullName: "Budiman", Subdivision: "02"},
		{NationalID: "4", FullName: "Wati", HouseNumber: "B-12", Subdivision: "02"},
	}))

	got, err := repo.ListPeople(ctx, access.SubdivisionScope("02"), PeopleFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "02", p.Subdivision)
	}

	got, err = repo.ListPeople(ctx, access.AllSubdivisions(), PeopleFilter{Search: "budi"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.ListPeople(ctx, access.AllSubdivisions(), PeopleFilter{Search: "b-12"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Wati", got[0].FullName)

	p, err := repo.GetByNationalID(ctx, "1")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.DeletePerson(ctx, access.SubdivisionScope("02"), p.ID), ErrNotFound)
	p.FullName = "Budi S."
	assert.ErrorIs(t, repo.UpdatePerson(ctx, access.SubdivisionScope("02"), p), ErrNotFound)
	require.NoError(t, repo.UpdatePerson(ctx, access.SubdivisionScope("01"), p))
}

func TestMemoryAdmin_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAdminRolesRepo()
	rt := "02"
	u := &domain.AdminUser{Email: "Bendahara@Warga.Local", PasswordHash: []byte("h")}
	require.NoError(t, repo.UpsertAdmin(ctx, u, &domain.AdminRole{Role: "treasurer", SubdivisionCode: &rt}))
	require.NotEmpty(t, u.UserID)

	got, err := repo.GetAdminUserByEmail(ctx, "bendahara@warga.local")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	role, err := repo.GetAdminRole(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "treasurer", role.Role)
	require.NotNil(t, role.SubdivisionCode)
	assert.Equal(t, "02", *role.SubdivisionCode)

	_, err = repo.GetAdminRole(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
