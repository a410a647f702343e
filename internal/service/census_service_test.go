package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	nikA = "1111111111111111"
	nikB = "2222222222222222"
	nikC = "3333333333333333"
	kk1  = "3201000000009999"
	kk2  = "3201000000008888"
)

func newCensus(env *testEnv) CensusService {
	return NewCensusService(env.people, env.access, env.uploader, nil, zap.NewNop())
}

func householdReq(kk, rt string, members ...MemberInput) SubmitHouseholdRequest {
	return SubmitHouseholdRequest{FamilyCardNumber: kk, Subdivision: rt, Block: "05", Members: members}
}

func member(nik, name, role string) MemberInput {
	return MemberInput{NationalID: nik, FullName: name, Role: role, Sex: "Laki-laki"}
}

// ============================================
// Duplicate gate
// ============================================

func TestSubmitHousehold_ExistingNationalIDBlocksInsertUntilConfirmed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)

	// Person A and B already stored in one household
	require.NoError(t, env.people.InsertPeople(ctx, []*domain.Person{
		{NationalID: nikA, FamilyCardNumber: "9999", FullName: "A", Role: domain.FamilyRoleHead, Subdivision: "01"},
		{NationalID: nikB, FamilyCardNumber: "9999", FullName: "B", Role: domain.FamilyRoleChild, Subdivision: "01"},
	}))

	exists, err := svc.CheckExisting(ctx, "national_id", nikA)
	require.NoError(t, err)
	assert.True(t, exists)

	req := householdReq(kk1, "01", member(nikA, "A Baru", "Kepala Keluarga"), member(nikC, "C", "Anak"))
	_, err = svc.SubmitHousehold(ctx, req)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []Conflict{{Field: "national_id", Value: nikA}}, conflict.Conflicts)

	// nothing written on conflict
	all, err := env.people.ListPeople(ctx, access.AllSubdivisions(), repository.PeopleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	req.ConfirmOverwrite = true
	resp, err := svc.SubmitHousehold(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Overwritten)

	all, err = env.people.ListPeople(ctx, access.AllSubdivisions(), repository.PeopleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "overwrite collapses on national_id")

	a, err := env.people.GetByNationalID(ctx, nikA)
	require.NoError(t, err)
	assert.Equal(t, "A Baru", a.FullName)
	assert.Equal(t, kk1, a.FamilyCardNumber)
}

func TestSubmitHousehold_ExistingFamilyCardIsConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)

	_, err := svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga")))
	require.NoError(t, err)

	_, err = svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikB, "B", "Istri")))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "family_card_number", conflict.Conflicts[0].Field)
}

func TestSubmitHousehold_MonotonicGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)

	_, err := svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga")))
	require.NoError(t, err)

	// once a value exists, every later check reports it
	for i := 0; i < 3; i++ {
		exists, err := svc.CheckExisting(ctx, "national_id", nikA)
		require.NoError(t, err)
		assert.True(t, exists)
		_, err = svc.SubmitHousehold(ctx, householdReq(kk2, "01", member(nikA, "A", "Kepala Keluarga")))
		assert.Error(t, err)
	}
}

func TestCheckExisting_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	failing := &failingPeople{PeopleRepository: env.people, err: errors.New("should not be called")}
	svc := NewCensusService(failing, env.access, nil, nil, zap.NewNop())

	for _, v := range []string{"123", "12345678901234567", "12345678901234ab", ""} {
		_, err := svc.CheckExisting(ctx, "national_id", v)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, v)
	}
	_, err := svc.CheckExisting(ctx, "full_name", nikA)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, failing.calls)
}

func TestCheckExisting_StoreFailureIsTransient(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	failing := &failingPeople{PeopleRepository: env.people, err: errors.New("connection refused")}
	svc := NewCensusService(failing, env.access, nil, nil, zap.NewNop())

	exists, err := svc.CheckExisting(ctx, "national_id", nikA)
	var terr *TransientServiceError
	require.ErrorAs(t, err, &terr)
	assert.False(t, exists)

	_, err = svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga")))
	require.ErrorAs(t, err, &terr)
}

func TestSubmitHousehold_RaceLoserGetsConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	// gate reports nothing, the unique index still catches the duplicate
	racy := &blindPeople{PeopleRepository: env.people}
	svc := NewCensusService(racy, env.access, nil, nil, zap.NewNop())

	_, err := svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga")))
	require.NoError(t, err)

	_, err = svc.SubmitHousehold(ctx, householdReq(kk2, "02", member(nikA, "A2", "Kepala Keluarga")))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, nikA, conflict.Conflicts[0].Value)
}

func TestSubmitHousehold_RaceLoserLogsOrphanedPhoto(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	core, logs := observer.New(zap.WarnLevel)
	racy := &blindPeople{PeopleRepository: env.people}
	svc := NewCensusService(racy, env.access, env.uploader, nil, zap.New(core))

	_, err := svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga")))
	require.NoError(t, err)

	req := householdReq(kk2, "02", member(nikA, "A2", "Kepala Keluarga"))
	req.Photo = &Upload{Filename: "kk.jpg", ContentType: "image/jpeg", Body: strings.NewReader("img")}
	_, err = svc.SubmitHousehold(ctx, req)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	require.Len(t, env.uploader.keys, 1)
	orphaned := logs.FilterMessage("Uploaded object orphaned by failed write").All()
	require.Len(t, orphaned, 1)
	assert.Equal(t, "https://files.example.org/"+env.uploader.keys[0], orphaned[0].ContextMap()["object_url"])
}

func TestSubmitHousehold_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newCensus(newTestEnv(t))

	cases := map[string]SubmitHouseholdRequest{
		"short kk":       householdReq("123", "01", member(nikA, "A", "")),
		"no members":     householdReq(kk1, "01"),
		"no subdivision": householdReq(kk1, "", member(nikA, "A", "")),
		"bad nik":        householdReq(kk1, "01", member("12", "A", "")),
		"no name":        householdReq(kk1, "01", member(nikA, " ", "")),
		"dup in request": householdReq(kk1, "01", member(nikA, "A", ""), member(nikA, "B", "")),
		"bad birth date": householdReq(kk1, "01", MemberInput{NationalID: nikA, FullName: "A", BirthDate: "17-08-1990"}),
	}
	for name, req := range cases {
		_, err := svc.SubmitHousehold(ctx, req)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, name)
	}
}

func TestSubmitHousehold_PhotoStoredOnEveryMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)

	req := householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga"), member(nikB, "B", "Anak"))
	req.Photo = &Upload{Filename: "kk.jpg", ContentType: "image/jpeg", Body: strings.NewReader("img")}
	resp, err := svc.SubmitHousehold(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.PhotoURL)
	require.Len(t, env.uploader.keys, 1)

	for _, nik := range []string{nikA, nikB} {
		p, err := env.people.GetByNationalID(ctx, nik)
		require.NoError(t, err)
		assert.Equal(t, resp.PhotoURL, p.FamilyCardPhotoRef)
	}
}

// ============================================
// Scoped admin operations
// ============================================

func seedTwoSubdivisions(t *testing.T, svc CensusService) {
	ctx := context.Background()
	_, err := svc.SubmitHousehold(ctx, householdReq(kk1, "01", member(nikA, "A", "Kepala Keluarga"), member(nikB, "B", "Anak")))
	require.NoError(t, err)
	_, err = svc.SubmitHousehold(ctx, householdReq(kk2, "02", member(nikC, "C", "Istri")))
	require.NoError(t, err)
}

func TestListHouseholds_Scoped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)
	seedTwoSubdivisions(t, svc)

	hs, err := svc.ListHouseholds(ctx, principal(t, access.RoleSubdivisionCoordinator, "02"), repository.PeopleFilter{})
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, kk2, hs[0].Key)
	assert.True(t, hs[0].HeadInferred)
	assert.Equal(t, nikC, hs[0].Head.NationalID)

	hs, err = svc.ListHouseholds(ctx, principal(t, access.RoleTopLevelCoordinator, ""), repository.PeopleFilter{})
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, kk2, hs[0].Key)
	assert.Equal(t, nikA, hs[1].Head.NationalID)
	assert.False(t, hs[1].HeadInferred)
	assert.Len(t, hs[1].Members, 1)

	st, err := svc.Stats(ctx, principal(t, access.RoleSecretary, "01"))
	require.NoError(t, err)
	assert.Equal(t, 2, st.People)
	assert.Equal(t, 1, st.Households)
}

func TestListHouseholds_SearchMatchingChildKeepsRealHead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)

	req := householdReq(kk1, "01", member(nikA, "Ayah Santoso", "Kepala Keluarga"), member(nikB, "Budi Kecil", "Anak"))
	req.HouseNumber = "12B"
	_, err := svc.SubmitHousehold(ctx, req)
	require.NoError(t, err)
	_, err = svc.SubmitHousehold(ctx, householdReq(kk2, "01", member(nikC, "Siti", "Kepala Keluarga")))
	require.NoError(t, err)

	rt01 := principal(t, access.RoleSubdivisionCoordinator, "01")

	hs, err := svc.ListHouseholds(ctx, rt01, repository.PeopleFilter{Search: "Budi"})
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, kk1, hs[0].Key)
	assert.Equal(t, nikA, hs[0].Head.NationalID)
	assert.False(t, hs[0].HeadInferred)
	require.Len(t, hs[0].Members, 1)
	assert.Equal(t, nikB, hs[0].Members[0].NationalID)

	hs, err = svc.ListHouseholds(ctx, rt01, repository.PeopleFilter{Search: "12b"})
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, kk1, hs[0].Key)
	assert.Equal(t, 2, hs[0].Size())
}

func TestUpdateDeletePerson_ScopeViolation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)
	seedTwoSubdivisions(t, svc)

	c, err := env.people.GetByNationalID(ctx, nikC)
	require.NoError(t, err)
	rt01 := principal(t, access.RoleSubdivisionCoordinator, "01")

	var sv *ScopeViolation
	err = svc.DeletePerson(ctx, rt01, c.ID)
	require.ErrorAs(t, err, &sv)

	_, err = svc.UpdatePerson(ctx, rt01, c.ID, PersonInput{MemberInput: member(nikC, "C", "Istri"), Subdivision: "01"})
	require.ErrorAs(t, err, &sv)

	// moving an own record into another subdivision is also outside scope
	a, err := env.people.GetByNationalID(ctx, nikA)
	require.NoError(t, err)
	_, err = svc.UpdatePerson(ctx, rt01, a.ID, PersonInput{MemberInput: member(nikA, "A", "Kepala Keluarga"), Subdivision: "02"})
	require.ErrorAs(t, err, &sv)

	updated, err := svc.UpdatePerson(ctx, rt01, a.ID, PersonInput{MemberInput: member(nikA, "A Updated", "Kepala Keluarga"), FamilyCardNumber: kk1, Subdivision: "01"})
	require.NoError(t, err)
	assert.Equal(t, "A Updated", updated.FullName)

	require.NoError(t, svc.DeletePerson(ctx, principal(t, access.RoleSuperAdministrator, ""), c.ID))
	assert.ErrorIs(t, svc.DeletePerson(ctx, rt01, "missing"), ErrNotFound)
}

func TestCreatePerson_ConflictAndScope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newCensus(env)
	seedTwoSubdivisions(t, svc)
	rt02 := principal(t, access.RoleSecretary, "02")

	_, err := svc.CreatePerson(ctx, rt02, PersonInput{MemberInput: member(nikA, "Dup", ""), Subdivision: "02"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = svc.CreatePerson(ctx, rt02, PersonInput{MemberInput: member("4444444444444444", "D", ""), Subdivision: "01"})
	var sv *ScopeViolation
	require.ErrorAs(t, err, &sv)

	p, err := svc.CreatePerson(ctx, rt02, PersonInput{MemberInput: member("4444444444444444", "D", ""), Subdivision: "02"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	svc := newCensus(newTestEnv(t))
	seedTwoSubdivisions(t, svc)

	got, err := svc.Lookup(ctx, nikC)
	require.NoError(t, err)
	assert.Equal(t, "C", got.FullName)
	assert.Equal(t, "02", got.Subdivision)

	_, err = svc.Lookup(ctx, "9999999999999999")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Lookup(ctx, "99")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExportPeople_Scoped(t *testing.T) {
	ctx := context.Background()
	svc := newCensus(newTestEnv(t))
	seedTwoSubdivisions(t, svc)

	data, err := svc.ExportPeople(ctx, principal(t, access.RoleSubdivisionCoordinator, "01"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

// --- fakes ---

type failingPeople struct {
	repository.PeopleRepository
	err   error
	calls int
}

func (f *failingPeople) ExistsBy(context.Context, repository.IdentityField, string) (bool, error) {
	f.calls++
	return false, f.err
}

func (f *failingPeople) ExistingNationalIDs(context.Context, []string) ([]string, error) {
	f.calls++
	return nil, f.err
}

// blindPeople simulates a concurrent writer landing between the gate and the insert.
type blindPeople struct {
	repository.PeopleRepository
}

func (b *blindPeople) ExistsBy(context.Context, repository.IdentityField, string) (bool, error) {
	return false, nil
}

func (b *blindPeople) ExistingNationalIDs(context.Context, []string) ([]string, error) {
	return []string{}, nil
}
