package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactfamilies/internal/database"
	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

type testRepos struct {
	db       *database.DB
	leaders  *repository.LeaderRepository
	families *repository.FamilyRepository
	members  *repository.MemberRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(""))

	return &testRepos{
		db:       db,
		leaders:  repository.NewLeaderRepository(db),
		families: repository.NewFamilyRepository(db),
		members:  repository.NewMemberRepository(db),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func registerAt(t *testing.T, svc *MemberService, at time.Time, input MemberInput) *models.Member {
	t.Helper()
	svc.now = fixedClock(at)
	if input.DateOfBirth == nil {
		input.DateOfBirth = ptr(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	}
	if input.LastName == "" {
		input.LastName = "Test"
	}
	member, err := svc.Register(context.Background(), input)
	require.NoError(t, err)
	return member
}

func TestMemberServiceRegisterAndUpdate(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewMemberService(repos.members, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Register(ctx, MemberInput{FirstName: "Lea", LastName: "Petit"})
	assert.ErrorIs(t, err, ErrBirthDateRequired)

	_, err = svc.Register(ctx, MemberInput{FirstName: "Lea", DateOfBirth: ptr(time.Now())})
	assert.ErrorIs(t, err, ErrMemberNameRequired)

	_, err = svc.Register(ctx, MemberInput{FirstName: "Lea", LastName: "Petit", DateOfBirth: ptr(time.Now()), Latitude: ptr(1.0)})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	registered := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	member := registerAt(t, svc, registered, MemberInput{FirstName: " Lea ", LastName: "Petit", Phone: "0612345678"})
	assert.Equal(t, "Lea", member.FirstName)
	assert.True(t, registered.Equal(member.RegistrationDate))
	assert.Nil(t, member.FamilyID)
	assert.False(t, member.IsContacted)

	updated, err := svc.Update(ctx, member.ID, MemberInput{FirstName: "Léa", LastName: "Petit", Address: "Toulouse"})
	require.NoError(t, err)
	assert.Equal(t, "Léa", updated.FirstName)
	assert.True(t, member.DateOfBirth.Equal(updated.DateOfBirth))

	_, err = svc.Update(ctx, 999, MemberInput{FirstName: "X", LastName: "Y"})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	require.NoError(t, svc.Delete(ctx, member.ID))
	assert.ErrorIs(t, svc.Delete(ctx, member.ID), ErrMemberNotFound)
	_, err = svc.Get(ctx, member.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemberServiceListPagination(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewMemberService(repos.members, zerolog.Nop())
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		gender := "male"
		if i%2 == 0 {
			gender = "female"
		}
		registerAt(t, svc, base.AddDate(0, 0, i), MemberInput{FirstName: "Member", Gender: gender})
	}

	page, err := svc.List(ctx, MemberFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Members, DefaultPageSize)
	assert.Equal(t, PageMetadata{Total: 12, Page: 1, PageSize: 10, TotalPages: 2, HasNextPage: true, HasPrevPage: false}, page.Metadata)
	assert.True(t, page.Members[0].RegistrationDate.After(page.Members[1].RegistrationDate))

	page, err = svc.List(ctx, MemberFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Members, 2)
	assert.False(t, page.Metadata.HasNextPage)
	assert.True(t, page.Metadata.HasPrevPage)

	page, err = svc.List(ctx, MemberFilter{PageSize: 1000, Gender: "all"})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Metadata.PageSize)
	assert.Len(t, page.Members, 12)

	page, err = svc.List(ctx, MemberFilter{Gender: "female"})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Metadata.Total)

	// end date covers the whole day
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	page, err = svc.List(ctx, MemberFilter{StartDate: &day, EndDate: &day})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Metadata.Total)
}

func TestFamilyServiceValidation(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewFamilyService(repos.families, repos.leaders, repos.members, zerolog.Nop())
	ctx := context.Background()

	leader, err := repos.leaders.Create(ctx, &models.Leader{FirstName: "Anne", LastName: "Durand"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input FamilyInput
		err   error
	}{
		{name: "missing name", input: FamilyInput{Name: "  "}, err: ErrFamilyNameRequired},
		{name: "half coordinates", input: FamilyInput{Name: "A", Latitude: ptr(43.6)}, err: ErrInvalidCoordinates},
		{name: "latitude out of range", input: FamilyInput{Name: "A", Latitude: ptr(91.0), Longitude: ptr(0.0)}, err: ErrInvalidCoordinates},
		{name: "same leader twice", input: FamilyInput{Name: "A", PiloteID: &leader.ID, CopiloteID: &leader.ID}, err: ErrSameLeader},
		{name: "unknown leader", input: FamilyInput{Name: "A", PiloteID: ptr(int64(999))}, err: ErrUnknownFamilyLeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	family, err := svc.Create(ctx, FamilyInput{Name: "Capitole", Latitude: ptr(43.6), Longitude: ptr(1.44), PiloteID: &leader.ID})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, family.ID, FamilyInput{Name: "Capitole Nord"})
	require.NoError(t, err)
	assert.Equal(t, "Capitole Nord", updated.Name)
	assert.Nil(t, updated.Latitude)
	assert.Nil(t, updated.PiloteID)

	_, err = svc.Update(ctx, 999, FamilyInput{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrFamilyNotFound)
}

func TestFamilyServiceDetailsAndDelete(t *testing.T) {
	repos := newTestRepos(t)
	families := NewFamilyService(repos.families, repos.leaders, repos.members, zerolog.Nop())
	members := NewMemberService(repos.members, zerolog.Nop())
	ctx := context.Background()

	family, err := families.Create(ctx, FamilyInput{Name: "Capitole"})
	require.NoError(t, err)
	assigned := registerAt(t, members, time.Now(), MemberInput{FirstName: "Lea"})
	free := registerAt(t, members, time.Now(), MemberInput{FirstName: "Hugo"})
	_, err = repos.members.SetFamily(ctx, assigned.ID, &family.ID)
	require.NoError(t, err)

	overview, err := families.GetDetails(ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Family.MemberCount())
	require.Len(t, overview.AvailableMembers, 1)
	assert.Equal(t, free.ID, overview.AvailableMembers[0].ID)

	require.NoError(t, families.Delete(ctx, family.ID))
	assert.ErrorIs(t, families.Delete(ctx, family.ID), ErrFamilyNotFound)

	_, err = families.GetDetails(ctx, family.ID)
	assert.ErrorIs(t, err, ErrFamilyNotFound)

	available, err := members.Available(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)
}

func TestLeaderService(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewLeaderService(repos.leaders, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, LeaderInput{FirstName: "Anne"})
	assert.ErrorIs(t, err, ErrLeaderNameRequired)

	zoe, err := svc.Create(ctx, LeaderInput{FirstName: "Zoe", LastName: "Adam"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, LeaderInput{FirstName: "Marc", LastName: "Roux"})
	require.NoError(t, err)

	leaders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, leaders, 2)
	assert.Equal(t, "Adam", leaders[0].LastName)

	updated, err := svc.Update(ctx, zoe.ID, LeaderInput{FirstName: "Zoe", LastName: "Adam", Phone: "0600000000"})
	require.NoError(t, err)
	assert.Equal(t, "0600000000", updated.Phone)

	require.NoError(t, svc.Delete(ctx, zoe.ID))
	assert.ErrorIs(t, svc.Delete(ctx, zoe.ID), ErrLeaderNotFound)
	_, err = svc.Update(ctx, zoe.ID, LeaderInput{FirstName: "Zoe", LastName: "Adam"})
	assert.ErrorIs(t, err, ErrLeaderNotFound)
}

func TestFollowUpService(t *testing.T) {
	repos := newTestRepos(t)
	members := NewMemberService(repos.members, zerolog.Nop())
	svc := NewFollowUpService(repos.members, zerolog.Nop())
	ctx := context.Background()

	contactedAt := time.Date(2024, 9, 8, 18, 0, 0, 0, time.UTC)
	svc.now = fixedClock(contactedAt)
	member := registerAt(t, members, time.Now(), MemberInput{FirstName: "Lea"})

	page, err := svc.Update(ctx, member.ID, true, "  Appelée dimanche ")
	require.NoError(t, err)
	assert.True(t, page.IsContacted)
	require.NotNil(t, page.ContactDate)
	assert.True(t, contactedAt.Equal(*page.ContactDate))
	assert.Equal(t, "Appelée dimanche", *page.LeaderNotes)
	assert.Nil(t, page.FamilyName)

	page, err = svc.Update(ctx, member.ID, false, "")
	require.NoError(t, err)
	assert.False(t, page.IsContacted)
	assert.Nil(t, page.ContactDate)
	assert.Nil(t, page.LeaderNotes)

	_, err = svc.Update(ctx, 999, true, "")
	assert.ErrorIs(t, err, ErrMemberNotFound)
	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestAssignmentServiceAgainstDatabase(t *testing.T) {
	repos := newTestRepos(t)
	members := NewMemberService(repos.members, zerolog.Nop())
	ctx := context.Background()

	pilote, err := repos.leaders.Create(ctx, &models.Leader{FirstName: "Anne", LastName: "Durand", Phone: "0611223344"})
	require.NoError(t, err)
	near, err := repos.families.Create(ctx, &models.Family{Name: "Near", Latitude: ptr(43.60), Longitude: ptr(1.44), PiloteID: &pilote.ID})
	require.NoError(t, err)
	_, err = repos.families.Create(ctx, &models.Family{Name: "Far", Latitude: ptr(48.85), Longitude: ptr(2.35)})
	require.NoError(t, err)
	_, err = repos.families.Create(ctx, &models.Family{Name: "Unknown"})
	require.NoError(t, err)

	member := registerAt(t, members, time.Now(), MemberInput{FirstName: "Lea", Latitude: ptr(43.61), Longitude: ptr(1.45)})

	svc := NewAssignmentService(repos.members, repos.families, NewLinkBuilder(NotificationConfig{}), nil, zerolog.Nop())

	closest, err := svc.FindClosestFamilies(ctx, member.ID, 3)
	require.NoError(t, err)
	require.Len(t, closest.Candidates, 2)
	assert.Equal(t, "Near", closest.Candidates[0].Family.Name)
	require.NotNil(t, closest.Candidates[0].Family.Pilote)

	result := svc.AssignMemberToFamily(ctx, near.ID, member.ID)
	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Pilote)
	assert.Equal(t, "33611223344", result.Pilote.PhoneFormatted)
	assert.Nil(t, result.Copilote)

	stored, err := repos.members.GetByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, near.ID, *stored.FamilyID)

	assert.False(t, svc.AssignMemberToFamily(ctx, 999, member.ID).Success)
	assert.False(t, svc.AssignMemberToFamily(ctx, near.ID, 999).Success)
}

func TestStatisticsService(t *testing.T) {
	repos := newTestRepos(t)
	members := NewMemberService(repos.members, zerolog.Nop())
	svc := NewStatisticsService(repos.members, zerolog.Nop())
	ctx := context.Background()

	// Wednesday
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	registerAt(t, members, time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC), MemberInput{FirstName: "A", Gender: "female", DateOfBirth: ptr(time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC))})
	registerAt(t, members, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), MemberInput{FirstName: "B", Gender: "male", DateOfBirth: ptr(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))})
	registerAt(t, members, time.Date(2024, 2, 20, 8, 0, 0, 0, time.UTC), MemberInput{FirstName: "C", Gender: "female", DateOfBirth: ptr(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))})
	registerAt(t, members, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), MemberInput{FirstName: "D", Gender: "male"})

	overview, err := svc.Overview(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, Overview{Total: 4, ThisMonth: 2, ThisWeek: 1, ThisYear: 3}, *overview)

	monthly, err := svc.MonthlyTrend(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, monthly, 12)
	assert.Equal(t, "Jan", monthly[0].Label)
	assert.Equal(t, 1, monthly[1].Count)
	assert.Equal(t, 2, monthly[4].Count)

	weekly, err := svc.WeeklyTrend(ctx, 2024, time.May)
	require.NoError(t, err)
	// 29 Apr, 6, 13, 20 and 27 May
	require.Len(t, weekly, 5)
	assert.Equal(t, time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), weekly[0].WeekStart)
	assert.Equal(t, "29 Apr - 5 May", weekly[0].Label)
	assert.Equal(t, 1, weekly[0].Count)
	assert.Equal(t, 1, weekly[2].Count)

	_, err = svc.WeeklyTrend(ctx, 2024, 13)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	demographics, err := svc.Demographics(ctx, DemographicsFilter{Year: 2024}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, demographics.Total)
	assert.Equal(t, map[string]int{"female": 2, "male": 1}, demographics.Gender)
	assert.Equal(t, 1, demographics.Ages[0].Count) // 12
	assert.Equal(t, 1, demographics.Ages[1].Count) // 15
	assert.Equal(t, 1, demographics.Ages[4].Count) // 34

	demographics, err = svc.Demographics(ctx, DemographicsFilter{Year: 2024, Month: 5, Day: 13}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, demographics.Total)

	_, err = svc.Demographics(ctx, DemographicsFilter{Year: 2024, Month: 2, Day: 30}, now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	report, err := svc.Report(ctx, DemographicsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Overview.Total)
	assert.Len(t, report.Weekly, 5)
}

func TestBackupRoundTrip(t *testing.T) {
	source := newTestRepos(t)
	ctx := context.Background()

	leader, err := source.leaders.Create(ctx, &models.Leader{FirstName: "Anne", LastName: "Durand"})
	require.NoError(t, err)
	family, err := source.families.Create(ctx, &models.Family{Name: "Capitole", Latitude: ptr(43.6), Longitude: ptr(1.44), PiloteID: &leader.ID})
	require.NoError(t, err)
	members := NewMemberService(source.members, zerolog.Nop())
	member := registerAt(t, members, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), MemberInput{FirstName: "Lea", Notes: ptr("allergies")})
	_, err = source.members.SetFamily(ctx, member.ID, &family.ID)
	require.NoError(t, err)

	exporter := NewBackupService(source.leaders, source.families, source.members, repository.NewBackupRepository(source.db), "sqlite", zerolog.Nop())
	var buf bytes.Buffer
	exported, err := exporter.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, BackupVersion, exported.Version)

	target := newTestRepos(t)
	importer := NewBackupService(target.leaders, target.families, target.members, repository.NewBackupRepository(target.db), "sqlite", zerolog.Nop())
	imported, err := importer.Import(ctx, bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)
	assert.Len(t, imported.Members, 1)

	restored, err := target.families.GetDetails(ctx, family.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.NotNil(t, restored.Pilote)
	assert.Equal(t, leader.ID, restored.Pilote.ID)
	require.Len(t, restored.Members, 1)
	assert.Equal(t, "allergies", *restored.Members[0].Notes)

	// new rows continue after the restored IDs
	next, err := target.leaders.Create(ctx, &models.Leader{FirstName: "Marc", LastName: "Roux"})
	require.NoError(t, err)
	assert.Greater(t, next.ID, leader.ID)

	_, err = importer.Import(ctx, bytes.NewReader(buf.Bytes()), false)
	assert.Error(t, err, "duplicate IDs without clear")
}
