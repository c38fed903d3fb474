package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

var ErrInvalidPeriod = errors.New("invalid statistics period")

// Overview counts registrations relative to now
type Overview struct {
	Total     int `json:"total"`
	ThisMonth int `json:"this_month"`
	ThisWeek  int `json:"this_week"`
	ThisYear  int `json:"this_year"`
}

// MonthlyBucket is the number of registrations in one calendar month
type MonthlyBucket struct {
	Month int    `json:"month"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyBucket is the number of registrations in one Monday-to-Sunday week
type WeeklyBucket struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Label     string    `json:"label"`
	Count     int       `json:"count"`
}

// AgeBucket counts members whose age falls in [Min, Max]
type AgeBucket struct {
	Range string `json:"range"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// Demographics breaks a registration period down by gender and age
type Demographics struct {
	Total  int            `json:"total"`
	Gender map[string]int `json:"gender"`
	Ages   []AgeBucket    `json:"ages"`
}

// DemographicsFilter selects a year, a month of that year or a single day.
// Zero Month and Day widen the period.
type DemographicsFilter struct {
	Year  int
	Month int
	Day   int
}

// StatisticsReport is everything the statistics page shows
type StatisticsReport struct {
	Overview     Overview        `json:"overview"`
	Monthly      []MonthlyBucket `json:"monthly"`
	Weekly       []WeeklyBucket  `json:"weekly"`
	Demographics Demographics    `json:"demographics"`
}

var ageRanges = []AgeBucket{
	{Range: "10-12", Min: 10, Max: 12},
	{Range: "13-15", Min: 13, Max: 15},
	{Range: "16-18", Min: 16, Max: 18},
	{Range: "19-21", Min: 19, Max: 21},
	{Range: "22+", Min: 22, Max: 100},
}

// StatisticsService aggregates member registrations
type StatisticsService struct {
	memberRepo *repository.MemberRepository
	now        func() time.Time
	log        zerolog.Logger
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(memberRepo *repository.MemberRepository, log zerolog.Logger) *StatisticsService {
	return &StatisticsService{
		memberRepo: memberRepo,
		now:        time.Now,
		log:        log.With().Str("service", "statistics").Logger(),
	}
}

// Report builds the overview plus the trends and demographics for the filter.
// The weekly trend covers the filter's month, or the current month when none is given.
func (s *StatisticsService) Report(ctx context.Context, filter DemographicsFilter) (*StatisticsReport, error) {
	now := s.now().UTC()
	if filter.Year == 0 {
		filter.Year = now.Year()
	}

	overview, err := s.Overview(ctx, now)
	if err != nil {
		return nil, err
	}
	monthly, err := s.MonthlyTrend(ctx, filter.Year)
	if err != nil {
		return nil, err
	}

	weekYear, weekMonth := filter.Year, time.Month(filter.Month)
	if filter.Month == 0 {
		weekYear, weekMonth = now.Year(), now.Month()
	}
	weekly, err := s.WeeklyTrend(ctx, weekYear, weekMonth)
	if err != nil {
		return nil, err
	}

	demographics, err := s.Demographics(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("year", filter.Year).
		Int("month", filter.Month).
		Int("day", filter.Day).
		Int("members", demographics.Total).
		Msg("statistics report built")
	return &StatisticsReport{
		Overview:     *overview,
		Monthly:      monthly,
		Weekly:       weekly,
		Demographics: *demographics,
	}, nil
}

// Overview counts all registrations and those of the current month, ISO week and year
func (s *StatisticsService) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	weekStart := startOfWeek(now)

	total, err := s.memberRepo.Count(ctx, repository.MemberFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	overview := &Overview{Total: total}
	for _, period := range []struct {
		dest  *int
		start time.Time
		end   time.Time
	}{
		{&overview.ThisMonth, monthStart, monthStart.AddDate(0, 1, 0)},
		{&overview.ThisWeek, weekStart, weekStart.AddDate(0, 0, 7)},
		{&overview.ThisYear, yearStart, yearStart.AddDate(1, 0, 0)},
	} {
		count, err := s.countBetween(ctx, period.start, period.end)
		if err != nil {
			return nil, err
		}
		*period.dest = count
	}
	return overview, nil
}

// MonthlyTrend returns twelve buckets, January to December
func (s *StatisticsService) MonthlyTrend(ctx context.Context, year int) ([]MonthlyBucket, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	members, err := s.memberRepo.ListRegistrations(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	buckets := make([]MonthlyBucket, 12)
	for i := range buckets {
		month := time.Month(i + 1)
		buckets[i] = MonthlyBucket{Month: int(month), Label: month.String()[:3]}
	}
	for _, m := range members {
		buckets[m.RegistrationDate.UTC().Month()-1].Count++
	}
	return buckets, nil
}

// WeeklyTrend returns one bucket per Monday-started week that overlaps the month
func (s *StatisticsService) WeeklyTrend(ctx context.Context, year int, month time.Month) ([]WeeklyBucket, error) {
	if month < time.January || month > time.December {
		return nil, ErrInvalidPeriod
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var buckets []WeeklyBucket
	for weekStart := startOfWeek(monthStart); weekStart.Before(monthEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		weekEnd := weekStart.AddDate(0, 0, 6)
		buckets = append(buckets, WeeklyBucket{
			WeekStart: weekStart,
			WeekEnd:   weekEnd,
			Label:     weekStart.Format("2 Jan") + " - " + weekEnd.Format("2 Jan"),
		})
	}

	from := buckets[0].WeekStart
	to := buckets[len(buckets)-1].WeekStart.AddDate(0, 0, 7)
	members, err := s.memberRepo.ListRegistrations(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	for _, m := range members {
		index := int(m.RegistrationDate.UTC().Sub(from) / (7 * 24 * time.Hour))
		if index >= 0 && index < len(buckets) {
			buckets[index].Count++
		}
	}
	return buckets, nil
}

// Demographics counts genders and age ranges, ages taken at now
func (s *StatisticsService) Demographics(ctx context.Context, filter DemographicsFilter, now time.Time) (*Demographics, error) {
	from, to, err := filter.period()
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListRegistrations(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	return summarize(members, now), nil
}

func summarize(members []models.Member, now time.Time) *Demographics {
	result := &Demographics{
		Total:  len(members),
		Gender: map[string]int{},
		Ages:   make([]AgeBucket, len(ageRanges)),
	}
	copy(result.Ages, ageRanges)

	for i := range members {
		result.Gender[members[i].Gender]++
		age := members[i].AgeAt(now)
		for j := range result.Ages {
			if age >= result.Ages[j].Min && age <= result.Ages[j].Max {
				result.Ages[j].Count++
				break
			}
		}
	}
	return result
}

func (f DemographicsFilter) period() (time.Time, time.Time, error) {
	if f.Month < 0 || f.Month > 12 || f.Day < 0 || (f.Day > 0 && f.Month == 0) {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}

	switch {
	case f.Day > 0:
		from := time.Date(f.Year, time.Month(f.Month), f.Day, 0, 0, 0, 0, time.UTC)
		if from.Month() != time.Month(f.Month) {
			return time.Time{}, time.Time{}, ErrInvalidPeriod
		}
		return from, from.AddDate(0, 0, 1), nil
	case f.Month > 0:
		from := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), nil
	default:
		from := time.Date(f.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), nil
	}
}

func (s *StatisticsService) countBetween(ctx context.Context, from, to time.Time) (int, error) {
	end := to.Add(-time.Second)
	count, err := s.memberRepo.Count(ctx, repository.MemberFilter{StartDate: &from, EndDate: &end})
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// startOfWeek returns the Monday at midnight UTC of t's week
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}
