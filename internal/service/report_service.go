package service

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
)

const reportCachePrefix = "reports:"

// ageBands are the demographic age groups, upper bound exclusive.
var ageBands = []struct {
	label string
	upper int
}{
	{"Under 18", 18},
	{"18-24", 25},
	{"25-34", 35},
	{"35-44", 45},
	{"45+", 1 << 30},
}

// ReportService derives school-wide aggregates from store snapshots.
type ReportService struct {
	store      schoolStore
	cache      *CacheService
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	generation atomic.Uint64
}

// NewReportService constructs a ReportService. cache may be nil.
func NewReportService(st schoolStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: st, cache: cache, ttl: ttl, now: utcNow, logger: logger}
}

// Invalidate drops every cached report. It is registered as a store commit hook.
func (s *ReportService) Invalidate(ctx context.Context, _ store.ChangeSet) {
	s.generation.Add(1)
	if err := s.cache.Invalidate(ctx, reportCachePrefix+"*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

// cached fills dest from the cache, or runs build and stores the result. A build that
// overlapped an invalidation is returned but not stored.
func (s *ReportService) cached(ctx context.Context, key string, dest interface{}, build func()) {
	key = reportCachePrefix + key
	if hit, err := s.cache.Get(ctx, key, dest); err == nil && hit {
		return
	}
	generation := s.generation.Load()
	build()
	if s.generation.Load() != generation {
		return
	}
	if err := s.cache.Set(ctx, key, dest, s.ttl); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// EnrollmentTrend counts students by enrollment month.
func (s *ReportService) EnrollmentTrend(ctx context.Context, actor *models.Actor) (*models.EnrollmentTrend, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	var trend models.EnrollmentTrend
	s.cached(ctx, "enrollment", &trend, func() {
		trend = BuildEnrollmentTrend(s.store.Students())
	})
	return &trend, nil
}

// Financial counts installments by effective status.
func (s *ReportService) Financial(ctx context.Context, actor *models.Actor) (*models.FinancialBreakdown, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	today := s.now()
	var breakdown models.FinancialBreakdown
	s.cached(ctx, "financial:"+today.Format(models.WeekKeyLayout), &breakdown, func() {
		breakdown = BuildFinancialBreakdown(s.store.Students(), today)
	})
	return &breakdown, nil
}

// Revenue compares installment amounts due so far with those collected.
func (s *ReportService) Revenue(ctx context.Context, actor *models.Actor) (*models.RevenueSummary, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	today := s.now()
	var summary models.RevenueSummary
	s.cached(ctx, "revenue:"+today.Format(models.WeekKeyLayout), &summary, func() {
		summary = BuildRevenueSummary(s.store.Students(), today)
	})
	return &summary, nil
}

// Workload reports weekly teaching hours per teacher in a term.
func (s *ReportService) Workload(ctx context.Context, actor *models.Actor, termID string) (*models.WorkloadReport, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	term, ok := s.store.Term(termID)
	if !ok {
		return nil, termNotFound(termID)
	}
	var report models.WorkloadReport
	s.cached(ctx, "workload:"+termID, &report, func() {
		report = BuildWorkload(term)
	})
	return &report, nil
}

// Demographics groups active students by gender and age.
func (s *ReportService) Demographics(ctx context.Context, actor *models.Actor) (*models.Demographics, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	today := s.now()
	var demographics models.Demographics
	s.cached(ctx, "demographics:"+today.Format(models.WeekKeyLayout), &demographics, func() {
		demographics = BuildDemographics(s.store.Students(), today)
	})
	return &demographics, nil
}

// Attendance counts effective statuses for every seat in a term week.
func (s *ReportService) Attendance(ctx context.Context, actor *models.Actor, termID string, date time.Time) (*models.AttendanceSummary, error) {
	if err := requireReports(actor); err != nil {
		return nil, err
	}
	term, ok := s.store.Term(termID)
	if !ok {
		return nil, termNotFound(termID)
	}
	weekStart := models.WeekStart(date)
	var summary models.AttendanceSummary
	s.cached(ctx, fmt.Sprintf("attendance:%s:%s", termID, models.WeekKey(weekStart)), &summary, func() {
		leaves := s.store.Leaves(models.LeaveFilter{Type: models.LeaveStudent, Status: models.LeaveApproved})
		summary = BuildAttendanceSummary(term, weekStart, leaves)
	})
	return &summary, nil
}

// BuildEnrollmentTrend counts non-deleted students per enrollment month, oldest first.
func BuildEnrollmentTrend(students []*models.Student) models.EnrollmentTrend {
	counts := make(map[time.Time]int)
	total := 0
	for _, student := range students {
		if student.Status == models.StudentDeleted || student.EnrollmentDate.IsZero() {
			continue
		}
		month := time.Date(student.EnrollmentDate.Year(), student.EnrollmentDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[month]++
		total++
	}
	months := make([]time.Time, 0, len(counts))
	for month := range counts {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	trend := models.EnrollmentTrend{Months: make([]models.MonthlyCount, 0, len(months)), Total: total}
	for _, month := range months {
		trend.Months = append(trend.Months, models.MonthlyCount{Month: month.Format("Jan 2006"), Count: counts[month]})
	}
	return trend
}

// BuildFinancialBreakdown classifies installments of non-deleted students.
func BuildFinancialBreakdown(students []*models.Student, today time.Time) models.FinancialBreakdown {
	var b models.FinancialBreakdown
	for _, student := range students {
		if student.Status == models.StudentDeleted {
			continue
		}
		for _, installment := range student.Installments {
			switch installment.EffectiveStatus(today) {
			case models.InstallmentPaid:
				b.Paid++
				b.PaidAmount += installment.Amount
			case models.InstallmentOverdue:
				b.Overdue++
				b.OverdueAmount += installment.Amount
			default:
				b.Unpaid++
				b.UnpaidAmount += installment.Amount
			}
		}
	}
	return b
}

// BuildRevenueSummary sums amounts due on or before today against amounts paid.
func BuildRevenueSummary(students []*models.Student, today time.Time) models.RevenueSummary {
	summary := models.RevenueSummary{ByPlan: map[string]int{}}
	for _, student := range students {
		if student.Status == models.StudentDeleted {
			continue
		}
		plan := string(student.PaymentPlan)
		if plan == "" {
			plan = string(models.PaymentNone)
		}
		summary.ByPlan[plan]++
		for _, installment := range student.Installments {
			if !installment.DueDate.After(today) {
				summary.Expected += installment.Amount
			}
			if installment.Status == models.InstallmentPaid {
				summary.Collected += installment.Amount
			}
		}
	}
	return summary
}

// BuildWorkload sums session hours per teacher and day. Teachers keep term order.
func BuildWorkload(term *models.Term) models.WorkloadReport {
	report := models.WorkloadReport{TermID: term.ID, Teachers: []models.TeacherWorkload{}}
	for _, teacher := range scheduleTeachers(term) {
		load := models.TeacherWorkload{Teacher: teacher, HoursByDay: map[models.Weekday]float64{}}
		seen := make(map[string]bool)
		for _, day := range models.Weekdays {
			for _, session := range term.MasterSchedule[teacher][day] {
				load.Sessions++
				load.Hours += session.Duration
				load.HoursByDay[day] += session.Duration
				for _, seat := range session.Students {
					if !seen[seat.ID] {
						seen[seat.ID] = true
						load.Students++
					}
				}
			}
		}
		report.Teachers = append(report.Teachers, load)
	}
	return report
}

// scheduleTeachers lists term teachers first, then any schedule keys missing from the list.
func scheduleTeachers(term *models.Term) []string {
	out := append([]string{}, term.Teachers...)
	var extra []string
	for teacher := range term.MasterSchedule {
		if !term.HasTeacher(teacher) {
			extra = append(extra, teacher)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// BuildDemographics groups active students by gender and age band.
func BuildDemographics(students []*models.Student, today time.Time) models.Demographics {
	genders := make(map[string]int)
	var genderOrder []string
	ages := make([]int, len(ageBands))
	for _, student := range students {
		if student.Status != models.StudentActive {
			continue
		}
		gender := student.Gender
		if gender == "" {
			gender = "unspecified"
		}
		if _, ok := genders[gender]; !ok {
			genderOrder = append(genderOrder, gender)
		}
		genders[gender]++
		if student.DateOfBirth == nil {
			continue
		}
		age := ageOn(*student.DateOfBirth, today)
		for i, band := range ageBands {
			if age < band.upper {
				ages[i]++
				break
			}
		}
	}
	sort.Strings(genderOrder)

	out := models.Demographics{Gender: []models.LabelCount{}, AgeGroups: make([]models.LabelCount, 0, len(ageBands))}
	for _, gender := range genderOrder {
		out.Gender = append(out.Gender, models.LabelCount{Label: gender, Count: genders[gender]})
	}
	for i, band := range ageBands {
		out.AgeGroups = append(out.AgeGroups, models.LabelCount{Label: band.label, Count: ages[i]})
	}
	return out
}

func ageOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// BuildAttendanceSummary counts effective statuses, with "unmarked" for seats without one.
func BuildAttendanceSummary(term *models.Term, weekStart time.Time, leaves []*models.Leave) models.AttendanceSummary {
	summary := models.AttendanceSummary{
		TermID:    term.ID,
		WeekStart: models.WeekKey(weekStart),
		Counts: map[string]int{
			string(models.AttendancePresent): 0,
			string(models.AttendanceAbsent):  0,
			string(models.AttendanceLate):    0,
			string(models.AttendanceExcused): 0,
			"unmarked":                       0,
		},
	}
	for teacher, days := range term.MasterSchedule {
		for _, sessions := range days {
			for _, session := range sessions {
				for _, seat := range session.Students {
					effective := EffectiveAttendance(term, weekStart, teacher, session.ID, seat.ID, leaves)
					if effective.Status == nil {
						summary.Counts["unmarked"]++
					} else {
						summary.Counts[string(*effective.Status)]++
					}
					summary.Total++
				}
			}
		}
	}
	return summary
}
