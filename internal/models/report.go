package models

// MonthlyCount is one point on the enrollment trend.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// EnrollmentTrend counts new students per enrollment month.
type EnrollmentTrend struct {
	Months []MonthlyCount `json:"months"`
	Total  int            `json:"total"`
}

// FinancialBreakdown counts installments by effective status.
type FinancialBreakdown struct {
	Paid          int     `json:"paid"`
	Unpaid        int     `json:"unpaid"`
	Overdue       int     `json:"overdue"`
	PaidAmount    float64 `json:"paidAmount"`
	UnpaidAmount  float64 `json:"unpaidAmount"`
	OverdueAmount float64 `json:"overdueAmount"`
}

// RevenueSummary compares expected and collected installment amounts.
type RevenueSummary struct {
	Expected  float64        `json:"expected"`
	Collected float64        `json:"collected"`
	ByPlan    map[string]int `json:"byPlan"`
}

// TeacherWorkload is the weekly teaching load of one teacher in a term.
type TeacherWorkload struct {
	Teacher    string              `json:"teacher"`
	Sessions   int                 `json:"sessions"`
	Students   int                 `json:"students"`
	Hours      float64             `json:"hours"`
	HoursByDay map[Weekday]float64 `json:"hoursByDay"`
}

// WorkloadReport lists teacher workloads for a term.
type WorkloadReport struct {
	TermID   string            `json:"termId"`
	Teachers []TeacherWorkload `json:"teachers"`
}

// LabelCount is a labelled counter used by demographic breakdowns.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Demographics groups active students by gender and age.
type Demographics struct {
	Gender    []LabelCount `json:"gender"`
	AgeGroups []LabelCount `json:"ageGroups"`
}

// AttendanceSummary counts effective statuses for a term week.
type AttendanceSummary struct {
	TermID    string         `json:"termId"`
	WeekStart string         `json:"weekStart"`
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
}

// SystemMetrics is a lightweight view over process metrics.
type SystemMetrics struct {
	CacheHitRatio    float64 `json:"cacheHitRatio"`
	Requests         uint64  `json:"requests"`
	AvgRequestMillis float64 `json:"avgRequestMs"`
	Commits          uint64  `json:"commits"`
	AvgCommitMillis  float64 `json:"avgCommitMs"`
	Goroutines       int     `json:"goroutines"`
}
