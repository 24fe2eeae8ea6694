package store

import "github.com/noah-isme/music-school-api/internal/models"

// shallowTerm copies the term and its top-level containers. Nested schedule
// and attendance maps stay shared until a Tx copies the path it touches.
func shallowTerm(t *models.Term) *models.Term {
	clone := *t
	clone.Teachers = append([]string(nil), t.Teachers...)
	clone.Exclusions = append([]models.Exclusion(nil), t.Exclusions...)
	clone.MasterSchedule = make(models.MasterSchedule, len(t.MasterSchedule))
	for teacher, days := range t.MasterSchedule {
		clone.MasterSchedule[teacher] = days
	}
	clone.WeeklyAttendance = make(models.WeeklyAttendance, len(t.WeeklyAttendance))
	for week, teachers := range t.WeeklyAttendance {
		clone.WeeklyAttendance[week] = teachers
	}
	return &clone
}

func cloneStudent(s *models.Student) *models.Student {
	clone := *s
	clone.EnrolledIn = append([]models.EnrollmentRef{}, s.EnrolledIn...)
	clone.LevelHistory = append([]models.LevelChange(nil), s.LevelHistory...)
	clone.Evaluations = append([]models.Evaluation(nil), s.Evaluations...)
	clone.Installments = append([]models.Installment(nil), s.Installments...)
	if s.DeletionInfo != nil {
		info := *s.DeletionInfo
		clone.DeletionInfo = &info
	}
	return &clone
}

func cloneRequest(r *models.ChangeRequest) *models.ChangeRequest {
	clone := *r
	return &clone
}

func cloneLeave(l *models.Leave) *models.Leave {
	clone := *l
	return &clone
}
