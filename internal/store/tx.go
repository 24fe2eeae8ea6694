package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/music-school-api/internal/models"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// Tx stages writes against the state visible when Update began.
// Only the term, teacher, day and session on a touched path are copied.
type Tx struct {
	base *Snapshot

	terms    map[string]*models.Term
	paths    map[string]map[string]bool
	students map[string]*models.Student
	requests map[string]*models.ChangeRequest
	leaves   map[string]*models.Leave
	teachers []models.Teacher
}

func newTx(base *Snapshot) *Tx {
	return &Tx{
		base:     base,
		terms:    make(map[string]*models.Term),
		paths:    make(map[string]map[string]bool),
		students: make(map[string]*models.Student),
		requests: make(map[string]*models.ChangeRequest),
		leaves:   make(map[string]*models.Leave),
	}
}

// Term returns the term as staged so far.
func (tx *Tx) Term(id string) (*models.Term, bool) {
	if term, ok := tx.terms[id]; ok {
		return term, true
	}
	term, ok := tx.base.Terms[id]
	return term, ok
}

// Terms lists every term as staged so far.
func (tx *Tx) Terms() []*models.Term {
	merged := make(map[string]*models.Term, len(tx.base.Terms)+len(tx.terms))
	for id, term := range tx.base.Terms {
		merged[id] = term
	}
	for id, term := range tx.terms {
		merged[id] = term
	}
	return sortedTerms(merged)
}

// MutableTerm returns a staged copy of the term that may be modified.
func (tx *Tx) MutableTerm(id string) (*models.Term, error) {
	if term, ok := tx.terms[id]; ok {
		return term, nil
	}
	term, ok := tx.base.Terms[id]
	if !ok {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrTermNotFound, fmt.Sprintf("term %s not found", id)), "term", id)
	}
	clone := shallowTerm(term)
	tx.terms[id] = clone
	tx.paths[id] = make(map[string]bool)
	return clone, nil
}

// PutTerm stages a whole term. Its nested maps must not be shared with any stored term.
func (tx *Tx) PutTerm(term *models.Term) {
	if term.MasterSchedule == nil {
		term.MasterSchedule = make(models.MasterSchedule)
	}
	if term.WeeklyAttendance == nil {
		term.WeeklyAttendance = make(models.WeeklyAttendance)
	}
	if term.Teachers == nil {
		term.Teachers = []string{}
	}
	tx.terms[term.ID] = term
	tx.paths[term.ID] = map[string]bool{ownedPath: true}
}

const ownedPath = "*"

// copied marks key as copied for the term and reports whether it already was.
func (tx *Tx) copied(termID, key string) bool {
	paths := tx.paths[termID]
	if paths[ownedPath] || paths[key] {
		return true
	}
	paths[key] = true
	return false
}

func (tx *Tx) mutableDays(term *models.Term, teacher string) models.DaySchedule {
	days := term.MasterSchedule[teacher]
	if tx.copied(term.ID, "t/"+teacher) {
		if days == nil {
			days = make(models.DaySchedule)
			term.MasterSchedule[teacher] = days
		}
		return days
	}
	clone := make(models.DaySchedule, len(days)+1)
	for day, sessions := range days {
		clone[day] = sessions
	}
	term.MasterSchedule[teacher] = clone
	return clone
}

func (tx *Tx) mutableDay(term *models.Term, teacher string, day models.Weekday) []models.Session {
	days := tx.mutableDays(term, teacher)
	if !tx.copied(term.ID, "d/"+teacher+"/"+string(day)) {
		days[day] = append([]models.Session(nil), days[day]...)
	}
	return days[day]
}

// MutableSession returns a modifiable session. An empty day searches the whole week.
// The pointer is valid until the next InsertSession on the same day.
func (tx *Tx) MutableSession(termID, teacher string, day models.Weekday, sessionID string) (*models.Session, models.Weekday, error) {
	term, err := tx.MutableTerm(termID)
	if err != nil {
		return nil, "", err
	}
	found, idx, ok := term.MasterSchedule.FindSession(teacher, day, sessionID)
	if !ok {
		return nil, "", sessionNotFound(sessionID)
	}
	sessions := tx.mutableDay(term, teacher, found)
	session := &sessions[idx]
	if !tx.copied(termID, "s/"+teacher+"/"+string(found)+"/"+sessionID) {
		session.Students = append([]models.SessionStudent{}, session.Students...)
	}
	return session, found, nil
}

// InsertSession adds a session for teacher on day and lists the teacher on the term.
func (tx *Tx) InsertSession(termID, teacher string, day models.Weekday, session models.Session) error {
	term, err := tx.MutableTerm(termID)
	if err != nil {
		return err
	}
	if _, _, exists := term.MasterSchedule.FindSession(teacher, day, session.ID); exists {
		return appErrors.WithResource(appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session %s already exists", session.ID)), "session", session.ID)
	}
	if session.Students == nil {
		session.Students = []models.SessionStudent{}
	}
	sessions := tx.mutableDay(term, teacher, day)
	term.MasterSchedule[teacher][day] = append(sessions, session)
	tx.copied(termID, "s/"+teacher+"/"+string(day)+"/"+session.ID)
	if !term.HasTeacher(teacher) {
		term.Teachers = append(term.Teachers, teacher)
	}
	return nil
}

// SetAttendance writes or, when record is nil, clears one overlay entry.
func (tx *Tx) SetAttendance(termID, week, teacher, sessionID, studentID string, record *models.AttendanceRecord) error {
	term, err := tx.MutableTerm(termID)
	if err != nil {
		return err
	}
	byTeacher := term.WeeklyAttendance[week]
	if !tx.copied(termID, "w/"+week) {
		clone := make(map[string]map[string]models.SessionAttendance, len(byTeacher)+1)
		for k, v := range byTeacher {
			clone[k] = v
		}
		byTeacher = clone
		term.WeeklyAttendance[week] = byTeacher
	}
	bySession := byTeacher[teacher]
	if !tx.copied(termID, "wt/"+week+"/"+teacher) {
		clone := make(map[string]models.SessionAttendance, len(bySession)+1)
		for k, v := range bySession {
			clone[k] = v
		}
		bySession = clone
		byTeacher[teacher] = bySession
	}
	byStudent := bySession[sessionID]
	if !tx.copied(termID, "ws/"+week+"/"+teacher+"/"+sessionID) {
		clone := make(models.SessionAttendance, len(byStudent)+1)
		for k, v := range byStudent {
			clone[k] = v
		}
		byStudent = clone
		bySession[sessionID] = byStudent
	}

	if record != nil {
		byStudent[studentID] = *record
		return nil
	}
	delete(byStudent, studentID)
	if len(byStudent) == 0 {
		delete(bySession, sessionID)
	}
	if len(bySession) == 0 {
		delete(byTeacher, teacher)
	}
	if len(byTeacher) == 0 {
		delete(term.WeeklyAttendance, week)
	}
	return nil
}

// AddExclusion appends an exclusion rule to the term.
func (tx *Tx) AddExclusion(termID string, exclusion models.Exclusion) error {
	term, err := tx.MutableTerm(termID)
	if err != nil {
		return err
	}
	term.Exclusions = append(term.Exclusions, exclusion)
	return nil
}

// RemoveExclusion deletes an exclusion rule from the term.
func (tx *Tx) RemoveExclusion(termID, exclusionID string) error {
	term, err := tx.MutableTerm(termID)
	if err != nil {
		return err
	}
	for i := range term.Exclusions {
		if term.Exclusions[i].ID == exclusionID {
			term.Exclusions = append(term.Exclusions[:i], term.Exclusions[i+1:]...)
			return nil
		}
	}
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrExclusionNotFound, fmt.Sprintf("exclusion %s not found", exclusionID)), "exclusion", exclusionID)
}

// Student returns the roster entry as staged so far.
func (tx *Tx) Student(id string) (*models.Student, bool) {
	if student, ok := tx.students[id]; ok {
		return student, true
	}
	student, ok := tx.base.Students[id]
	return student, ok
}

// Students lists the roster as staged so far.
func (tx *Tx) Students() []*models.Student {
	merged := make(map[string]*models.Student, len(tx.base.Students)+len(tx.students))
	for id, student := range tx.base.Students {
		merged[id] = student
	}
	for id, student := range tx.students {
		merged[id] = student
	}
	return sortedStudents(merged)
}

// StudentByName finds a non-deleted student by exact name.
func (tx *Tx) StudentByName(name string) (*models.Student, bool) {
	for _, student := range tx.Students() {
		if student.Name == name && student.Status != models.StudentDeleted {
			return student, true
		}
	}
	return nil, false
}

// LastStudentSeq is the highest STUnnn sequence number on the roster.
func (tx *Tx) LastStudentSeq() int {
	last := 0
	for id := range tx.base.Students {
		if n := studentSeq(id); n > last {
			last = n
		}
	}
	for id := range tx.students {
		if n := studentSeq(id); n > last {
			last = n
		}
	}
	return last
}

// MutableStudent returns a staged copy of the student that may be modified.
func (tx *Tx) MutableStudent(id string) (*models.Student, error) {
	if student, ok := tx.students[id]; ok {
		return student, nil
	}
	student, ok := tx.base.Students[id]
	if !ok {
		return nil, profileNotFound(id)
	}
	clone := cloneStudent(student)
	tx.students[id] = clone
	return clone, nil
}

// PutStudent stages a new or replaced student.
func (tx *Tx) PutStudent(student *models.Student) {
	if student.EnrolledIn == nil {
		student.EnrolledIn = []models.EnrollmentRef{}
	}
	tx.students[student.ID] = student
}

// Request returns the change request as staged so far.
func (tx *Tx) Request(id string) (*models.ChangeRequest, bool) {
	if request, ok := tx.requests[id]; ok {
		return request, true
	}
	request, ok := tx.base.Requests[id]
	return request, ok
}

// MutableRequest returns a staged copy of the request.
func (tx *Tx) MutableRequest(id string) (*models.ChangeRequest, error) {
	if request, ok := tx.requests[id]; ok {
		return request, nil
	}
	request, ok := tx.base.Requests[id]
	if !ok {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrRequestNotFound, fmt.Sprintf("change request %s not found", id)), "request", id)
	}
	clone := cloneRequest(request)
	tx.requests[id] = clone
	return clone, nil
}

// PutRequest stages a change request.
func (tx *Tx) PutRequest(request *models.ChangeRequest) {
	tx.requests[request.ID] = request
}

// Leaves lists leaves matching filter as staged so far.
func (tx *Tx) Leaves(filter models.LeaveFilter) []*models.Leave {
	merged := make(map[string]*models.Leave, len(tx.base.Leaves)+len(tx.leaves))
	for id, leave := range tx.base.Leaves {
		merged[id] = leave
	}
	for id, leave := range tx.leaves {
		merged[id] = leave
	}
	return filterLeaves(merged, filter)
}

// MutableLeave returns a staged copy of the leave.
func (tx *Tx) MutableLeave(id string) (*models.Leave, error) {
	if leave, ok := tx.leaves[id]; ok {
		return leave, nil
	}
	leave, ok := tx.base.Leaves[id]
	if !ok {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrLeaveNotFound, fmt.Sprintf("leave %s not found", id)), "leave", id)
	}
	clone := cloneLeave(leave)
	tx.leaves[id] = clone
	return clone, nil
}

// PutLeave stages a leave.
func (tx *Tx) PutLeave(leave *models.Leave) {
	tx.leaves[leave.ID] = leave
}

// Teachers returns the directory as staged so far.
func (tx *Tx) Teachers() []models.Teacher {
	return mergeTeachers(tx.base.Teachers, tx.teachers)
}

// TeacherByName resolves a directory entry by display name, username or id.
func (tx *Tx) TeacherByName(name string) (models.Teacher, bool) {
	return findTeacher(tx.Teachers(), name)
}

// PutTeacher stages a directory entry, replacing any entry with the same id.
func (tx *Tx) PutTeacher(teacher models.Teacher) {
	tx.teachers = mergeTeachers(tx.teachers, []models.Teacher{teacher})
}

func (tx *Tx) changeSet() ChangeSet {
	var cs ChangeSet
	for _, term := range tx.terms {
		cs.Terms = append(cs.Terms, term)
	}
	sort.Slice(cs.Terms, func(i, j int) bool { return cs.Terms[i].ID < cs.Terms[j].ID })
	for _, student := range tx.students {
		cs.Students = append(cs.Students, student)
	}
	sort.Slice(cs.Students, func(i, j int) bool { return cs.Students[i].ID < cs.Students[j].ID })
	for _, request := range tx.requests {
		cs.Requests = append(cs.Requests, request)
	}
	sort.Slice(cs.Requests, func(i, j int) bool { return cs.Requests[i].ID < cs.Requests[j].ID })
	for _, leave := range tx.leaves {
		cs.Leaves = append(cs.Leaves, leave)
	}
	sort.Slice(cs.Leaves, func(i, j int) bool { return cs.Leaves[i].ID < cs.Leaves[j].ID })
	cs.Teachers = append(cs.Teachers, tx.teachers...)
	return cs
}

func sessionNotFound(id string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("session %s not found", id)), "session", id)
}

func profileNotFound(id string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrProfileNotFound, fmt.Sprintf("student %s not found", strings.TrimSpace(id))), "student", id)
}
