package planner

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/coursedesk/internal/logging"
)

// AddOutcome reports what AddCourseToTempPlan did.
type AddOutcome string

const (
	AddAdded     AddOutcome = "added"
	AddDuplicate AddOutcome = "duplicate" // already in that term, draft unchanged
	AddConflict  AddOutcome = "conflict"  // in the other term and terms are exclusive
	AddInvalid   AddOutcome = "invalid"   // unknown term or empty id_course
)

// RemoveOutcome reports what RemoveCourseFromTempPlan did.
type RemoveOutcome string

const (
	RemoveRemoved RemoveOutcome = "removed"
	RemoveAbsent  RemoveOutcome = "absent"
)

// Snapshot is a copy of the planner state.
type Snapshot struct {
	Plan *Plan `json:"plan"`
	Open bool  `json:"open"`
}

// StateOption configures a State.
type StateOption func(*State)

// WithExclusiveTerms makes a course plannable in at most one term at a time.
func WithExclusiveTerms(exclusive bool) StateOption {
	return func(s *State) { s.exclusiveTerms = exclusive }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StateOption {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StateOption {
	return func(s *State) { s.log = l }
}

// State holds the session's draft plan and whether the planner panel is open.
// The draft lives in memory only.
type State struct {
	mu             sync.Mutex
	plan           *Plan
	open           bool
	exclusiveTerms bool
	now            func() time.Time
	log            *slog.Logger
}

// NewState returns a closed planner with no draft.
func NewState(opts ...StateOption) *State {
	s := &State{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDefault(s.log)
	return s
}

// SetTempSemesterPlan replaces the draft with a copy of plan and opens the planner.
func (s *State) SetTempSemesterPlan(plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := plan.Clone()
	if p.Winter == nil {
		p.Winter = []Course{}
	}
	if p.Summer == nil {
		p.Summer = []Course{}
	}
	s.plan = p
	s.open = true
}

// ClearTempPlan drops the draft. The open flag is left alone.
func (s *State) ClearTempPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = nil
}

// AddCourseToTempPlan appends course to term, creating an empty draft first if
// there is none. A course already in term is left as is.
func (s *State) AddCourseToTempPlan(term Term, course Course) AddOutcome {
	if term != Winter && term != Summer {
		return AddInvalid
	}
	if course.IDCourse == "" {
		return AddInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		s.plan = NewPlan(s.now())
	}
	if s.plan.Has(term, course.IDCourse) {
		return AddDuplicate
	}
	if s.exclusiveTerms && s.plan.Has(term.Other(), course.IDCourse) {
		s.log.Debug("planner: course already planned in other term", "id_course", course.IDCourse, "term", term.Other())
		return AddConflict
	}

	s.plan.setCourses(term, append(s.plan.Courses(term), course.clone()))
	return AddAdded
}

// RemoveCourseFromTempPlan removes courses with courseID from term only.
func (s *State) RemoveCourseFromTempPlan(term Term, courseID string) RemoveOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		return RemoveAbsent
	}

	current := s.plan.Courses(term)
	kept := make([]Course, 0, len(current))
	for _, c := range current {
		if c.IDCourse != courseID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(current) {
		return RemoveAbsent
	}

	s.plan.setCourses(term, kept)
	return RemoveRemoved
}

// TogglePlanner flips the open flag and returns the new value.
func (s *State) TogglePlanner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

// IsOpen reports whether the planner is open.
func (s *State) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// TempPlan returns a copy of the draft, or nil.
func (s *State) TempPlan() *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

// Snapshot returns a copy of the draft and the open flag.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Plan: s.plan.Clone(), Open: s.open}
}

// ApplyResponse parses content and, when it carries a plan, makes it the
// draft. It returns the parsed plan or nil.
func (s *State) ApplyResponse(content string) *Plan {
	plan := NewParser(s.now, s.log).Parse(content)
	if plan == nil {
		return nil
	}
	s.SetTempSemesterPlan(*plan)
	return plan
}
