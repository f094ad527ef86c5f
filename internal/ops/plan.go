package ops

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/coursedesk/internal/errors"
	"github.com/hpungsan/coursedesk/internal/planner"
	"github.com/hpungsan/coursedesk/internal/session"
)

// PlanOutput is the planner state after an operation.
type PlanOutput struct {
	Plan    *planner.Plan `json:"plan"`
	Open    bool          `json:"open"`
	Credits *Credits      `json:"credits,omitempty"`
}

// Credits totals ECTS per term.
type Credits struct {
	Winter float64 `json:"winter"`
	Summer float64 `json:"summer"`
}

func planOutput(snap planner.Snapshot) *PlanOutput {
	out := &PlanOutput{Plan: snap.Plan, Open: snap.Open}
	if snap.Plan != nil {
		out.Credits = &Credits{
			Winter: snap.Plan.Credits(planner.Winter),
			Summer: snap.Plan.Credits(planner.Summer),
		}
	}
	return out
}

// PlanShow returns the draft plan and open flag.
func PlanShow(sess *session.Session) (*PlanOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return planOutput(sess.Plan.Snapshot()), nil
}

// PlanParseInput contains parameters for PlanParse.
type PlanParseInput struct {
	Content string
	// Apply makes the parsed plan the session's draft.
	Apply bool
}

// PlanParseOutput contains the parsed plan.
type PlanParseOutput struct {
	Plan           *planner.Plan `json:"plan"`
	Applied        bool          `json:"applied"`
	IgnoredMarkers int           `json:"ignored_markers,omitempty"`
}

// PlanParse extracts the semester plan embedded in an advisor response.
// Unlike the best-effort parser, it reports why nothing was found.
func PlanParse(sess *session.Session, input PlanParseInput) (*PlanParseOutput, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	res := planner.ExtractMarker(input.Content)
	switch res.Status {
	case planner.MarkerAbsent:
		return nil, errors.NewPlanNotFound()
	case planner.MarkerMalformed:
		return nil, errors.NewPlanMalformed(res.Err.Error())
	}

	plan := planner.ParseSemesterPlanFromResponse(input.Content)
	if plan == nil {
		return nil, errors.NewPlanMalformed("marker could not be parsed")
	}

	out := &PlanParseOutput{Plan: plan, IgnoredMarkers: res.Ignored}
	if input.Apply {
		if err := requireSession(sess); err != nil {
			return nil, err
		}
		sess.Plan.SetTempSemesterPlan(*plan)
		out.Applied = true
	}
	return out, nil
}

// PlanSet replaces the draft with plan and opens the planner. A zero
// GeneratedAt is stamped with the current time.
func PlanSet(sess *session.Session, plan planner.Plan) (*PlanOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	for _, term := range []planner.Term{planner.Winter, planner.Summer} {
		seen := make(map[string]bool)
		for i, c := range plan.Courses(term) {
			if strings.TrimSpace(c.IDCourse) == "" {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("%s[%d]: id_course is required", term, i))
			}
			if seen[c.IDCourse] {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: duplicate id_course %s", term, c.IDCourse))
			}
			seen[c.IDCourse] = true
		}
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now()
	}

	sess.Plan.SetTempSemesterPlan(plan)
	return planOutput(sess.Plan.Snapshot()), nil
}

// CourseChangeOutput reports an add or remove.
type CourseChangeOutput struct {
	Outcome string        `json:"outcome"`
	Plan    *planner.Plan `json:"plan"`
}

// PlanAddCourse adds course to term. Adding a course already in term is not
// an error; the outcome says "duplicate". A course planned in the other term
// is a CONFLICT when exclusive_terms is on.
func PlanAddCourse(sess *session.Session, term string, course planner.Course) (*CourseChangeOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	t, err := ParseTerm(term)
	if err != nil {
		return nil, err
	}
	id, err := requireID("id_course", course.IDCourse)
	if err != nil {
		return nil, err
	}
	course.IDCourse = id

	outcome := sess.Plan.AddCourseToTempPlan(t, course)
	switch outcome {
	case planner.AddConflict:
		return nil, errors.NewConflict("course " + id + " is already planned in " + string(t.Other()))
	case planner.AddInvalid:
		return nil, errors.NewInvalidRequest("course could not be added")
	}
	return &CourseChangeOutput{Outcome: string(outcome), Plan: sess.Plan.TempPlan()}, nil
}

// PlanRemoveCourse removes a course from term. Removing an absent course is
// not an error; the outcome says "absent".
func PlanRemoveCourse(sess *session.Session, term, courseID string) (*CourseChangeOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	t, err := ParseTerm(term)
	if err != nil {
		return nil, err
	}
	id, err := requireID("id_course", courseID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Plan.RemoveCourseFromTempPlan(t, id)
	return &CourseChangeOutput{Outcome: string(outcome), Plan: sess.Plan.TempPlan()}, nil
}

// PlanClear drops the draft.
func PlanClear(sess *session.Session) (*PlanOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	sess.Plan.ClearTempPlan()
	return planOutput(sess.Plan.Snapshot()), nil
}

// ToggleOutput reports the planner's open flag.
type ToggleOutput struct {
	Open bool `json:"open"`
}

// PlanToggle flips the planner open flag.
func PlanToggle(sess *session.Session) (*ToggleOutput, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return &ToggleOutput{Open: sess.Plan.TogglePlanner()}, nil
}

// RenderOutput is an advisor response prepared for display.
type RenderOutput struct {
	HTML string        `json:"html"`
	Text string        `json:"text"`
	Plan *planner.Plan `json:"plan,omitempty"`
}

// RenderResponse renders content to HTML and reports any embedded plan
// without applying it.
func RenderResponse(content string) (*RenderOutput, error) {
	html, err := planner.RenderResponse(content)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &RenderOutput{
		HTML: html,
		Text: planner.StripPlanMarkers(content),
		Plan: planner.ParseSemesterPlanFromResponse(content),
	}, nil
}
