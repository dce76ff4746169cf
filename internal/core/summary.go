package core

import (
	"sort"
	"time"
)

// NoWorkRecorded stands in for activity dates of a project without entries.
const NoWorkRecorded = "No work recorded"

// RangeFilter bounds the entries contributing to a summary by end time.
// Either bound may be nil.
type RangeFilter struct {
	From *time.Time // start of the "from" day, inclusive
	To   *time.Time // last second of the "to" day, inclusive

	FromText string
	ToText   string
}

// NewRangeFilter parses the optional from/to query values.
func NewRangeFilter(from, to string) (RangeFilter, error) {
	var f RangeFilter
	if from != "" {
		r, err := ParseLocalDateRange(from)
		if err != nil {
			return RangeFilter{}, &Error{Kind: KindInvalidFormat, Field: "from", Message: "Invalid 'from' date format. Use DD-MM-YYYY", Err: err}
		}
		f.From, f.FromText = &r.Start, from
	}
	if to != "" {
		r, err := ParseLocalDateRange(to)
		if err != nil {
			return RangeFilter{}, &Error{Kind: KindInvalidFormat, Field: "to", Message: "Invalid 'to' date format. Use DD-MM-YYYY", Err: err}
		}
		f.To, f.ToText = &r.End, to
	}
	return f, nil
}

// IsZero reports whether no bound is set.
func (f RangeFilter) IsZero() bool { return f.From == nil && f.To == nil }

// Contains reports whether an entry ending at end falls inside the filter.
func (f RangeFilter) Contains(end time.Time) bool {
	if f.From != nil && end.Before(*f.From) {
		return false
	}
	if f.To != nil && end.After(*f.To) {
		return false
	}
	return true
}

type (
	ProjectSummary struct {
		ProjectID     string
		Name          string
		Description   string
		IsBillable    bool
		HourlyRate    *float64
		CreatedOn     string
		FirstActivity string
		LastActivity  string
		TotalMinutes  int64
		Hours         float64
		Earnings      float64
	}

	Overview struct {
		TotalProjects       int
		TotalHours          float64
		BillableProjects    int
		BillableHours       float64
		BillableEarnings    float64
		NonBillableProjects int
		NonBillableHours    float64
	}

	Summary struct {
		Projects []ProjectSummary
		Overview Overview
	}
)

type activity struct {
	minutes int64
	first   time.Time
	last    time.Time
	count   int
}

// Summarize reduces entries and projects into per-project and overview
// metrics. Only entries accepted by f count; only active projects referenced
// by at least one counted entry appear. Projects are ordered by creation time.
//
// Rounding happens per project (hours, then earnings from rounded hours) and
// once more on the overview sums. Non-billable hours are the rounded
// difference of the rounded totals.
func Summarize(projects []Project, entries []TimeEntry, f RangeFilter) Summary {
	byProject := make(map[string]*activity)
	for _, e := range entries {
		if !f.Contains(e.End) {
			continue
		}
		a := byProject[e.ProjectID]
		if a == nil {
			a = &activity{first: e.Start, last: e.End}
			byProject[e.ProjectID] = a
		}
		a.minutes += e.Duration
		a.count++
		if e.Start.Before(a.first) {
			a.first = e.Start
		}
		if e.End.After(a.last) {
			a.last = e.End
		}
	}

	selected := make([]Project, 0, len(byProject))
	for _, p := range projects {
		if !p.IsActive {
			continue
		}
		if _, ok := byProject[p.ID]; ok {
			selected = append(selected, p)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].CreatedAt.Equal(selected[j].CreatedAt) {
			return selected[i].CreatedAt.Before(selected[j].CreatedAt)
		}
		return selected[i].ID < selected[j].ID
	})

	out := Summary{Projects: make([]ProjectSummary, 0, len(selected))}
	var totalHours, billableHours, billableEarnings float64
	for _, p := range selected {
		ps := summarizeProject(p, byProject[p.ID])
		out.Projects = append(out.Projects, ps)

		totalHours += ps.Hours
		if _, billable := p.Rate(); billable {
			out.Overview.BillableProjects++
			billableHours += ps.Hours
			billableEarnings += ps.Earnings
		}
	}

	out.Overview.TotalProjects = len(selected)
	out.Overview.NonBillableProjects = out.Overview.TotalProjects - out.Overview.BillableProjects
	out.Overview.TotalHours = Round2(totalHours)
	out.Overview.BillableHours = Round2(billableHours)
	out.Overview.BillableEarnings = Round2(billableEarnings)
	out.Overview.NonBillableHours = Round2(out.Overview.TotalHours - out.Overview.BillableHours)
	return out
}

func summarizeProject(p Project, a *activity) ProjectSummary {
	ps := ProjectSummary{
		ProjectID:     p.ID,
		Name:          p.Name,
		Description:   p.Description,
		IsBillable:    p.IsBillable,
		CreatedOn:     FormatLocalInstant(p.CreatedAt),
		FirstActivity: NoWorkRecorded,
		LastActivity:  NoWorkRecorded,
	}
	if rate, ok := p.Rate(); ok {
		ps.HourlyRate = Float64Ptr(rate)
	}
	if a == nil || a.count == 0 {
		return ps
	}

	ps.TotalMinutes = a.minutes
	ps.Hours = HoursFromMinutes(a.minutes)
	if rate, ok := p.Rate(); ok {
		ps.Earnings = Round2(ps.Hours * rate)
	}
	ps.FirstActivity = FormatLocalInstant(a.first)
	ps.LastActivity = FormatLocalInstant(a.last)
	return ps
}
