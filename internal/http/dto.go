package http

import (
	"strings"
	"time"

	"timetrack/internal/core"
	"timetrack/internal/services"
)

type signupRequest struct {
	Uname    string `json:"uname" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createProjectRequest struct {
	Name        string   `json:"name" validate:"required,min=3,max=100"`
	Description string   `json:"description" validate:"max=500"`
	IsBillable  bool     `json:"isBillable"`
	HourlyRate  *float64 `json:"hourlyRate" validate:"omitempty,gte=0.01"`
}

type updateProjectRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=3,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	IsBillable  *bool    `json:"isBillable"`
	HourlyRate  *float64 `json:"hourlyRate" validate:"omitempty,gte=0.01"`
}

type createEntryRequest struct {
	ProjectID   string `json:"projectId" validate:"required,uuid"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	Description string `json:"description" validate:"required,max=1000"`
}

type updateEntryRequest struct {
	ProjectID   *string `json:"projectId" validate:"omitempty,uuid"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (r *signupRequest) normalize() {
	r.Uname = strings.TrimSpace(r.Uname)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *createProjectRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *createEntryRequest) normalize() {
	r.Description = strings.TrimSpace(r.Description)
}

func (r createEntryRequest) input() services.EntryInput {
	return services.EntryInput{
		ProjectID:   r.ProjectID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Description: r.Description,
	}
}

func (r updateEntryRequest) patch() services.EntryPatch {
	return services.EntryPatch{
		ProjectID:   r.ProjectID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Description: r.Description,
	}
}

type userJSON struct {
	ID        string    `json:"id"`
	Uname     string    `json:"uname"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserJSON(u core.User) userJSON {
	return userJSON{ID: u.ID, Uname: u.Uname, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

type projectJSON struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsBillable  bool      `json:"isBillable"`
	HourlyRate  *float64  `json:"hourlyRate"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProjectJSON(p core.Project) projectJSON {
	return projectJSON{
		ID:          p.ID,
		UserID:      p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		IsBillable:  p.IsBillable,
		HourlyRate:  p.HourlyRate,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// entryJSON renders start and end in the local instant format.
type entryJSON struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	UserID      string    `json:"userId"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Duration    int64     `json:"duration"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEntryJSON(e core.TimeEntry) entryJSON {
	return entryJSON{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		UserID:      e.OwnerID,
		StartTime:   core.FormatLocalInstant(e.Start),
		EndTime:     core.FormatLocalInstant(e.End),
		Duration:    e.Duration,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type filterJSON struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type summaryResponse struct {
	Success       bool        `json:"success"`
	FilterApplied *filterJSON `json:"filterApplied"`
	Msg           string      `json:"msg,omitempty"`
	Data          any         `json:"data"`
}

func newSummaryResponse(f core.RangeFilter, data any) summaryResponse {
	resp := summaryResponse{Success: true, Data: data}
	if !f.IsZero() {
		resp.FilterApplied = &filterJSON{From: f.FromText, To: f.ToText}
	}
	return resp
}

type projectSummaryJSON struct {
	ProjectID         string   `json:"projectId"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	IsBillable        bool     `json:"isBillable"`
	HourlyRate        *float64 `json:"hourlyRate"`
	ProjectCreatedOn  string   `json:"projectCreatedOn"`
	ProjectStartedOn  string   `json:"projectStartedOn"`
	ProjectLastWorkOn string   `json:"projectLastWorkOn"`
	TotalWorkingHours float64  `json:"totalWorkingHours"`
	TotalEarnings     float64  `json:"totalEarnings"`
}

func toProjectSummaryJSON(ps []core.ProjectSummary) []projectSummaryJSON {
	out := make([]projectSummaryJSON, len(ps))
	for i, p := range ps {
		out[i] = projectSummaryJSON{
			ProjectID:         p.ProjectID,
			Name:              p.Name,
			Description:       p.Description,
			IsBillable:        p.IsBillable,
			HourlyRate:        p.HourlyRate,
			ProjectCreatedOn:  p.CreatedOn,
			ProjectStartedOn:  p.FirstActivity,
			ProjectLastWorkOn: p.LastActivity,
			TotalWorkingHours: p.Hours,
			TotalEarnings:     p.Earnings,
		}
	}
	return out
}

type overviewJSON struct {
	TotalProjects       int     `json:"totalProjects"`
	TotalWorkingHours   float64 `json:"totalWorkingHours"`
	BillableProjects    int     `json:"billableProjects"`
	BillableHours       float64 `json:"billableHours"`
	BillableEarnings    float64 `json:"billableEarnings"`
	NonBillableProjects int     `json:"nonBillableProjects"`
	NonBillableHours    float64 `json:"nonBillableHours"`
}

func toOverviewJSON(o core.Overview) overviewJSON {
	return overviewJSON{
		TotalProjects:       o.TotalProjects,
		TotalWorkingHours:   o.TotalHours,
		BillableProjects:    o.BillableProjects,
		BillableHours:       o.BillableHours,
		BillableEarnings:    o.BillableEarnings,
		NonBillableProjects: o.NonBillableProjects,
		NonBillableHours:    o.NonBillableHours,
	}
}
