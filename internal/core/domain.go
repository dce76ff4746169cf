package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinHourlyRate is the smallest rate a billable project may carry.
const MinHourlyRate = 0.01

const (
	projectNameMin        = 3
	projectNameMax        = 100
	projectDescriptionMax = 500
	entryDescriptionMax   = 1000
)

type (
	User struct {
		ID           string
		Uname        string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Project struct {
		ID          string
		OwnerID     string
		Name        string
		Description string
		IsBillable  bool
		HourlyRate  *float64 // set iff IsBillable
		IsActive    bool
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	TimeEntry struct {
		ID          string
		OwnerID     string
		ProjectID   string
		Start       time.Time
		End         time.Time
		Duration    int64 // minutes, derived from Start/End
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

// Validate checks field limits and the billable/rate co-constraint.
func (p Project) Validate() error {
	name := strings.TrimSpace(p.Name)
	if n := utf8.RuneCountInString(name); n < projectNameMin {
		return FieldError(KindValidation, "name", "Project name must be at least 3 characters")
	} else if n > projectNameMax {
		return FieldError(KindValidation, "name", "Project name must be at most 100 characters")
	}
	if utf8.RuneCountInString(p.Description) > projectDescriptionMax {
		return FieldError(KindValidation, "description", "Description must be at most 500 characters")
	}
	if p.IsBillable {
		if p.HourlyRate == nil {
			return FieldError(KindValidation, "hourlyRate", "Hourly rate is required for billable projects")
		}
		if *p.HourlyRate < MinHourlyRate {
			return FieldError(KindValidation, "hourlyRate", "Hourly rate must be a positive amount")
		}
	} else if p.HourlyRate != nil {
		return FieldError(KindValidation, "hourlyRate", "Hourly rate is only allowed for billable projects")
	}
	return nil
}

// Rate returns the hourly rate and whether the project earns money.
func (p Project) Rate() (float64, bool) {
	if !p.IsBillable || p.HourlyRate == nil || *p.HourlyRate <= 0 {
		return 0, false
	}
	return *p.HourlyRate, true
}

// Interval returns the span covered by the entry.
func (e TimeEntry) Interval() Interval {
	return Interval{Start: e.Start, End: e.End}
}

// Occupied returns the entry as an overlap candidate.
func (e TimeEntry) Occupied() Occupied {
	return Occupied{ID: e.ID, Interval: e.Interval()}
}

// ValidateDescription enforces the 1..1000 character bound.
func ValidateDescription(s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < 1 {
		return FieldError(KindValidation, "description", "Description is required")
	}
	if n > entryDescriptionMax {
		return FieldError(KindValidation, "description", "Description must be at most 1000 characters")
	}
	return nil
}

// Occupancy converts stored entries to overlap candidates.
func Occupancy(entries []TimeEntry) []Occupied {
	out := make([]Occupied, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Occupied())
	}
	return out
}

// Float64Ptr is a convenience for optional rates.
func Float64Ptr(v float64) *float64 { return &v }
