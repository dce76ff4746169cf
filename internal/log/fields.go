package log

import (
	"maps"
	"slices"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldOperation     = "operation"
	FieldOwnerID       = "owner_id"
	FieldProjectID     = "project_id"
	FieldEntryID       = "entry_id"
	FieldEvent         = "event"
	FieldPurged        = "entries_removed"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentEntries   = "entries"
	ComponentProjects  = "projects"
	ComponentSummary   = "summary"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpDeactivate = "deactivate"
	OpSweep      = "sweep"
	OpRender     = "render"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner scopes the record to one user.
func (f LogFields) WithOwner(ownerID string) LogFields {
	f[FieldOwnerID] = ownerID
	return f
}

// WithEntry adds the identifiers of a time entry.
func (f LogFields) WithEntry(entryID, projectID string) LogFields {
	f[FieldEntryID] = entryID
	f[FieldProjectID] = projectID
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to key/value pairs for slog, sorted by key so
// output is stable.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
