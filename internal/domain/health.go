package domain

// HealthStatus is the outcome of a single diagnostic check.
type HealthStatus string

const (
	HealthOK   HealthStatus = "ok"
	HealthWarn HealthStatus = "warn"
	HealthFail HealthStatus = "fail"
)

// HealthCheck is one named diagnostic result.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
}

// HealthReport aggregates all diagnostics.
type HealthReport struct {
	Checks []HealthCheck `json:"checks"`
}

// Healthy reports whether no check failed outright.
func (r HealthReport) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == HealthFail {
			return false
		}
	}
	return true
}
