// Package health reports service readiness for the healthz endpoint.
//
// The tiers are deliberate: the dashboard read path only needs the database,
// so missing provider or storage credentials degrade instead of failing.
package health

import "context"

type Status string

const (
	StatusOK        Status = "ok"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report is the healthz response body.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]string `json:"components"`
}

// Checker evaluates component health. PingDB is required; the two Configured
// flags come from startup config and never change at runtime.
type Checker struct {
	PingDB func(ctx context.Context) error

	TelephonyConfigured bool
	StorageConfigured   bool
}

func (c Checker) Check(ctx context.Context) Report {
	components := map[string]string{
		"database":  "ok",
		"telephony": "ok",
		"storage":   "ok",
	}
	status := StatusOK

	if c.PingDB == nil {
		components["database"] = "not configured"
		status = StatusUnhealthy
	} else if err := c.PingDB(ctx); err != nil {
		components["database"] = err.Error()
		status = StatusUnhealthy
	}

	if !c.TelephonyConfigured {
		components["telephony"] = "credentials missing"
		if status == StatusOK {
			status = StatusDegraded
		}
	}
	if !c.StorageConfigured {
		components["storage"] = "not configured"
		if status == StatusOK {
			status = StatusDegraded
		}
	}

	return Report{Status: status, Components: components}
}
