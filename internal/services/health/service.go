package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RunCounter reports background runs currently admitted.
type RunCounter interface {
	InFlight() int
}

// Service encapsulates health-related checks.
type Service struct {
	DB          Pinger
	Runs        RunCounter
	PingTimeout time.Duration
}

// Report is the readiness payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	InFlight int    `json:"runs_in_flight"`
}

// NewService constructs a new health service. db may be nil when running on
// in-memory repositories.
func NewService(db Pinger, runs RunCounter) *Service {
	return &Service{DB: db, Runs: runs, PingTimeout: 2 * time.Second}
}

// Status returns a simple liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Ready checks the database connection.
func (s *Service) Ready(ctx context.Context) Report {
	report := Report{OK: true, Database: "memory"}
	if s.Runs != nil {
		report.InFlight = s.Runs.InFlight()
	}
	if s.DB == nil {
		return report
	}
	timeout := s.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		report.OK = false
		report.Database = "unreachable"
		return report
	}
	report.Database = "ok"
	return report
}
