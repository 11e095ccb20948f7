package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/zero-day-ai/bimq/element"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultDialTimeout bounds network checks whose context has no deadline.
const DefaultDialTimeout = 5 * time.Second

// Status is the outcome of one check or of a combination of checks.
type Status struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Healthy creates a healthy status.
func Healthy(message string) Status {
	return Status{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded status.
func Degraded(message string, details map[string]any) Status {
	return Status{Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy creates an unhealthy status.
func Unhealthy(message string, details map[string]any) Status {
	return Status{Status: StatusUnhealthy, Message: message, Details: details}
}

// IsHealthy reports whether s is healthy.
func (s Status) IsHealthy() bool { return s.Status == StatusHealthy }

// IsDegraded reports whether s is degraded.
func (s Status) IsDegraded() bool { return s.Status == StatusDegraded }

// IsUnhealthy reports whether s is unhealthy.
func (s Status) IsUnhealthy() bool { return s.Status == StatusUnhealthy }

// NetworkCheck verifies TCP connectivity to host:port.
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return Unhealthy("host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return Unhealthy(fmt.Sprintf("invalid port number: %d", port), map[string]any{"port": port})
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(fmt.Sprintf("failed to connect to %s", address), map[string]any{
			"host":  host,
			"port":  port,
			"error": err.Error(),
		})
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// defaultPorts maps URL schemes to the port used when the URL has none.
var defaultPorts = map[string]int{
	"http":      80,
	"https":     443,
	"redis":     6379,
	"rediss":    6379,
	"neo4j":     7687,
	"neo4j+s":   7687,
	"neo4j+ssc": 7687,
	"bolt":      7687,
	"bolt+s":    7687,
	"bolt+ssc":  7687,
}

// EndpointCheck dials the host of rawURL. An empty URL means the
// dependency is not configured and is reported as degraded.
func EndpointCheck(ctx context.Context, name, rawURL string) Status {
	if rawURL == "" {
		return Degraded(fmt.Sprintf("%s not configured", name), map[string]any{"name": name})
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Unhealthy(fmt.Sprintf("%s: invalid url %q", name, rawURL), map[string]any{"name": name})
	}

	port := defaultPorts[u.Scheme]
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Unhealthy(fmt.Sprintf("%s: invalid port %q", name, p), map[string]any{"name": name})
		}
	}

	st := NetworkCheck(ctx, u.Hostname(), port)
	st.Message = name + ": " + st.Message
	return st
}

// FileCheck verifies that a file or directory exists at path.
func FileCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Unhealthy(fmt.Sprintf("path '%s' does not exist", path), map[string]any{"path": path})
		}
		return Unhealthy(fmt.Sprintf("failed to stat path '%s'", path), map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}
	return Healthy(fmt.Sprintf("%s '%s' exists", fileType, path))
}

// ModelCheck loads the building model at path. A model without elements is
// degraded.
func ModelCheck(path string) Status {
	if st := FileCheck(path); !st.IsHealthy() {
		return st
	}
	m, err := element.LoadFile(path)
	if err != nil {
		return Unhealthy(fmt.Sprintf("model '%s' does not load", path), map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
	if m.Len() == 0 {
		return Degraded(fmt.Sprintf("model '%s' has no elements", path), map[string]any{"path": path})
	}
	return Healthy(fmt.Sprintf("model '%s' has %d elements", path, m.Len()))
}

// Combine aggregates statuses. Any unhealthy check makes the result
// unhealthy; otherwise any degraded check makes it degraded.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthy int
	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthy++
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(fmt.Sprintf("%d check(s) failed", len(unhealthy)), map[string]any{
			"total":         len(checks),
			"unhealthy":     len(unhealthy),
			"degraded":      len(degraded),
			"healthy":       healthy,
			"failed_checks": unhealthy,
		})
	}
	if len(degraded) > 0 {
		return Degraded(fmt.Sprintf("%d check(s) degraded", len(degraded)), map[string]any{
			"total":           len(checks),
			"degraded":        len(degraded),
			"healthy":         healthy,
			"degraded_checks": degraded,
		})
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
