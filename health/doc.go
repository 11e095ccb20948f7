// Package health checks the dependencies of a bimq deployment before it
// answers questions.
//
// Each check returns a Status. Statuses are aggregated with Combine:
//
//	status := health.Combine(
//	    health.ModelCheck("data/house.json"),
//	    health.EndpointCheck(ctx, "LLM", cfg.LLM.BaseURL),
//	    health.EndpointCheck(ctx, "redis", cfg.Audit.RedisURL),
//	)
//	if status.IsUnhealthy() {
//	    return fmt.Errorf("not ready: %v", status.Details["failed_checks"])
//	}
//
// Network checks only open a TCP connection; they do not authenticate.
package health
