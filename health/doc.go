// Package health probes storage endpoints.
//
// An EndpointChecker sends a cheap account-info request to one host and
// grades the result by latency. A Monitor runs the checkers for an account's
// primary and secondary endpoints together and folds them into one Report:
// a failing secondary only degrades the account, since reads can still be
// served from the primary.
//
//	mon := health.NewMonitor(health.MonitorConfig{Timeout: 5 * time.Second})
//	mon.Register(primaryChecker, true)
//	mon.Register(secondaryChecker, false)
//	report := mon.Check(ctx)
package health
