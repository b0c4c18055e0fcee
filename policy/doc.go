// Package policy provides the request policies that surround the retry
// policy in a storage pipeline.
//
// Each constructor returns a pipeline.Factory:
//
//   - NewTelemetryPolicyFactory sets the User-Agent header
//   - NewUniqueRequestIDPolicyFactory stamps a client request ID once per operation
//   - NewTracingPolicyFactory opens one span per operation and records metrics
//   - NewRequestLogPolicyFactory logs every try through the pipeline logger
//   - Injector fails a configurable number of tries, for tests
//
// Policies placed before the retry policy run once per operation; policies
// after it run once per try.
package policy
