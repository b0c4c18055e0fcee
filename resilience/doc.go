// Package resilience provides the retry, failover and load-shedding policies
// of the storage request pipeline.
//
// # Retry and failover
//
// NewRetryPolicyFactory builds the policy that retries transient failures with
// exponential backoff. For read-only requests it alternates between the
// primary host and RetryOptions.SecondaryHost; mutating requests always stay
// on the primary host.
//
//	retry := resilience.NewRetryPolicyFactory(resilience.RetryOptions{
//	    MaxTries:      4,
//	    TryTimeout:    30 * time.Second,
//	    RetryDelay:    time.Second,
//	    MaxRetryDelay: 30 * time.Second,
//	    SecondaryHost: "acct-secondary.blob.example.net",
//	})
//
// Every attempt sends a fresh copy of the request addressed to its target
// host, so policies after the retry policy (signing in particular) run once
// per attempt.
//
// Outcomes are classified by Classify into success, retryable network error,
// retryable server error, permanent error and cancellation. Errors leaving the
// policy are *AttemptError values wrapping the last real failure. Use
// WithDiagnostics to inspect every attempt after the call returns.
//
// # Load shedding
//
// NewThrottlePolicyFactory limits the request rate with a token bucket and
// NewBulkheadPolicyFactory limits concurrent requests. Both keep state shared by
// every request sent through the same Pipeline.
package resilience
