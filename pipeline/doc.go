// Package pipeline implements the ordered request policy chain every storage
// operation passes through.
//
// A Pipeline is built once from an ordered list of Factories and a transport.
// Factory i wraps factory i+1; the last factory wraps the transport node,
// which hands the request to an HTTPClient. Each Policy may inspect or mutate
// the request on the way in and the response or error on the way out.
//
//	p := pipeline.New([]pipeline.Factory{
//	    policy.NewUniqueRequestIDPolicyFactory(),
//	    resilience.NewRetryPolicyFactory(resilience.RetryOptions{MaxTries: 3}),
//	    credential.NewAnonymousCredential(),
//	}, pipeline.Options{Logger: logger, LogLevel: observe.LevelWarn})
//
//	req, _ := pipeline.NewRequest(http.MethodGet, "https://acct.blob.example.net/c?restype=container", nil)
//	resp, err := p.Do(ctx, req)
//
// Pipelines are immutable and safe to share between goroutines. To customize
// behavior, build a new Pipeline from Factories() plus extra factories; the
// original and everything using it are unaffected.
package pipeline
