// Package credential signs requests for a storage pipeline.
//
// A Credential is a pipeline.Factory. blob.NewPipeline places it after the
// retry policy so every try is signed for the host it is sent to.
//
// Three credentials are provided:
//   - Anonymous leaves requests unsigned, for public containers and SAS URLs
//   - SharedKeyCredential signs with an HMAC-SHA256 of the canonical request
//   - TokenCredential attaches an HS256 bearer token whose audience is the host
//
// Signing failures are marked with resilience.Permanent so they are never
// retried.
package credential
