// Package secret resolves account keys and token signing secrets from
// configuration values.
//
// A value is either a literal, possibly containing ${VAR} references that
// are expanded from the environment, or a full reference to a Source:
//
//	keyref:env:STORAGE_ACCOUNT_KEY
//	keyref:file:acct.key
//
// Resolved values are never logged. credential.NewSharedKeyCredentialFromSecret
// and credential.TokenSecret use a Resolver to load key material.
package secret
