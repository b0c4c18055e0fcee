// Package abort provides the cancellation token used by storage operations.
//
// An Aborter is a context.Context, so it can be passed anywhere an operation
// accepts a context. Aborters form a tree: cancelling an Aborter cancels every
// Aborter created from it, while cancelling a child never affects its parent.
//
// # Usage
//
//	// Never cancels.
//	_, err := containerURL.Create(abort.None, nil)
//
//	// Cancels itself after 30 seconds.
//	a := abort.Timeout(30 * time.Second)
//	defer a.Cancel()
//	props, err := blobURL.GetProperties(a)
//
//	// A child inherits the parent's cancellation and adds its own deadline.
//	child := a.WithTimeout(5 * time.Second)
package abort
