// Package observe provides the logging and telemetry primitives used by the
// storage request pipeline.
//
// It is a pure instrumentation library: it does not send requests. The policy
// package wires an Observer and a Logger into the pipeline; the pipeline package
// hands the Logger to every policy through its PolicyOptions.
package observe
