// Package tool wraps remote operations so they can be served as MCP tools.
//
// The pieces split by concern:
//   - operation: named operations with a declared parameter list
//   - args: binding raw tool arguments against that parameter list
//   - task: one abstraction for blocking and context-aware work
//   - adapter: the error-normalizing wrapper every operation is served through
//   - serialize: conversion of response objects into plain JSON-ready values
//   - observability: process-wide hooks for invocations, retries and health
//
// A WrappedOperation never returns an error to its caller. Failures end at the
// adapter as one structured log entry plus the nil "no result" value.
package tool
