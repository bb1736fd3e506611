// Package chartmogul is a small typed client for the ChartMogul REST API.
//
// It covers the account, data source, customer and metrics endpoints exposed as MCP
// tools by this module. Every response type carries an explicit Fields conversion so
// callers can hand results to a generic serializer without reflection.
//
// Config is built once with NewConfig and is read-only afterwards; a Client may be
// shared by any number of goroutines.
package chartmogul
