// Package gsmcommon holds shared constants and helpers used across the sky
// model service.
package gsmcommon

const (
	// ServerVersion is the version of the sky model server.
	ServerVersion = "0.1.0"
	// ApiVersion is the version of the HTTP API.
	ApiVersion = "0.1.0-alpha.1"
)
