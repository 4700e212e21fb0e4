// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time so request validation works
// regardless of the working directory or installation location.
package schemasassets

import _ "embed"

// VideoRequestSchema is the embedded video-request JSON schema.
//
// It validates job submissions from the HTTP API and `jobs submit` files.
//
//go:embed video-request.schema.json
var VideoRequestSchema []byte
