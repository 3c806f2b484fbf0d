// Package api embeds the preview server's own API description.
package api

import _ "embed"

// OpenAPISpec is the OpenAPI 3.1 description of the preview server, served
// at /api/openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
