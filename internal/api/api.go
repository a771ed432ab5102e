// Package api holds the OpenAPI document of the admin API. Wire types can be
// regenerated from it with go generate.
package api

import _ "embed"

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types -package api -o api.gen.go openapi.yaml

//go:embed openapi.yaml
var Document []byte
