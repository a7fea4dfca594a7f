// Package docs registers the parqd Swagger spec with swaggo's runtime
// registry. Hand-maintained rather than `swag init`-generated, since the
// API surface here is small and stable; regenerate with swag if handlers
// grow beyond what's listed below.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "parq diagnostics API",
        "description": "Resolve hostnames and inspect resolver health over HTTP.",
        "version": "1.0"
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stats": {
            "get": {
                "tags": ["system"],
                "summary": "Server statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/resolve": {
            "get": {
                "tags": ["resolve"],
                "summary": "Resolve a hostname",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "host", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "missing host"},
                    "404": {"description": "name does not exist (NXDOMAIN)"},
                    "502": {"description": "resolution failed"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "parq diagnostics API",
	Description:      "Resolve hostnames and inspect resolver health over HTTP.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
