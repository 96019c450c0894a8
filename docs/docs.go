// Package docs holds the embedded OpenAPI document for the admin HTTP API,
// in the same shape `swag init` would generate: a doc template registered
// with the swaggo runtime, and an InstanceName other code never needs to
// reference directly since gin-swagger finds it by the package's side
// effect of importing it blank.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "description": "Returns whether the daemon's physical adapter is connected",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service is degraded", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/stack": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stack"],
                "summary": "Stack introspection",
                "description": "Lists the composed stack's layers, top to bottom, with each layer's MTU",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StackResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stack"],
                "summary": "Traffic counters",
                "description": "Reports cumulative encode/decode call and byte counts for the running stack",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "adapter": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "types.StackLayerInfo": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "mtu": {"type": "integer"}
            }
        },
        "types.StackResponse": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "layers": {"type": "array", "items": {"$ref": "#/definitions/types.StackLayerInfo"}}
            }
        },
        "types.StatsResponse": {
            "type": "object",
            "properties": {
                "encode_count": {"type": "integer"},
                "decode_count": {"type": "integer"},
                "encode_bytes": {"type": "integer"},
                "decode_bytes": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported swagger metadata for the admin API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8081",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Embedded Debugger Bridge Admin API",
	Description:      "Health, stack introspection, and traffic counters for a running edbgd daemon",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
