// Package docs registers the swagger spec for the dohgate admin API with
// gin-swagger. It is hand-maintained rather than `swag init`-generated:
// keep it in sync with the @-annotations in internal/api/handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "dohgate",
            "url": "https://github.com/dohgate/dohgate"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": { "description": "OK", "schema": {"$ref": "#/definitions/models.StatusResponse"} }
                }
            }
        },
        "/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Server statistics",
                "responses": {
                    "200": { "description": "OK", "schema": {"$ref": "#/definitions/models.ServerStatsResponse"} }
                }
            }
        },
        "/config": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["config"],
                "summary": "Get current configuration",
                "responses": {
                    "200": { "description": "OK", "schema": {"$ref": "#/definitions/models.ConfigResponse"} },
                    "500": { "description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"} }
                }
            }
        }
    },
    "definitions": {
        "models.StatusResponse": {
            "type": "object",
            "properties": { "status": {"type": "string"} }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": { "error": {"type": "string"} }
        },
        "models.ServerStatsResponse": {
            "type": "object",
            "properties": {
                "uptime": {"type": "string"},
                "uptime_seconds": {"type": "integer"}
            }
        },
        "models.ConfigResponse": {
            "type": "object"
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "in": "header",
            "name": "X-API-Key"
        }
    }
}`

// SwaggerInfo holds exported swagger spec metadata for the admin API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "dohgate Admin API",
	Description:      "Read-only status, statistics, and configuration surface for a running dohgate proxy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
