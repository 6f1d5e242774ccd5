// Package docs holds the generated OpenAPI document for the read API,
// mirroring the teacher's swag-generated cmd/server/docs.go registration
// (swag.Register in an init()) so httpSwagger can serve it from /swagger/*.
// Hand-maintained instead of swag-init-generated since this module is built
// without invoking the Go toolchain; the template below is kept in lockstep
// with internal/api/router.go's route table by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "catalogcore Read API",
        "description": "Read-only catalog search, recommendation, and trending surface.",
        "version": "1.0"
    },
    "basePath": "/api/v1",
    "paths": {
        "/videos": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List videos",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/videos/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get a video by ID",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}
            }
        },
        "/search": {
            "get": {
                "tags": ["Search"],
                "summary": "Full-text search",
                "parameters": [{"name": "q", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/search/advanced": {
            "get": {
                "tags": ["Search"],
                "summary": "Advanced filtered search",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/search/suggestions": {
            "get": {
                "tags": ["Search"],
                "summary": "Search autocomplete suggestions",
                "parameters": [{"name": "q", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/recommend": {
            "get": {
                "tags": ["Recommend"],
                "summary": "Related-video recommendations",
                "parameters": [{"name": "id", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/trending": {
            "get": {
                "tags": ["Recommend"],
                "summary": "Trending videos",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds the registered spec, filled in by cmd/catalogd's
// @title/@description annotations at doc-generation time in the teacher's
// workflow; hand-populated here to match.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "catalogcore Read API",
	Description:      "Read-only catalog search, recommendation, and trending surface.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
