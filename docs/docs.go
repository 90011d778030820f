// Package docs registers the OpenAPI description served by gin-swagger.
//
// Regenerate with `swag init -g cmd/polyglot/main.go -o docs` after changing
// handler annotations.
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
        "/posts": {
            "get":  {"tags": ["Posts"], "summary": "Search posts", "operationId": "searchPosts", "produces": ["application/json"],
                     "parameters": [
                        {"type": "string",  "name": "q",              "in": "query"},
                        {"type": "string",  "name": "fields",         "in": "query"},
                        {"type": "string",  "name": "locale",         "in": "query"},
                        {"type": "string",  "name": "relation",       "in": "query"},
                        {"type": "string",  "name": "relation_field", "in": "query"},
                        {"type": "boolean", "name": "complete",       "in": "query"},
                        {"type": "integer", "name": "page",           "in": "query"},
                        {"type": "integer", "name": "page_size",      "in": "query"}
                     ],
                     "responses": {"200": {"description": "OK"}, "400": {"description": "Bad request"}}},
            "post": {"tags": ["Posts"], "summary": "Create a post", "operationId": "createPost", "consumes": ["application/json"], "produces": ["application/json"],
                     "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}],
                     "responses": {"200": {"description": "Replayed for a repeated Idempotency-Key"}, "201": {"description": "Created"}, "400": {"description": "Bad request, invalid locale or malformed Idempotency-Key"}, "422": {"description": "Field not translatable"}}}
        },
        "/posts/{id}": {
            "get":    {"tags": ["Posts"], "summary": "Get a post", "operationId": "getPost",
                       "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "locale", "in": "query"}],
                       "responses": {"200": {"description": "OK"}, "404": {"description": "Post not found"}}},
            "delete": {"tags": ["Posts"], "summary": "Delete a post", "operationId": "deletePost",
                       "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                       "responses": {"200": {"description": "OK"}, "404": {"description": "Post not found"}}}
        },
        "/posts/{id}/comments": {
            "post": {"tags": ["Posts"], "summary": "Comment on a post", "operationId": "addComment",
                     "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                     "responses": {"201": {"description": "Created"}, "404": {"description": "Post not found"}}}
        },
        "/posts/{id}/completeness": {
            "get": {"tags": ["Translations"], "summary": "Per-locale completeness of a post", "operationId": "completeness",
                    "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                    "responses": {"200": {"description": "OK"}}}
        },
        "/posts/{id}/translations": {
            "get": {"tags": ["Translations"], "summary": "List all overrides of a post", "operationId": "listTranslations",
                    "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                    "responses": {"200": {"description": "OK"}}}
        },
        "/posts/{id}/translations/{field}": {
            "get": {"tags": ["Translations"], "summary": "List overrides of one field", "operationId": "listFieldTranslations",
                    "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "field", "in": "path", "required": true}],
                    "responses": {"200": {"description": "OK"}, "422": {"description": "Field not translatable"}}}
        },
        "/posts/{id}/translations/{field}/missing": {
            "get": {"tags": ["Translations"], "summary": "Locales without a value for a field", "operationId": "missingLocales",
                    "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "field", "in": "path", "required": true}],
                    "responses": {"200": {"description": "OK"}}}
        },
        "/posts/{id}/translations/{field}/{locale}": {
            "get":    {"tags": ["Translations"], "summary": "Resolve one field in a locale", "operationId": "getTranslation",
                       "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "field", "in": "path", "required": true}, {"type": "string", "name": "locale", "in": "path", "required": true}],
                       "responses": {"200": {"description": "Override, fallback override or source value"}, "400": {"description": "Post id is not a UUID"}, "404": {"description": "Post not found"}, "422": {"description": "Field not translatable"}}},
            "put":    {"tags": ["Translations"], "summary": "Write one field in a locale", "operationId": "putTranslation",
                       "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "field", "in": "path", "required": true}, {"type": "string", "name": "locale", "in": "path", "required": true}],
                       "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid locale"}}},
            "delete": {"tags": ["Translations"], "summary": "Remove one override", "operationId": "deleteTranslation",
                       "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "field", "in": "path", "required": true}, {"type": "string", "name": "locale", "in": "path", "required": true}],
                       "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/translations/stats": {
            "get": {"tags": ["Admin"], "summary": "Translation statistics", "operationId": "translationStats",
                    "parameters": [{"type": "string", "name": "entity_type", "in": "query"}, {"type": "string", "name": "locale", "in": "query"}],
                    "responses": {"200": {"description": "OK"}}}
        },
        "/admin/translations/orphans": {
            "get":    {"tags": ["Admin"], "summary": "List orphaned overrides", "operationId": "listOrphans", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Admin"], "summary": "Remove orphaned overrides", "operationId": "cleanOrphans", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Polyglot Translation API",
	Description:      "Per-field, per-locale translation overrides with single-hop fallback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
