// Package docs swagger-описание API для gin-swagger.
// Ведётся вручную вместе с аннотациями хендлеров в internal/http.
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
        "/appointments": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["appointments"], "summary": "List appointments", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["appointments"], "summary": "Book appointment", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}
        },
        "/appointments/available-slots/{masterId}": {
            "get": {"produces": ["application/json"], "tags": ["appointments"], "summary": "Free slots of a master", "parameters": [{"type": "string", "name": "masterId", "in": "path", "required": true}, {"type": "string", "name": "date", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/appointments/statuses": {
            "get": {"produces": ["application/json"], "tags": ["appointments"], "summary": "Appointment statuses", "responses": {"200": {"description": "OK"}}}
        },
        "/appointments/{id}": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["appointments"], "summary": "Get appointment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["appointments"], "summary": "Delete appointment", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}}}
        },
        "/appointments/{id}/assign-master": {
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["appointments"], "summary": "Assign master", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/appointments/{id}/status": {
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["appointments"], "summary": "Change appointment status", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/orders": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["orders"], "summary": "List orders", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["orders"], "summary": "Place order", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/orders/statuses": {
            "get": {"produces": ["application/json"], "tags": ["orders"], "summary": "Order statuses", "responses": {"200": {"description": "OK"}}}
        },
        "/orders/{id}": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["orders"], "summary": "Get order by id", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Delete order", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/orders/{id}/items": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["orders"], "summary": "Add item to a pending order", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/orders/{id}/status": {
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["orders"], "summary": "Change order status", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/products": {
            "get": {"produces": ["application/json"], "tags": ["products"], "summary": "List products", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["products"], "summary": "Create product", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/products/{id}": {
            "get": {"produces": ["application/json"], "tags": ["products"], "summary": "Get product by id", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["products"], "summary": "Update product", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["products"], "summary": "Delete product", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/products/{id}/stock/decrease": {
            "put": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["products"], "summary": "Decrease stock", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "integer", "name": "quantity", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/products/{id}/stock/increase": {
            "put": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["products"], "summary": "Increase stock", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "integer", "name": "quantity", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/products/{id}/toggle-status": {
            "put": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["products"], "summary": "Toggle product availability", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/services": {
            "get": {"produces": ["application/json"], "tags": ["services"], "summary": "List services", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["services"], "summary": "Create service", "responses": {"201": {"description": "Created"}}}
        },
        "/services/{id}": {
            "get": {"produces": ["application/json"], "tags": ["services"], "summary": "Get service", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/users": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["users"], "summary": "Create user", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/users/masters": {
            "get": {"produces": ["application/json"], "tags": ["users"], "summary": "List masters", "responses": {"200": {"description": "OK"}}}
        },
        "/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["users"], "summary": "Get user", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:9091",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Autoservice API",
	Description:      "Appointments of a car service and parts orders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
