package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docdesk API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docdesk", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/api/auth/login/": {
      "post": {
        "summary": "Log in with username and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["username","password"],"properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user, token and refresh_token" }, "400": { "description": "invalid credentials" } }
      }
    },
    "/api/auth/refresh/": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/logout/": {
      "post": { "summary": "Revoke the access token and refresh session", "security": [{"bearer": []}], "responses": { "200": { "description": "logged out" } } }
    },
    "/api/auth/profile/": {
      "get": { "summary": "Current user", "security": [{"bearer": []}], "responses": { "200": { "description": "user" } } },
      "put": { "summary": "Replace profile", "security": [{"bearer": []}], "responses": { "200": { "description": "user" } } },
      "patch": { "summary": "Update profile", "security": [{"bearer": []}], "responses": { "200": { "description": "user" } } }
    },
    "/api/documents/documents/": {
      "get": { "summary": "List visible documents", "parameters": [{"name":"search","in":"query"},{"name":"author","in":"query"},{"name":"category","in":"query"},{"name":"ordering","in":"query"}], "responses": { "200": { "description": "documents" } } },
      "post": { "summary": "Create a document", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } }
    },
    "/api/documents/documents/my_documents/": {
      "get": { "summary": "Documents authored by the caller", "security": [{"bearer": []}], "responses": { "200": { "description": "documents" } } }
    },
    "/api/documents/documents/{id}/": {
      "get": { "summary": "Retrieve a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace a document", "security": [{"bearer": []}], "responses": { "200": { "description": "document" } } },
      "patch": { "summary": "Update a document", "security": [{"bearer": []}], "responses": { "200": { "description": "document" } } },
      "delete": { "summary": "Delete a document", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" } } }
    },
    "/api/documents/categories/": {
      "get": { "summary": "List categories", "parameters": [{"name":"search","in":"query"},{"name":"ordering","in":"query"}], "responses": { "200": { "description": "categories" } } },
      "post": { "summary": "Create a category", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } }
    },
    "/api/documents/categories/tree/": {
      "get": { "summary": "Root categories", "responses": { "200": { "description": "categories" } } }
    },
    "/api/documents/categories/{id}/": {
      "get": { "summary": "Retrieve a category", "responses": { "200": { "description": "category" } } },
      "put": { "summary": "Replace a category", "security": [{"bearer": []}], "responses": { "200": { "description": "category" } } },
      "patch": { "summary": "Update a category", "security": [{"bearer": []}], "responses": { "200": { "description": "category" } } },
      "delete": { "summary": "Delete a category and its descendants", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" } } }
    },
    "/api/tasks/sample/": { "post": { "summary": "Queue the sample job", "security": [{"bearer": []}], "responses": { "200": { "description": "task id" } } } },
    "/api/tasks/email/": { "post": { "summary": "Queue an email", "security": [{"bearer": []}], "responses": { "200": { "description": "task id" }, "400": { "description": "missing recipient" } } } },
    "/api/tasks/add/": { "post": { "summary": "Queue add_numbers", "security": [{"bearer": []}], "responses": { "200": { "description": "task id" } } } },
    "/api/tasks/process/": { "post": { "summary": "Queue process_data", "security": [{"bearer": []}], "responses": { "200": { "description": "task id" } } } },
    "/api/tasks/{id}/status/": { "get": { "summary": "Job status", "security": [{"bearer": []}], "responses": { "200": { "description": "status" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
