// Package docs registers the budgetwatch OpenAPI document with swag.
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
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "User registered and token generated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "User authenticated and token generated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["user"],
                "summary": "Get user profile",
                "responses": {
                    "200": {"description": "User profile", "schema": {"$ref": "#/definitions/handlers.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budgets": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "List budgets",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated budgets"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Create a budget",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateBudgetRequest"}}],
                "responses": {
                    "201": {"description": "Budget created"},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budgets/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Evaluate budgets",
                "description": "Compute spend against each budget and notify the user of any near-limit or exceeded budgets",
                "responses": {
                    "200": {"description": "Budget statuses and alerts", "schema": {"$ref": "#/definitions/services.EvaluationReport"}},
                    "503": {"description": "Spending could not be aggregated", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budgets/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Get budget by ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Budget details"}, "404": {"description": "Budget not found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Update budget",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateBudgetRequest"}}
                ],
                "responses": {"200": {"description": "Updated budget"}, "404": {"description": "Budget not found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Delete budget",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Budget deleted"}, "404": {"description": "Budget not found"}}
            }
        },
        "/transactions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "List transactions",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "type", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "min_amount", "in": "query"},
                    {"type": "string", "name": "max_amount", "in": "query"},
                    {"type": "string", "name": "start_date", "in": "query"},
                    {"type": "string", "name": "end_date", "in": "query"},
                    {"type": "boolean", "name": "is_recurring", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated transactions"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Create a transaction",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateTransactionRequest"}}],
                "responses": {"201": {"description": "Transaction created"}, "400": {"description": "Invalid input"}}
            }
        },
        "/transactions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Get transaction by ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Transaction details"}, "404": {"description": "Transaction not found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Update transaction",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateTransactionRequest"}}
                ],
                "responses": {"200": {"description": "Updated transaction"}, "404": {"description": "Transaction not found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Delete transaction",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Transaction deleted"}, "404": {"description": "Transaction not found"}}
            }
        },
        "/pipeline/users/{id}/budget-evaluations": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["pipeline"],
                "summary": "Evaluate a user's budgets (pipeline)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Budget statuses and alerts", "schema": {"$ref": "#/definitions/services.EvaluationReport"}},
                    "401": {"description": "Invalid API key"},
                    "503": {"description": "Pipeline not configured"}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.CreateBudgetRequest": {
            "type": "object",
            "required": ["category", "limit", "start_date", "end_date"],
            "properties": {
                "category": {"type": "string"},
                "limit": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "alert_threshold": {"type": "number"}
            }
        },
        "handlers.UpdateBudgetRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "limit": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "alert_threshold": {"type": "number"}
            }
        },
        "handlers.CreateTransactionRequest": {
            "type": "object",
            "required": ["type", "amount", "category"],
            "properties": {
                "type": {"type": "string", "enum": ["income", "expense"]},
                "amount": {"type": "string"},
                "category": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "is_recurring": {"type": "boolean"},
                "recurrence_interval": {"type": "string", "enum": ["daily", "weekly", "monthly", "yearly"]}
            }
        },
        "handlers.UpdateTransactionRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["income", "expense"]},
                "amount": {"type": "string"},
                "category": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "is_recurring": {"type": "boolean"},
                "recurrence_interval": {"type": "string", "enum": ["daily", "weekly", "monthly", "yearly"]}
            }
        },
        "services.BudgetStatusResult": {
            "type": "object",
            "properties": {
                "budget_id": {"type": "string"},
                "category": {"type": "string"},
                "limit": {"type": "string"},
                "spent": {"type": "string"},
                "percentage_used": {"type": "number"},
                "status": {"type": "string", "enum": ["within_limit", "near_limit", "exceeded", "unknown"]},
                "error": {"type": "string"}
            }
        },
        "services.Alert": {
            "type": "object",
            "properties": {
                "budget_id": {"type": "string"},
                "category": {"type": "string"},
                "message": {"type": "string"},
                "delivered": {"type": "boolean"},
                "suppressed": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "services.EvaluationReport": {
            "type": "object",
            "properties": {
                "statuses": {"type": "array", "items": {"$ref": "#/definitions/services.BudgetStatusResult"}},
                "alerts": {"type": "array", "items": {"$ref": "#/definitions/services.Alert"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "budgetwatch API",
	Description:      "Budget threshold evaluation and alert dispatch.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
