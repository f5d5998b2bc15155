// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with `swag init -g cmd/walletscope/main.go -o docs`.
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
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/wallets/{address}/analysis": {
            "get": {
                "tags": ["wallets"],
                "summary": "Full wallet analysis",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true},
                    {"type": "boolean", "description": "bypass cache", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "502": {"description": "Bad Gateway"}}
            }
        },
        "/api/v1/wallets/{address}/metrics": {
            "get": {
                "tags": ["wallets"],
                "summary": "Raw and clean wallet metrics",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true},
                    {"type": "boolean", "description": "bypass cache", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/wallets/{address}/tokens": {
            "get": {
                "tags": ["wallets"],
                "summary": "Per-token breakdown sorted by realized PnL",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true},
                    {"type": "boolean", "description": "bypass cache", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/wallets/{address}/overview": {
            "get": {
                "tags": ["wallets"],
                "summary": "Rolling N-day overview",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true},
                    {"type": "integer", "description": "window in days (default 7)", "name": "days", "in": "query"},
                    {"type": "boolean", "description": "bypass cache", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/wallets/{address}/positions": {
            "get": {
                "tags": ["wallets"],
                "summary": "Open positions with scam flags",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true},
                    {"type": "boolean", "description": "bypass cache", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/leaderboard": {
            "get": {
                "tags": ["leaderboard"],
                "summary": "Copy-trade leaderboard",
                "parameters": [
                    {"type": "integer", "description": "max rows (default 50)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "minimum closed trades", "name": "min_trades", "in": "query"},
                    {"type": "string", "description": "Excellent|Good|Fair|Poor", "name": "rating", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/leaderboard/{address}": {
            "get": {
                "tags": ["leaderboard"],
                "summary": "Latest stored score for a wallet",
                "parameters": [
                    {"type": "string", "description": "wallet address", "name": "address", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "walletscope API",
	Description:      "Wallet trade reconstruction, rug detection and copy-trade scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
