//go:build swag

package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"

	docs "github.com/BlueFrogAnalytics/SamBot/internal/services/api/docs"
)

// docReader is a seam so tests can inject invalid JSON without patching swagger
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

// serveDocJSON parses the generated spec, normalizes it to OAS3 with the
// mounted base url, and stamps the default error responses every endpoint
// shares before serving it
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := docReader()

		var spec map[string]any
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		// OAS3 base url lives in servers, not BasePath
		normalizeOAS3(spec, "/api/v1")

		if v := config.New().Prefix("SAMBOT_API_").MayString("DOCS_TITLE_SUFFIX", ""); v != "" {
			if info, ok := spec["info"].(map[string]any); ok {
				if title, ok := info["title"].(string); ok {
					info["title"] = title + " " + v
				}
			}
		}

		ensureErrorSchema(spec)
		injectDefaultResponses(spec)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// normalizeOAS3 lifts swagger 2 specs to OAS3, downconverts 3.1 (the http
// swagger UI cannot load it), and fills in the servers array
func normalizeOAS3(spec map[string]any, url string) {
	if _, hasSwagger := spec["swagger"]; hasSwagger {
		delete(spec, "swagger")
		spec["openapi"] = "3.0.3"
	}
	switch v, _ := spec["openapi"].(string); {
	case v == "":
		spec["openapi"] = "3.0.3"
	case strings.HasPrefix(v, "3.1"):
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// ensureErrorSchema registers the envelope's error projection under
// components.schemas unless the generated spec already carries one.
// Fields mirror the runtime Envelope so the docs never drift from the wire
func ensureErrorSchema(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	schemas["ErrorResponse"] = map[string]any{
		"type":        "object",
		"description": "Standard error response",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"error":       map[string]any{"type": "string"},
			"request_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status"},
	}
}

// injectDefaultResponses adds the 400 and 500 responses the middleware
// stack can produce on any route, skipping operations that declare their own
func injectDefaultResponses(spec map[string]any) {
	defaults := map[string]map[string]any{
		"400": errorResponse("Bad Request", map[string]any{
			"status_code": 400,
			"status":      "Bad Request",
			"code":        9,
			"error":       "posted_from must be a date in YYYY-MM-DD form",
			"request_id":  "9d2c41ab77e0/xyz-000004",
		}),
		"500": errorResponse("Internal Server Error", map[string]any{
			"status_code": 500,
			"status":      "Internal Server Error",
			"code":        1,
			"error":       "panic recovered",
			"request_id":  "9d2c41ab77e0/xyz-000004",
		}),
	}
	eachOperation(spec, func(op map[string]any) {
		responses, ok := op["responses"].(map[string]any)
		if !ok {
			responses = map[string]any{}
			op["responses"] = responses
		}
		for status, resp := range defaults {
			if _, exists := responses[status]; !exists {
				responses[status] = resp
			}
		}
	})
}

// errorResponse builds one OAS3 response referencing the error schema
func errorResponse(desc string, example map[string]any) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema":  map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": example,
			},
		},
	}
}

// eachOperation visits every method entry under every path
func eachOperation(spec map[string]any, fn func(op map[string]any)) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			if op, ok := opAny.(map[string]any); ok {
				fn(op)
			}
		}
	}
}
