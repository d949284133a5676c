package dto

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/infrastructure/persistence/query"
)

// query keys consumed by pagination/sorting and never forwarded as filters.
var structuralQueryKeys = map[string]bool{
	"page":     true,
	"perPage":  true,
	"pageSize": true,
	"sort":     true,
	"ids":      true,
	"filter":   true,
}

// ParseListParams extracts list parameters from the request query string.
//
// Two filter styles are accepted and merged: a JSON-encoded "filter" object
// (the react-admin convention) and loose query keys ("?status=active").
// A malformed filter object is ignored rather than rejected, matching the
// contract that bad filters narrow results instead of failing requests.
func ParseListParams(c *gin.Context) query.ListParams {
	p := query.ListParams{
		Page:   intQuery(c, "page", 0),
		Sort:   c.Query("sort"),
		Filter: map[string]any{},
	}

	// perPage wins over its legacy alias when both are present.
	p.PerPage = intQuery(c, "perPage", 0)
	if p.PerPage == 0 {
		p.PerPage = intQuery(c, "pageSize", 0)
	}

	if raw := c.Query("filter"); raw != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			p.Filter = parsed
		}
	}

	for key, values := range c.Request.URL.Query() {
		if structuralQueryKeys[key] || len(values) == 0 {
			continue
		}
		if _, exists := p.Filter[key]; exists {
			continue
		}
		if len(values) == 1 {
			p.Filter[key] = values[0]
		} else {
			anyValues := make([]any, len(values))
			for i, v := range values {
				anyValues[i] = v
			}
			p.Filter[key] = anyValues
		}
	}

	p.IDs = parseIDs(c)
	if ids, ok := p.Filter["ids"]; ok && len(p.IDs) == 0 {
		p.IDs = stringSlice(ids)
		delete(p.Filter, "ids")
	}

	p.Normalize()
	return p
}

// parseIDs reads the "ids" query key as either a JSON array or a
// comma-separated list.
func parseIDs(c *gin.Context) []string {
	raw := c.Query("ids")
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return parsed
		}
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func stringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
