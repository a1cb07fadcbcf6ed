package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"certification/lib/constants"
)

// PageRequest carries paging and sorting taken from the query string.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Pagination is the paging block returned with every list.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ParsePageRequest reads page, limit, sortBy and sortOrder. Missing values take
// defaults; malformed or out of range values are rejected.
func ParsePageRequest(params map[string]string) (PageRequest, error) {
	req := PageRequest{
		Page:  constants.DefaultPage,
		Limit: constants.DefaultPageLimit,
	}

	if raw := strings.TrimSpace(params["page"]); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, fmt.Errorf("page must be a positive integer")
		}
		req.Page = page
	}

	if raw := strings.TrimSpace(params["limit"]); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > constants.MaxPageLimit {
			return req, fmt.Errorf("limit must be between 1 and %d", constants.MaxPageLimit)
		}
		req.Limit = limit
	}

	if req.Page > math.MaxInt32/req.Limit {
		return req, fmt.Errorf("page must be at most %d for limit %d", math.MaxInt32/req.Limit, req.Limit)
	}

	req.SortBy = strings.TrimSpace(params["sortBy"])
	switch order := strings.ToLower(strings.TrimSpace(params["sortOrder"])); order {
	case "":
		req.SortOrder = "desc"
	case "asc", "desc":
		req.SortOrder = order
	default:
		return req, fmt.Errorf("sortOrder must be asc or desc")
	}

	return req, nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderBy resolves SortBy against a whitelist of sortable columns. The
// tiebreaker column follows in the same direction so pages stay stable when
// the sort column repeats.
func (p PageRequest) OrderBy(columns map[string]string, fallback, tiebreaker string) (string, error) {
	column := fallback
	if p.SortBy != "" {
		mapped, ok := columns[p.SortBy]
		if !ok {
			return "", fmt.Errorf("cannot sort by %q", p.SortBy)
		}
		column = mapped
	}
	order := "DESC"
	if p.SortOrder == "asc" {
		order = "ASC"
	}
	if tiebreaker == "" || tiebreaker == column {
		return column + " " + order, nil
	}
	return column + " " + order + ", " + tiebreaker + " " + order, nil
}

// NewPagination computes the page count for a total row count.
func NewPagination(req PageRequest, total int64) Pagination {
	pages := 0
	if req.Limit > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

func queryInt64(params map[string]string, key string) (*int64, error) {
	raw := strings.TrimSpace(params[key])
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("%s must be a positive integer", key)
	}
	return &n, nil
}

func querySearch(params map[string]string) (string, error) {
	search := strings.TrimSpace(params["search"])
	if len(search) > 100 {
		return "", fmt.Errorf("search must be at most 100 characters")
	}
	return search, nil
}
