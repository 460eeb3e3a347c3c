package pagination

import (
	"github.com/delacruzdev/designvault-backend/pkg/types"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the requested page to 1 or higher.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Offset computes the row offset for the normalized page and limit.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// Meta builds the response pagination block from a total row count.
func Meta(params Params, totalItems int64) *types.Pagination {
	limit := NormalizeLimit(params.Limit)
	page := NormalizePage(params.Page)

	totalPages := int(totalItems / int64(limit))
	if totalItems%int64(limit) != 0 {
		totalPages++
	}
	if totalPages == 0 {
		totalPages = 1
	}

	return &types.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}
