package domain

import (
	"errors"
	"math"
)

const (
	RoleUser = "user"
)

var (
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedTokenInvalid   = "failed to token invalid"
	MessageAuthRequired         = "authentication credentials were not provided"
	MessageRouteNotFound        = "route not found"

	ErrParseID         = errors.New("failed to parse id")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
)

type (
	Pagination struct {
		Page  int
		Limit int
	}

	// Page is the page-number pagination envelope. Next and Previous hold page
	// numbers and are nil at the edges.
	Page[T any] struct {
		Count    int64 `json:"count"`
		Next     *int  `json:"next"`
		Previous *int  `json:"previous"`
		Results  []T   `json:"results"`
	}
)

// Offset saturates at math.MaxInt so an absurd page reads past the end
// instead of wrapping around to the first rows.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// LastPage is the highest page number holding results, at least 1.
func (p Pagination) LastPage(count int64) int64 {
	if p.Limit < 1 || count <= 0 {
		return 1
	}
	return (count + int64(p.Limit) - 1) / int64(p.Limit)
}

func NewPage[T any](results []T, count int64, p Pagination) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}
	last := p.LastPage(count)
	if p.Page > 1 {
		prev := p.Page - 1
		if int64(prev) > last {
			prev = int(last)
		}
		page.Previous = &prev
	}
	if int64(p.Page) < last {
		next := p.Page + 1
		page.Next = &next
	}
	return page
}
