package utils

import (
	"math"
	"strconv"

	"foodgram/domain"

	"github.com/gofiber/fiber/v2"
)

// ParsePagination reads ?page= and ?limit=, falling back to PAGE_SIZE. The
// page is clamped so page*limit always fits in an int.
func ParsePagination(c *fiber.Ctx) domain.Pagination {
	defaultLimit := GetConfigInt("PAGE_SIZE", 6)
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	return domain.Pagination{Page: page, Limit: limit}
}
