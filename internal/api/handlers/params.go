package handlers

import (
	"foodgram/domain"
	"foodgram/pkg/user"
	"github.com/gofiber/fiber/v2"
	"strconv"
)

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrParseID
	}
	return uint(id), nil
}

// parseRecipesLimit reads ?recipes_limit=. Anything non-numeric means no cap.
func parseRecipesLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || limit < 0 {
		return user.UnlimitedRecipes
	}
	return limit
}

func queryFlag(c *fiber.Ctx, key string) bool {
	switch c.Query(key) {
	case "1", "true", "True":
		return true
	default:
		return false
	}
}
