package handlers

import (
	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/internal/middleware"
	"foodgram/internal/utils"
	"foodgram/pkg/recipe"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"mime"
	"strconv"
	"strings"
	"unicode"
)

type (
	RecipeHandler interface {
		GetRecipes(c *fiber.Ctx) error
		GetRecipe(c *fiber.Ctx) error
		CreateRecipe(c *fiber.Ctx) error
		UpdateRecipe(c *fiber.Ctx) error
		DeleteRecipe(c *fiber.Ctx) error
		AddFavorite(c *fiber.Ctx) error
		RemoveFavorite(c *fiber.Ctx) error
		AddToShoppingCart(c *fiber.Ctx) error
		RemoveFromShoppingCart(c *fiber.Ctx) error
		DownloadShoppingCart(c *fiber.Ctx) error
		EmailShoppingCart(c *fiber.Ctx) error
	}

	recipeHandler struct {
		recipeService recipe.RecipeService
	}
)

func NewRecipeHandler(recipeService recipe.RecipeService) RecipeHandler {
	return &recipeHandler{
		recipeService: recipeService,
	}
}

func (h *recipeHandler) GetRecipes(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	filter := domain.RecipeFilter{
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
	}
	for _, slug := range c.Context().QueryArgs().PeekMulti("tags") {
		if s := strings.TrimSpace(string(slug)); s != "" {
			filter.TagSlugs = append(filter.TagSlugs, s)
		}
	}
	if author, err := strconv.ParseUint(c.Query("author"), 10, 64); err == nil {
		filter.AuthorID = uint(author)
	}

	res, err := h.recipeService.GetRecipes(c.Context(), filter, utils.ParsePagination(c), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetRecipes, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipes)
}

func (h *recipeHandler) GetRecipe(c *fiber.Ctx) error {
	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetRecipeDetail, domain.ErrRecipeNotFound)
	}

	res, err := h.recipeService.GetRecipe(c.Context(), recipeID, middleware.UserID(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetRecipeDetail, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipeDetail)
}

func (h *recipeHandler) CreateRecipe(c *fiber.Ctx) error {
	req, err := h.parseRecipeRequest(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRecipe, err)
	}

	res, err := h.recipeService.CreateRecipe(c.Context(), req, middleware.UserID(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedCreateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateRecipe)
}

func (h *recipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedUpdateRecipe, domain.ErrRecipeNotFound)
	}

	req, err := h.parseRecipeRequest(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRecipe, err)
	}

	res, err := h.recipeService.UpdateRecipe(c.Context(), recipeID, req, middleware.UserID(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedUpdateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateRecipe)
}

func (h *recipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedDeleteRecipe, domain.ErrRecipeNotFound)
	}

	if err := h.recipeService.DeleteRecipe(c.Context(), recipeID, middleware.UserID(c)); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedDeleteRecipe, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, "")
}

func (h *recipeHandler) AddFavorite(c *fiber.Ctx) error {
	return h.addMembership(c, domain.RelationFavorites, domain.MessageSuccessAddFavorite, domain.MessageFailedAddFavorite)
}

func (h *recipeHandler) RemoveFavorite(c *fiber.Ctx) error {
	return h.removeMembership(c, domain.RelationFavorites, domain.MessageFailedRemoveFavorite)
}

func (h *recipeHandler) AddToShoppingCart(c *fiber.Ctx) error {
	return h.addMembership(c, domain.RelationShoppingCart, domain.MessageSuccessAddShoppingCart, domain.MessageFailedAddShoppingCart)
}

func (h *recipeHandler) RemoveFromShoppingCart(c *fiber.Ctx) error {
	return h.removeMembership(c, domain.RelationShoppingCart, domain.MessageFailedRemoveShoppingCart)
}

func (h *recipeHandler) addMembership(c *fiber.Ctx, rel domain.Relation, successMessage, failedMessage string) error {
	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, failedMessage, domain.ErrUnknownRecipe)
	}

	res, err := h.recipeService.AddMembership(c.Context(), rel, recipeID, middleware.UserID(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, failedMessage, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, successMessage)
}

func (h *recipeHandler) removeMembership(c *fiber.Ctx, rel domain.Relation, failedMessage string) error {
	recipeID, err := parseIDParam(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusNotFound, failedMessage, domain.ErrRecipeNotFound)
	}

	if err := h.recipeService.RemoveMembership(c.Context(), rel, recipeID, middleware.UserID(c)); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, failedMessage, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, "")
}

func (h *recipeHandler) DownloadShoppingCart(c *fiber.Ctx) error {
	list, err := h.recipeService.DownloadShoppingList(c.Context(), middleware.UserID(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedDownloadShoppingList, err)
	}

	c.Set(fiber.HeaderContentDisposition, attachmentDisposition(list.Filename))
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(list.Content)
}

func (h *recipeHandler) EmailShoppingCart(c *fiber.Ctx) error {
	if err := h.recipeService.EmailShoppingList(c.Context(), middleware.UserID(c)); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedEmailShoppingList, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessEmailShoppingList)
}

// parseRecipeRequest accepts a JSON body with a data-URI image, or a multipart
// form whose tags and ingredients fields hold JSON arrays. Field rules are
// left to the service so permission errors win over bad input.
func (h *recipeHandler) parseRecipeRequest(c *fiber.Ctx) (domain.RecipeRequest, error) {
	var req domain.RecipeRequest

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := parseRecipeForm(c, &req); err != nil {
			return req, err
		}
	} else if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, domain.MessageFailedBodyRequest)
	}

	return req, nil
}

func parseRecipeForm(c *fiber.Ctx, req *domain.RecipeRequest) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, domain.MessageFailedBodyRequest)
	}

	req.Name = c.FormValue("name")
	req.Text = c.FormValue("text")
	req.Image = c.FormValue("image")
	if cookingTime := c.FormValue("cooking_time"); cookingTime != "" {
		// non-numeric stays 0 and fails the range rule in the service
		req.CookingTime, _ = strconv.Atoi(cookingTime)
	}

	if raw := c.FormValue("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Ingredients); err != nil {
			return domain.NewValidationError("ingredients", "invalid", "ingredients must be a JSON array")
		}
	}

	for _, raw := range form.Value["tags"] {
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "[") {
			var ids []uint
			if err := json.Unmarshal([]byte(raw), &ids); err != nil {
				return domain.NewValidationError("tags", "invalid", "tags must be a JSON array of ids")
			}
			req.Tags = append(req.Tags, ids...)
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return domain.NewValidationError("tags", "invalid", "tags must be a JSON array of ids")
		}
		req.Tags = append(req.Tags, uint(id))
	}

	if files := form.File["image"]; len(files) > 0 {
		req.ImageFile = files[0]
	}
	return nil
}

// attachmentDisposition keeps a plain ASCII filename for old clients and adds
// the RFC 5987 filename* so non-ASCII usernames survive the download.
func attachmentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || r == '"' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)

	disposition := `attachment; filename="` + fallback + `"`
	if fallback == name {
		return disposition
	}
	encoded := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	return disposition + strings.TrimPrefix(encoded, "attachment")
}
