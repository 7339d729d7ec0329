package recipe

import (
	"context"
	"errors"
	"fmt"
	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/logging"
	"foodgram/internal/metrics"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const imageFolder = "recipes/images"

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.RecipeRequest, userID uint) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID uint, req domain.RecipeRequest, userID uint) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID uint, userID uint) error
		GetRecipe(ctx context.Context, recipeID uint, userID uint) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, p domain.Pagination, userID uint) (domain.Page[domain.RecipeResponse], error)
		AddMembership(ctx context.Context, rel domain.Relation, recipeID uint, userID uint) (domain.RecipeMinifiedResponse, error)
		RemoveMembership(ctx context.Context, rel domain.Relation, recipeID uint, userID uint) error
		DownloadShoppingList(ctx context.Context, userID uint) (domain.ShoppingList, error)
		EmailShoppingList(ctx context.Context, userID uint) error
	}

	// UserReader is the slice of the user store recipes need.
	UserReader interface {
		GetUserByID(ctx context.Context, id uint) (*entities.User, error)
		SubscribedSet(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error)
	}

	recipeService struct {
		recipeRepository RecipeRepository
		userReader       UserReader
		storage          storage.Storage
		mailer           mailing.Mailer
		validator        *validator.Validate
		now              func() time.Time
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	userReader UserReader,
	storage storage.Storage,
	mailer mailing.Mailer,
	validator *validator.Validate,
) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		userReader:       userReader,
		storage:          storage,
		mailer:           mailer,
		validator:        validator,
		now:              time.Now,
	}
}

// validateRecipe checks the field shape, then applies the recipe rules in a
// fixed order so the first failing rule decides the reported code. Updates
// call it only after existence and ownership are settled.
func (s *recipeService) validateRecipe(ctx context.Context, req domain.RecipeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	if len(req.Ingredients) == 0 {
		return domain.ErrMissingIngredients
	}

	ids := make([]uint, 0, len(req.Ingredients))
	for _, ingredient := range req.Ingredients {
		ids = append(ids, ingredient.ID)
	}
	existing, err := s.recipeRepository.ExistingIngredientIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !existing[id] {
			return domain.ErrUnknownIngredient
		}
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.ErrDuplicateIngredient
		}
		seen[id] = struct{}{}
	}

	for _, ingredient := range req.Ingredients {
		if ingredient.Amount < domain.IngredientAmountMin || ingredient.Amount > domain.IngredientAmountMax {
			return domain.ErrAmountOutOfRange
		}
	}

	if len(req.Tags) == 0 {
		return domain.ErrMissingTags
	}
	seenTags := make(map[uint]struct{}, len(req.Tags))
	for _, id := range req.Tags {
		if _, dup := seenTags[id]; dup {
			return domain.ErrDuplicateTag
		}
		seenTags[id] = struct{}{}
	}
	existingTags, err := s.recipeRepository.ExistingTagIDs(ctx, req.Tags)
	if err != nil {
		return err
	}
	for _, id := range req.Tags {
		if !existingTags[id] {
			return domain.ErrUnknownTag
		}
	}

	if req.CookingTime < domain.CookingTimeMin || req.CookingTime > domain.CookingTimeMax {
		return domain.ErrCookingTimeOutOfRange
	}
	return nil
}

// storeImage persists the uploaded or data-URI image and returns its object
// key. An empty key with a nil error means no new image was supplied, which
// includes resending the public link of current.
func (s *recipeService) storeImage(ctx context.Context, req domain.RecipeRequest, current string) (string, error) {
	var key string
	var err error

	switch {
	case req.ImageFile != nil:
		ext := strings.ToLower(filepath.Ext(req.ImageFile.Filename))
		key, err = s.storage.UploadFile(ctx, uuid.New().String()+ext, req.ImageFile, imageFolder, storage.AllowImage...)
	case current != "" && s.storage.GetObjectKeyFromLink(req.Image) == current:
		return "", nil
	case req.Image != "":
		if !storage.IsDataURIImage(req.Image) {
			return "", domain.ErrInvalidImage
		}
		data, ext, decodeErr := storage.DecodeDataURIImage(req.Image)
		if decodeErr != nil {
			return "", domain.ErrInvalidImage
		}
		key, err = s.storage.UploadBytes(ctx, uuid.New().String()+"."+ext, data, imageFolder, storage.AllowImage...)
	default:
		return "", nil
	}

	if err != nil {
		if errors.Is(err, storage.ErrFileTypeNotAllowed) || errors.Is(err, storage.ErrEmptyFile) {
			return "", domain.ErrInvalidImage
		}
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

func (s *recipeService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("delete recipe image")
	}
}

func toRecipeIngredients(req domain.RecipeRequest) []entities.RecipeIngredient {
	rows := make([]entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, ingredient := range req.Ingredients {
		rows = append(rows, entities.RecipeIngredient{
			IngredientID: ingredient.ID,
			Amount:       ingredient.Amount,
		})
	}
	return rows
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.RecipeRequest, userID uint) (domain.RecipeResponse, error) {
	if err := s.validateRecipe(ctx, req); err != nil {
		return domain.RecipeResponse{}, err
	}

	image, err := s.storeImage(ctx, req, "")
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	if image == "" {
		return domain.RecipeResponse{}, domain.ErrMissingImage
	}

	recipe := &entities.Recipe{
		AuthorID:    userID,
		Name:        req.Name,
		Image:       image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	if err := s.recipeRepository.CreateRecipe(ctx, recipe, req.Tags, toRecipeIngredients(req)); err != nil {
		s.discardImage(ctx, image)
		return domain.RecipeResponse{}, err
	}

	metrics.RecipesCreated.Inc()
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", userID).Msg("recipe created")
	return s.GetRecipe(ctx, recipe.ID, userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID uint, req domain.RecipeRequest, userID uint) (domain.RecipeResponse, error) {
	current, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	if current.AuthorID != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	if err := s.validateRecipe(ctx, req); err != nil {
		return domain.RecipeResponse{}, err
	}

	image, err := s.storeImage(ctx, req, current.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	replaced := image != ""
	if !replaced {
		image = current.Image
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    current.AuthorID,
		Name:        req.Name,
		Image:       image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, req.Tags, toRecipeIngredients(req)); err != nil {
		if replaced {
			s.discardImage(ctx, image)
		}
		return domain.RecipeResponse{}, err
	}
	if replaced {
		s.discardImage(ctx, current.Image)
	}

	logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Msg("recipe updated")
	return s.GetRecipe(ctx, recipeID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID uint, userID uint) error {
	current, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return err
	}
	if current.AuthorID != userID {
		return domain.ErrNotRecipeAuthor
	}

	if err := s.recipeRepository.DeleteRecipe(ctx, recipeID); err != nil {
		return err
	}
	s.discardImage(ctx, current.Image)

	logging.Ctx(ctx).Info().Uint("recipe_id", recipeID).Msg("recipe deleted")
	return nil
}

func (s *recipeService) GetRecipe(ctx context.Context, recipeID uint, userID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	responses, err := s.materialize(ctx, []*entities.Recipe{recipe}, userID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return responses[0], nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, p domain.Pagination, userID uint) (domain.Page[domain.RecipeResponse], error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, userID, p)
	if err != nil {
		return domain.Page[domain.RecipeResponse]{}, err
	}

	responses, err := s.materialize(ctx, recipes, userID)
	if err != nil {
		return domain.Page[domain.RecipeResponse]{}, err
	}
	return domain.NewPage(responses, count, p), nil
}

// materialize converts stored recipes into the read shape. Per-requester flags
// are looked up in batches and stay false for anonymous requesters.
func (s *recipeService) materialize(ctx context.Context, recipes []*entities.Recipe, userID uint) ([]domain.RecipeResponse, error) {
	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	subscribed := map[uint]bool{}

	if userID != 0 && len(recipes) > 0 {
		recipeIDs := make([]uint, 0, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		for _, recipe := range recipes {
			recipeIDs = append(recipeIDs, recipe.ID)
			authorIDs = append(authorIDs, recipe.AuthorID)
		}

		var err error
		if favorited, err = s.recipeRepository.MembershipSet(ctx, domain.RelationFavorites, userID, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = s.recipeRepository.MembershipSet(ctx, domain.RelationShoppingCart, userID, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = s.userReader.SubscribedSet(ctx, userID, authorIDs); err != nil {
			return nil, err
		}
	}

	responses := make([]domain.RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		res := domain.RecipeResponse{
			ID:               recipe.ID,
			Tags:             toTagResponses(recipe.RecipeTags),
			Ingredients:      toIngredientResponses(recipe.RecipeIngredients),
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			Name:             recipe.Name,
			Image:            s.storage.GetPublicLinkKey(recipe.Image),
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
		}
		if recipe.Author != nil {
			res.Author = domain.UserResponse{
				Email:        recipe.Author.Email,
				ID:           recipe.Author.ID,
				Username:     recipe.Author.Username,
				FirstName:    recipe.Author.FirstName,
				LastName:     recipe.Author.LastName,
				IsSubscribed: subscribed[recipe.Author.ID],
			}
		}
		responses = append(responses, res)
	}
	return responses, nil
}

func toTagResponses(links []*entities.RecipeTag) []domain.TagResponse {
	tags := make([]domain.TagResponse, 0, len(links))
	for _, link := range links {
		if link.Tag == nil {
			continue
		}
		tags = append(tags, domain.TagResponse{
			ID:    link.Tag.ID,
			Name:  link.Tag.Name,
			Color: link.Tag.Color,
			Slug:  link.Tag.Slug,
		})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

func toIngredientResponses(rows []*entities.RecipeIngredient) []domain.RecipeIngredientResponse {
	sorted := make([]*entities.RecipeIngredient, 0, len(rows))
	for _, row := range rows {
		if row.Ingredient != nil {
			sorted = append(sorted, row)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(sorted))
	for _, row := range sorted {
		ingredients = append(ingredients, domain.RecipeIngredientResponse{
			ID:              row.Ingredient.ID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}
	return ingredients
}

func (s *recipeService) minified(recipe *entities.Recipe) domain.RecipeMinifiedResponse {
	return domain.RecipeMinifiedResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       s.storage.GetPublicLinkKey(recipe.Image),
		CookingTime: recipe.CookingTime,
	}
}

// AddMembership puts the recipe into the relation selected by rel.
func (s *recipeService) AddMembership(ctx context.Context, rel domain.Relation, recipeID uint, userID uint) (domain.RecipeMinifiedResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return domain.RecipeMinifiedResponse{}, domain.ErrUnknownRecipe
		}
		return domain.RecipeMinifiedResponse{}, err
	}

	exists, err := s.recipeRepository.MembershipExists(ctx, rel, userID, recipeID)
	if err != nil {
		return domain.RecipeMinifiedResponse{}, err
	}
	if exists {
		return domain.RecipeMinifiedResponse{}, domain.ErrAlreadyAdded
	}

	// a concurrent insert surfaces here as ErrAlreadyAdded
	if err := s.recipeRepository.AddMembership(ctx, rel, userID, recipeID); err != nil {
		return domain.RecipeMinifiedResponse{}, err
	}

	metrics.RecordMembership(string(rel), metrics.ActionAdd)
	logging.Ctx(ctx).Info().Str("relation", string(rel)).Uint("recipe_id", recipeID).Uint("user_id", userID).Msg("membership added")
	return s.minified(recipe), nil
}

func (s *recipeService) RemoveMembership(ctx context.Context, rel domain.Relation, recipeID uint, userID uint) error {
	exists, err := s.recipeRepository.RecipeExists(ctx, recipeID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrRecipeNotFound
	}

	removed, err := s.recipeRepository.RemoveMembership(ctx, rel, userID, recipeID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrAlreadyRemoved
	}

	metrics.RecordMembership(string(rel), metrics.ActionRemove)
	logging.Ctx(ctx).Info().Str("relation", string(rel)).Uint("recipe_id", recipeID).Uint("user_id", userID).Msg("membership removed")
	return nil
}

func (s *recipeService) DownloadShoppingList(ctx context.Context, userID uint) (domain.ShoppingList, error) {
	user, err := s.userReader.GetUserByID(ctx, userID)
	if err != nil {
		return domain.ShoppingList{}, err
	}

	items, err := s.recipeRepository.GetShoppingCartIngredients(ctx, userID)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	if len(items) == 0 {
		return domain.ShoppingList{}, domain.ErrEmptyCart
	}

	metrics.ShoppingListsGenerated.Inc()
	return domain.ShoppingList{
		Filename: user.Username + "_shopping_list.txt",
		Content:  renderShoppingList(user, items, s.now()),
	}, nil
}

func (s *recipeService) EmailShoppingList(ctx context.Context, userID uint) error {
	list, err := s.DownloadShoppingList(ctx, userID)
	if err != nil {
		return err
	}
	user, err := s.userReader.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	err = s.mailer.SendMail(
		user.Email,
		"Your Foodgram shopping list",
		"Your shopping list is attached.",
		mailing.Attachment{Filename: list.Filename, Content: []byte(list.Content)},
	)
	if err != nil {
		return fmt.Errorf("send shopping list: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", userID).Msg("shopping list emailed")
	return nil
}

func renderShoppingList(user *entities.User, items []domain.ShoppingListItem, now time.Time) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list for %s\n\n", name)
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("2006-01-02"))
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s) - %d", item.Name, item.MeasurementUnit, item.Amount)
	}
	fmt.Fprintf(&b, "\n\nFoodgram (%d)", now.Year())
	return b.String()
}
