package domain

import (
	"errors"
	"mime/multipart"
)

const (
	IngredientAmountMin = 1
	IngredientAmountMax = 10000
	CookingTimeMin      = 1
	CookingTimeMax      = 24 * 60
	RecipeNameMaxLength = 200
)

var (
	MessageSuccessGetRecipes          = "success get recipes"
	MessageSuccessGetRecipeDetail     = "success get recipe detail"
	MessageSuccessCreateRecipe        = "recipe created successfully"
	MessageSuccessUpdateRecipe        = "recipe updated successfully"
	MessageSuccessAddFavorite         = "recipe added to favorites"
	MessageSuccessAddShoppingCart     = "recipe added to shopping cart"
	MessageSuccessEmailShoppingList   = "shopping list sent successfully"
	MessageFailedGetRecipes           = "failed to get recipes"
	MessageFailedGetRecipeDetail      = "failed to get recipe detail"
	MessageFailedCreateRecipe         = "failed to create recipe"
	MessageFailedUpdateRecipe         = "failed to update recipe"
	MessageFailedDeleteRecipe         = "failed to delete recipe"
	MessageFailedAddFavorite          = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite       = "failed to remove recipe from favorites"
	MessageFailedAddShoppingCart      = "failed to add recipe to shopping cart"
	MessageFailedRemoveShoppingCart   = "failed to remove recipe from shopping cart"
	MessageFailedDownloadShoppingList = "failed to download shopping list"
	MessageFailedEmailShoppingList    = "failed to send shopping list"

	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrNotRecipeAuthor = errors.New("only the author can modify this recipe")

	ErrMissingIngredients    = NewValidationError("ingredients", "missing_ingredients", "at least one ingredient is required")
	ErrUnknownIngredient     = NewValidationError("ingredients", "unknown_ingredient", "ingredient does not exist")
	ErrDuplicateIngredient   = NewValidationError("ingredients", "duplicate_ingredient", "ingredients must not repeat")
	ErrAmountOutOfRange      = NewValidationError("ingredients", "amount_out_of_range", "ingredient amount must be between 1 and 10000")
	ErrMissingTags           = NewValidationError("tags", "missing_tags", "at least one tag is required")
	ErrDuplicateTag          = NewValidationError("tags", "duplicate_tag", "tags must not repeat")
	ErrUnknownTag            = NewValidationError("tags", "unknown_tag", "tag does not exist")
	ErrCookingTimeOutOfRange = NewValidationError("cooking_time", "cooking_time_out_of_range", "cooking time must be between 1 and 1440 minutes")
	ErrMissingImage          = NewValidationError("image", "missing_image", "image is required")
	ErrInvalidImage          = NewValidationError("image", "invalid_image", "image must be an uploaded file or a data:image base64 string")

	ErrUnknownRecipe  = NewValidationError("recipe", "unknown_recipe", "recipe does not exist")
	ErrAlreadyAdded   = NewConflictError("recipe", "already_added", "recipe already added")
	ErrAlreadyRemoved = NewConflictError("recipe", "already_removed", "recipe already removed")
	ErrEmptyCart      = NewValidationError("shopping_cart", "empty_cart", "shopping cart is empty")
)

// Relation selects the user-to-recipe membership table a toggle operates on.
type Relation string

const (
	RelationFavorites    Relation = "favorites"
	RelationShoppingCart Relation = "shopping_carts"
)

type (
	// RecipeIngredientRequest is the write shape of one ingredient line.
	RecipeIngredientRequest struct {
		ID     uint `json:"id"`
		Amount int  `json:"amount"`
	}

	// RecipeRequest is the write shape shared by create and update.
	RecipeRequest struct {
		Ingredients []RecipeIngredientRequest `json:"ingredients"`
		Tags        []uint                    `json:"tags"`
		Image       string                    `json:"image"`
		ImageFile   *multipart.FileHeader     `json:"-"`
		Name        string                    `json:"name" validate:"required,max=200"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time"`
	}

	RecipeFilter struct {
		TagSlugs         []string
		AuthorID         uint
		IsFavorited      bool
		IsInShoppingCart bool
	}

	RecipeIngredientResponse struct {
		ID              uint   `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	// RecipeResponse is the read shape returned by every recipe endpoint.
	RecipeResponse struct {
		ID               uint                       `json:"id"`
		Tags             []TagResponse              `json:"tags"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
	}

	RecipeMinifiedResponse struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	ShoppingList struct {
		Filename string
		Content  string
	}
)
