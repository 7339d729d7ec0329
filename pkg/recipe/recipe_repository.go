package recipe

import (
	"context"
	"errors"
	"fmt"
	"foodgram/domain"
	"foodgram/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []entities.RecipeIngredient) error
		DeleteRecipe(ctx context.Context, id uint) error
		GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID uint, p domain.Pagination) ([]*entities.Recipe, int64, error)
		RecipeExists(ctx context.Context, id uint) (bool, error)
		ExistingIngredientIDs(ctx context.Context, ids []uint) (map[uint]bool, error)
		ExistingTagIDs(ctx context.Context, ids []uint) (map[uint]bool, error)

		AddMembership(ctx context.Context, rel domain.Relation, userID, recipeID uint) error
		RemoveMembership(ctx context.Context, rel domain.Relation, userID, recipeID uint) (bool, error)
		MembershipExists(ctx context.Context, rel domain.Relation, userID, recipeID uint) (bool, error)
		MembershipSet(ctx context.Context, rel domain.Relation, userID uint, recipeIDs []uint) (map[uint]bool, error)
		GetShoppingCartIngredients(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return replaceComponents(tx, recipe.ID, tagIDs, ingredients)
	})
}

// UpdateRecipe overwrites the scalar columns and replaces every ingredient row
// and tag link. The author is never changed.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.Recipe
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, recipe.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRecipeNotFound
			}
			return err
		}

		err := tx.Model(&current).Updates(map[string]any{
			"name":         recipe.Name,
			"image":        recipe.Image,
			"text":         recipe.Text,
			"cooking_time": recipe.CookingTime,
		}).Error
		if err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		return replaceComponents(tx, recipe.ID, tagIDs, ingredients)
	})
}

func replaceComponents(tx *gorm.DB, recipeID uint, tagIDs []uint, ingredients []entities.RecipeIngredient) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("delete recipe ingredients: %w", err)
	}
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeTag{}).Error; err != nil {
		return fmt.Errorf("delete recipe tags: %w", err)
	}

	tags := make([]entities.RecipeTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		tags = append(tags, entities.RecipeTag{RecipeID: recipeID, TagID: tagID})
	}
	if len(tags) > 0 {
		if err := tx.Omit(clause.Associations).Create(&tags).Error; err != nil {
			return fmt.Errorf("insert recipe tags: %w", err)
		}
	}

	rows := make([]entities.RecipeIngredient, 0, len(ingredients))
	for _, ingredient := range ingredients {
		rows = append(rows, entities.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ingredient.IngredientID,
			Amount:       ingredient.Amount,
		})
	}
	if len(rows) > 0 {
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return fmt.Errorf("insert recipe ingredients: %w", err)
		}
	}
	return nil
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []any{
			&entities.RecipeIngredient{},
			&entities.RecipeTag{},
			&entities.Favorite{},
			&entities.ShoppingCart{},
		}
		for _, child := range children {
			if err := tx.Where("recipe_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&entities.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRecipeNotFound
		}
		return nil
	})
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("RecipeTags.Tag").
		Preload("RecipeIngredients.Ingredient")
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := preloadRecipe(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) filteredRecipes(ctx context.Context, filter domain.RecipeFilter, userID uint) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if len(filter.TagSlugs) > 0 {
		tagged := r.db.Model(&entities.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", filter.AuthorID)
	}
	// membership filters only make sense for a known requester
	if userID != 0 && filter.IsFavorited {
		q = q.Where("recipes.id IN (?)", r.db.Model(&entities.Favorite{}).Select("recipe_id").Where("user_id = ?", userID))
	}
	if userID != 0 && filter.IsInShoppingCart {
		q = q.Where("recipes.id IN (?)", r.db.Model(&entities.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", userID))
	}
	return q
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID uint, p domain.Pagination) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64

	if err := r.filteredRecipes(ctx, filter, userID).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := preloadRecipe(r.filteredRecipes(ctx, filter, userID)).
		Order("recipes.created_at desc").
		Order("recipes.id desc").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) RecipeExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) ExistingIngredientIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	return r.existingIDs(ctx, &entities.Ingredient{}, ids)
}

func (r *recipeRepository) ExistingTagIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	return r.existingIDs(ctx, &entities.Tag{}, ids)
}

func (r *recipeRepository) existingIDs(ctx context.Context, model any, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var existing []uint
	if err := r.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// membershipRow builds the row a relation stores for (user, recipe).
func membershipRow(rel domain.Relation, userID, recipeID uint) (any, error) {
	switch rel {
	case domain.RelationFavorites:
		return &entities.Favorite{UserID: userID, RecipeID: recipeID}, nil
	case domain.RelationShoppingCart:
		return &entities.ShoppingCart{UserID: userID, RecipeID: recipeID}, nil
	default:
		return nil, fmt.Errorf("unknown relation %q", rel)
	}
}

func (r *recipeRepository) AddMembership(ctx context.Context, rel domain.Relation, userID, recipeID uint) error {
	row, err := membershipRow(rel, userID, recipeID)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyAdded
		}
		return err
	}
	return nil
}

func (r *recipeRepository) RemoveMembership(ctx context.Context, rel domain.Relation, userID, recipeID uint) (bool, error) {
	row, err := membershipRow(rel, 0, 0)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *recipeRepository) MembershipExists(ctx context.Context, rel domain.Relation, userID, recipeID uint) (bool, error) {
	set, err := r.MembershipSet(ctx, rel, userID, []uint{recipeID})
	if err != nil {
		return false, err
	}
	return set[recipeID], nil
}

func (r *recipeRepository) MembershipSet(ctx context.Context, rel domain.Relation, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	row, err := membershipRow(rel, 0, 0)
	if err != nil {
		return nil, err
	}

	set := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return set, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).Model(row).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// GetShoppingCartIngredients sums amounts across the user's cart grouped by
// (name, unit), so distinct ingredient rows with the same pair collapse.
func (r *recipeRepository) GetShoppingCartIngredients(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	err := r.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
