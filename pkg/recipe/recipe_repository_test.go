package recipe

import (
	"context"
	"errors"
	"foodgram/domain"
	"foodgram/entities"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"testing"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAddMembershipRaceSurfacesAsConflict(t *testing.T) {
	for _, tc := range []struct {
		rel   domain.Relation
		table string
	}{
		{domain.RelationFavorites, `INSERT INTO "favorites"`},
		{domain.RelationShoppingCart, `INSERT INTO "shopping_carts"`},
	} {
		t.Run(string(tc.rel), func(t *testing.T) {
			db, mock := newMockDB(t)

			mock.ExpectBegin()
			mock.ExpectQuery(tc.table).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			mock.ExpectRollback()

			err := NewRecipeRepository(db).AddMembership(context.Background(), tc.rel, 1, 2)
			assert.ErrorIs(t, err, domain.ErrAlreadyAdded)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAddMembershipUnknownRelation(t *testing.T) {
	db, mock := newMockDB(t)

	err := NewRecipeRepository(db).AddMembership(context.Background(), domain.Relation("bookmarks"), 1, 2)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRecipeRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "recipes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "name"}).AddRow(7, 1, "Tea"))
	mock.ExpectExec(`UPDATE "recipes"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "recipe_ingredients"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "recipe_tags"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "recipe_tags"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "recipe_ingredients"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	recipe := &entities.Recipe{ID: 7, AuthorID: 1, Name: "Green tea", Image: "recipes/images/tea.png", Text: "Steep.", CookingTime: 3}
	err := NewRecipeRepository(db).UpdateRecipe(context.Background(), recipe, []uint{1},
		[]entities.RecipeIngredient{{IngredientID: 4, Amount: 100}})

	assert.ErrorContains(t, err, "insert recipe ingredients")
	assert.NoError(t, mock.ExpectationsWereMet())
}
