package user

import (
	"context"
	"foodgram/domain"
	"foodgram/internal/testutil"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/jwt"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"testing"
	"time"
)

func newTestService(t *testing.T) (UserService, *gorm.DB, jwt.JWTService) {
	t.Helper()
	db := testutil.NewTestDB(t)
	jwtService := jwt.NewJWTService("test-secret", time.Hour)
	store := storage.NewLocalStorage(t.TempDir(), "http://testserver/media")
	return NewUserService(NewUserRepository(db), jwtService, store), db, jwtService
}

func registerRequest(username string) domain.RegisterRequest {
	return domain.RegisterRequest{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Ann",
		LastName:  "Smith",
		Password:  "s3cret-pass",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, jwtService := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerRequest("ann"))
	require.NoError(t, err)
	assert.NotZero(t, registered.ID)
	assert.Equal(t, "ann@example.com", registered.Email)

	res, err := svc.Login(ctx, domain.LoginRequest{Email: "ANN@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	id, _, err := jwtService.GetUserIDByToken(res.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, id)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerRequest("ann"))
	require.NoError(t, err)

	sameEmail := registerRequest("other")
	sameEmail.Email = "ann@example.com"
	_, err = svc.Register(ctx, sameEmail)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	sameUsername := registerRequest("ann")
	sameUsername.Email = "fresh@example.com"
	_, err = svc.Register(ctx, sameUsername)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestSetPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerRequest("ann"))
	require.NoError(t, err)

	err = svc.SetPassword(ctx, registered.ID, domain.SetPasswordRequest{CurrentPassword: "nope", NewPassword: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrWrongCurrentPassword)

	require.NoError(t, svc.SetPassword(ctx, registered.ID, domain.SetPasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "another-pass"}))
	_, err = svc.Login(ctx, domain.LoginRequest{Email: "ann@example.com", Password: "another-pass"})
	assert.NoError(t, err)
}

func TestSubscribeRules(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	follower := testutil.CreateUser(t, db, "follower")
	author := testutil.CreateUser(t, db, "author")

	_, err := svc.Subscribe(ctx, follower.ID, follower.ID, UnlimitedRecipes)
	assert.ErrorIs(t, err, domain.ErrSelfSubscription)

	_, err = svc.Subscribe(ctx, follower.ID, 999, UnlimitedRecipes)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	res, err := svc.Subscribe(ctx, follower.ID, author.ID, UnlimitedRecipes)
	require.NoError(t, err)
	assert.Equal(t, author.ID, res.ID)
	assert.True(t, res.IsSubscribed)
	assert.Zero(t, res.RecipesCount)
	assert.Empty(t, res.Recipes)

	_, err = svc.Subscribe(ctx, follower.ID, author.ID, UnlimitedRecipes)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	profile, err := svc.GetUser(ctx, author.ID, follower.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)
	anonymous, err := svc.GetUser(ctx, author.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsSubscribed)

	require.NoError(t, svc.Unsubscribe(ctx, follower.ID, author.ID))
	err = svc.Unsubscribe(ctx, follower.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSubscriptionsRecipesLimit(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	follower := testutil.CreateUser(t, db, "follower")
	author := testutil.CreateUser(t, db, "author")
	tag := testutil.CreateTag(t, db, "Lunch", "#FFAA00", "lunch")
	salt := testutil.CreateIngredient(t, db, "salt", "g")
	for _, name := range []string{"soup", "stew", "salad"} {
		testutil.CreateRecipe(t, db, author.ID, name, []uint{tag.ID}, map[uint]int{salt.ID: 1})
	}

	res, err := svc.Subscribe(ctx, follower.ID, author.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RecipesCount)
	assert.Len(t, res.Recipes, 2)

	page, err := svc.GetSubscriptions(ctx, follower.ID, domain.Pagination{Page: 1, Limit: 6}, UnlimitedRecipes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0].Recipes, 3)
	assert.Contains(t, page.Results[0].Recipes[0].Image, "http://testserver/media/")

	page, err = svc.GetSubscriptions(ctx, follower.ID, domain.Pagination{Page: 1, Limit: 6}, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Results[0].Recipes)
}

func TestCreateSubscriptionRaceSurfacesAsConflict(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "subscriptions"`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err = NewUserRepository(db).CreateSubscription(context.Background(), 1, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
