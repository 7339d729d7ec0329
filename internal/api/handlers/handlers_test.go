package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"foodgram/cmd/config"
	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/logging"
	"foodgram/internal/testutil"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "disabled"})
	os.Exit(m.Run())
}

type envelope[T any] struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Errors  map[string][]string `json:"errors"`
	Data    T                   `json:"data"`
}

type nopMailer struct {
	sent int
}

func (m *nopMailer) SendMail(string, string, string, ...mailing.Attachment) error {
	m.sent++
	return nil
}

type testServer struct {
	t      *testing.T
	app    *fiber.App
	db     *gorm.DB
	jwt    jwt.JWTService
	mailer *nopMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	jwtService := jwt.NewJWTService("handler-secret", time.Hour)
	mailer := &nopMailer{}

	app := config.BuildApp(db, config.AppOptions{
		Storage:    storage.NewLocalStorage(t.TempDir(), "http://testserver/media"),
		Mailer:     mailer,
		JWTService: jwtService,
	})
	return &testServer{t: t, app: app, db: db, jwt: jwtService, mailer: mailer}
}

func (s *testServer) token(user *entities.User) string {
	s.t.Helper()
	token, err := s.jwt.GenerateTokenUser(user.ID, domain.RoleUser)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) send(req *http.Request, token string) *http.Response {
	s.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Token "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	return resp
}

func (s *testServer) do(method, path string, body any, token string) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(req, token)
}

func decode[T any](t *testing.T, resp *http.Response) envelope[T] {
	t.Helper()
	defer resp.Body.Close()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

type seed struct {
	alice, bob *entities.User
	breakfast  *entities.Tag
	leaves     *entities.Ingredient
	milk       *entities.Ingredient
}

func (s *testServer) seed() seed {
	return seed{
		alice:     testutil.CreateUser(s.t, s.db, "alice"),
		bob:       testutil.CreateUser(s.t, s.db, "bob"),
		breakfast: testutil.CreateTag(s.t, s.db, "Breakfast", "#E26C2D", "breakfast"),
		leaves:    testutil.CreateIngredient(s.t, s.db, "tea leaves", "g"),
		milk:      testutil.CreateIngredient(s.t, s.db, "milk", "ml"),
	}
}

func teaPayload(d seed) fiber.Map {
	return fiber.Map{
		"name":         "Tea",
		"text":         "Steep the leaves.",
		"cooking_time": 5,
		"image":        "data:image/png;base64," + onePixelPNG,
		"tags":         []uint{d.breakfast.ID},
		"ingredients":  []fiber.Map{{"id": d.leaves.ID, "amount": 200}},
	}
}

func (s *testServer) createTea(d seed) domain.RecipeResponse {
	s.t.Helper()
	resp := s.do(fiber.MethodPost, "/api/recipes/", teaPayload(d), s.token(d.alice))
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode)
	return decode[domain.RecipeResponse](s.t, resp).Data
}

func TestTeaRecipeFavoritedByAnotherUser(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()

	created := s.createTea(d)
	assert.Equal(t, d.alice.ID, created.Author.ID)

	detailPath := fmt.Sprintf("/api/recipes/%d/", created.ID)
	detail := decode[domain.RecipeResponse](t, s.do(fiber.MethodGet, detailPath, nil, s.token(d.alice))).Data
	assert.Equal(t, d.alice.ID, detail.Author.ID)
	require.Len(t, detail.Ingredients, 1)
	assert.Equal(t, d.leaves.ID, detail.Ingredients[0].ID)
	assert.Equal(t, 200, detail.Ingredients[0].Amount)
	assert.Equal(t, "tea leaves", detail.Ingredients[0].Name)
	assert.False(t, detail.IsFavorited)

	resp := s.do(fiber.MethodPost, detailPath+"favorite/", nil, s.token(d.bob))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	minified := decode[domain.RecipeMinifiedResponse](t, resp).Data
	assert.Equal(t, "Tea", minified.Name)

	asBob := decode[domain.RecipeResponse](t, s.do(fiber.MethodGet, detailPath, nil, s.token(d.bob))).Data
	assert.True(t, asBob.IsFavorited)

	asAlice := decode[domain.RecipeResponse](t, s.do(fiber.MethodGet, detailPath, nil, s.token(d.alice))).Data
	assert.False(t, asAlice.IsFavorited)

	anonymous := decode[domain.RecipeResponse](t, s.do(fiber.MethodGet, detailPath, nil, "")).Data
	assert.False(t, anonymous.IsFavorited)
	assert.False(t, anonymous.IsInShoppingCart)
}

func TestCreateRecipeRejections(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()

	resp := s.do(fiber.MethodPost, "/api/recipes/", teaPayload(d), "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(fiber.MethodPost, "/api/recipes/", teaPayload(d), "not-a-jwt")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	cases := map[string]func(p fiber.Map){
		"duplicate_ingredient": func(p fiber.Map) {
			p["ingredients"] = []fiber.Map{{"id": d.leaves.ID, "amount": 1}, {"id": d.leaves.ID, "amount": 2}}
		},
		"unknown_ingredient": func(p fiber.Map) {
			p["ingredients"] = []fiber.Map{{"id": 999, "amount": 1}}
		},
		"missing_tags": func(p fiber.Map) {
			p["tags"] = []uint{}
		},
		"amount_out_of_range": func(p fiber.Map) {
			p["ingredients"] = []fiber.Map{{"id": d.leaves.ID, "amount": 10001}}
		},
		"cooking_time_out_of_range": func(p fiber.Map) {
			p["cooking_time"] = 0
		},
	}
	for code, mutate := range cases {
		payload := teaPayload(d)
		mutate(payload)

		resp := s.do(fiber.MethodPost, "/api/recipes/", payload, s.token(d.alice))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, code)
		env := decode[any](t, resp)
		assert.Equal(t, code, env.Code)
		assert.NotEmpty(t, env.Errors)
	}

	var count int64
	require.NoError(t, s.db.Model(&entities.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)

	payload := teaPayload(d)
	payload["name"] = ""
	resp = s.do(fiber.MethodPost, "/api/recipes/", payload, s.token(d.alice))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[any](t, resp).Errors, "name")
}

func TestCreateRecipeMultipart(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	png, err := base64.StdEncoding.DecodeString(onePixelPNG)
	require.NoError(t, err)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("name", "Milk tea"))
	require.NoError(t, w.WriteField("text", "Mix."))
	require.NoError(t, w.WriteField("cooking_time", "7"))
	require.NoError(t, w.WriteField("tags", fmt.Sprintf("[%d]", d.breakfast.ID)))
	require.NoError(t, w.WriteField("ingredients", fmt.Sprintf(`[{"id":%d,"amount":5},{"id":%d,"amount":100}]`, d.leaves.ID, d.milk.ID)))
	part, err := w.CreateFormFile("image", "cup.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/recipes/", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp := s.send(req, s.token(d.alice))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	created := decode[domain.RecipeResponse](t, resp).Data
	assert.Equal(t, "Milk tea", created.Name)
	assert.Equal(t, 7, created.CookingTime)
	assert.Len(t, created.Ingredients, 2)
	assert.True(t, strings.HasSuffix(created.Image, ".png"))
}

func TestUpdateAndDeleteRecipe(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	created := s.createTea(d)
	path := fmt.Sprintf("/api/recipes/%d/", created.ID)

	update := teaPayload(d)
	delete(update, "image")
	update["name"] = "Milk tea"
	update["ingredients"] = []fiber.Map{{"id": d.milk.ID, "amount": 150}}

	resp := s.do(fiber.MethodPatch, path, update, s.token(d.bob))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	blank := teaPayload(d)
	blank["name"] = ""
	resp = s.do(fiber.MethodPatch, path, blank, s.token(d.bob))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(fiber.MethodPatch, "/api/recipes/999/", blank, s.token(d.alice))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = s.do(fiber.MethodPatch, path, blank, s.token(d.alice))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[any](t, resp).Errors, "name")

	resp = s.do(fiber.MethodPatch, path, update, s.token(d.alice))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	updated := decode[domain.RecipeResponse](t, resp).Data
	assert.Equal(t, "Milk tea", updated.Name)
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "milk", updated.Ingredients[0].Name)

	resp = s.do(fiber.MethodDelete, path, nil, s.token(d.bob))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(fiber.MethodDelete, path, nil, s.token(d.alice))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = s.do(fiber.MethodGet, path, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFavoriteAndCartToggle(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	created := s.createTea(d)

	for _, action := range []string{"favorite", "shopping_cart"} {
		path := fmt.Sprintf("/api/recipes/%d/%s/", created.ID, action)

		resp := s.do(fiber.MethodPost, path, nil, s.token(d.bob))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, action)

		resp = s.do(fiber.MethodPost, path, nil, s.token(d.bob))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, action)
		assert.Equal(t, "already_added", decode[any](t, resp).Code)

		resp = s.do(fiber.MethodDelete, path, nil, s.token(d.bob))
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode, action)

		resp = s.do(fiber.MethodDelete, path, nil, s.token(d.bob))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, action)
		assert.Equal(t, "already_removed", decode[any](t, resp).Code)

		resp = s.do(fiber.MethodPost, fmt.Sprintf("/api/recipes/999/%s/", action), nil, s.token(d.bob))
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, action)
		assert.Equal(t, "unknown_recipe", decode[any](t, resp).Code)

		resp = s.do(fiber.MethodDelete, fmt.Sprintf("/api/recipes/999/%s/", action), nil, s.token(d.bob))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, action)
	}
}

func TestDownloadShoppingCart(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	created := s.createTea(d)

	resp := s.do(fiber.MethodGet, "/api/recipes/download_shopping_cart/", nil, s.token(d.bob))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_cart", decode[any](t, resp).Code)

	resp = s.do(fiber.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", created.ID), nil, s.token(d.bob))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = s.do(fiber.MethodGet, "/api/recipes/download_shopping_cart/", nil, s.token(d.bob))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/plain")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "bob_shopping_list.txt")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "- tea leaves (g) - 200")

	resp = s.do(fiber.MethodPost, "/api/recipes/email_shopping_cart/", nil, s.token(d.bob))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.mailer.sent)

	resp = s.do(fiber.MethodGet, "/api/recipes/download_shopping_cart/", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDownloadShoppingCartNonASCIIUsername(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	created := s.createTea(d)
	ivan := testutil.CreateUser(t, s.db, "иван")

	resp := s.do(fiber.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", created.ID), nil, s.token(ivan))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = s.do(fiber.MethodGet, "/api/recipes/download_shopping_cart/", nil, s.token(ivan))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	header := resp.Header.Get(fiber.HeaderContentDisposition)
	assert.Contains(t, header, "filename*=")
	disposition, params, err := mime.ParseMediaType(header)
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "иван_shopping_list.txt", params["filename"])
}

func TestRecipeListFilters(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	created := s.createTea(d)

	resp := s.do(fiber.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite/", created.ID), nil, s.token(d.bob))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	list := func(query, token string) domain.Page[domain.RecipeResponse] {
		resp := s.do(fiber.MethodGet, "/api/recipes/"+query, nil, token)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, query)
		return decode[domain.Page[domain.RecipeResponse]](t, resp).Data
	}

	assert.Equal(t, int64(1), list("", "").Count)
	assert.Equal(t, int64(1), list("?tags=breakfast", "").Count)
	assert.Equal(t, int64(0), list("?tags=dinner", "").Count)
	assert.Equal(t, int64(0), list(fmt.Sprintf("?author=%d", d.bob.ID), "").Count)
	assert.Equal(t, int64(1), list("?is_favorited=1", s.token(d.bob)).Count)
	assert.Equal(t, int64(0), list("?is_favorited=1", s.token(d.alice)).Count)

	far := list("?page=9223372036854775807", "")
	assert.Equal(t, int64(1), far.Count)
	assert.Empty(t, far.Results)
	assert.Nil(t, far.Next)
	require.NotNil(t, far.Previous)
	assert.Equal(t, 1, *far.Previous)

	page := list("?is_favorited=1", s.token(d.bob))
	require.Len(t, page.Results, 1)
	assert.True(t, page.Results[0].IsFavorited)
}

func TestUsersAndSubscriptions(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()
	s.createTea(d)

	resp := s.do(fiber.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", d.bob.ID), nil, s.token(d.bob))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "self_subscription", decode[any](t, resp).Code)

	resp = s.do(fiber.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/?recipes_limit=1", d.alice.ID), nil, s.token(d.bob))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	sub := decode[domain.SubscriptionResponse](t, resp).Data
	assert.Equal(t, d.alice.ID, sub.ID)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(1), sub.RecipesCount)
	assert.Len(t, sub.Recipes, 1)

	resp = s.do(fiber.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", d.alice.ID), nil, s.token(d.bob))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_subscribed", decode[any](t, resp).Code)

	resp = s.do(fiber.MethodGet, "/api/users/subscriptions/?recipes_limit=abc", nil, s.token(d.bob))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page := decode[domain.Page[domain.SubscriptionResponse]](t, resp).Data
	assert.Equal(t, int64(1), page.Count)

	profile := decode[domain.UserResponse](t, s.do(fiber.MethodGet, fmt.Sprintf("/api/users/%d/", d.alice.ID), nil, s.token(d.bob))).Data
	assert.True(t, profile.IsSubscribed)

	resp = s.do(fiber.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", d.alice.ID), nil, s.token(d.bob))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = s.do(fiber.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", d.alice.ID), nil, s.token(d.bob))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = s.do(fiber.MethodPost, "/api/users/999/subscribe/", nil, s.token(d.bob))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	register := fiber.Map{
		"email":      "carol@example.com",
		"username":   "carol",
		"first_name": "Carol",
		"last_name":  "Cook",
		"password":   "long-enough-pass",
	}
	resp := s.do(fiber.MethodPost, "/api/users/", register, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = s.do(fiber.MethodPost, "/api/users/", register, "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_exists", decode[any](t, resp).Code)

	reserved := fiber.Map{"email": "me@example.com", "username": "me", "first_name": "M", "last_name": "E", "password": "long-enough-pass"}
	resp = s.do(fiber.MethodPost, "/api/users/", reserved, "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[any](t, resp).Errors, "username")

	resp = s.do(fiber.MethodPost, "/api/auth/token/login/", fiber.Map{"email": "carol@example.com", "password": "long-enough-pass"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token := decode[domain.LoginResponse](t, resp).Data.AuthToken
	require.NotEmpty(t, token)

	resp = s.do(fiber.MethodGet, "/api/users/me/", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "carol", decode[domain.UserResponse](t, resp).Data.Username)

	resp = s.do(fiber.MethodGet, "/api/users/me/", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(fiber.MethodPost, "/api/auth/token/login/", fiber.Map{"email": "carol@example.com", "password": "wrong"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(fiber.MethodPost, "/api/auth/token/logout/", nil, token)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestTagsAndIngredients(t *testing.T) {
	s := newTestServer(t)
	d := s.seed()

	resp := s.do(fiber.MethodGet, "/api/ingredients/?name=TEA", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	ingredients := decode[[]domain.IngredientResponse](t, resp).Data
	require.Len(t, ingredients, 1)
	assert.Equal(t, d.leaves.ID, ingredients[0].ID)

	resp = s.do(fiber.MethodGet, "/api/tags/", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.TagResponse](t, resp).Data, 1)

	resp = s.do(fiber.MethodGet, fmt.Sprintf("/api/tags/%d/", d.breakfast.ID), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "breakfast", decode[domain.TagResponse](t, resp).Data.Slug)

	resp = s.do(fiber.MethodGet, "/api/tags/999/", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = s.do(fiber.MethodGet, "/api/nothing-here/", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
