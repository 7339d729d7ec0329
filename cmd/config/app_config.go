package config

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"foodgram/domain"
	"foodgram/internal/api/handlers"
	"foodgram/internal/api/presenters"
	"foodgram/internal/api/routes"
	"foodgram/internal/logging"
	"foodgram/internal/middleware"
	"foodgram/internal/utils"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/ingredient"
	"foodgram/pkg/jwt"
	"foodgram/pkg/recipe"
	"foodgram/pkg/tag"
	"foodgram/pkg/user"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// AppOptions carries the collaborators NewApp would otherwise build from config.
type AppOptions struct {
	Storage    storage.Storage
	Mailer     mailing.Mailer
	JWTService jwt.JWTService
	// AccessLog receives the HTTP access log. Nil disables it.
	AccessLog io.Writer
	// MediaRoot is served under /media when set.
	MediaRoot string
	// RateLimit is the per-client request budget per second. Zero disables it.
	RateLimit int
}

func NewApp(db *gorm.DB) (*fiber.App, error) {
	if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, err
	}

	opts := AppOptions{
		Mailer:     mailing.NewMailer(mailing.LoadMailConfig()),
		JWTService: jwt.NewJWTService(utils.GetConfig("JWT_SECRET"), jwt.DefaultTokenTTL),
		AccessLog:  file,
		RateLimit:  20,
	}

	if utils.GetConfig("AWS_S3_BUCKET") != "" {
		s3, err := storage.NewAwsS3()
		if err != nil {
			return nil, err
		}
		opts.Storage = storage.NewBreakerStorage(s3, storage.BreakerConfig{Name: "s3"})
	} else {
		opts.MediaRoot = utils.GetConfig("MEDIA_ROOT")
		opts.Storage = storage.NewLocalStorage(opts.MediaRoot, strings.TrimSuffix(utils.GetConfig("APP_URL"), "/")+"/media")
	}

	return BuildApp(db, opts), nil
}

func BuildApp(db *gorm.DB, opts AppOptions) *fiber.App {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: errorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format:     "${time} ${locals:request_id} ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   "UTC",
			Output:     opts.AccessLog,
		}))
	}
	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: 1 * time.Second,
		}))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if opts.MediaRoot != "" {
		app.Static("/media", opts.MediaRoot)
	}

	// Repository
	userRepository := user.NewUserRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)
	tagRepository := tag.NewTagRepository(db)
	ingredientRepository := ingredient.NewIngredientRepository(db)

	// Service
	userService := user.NewUserService(userRepository, opts.JWTService, opts.Storage)
	recipeService := recipe.NewRecipeService(recipeRepository, userRepository, opts.Storage, opts.Mailer, validator)
	tagService := tag.NewTagService(tagRepository)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	recipeHandler := handlers.NewRecipeHandler(recipeService)
	tagHandler := handlers.NewTagHandler(tagService)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService)

	// routes
	routesConfig := routes.Config{
		App:               app,
		UserHandler:       userHandler,
		RecipeHandler:     recipeHandler,
		TagHandler:        tagHandler,
		IngredientHandler: ingredientHandler,
		Middleware:        middlewares,
		JWTService:        opts.JWTService,
	}
	routesConfig.Setup()

	logging.Debug().Msg("routes registered")
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := domain.MessageFailedProcessRequest

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		if status == fiber.StatusNotFound {
			message = domain.MessageRouteNotFound
		}
	}
	return presenters.ErrorResponse(c, status, message, err)
}
