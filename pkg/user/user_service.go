package user

import (
	"context"
	"errors"
	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/logging"
	"foodgram/internal/metrics"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"strings"
)

// UnlimitedRecipes disables the recipe preview cap on subscription responses.
const UnlimitedRecipes = -1

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		GetUsers(ctx context.Context, p domain.Pagination, requesterID uint) (domain.Page[domain.UserResponse], error)
		GetUser(ctx context.Context, userID uint, requesterID uint) (domain.UserResponse, error)
		Me(ctx context.Context, userID uint) (domain.UserResponse, error)
		SetPassword(ctx context.Context, userID uint, req domain.SetPasswordRequest) error
		Subscribe(ctx context.Context, followerID, followingID uint, recipesLimit int) (domain.SubscriptionResponse, error)
		Unsubscribe(ctx context.Context, followerID, followingID uint) error
		GetSubscriptions(ctx context.Context, followerID uint, p domain.Pagination, recipesLimit int) (domain.Page[domain.SubscriptionResponse], error)
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		storage        storage.Storage
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService, storage storage.Storage) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		storage:        storage,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	taken, err := s.userRepository.CheckEmail(ctx, req.Email)
	if err != nil {
		return domain.RegisterResponse{}, err
	}
	if taken {
		return domain.RegisterResponse{}, domain.ErrEmailTaken
	}

	taken, err = s.userRepository.CheckUsername(ctx, req.Username)
	if err != nil {
		return domain.RegisterResponse{}, err
	}
	if taken {
		return domain.RegisterResponse{}, domain.ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	user := &entities.User{
		Email:     strings.ToLower(req.Email),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hashed),
	}
	if err := s.userRepository.RegisterUser(ctx, user); err != nil {
		return domain.RegisterResponse{}, err
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user registered")
	return domain.RegisterResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.LoginResponse{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateTokenUser(user.ID, domain.RoleUser)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{AuthToken: token}, nil
}

func (s *userService) GetUsers(ctx context.Context, p domain.Pagination, requesterID uint) (domain.Page[domain.UserResponse], error) {
	users, count, err := s.userRepository.GetUsers(ctx, p)
	if err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}

	subscribed, err := s.userRepository.SubscribedSet(ctx, requesterID, userIDs(users))
	if err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}

	results := make([]domain.UserResponse, 0, len(users))
	for _, user := range users {
		results = append(results, toUserResponse(user, subscribed[user.ID]))
	}
	return domain.NewPage(results, count, p), nil
}

func (s *userService) GetUser(ctx context.Context, userID uint, requesterID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserResponse{}, err
	}

	subscribed, err := s.userRepository.SubscribedSet(ctx, requesterID, []uint{userID})
	if err != nil {
		return domain.UserResponse{}, err
	}
	return toUserResponse(user, subscribed[userID]), nil
}

func (s *userService) Me(ctx context.Context, userID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserResponse{}, err
	}
	return toUserResponse(user, false), nil
}

func (s *userService) SetPassword(ctx context.Context, userID uint, req domain.SetPasswordRequest) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return domain.ErrWrongCurrentPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepository.UpdatePassword(ctx, userID, string(hashed))
}

func (s *userService) Subscribe(ctx context.Context, followerID, followingID uint, recipesLimit int) (domain.SubscriptionResponse, error) {
	following, err := s.userRepository.GetUserByID(ctx, followingID)
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}
	if followerID == followingID {
		return domain.SubscriptionResponse{}, domain.ErrSelfSubscription
	}

	subscribed, err := s.userRepository.SubscribedSet(ctx, followerID, []uint{followingID})
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}
	if subscribed[followingID] {
		return domain.SubscriptionResponse{}, domain.ErrAlreadySubscribed
	}

	if err := s.userRepository.CreateSubscription(ctx, followerID, followingID); err != nil {
		return domain.SubscriptionResponse{}, err
	}

	metrics.RecordSubscription(metrics.ActionAdd)
	logging.Ctx(ctx).Info().Uint("user_id", followerID).Uint("following_id", followingID).Msg("subscribed")

	results, err := s.toSubscriptionResponses(ctx, []*entities.User{following}, recipesLimit)
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}
	return results[0], nil
}

func (s *userService) Unsubscribe(ctx context.Context, followerID, followingID uint) error {
	if _, err := s.userRepository.GetUserByID(ctx, followingID); err != nil {
		return err
	}

	removed, err := s.userRepository.DeleteSubscription(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrSubscriptionNotFound
	}

	metrics.RecordSubscription(metrics.ActionRemove)
	logging.Ctx(ctx).Info().Uint("user_id", followerID).Uint("following_id", followingID).Msg("unsubscribed")
	return nil
}

func (s *userService) GetSubscriptions(ctx context.Context, followerID uint, p domain.Pagination, recipesLimit int) (domain.Page[domain.SubscriptionResponse], error) {
	users, count, err := s.userRepository.GetSubscriptions(ctx, followerID, p)
	if err != nil {
		return domain.Page[domain.SubscriptionResponse]{}, err
	}

	results, err := s.toSubscriptionResponses(ctx, users, recipesLimit)
	if err != nil {
		return domain.Page[domain.SubscriptionResponse]{}, err
	}
	return domain.NewPage(results, count, p), nil
}

// toSubscriptionResponses renders followed authors. Every user passed in is
// followed by the requester, so is_subscribed is always true.
func (s *userService) toSubscriptionResponses(ctx context.Context, users []*entities.User, recipesLimit int) ([]domain.SubscriptionResponse, error) {
	counts, err := s.userRepository.CountRecipes(ctx, userIDs(users))
	if err != nil {
		return nil, err
	}

	results := make([]domain.SubscriptionResponse, 0, len(users))
	for _, user := range users {
		recipes, err := s.userRepository.GetRecentRecipes(ctx, user.ID, recipesLimit)
		if err != nil {
			return nil, err
		}

		previews := make([]domain.RecipeMinifiedResponse, 0, len(recipes))
		for _, recipe := range recipes {
			previews = append(previews, domain.RecipeMinifiedResponse{
				ID:          recipe.ID,
				Name:        recipe.Name,
				Image:       s.storage.GetPublicLinkKey(recipe.Image),
				CookingTime: recipe.CookingTime,
			})
		}

		results = append(results, domain.SubscriptionResponse{
			UserResponse: toUserResponse(user, true),
			RecipesCount: counts[user.ID],
			Recipes:      previews,
		})
	}
	return results, nil
}

func toUserResponse(user *entities.User, subscribed bool) domain.UserResponse {
	return domain.UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}
}

func userIDs(users []*entities.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	return ids
}
