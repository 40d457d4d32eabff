package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/codedeck/codedeck-backend/internal/normalization"
	pkgerrors "github.com/codedeck/codedeck-backend/internal/pkg/errors"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/repos"
	"github.com/codedeck/codedeck-backend/internal/requestdata"
	"github.com/codedeck/codedeck-backend/internal/types"
)

// DefaultRoleName is assigned to freshly registered accounts.
const DefaultRoleName = "student"

type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService interface {
	RegisterUser(ctx context.Context, params RegisterParams) (*types.User, error)
	// LoginUser returns (accessToken, refreshToken).
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	// RefreshUser rotates the refresh token carried in the request context and
	// mints a new access token.
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	// SetContextFromToken validates an access token and attaches the identity
	// to the context for downstream services.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	roleRepo      repos.RoleRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	roleRepo repos.RoleRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		roleRepo:      roleRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *authService) GetAccessTTL() time.Duration { return s.accessTTL }

func (s *authService) RegisterUser(ctx context.Context, params RegisterParams) (*types.User, error) {
	email := normalization.ParseEmail(params.Email)
	if email == "" || params.Password == "" {
		return nil, fmt.Errorf("email and password required: %w", pkgerrors.ErrInvalidArgument)
	}

	existing, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("email already registered: %w", pkgerrors.ErrConflict)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roles, err := s.roleRepo.GetByNames(ctx, nil, []string{DefaultRoleName})
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 || roles[0] == nil {
		// A role-less account would fail every permission check; refuse to
		// create one on a misprovisioned database.
		return nil, fmt.Errorf("default role %q is not provisioned: %w", DefaultRoleName, pkgerrors.ErrIntegrity)
	}

	user := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hashed),
		FirstName: normalization.ParseInputString(params.FirstName),
		LastName:  normalization.ParseInputString(params.LastName),
		RoleID:    &roles[0].ID,
	}
	if _, err := s.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = normalization.ParseEmail(email)

	users, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return "", "", err
	}
	if len(users) == 0 || users[0] == nil {
		return "", "", fmt.Errorf("invalid credentials: %w", pkgerrors.ErrUnauthorized)
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", fmt.Errorf("invalid credentials: %w", pkgerrors.ErrUnauthorized)
	}

	var accessToken, refreshToken string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A login replaces any earlier refresh tokens for the account.
		found, err := s.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if err != nil {
			return err
		}
		stale := make([]uuid.UUID, 0, len(found))
		for _, t := range found {
			stale = append(stale, t.ID)
		}
		if err := s.userTokenRepo.FullDeleteByIDs(ctx, tx, stale); err != nil {
			return err
		}

		refreshToken = uuid.NewString()
		if _, err := s.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     refreshToken,
			ExpiresAt: time.Now().Add(s.refreshTTL),
		}}); err != nil {
			return err
		}

		accessToken, err = s.generateAccessToken(user)
		return err
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return "", "", pkgerrors.ErrUnauthorized
	}

	tokens, err := s.userTokenRepo.GetByTokens(ctx, nil, []string{rd.TokenString})
	if err != nil {
		return "", "", err
	}
	if len(tokens) == 0 || tokens[0] == nil {
		return "", "", fmt.Errorf("unknown refresh token: %w", pkgerrors.ErrUnauthorized)
	}
	stored := tokens[0]
	if stored.ExpiresAt.Before(time.Now()) {
		return "", "", fmt.Errorf("refresh token expired: %w", pkgerrors.ErrUnauthorized)
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{stored.UserID})
	if err != nil {
		return "", "", err
	}
	if len(users) == 0 || users[0] == nil {
		return "", "", pkgerrors.ErrUnauthorized
	}
	user := users[0]

	var accessToken, refreshToken string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{stored.ID}); err != nil {
			return err
		}
		refreshToken = uuid.NewString()
		if _, err := s.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     refreshToken,
			ExpiresAt: time.Now().Add(s.refreshTTL),
		}}); err != nil {
			return err
		}
		accessToken, err = s.generateAccessToken(user)
		return err
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return pkgerrors.ErrUnauthorized
	}
	tokens, err := s.userTokenRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	return s.userTokenRepo.FullDeleteByIDs(ctx, nil, ids)
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid access token: %w", pkgerrors.ErrUnauthorized)
	}

	sub, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject: %w", pkgerrors.ErrUnauthorized)
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (s *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
