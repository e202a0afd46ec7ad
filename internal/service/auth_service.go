package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/RubachokBoss/edujury/internal/config"
	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/repository"
)

type AuthService interface {
	SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResponse, error)
	SignIn(ctx context.Context, req *models.SignInRequest) (*models.AuthResponse, error)
	SignOut(ctx context.Context, token string) error
	CurrentIdentity(ctx context.Context, token string) (*models.Profile, error)
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	profileRepo repository.ProfileRepository
	tokenRepo   repository.TokenRepository
	cfg         config.AuthConfig
	logger      zerolog.Logger
	now         clock
}

func NewAuthService(
	profileRepo repository.ProfileRepository,
	tokenRepo repository.TokenRepository,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		profileRepo: profileRepo,
		tokenRepo:   tokenRepo,
		cfg:         cfg,
		logger:      logger,
		now:         systemClock,
	}
}

// SignUp registers a profile and signs it in. Admin profiles can only be
// self-registered while no active admin exists.
func (s *authService) SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, collaborator("failed to check email", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	}

	role := models.Role(req.Role)
	if !models.IsValidRole(req.Role) {
		return nil, models.NewValidationError("invalid role", models.FieldError{Field: "role", Error: req.Role})
	}
	if role == models.RoleAdmin {
		_, admins, err := s.profileRepo.GetAll(ctx, string(models.RoleAdmin), 1, 0)
		if err != nil {
			return nil, collaborator("failed to count admins", err)
		}
		if admins > 0 {
			return nil, forbidden("admin profiles are created by an admin")
		}
	}

	profile, err := s.newProfile(email, req, role)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		return nil, collaborator("failed to create profile", err)
	}

	s.logger.Info().
		Str("profile_id", profile.ID).
		Str("role", string(profile.Role)).
		Msg("Profile registered")

	return s.issue(profile)
}

func (s *authService) newProfile(email string, req *models.SignUpRequest, role models.Role) (*models.Profile, error) {
	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	return &models.Profile{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Department:   req.Department,
		Expertise:    req.Expertise,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *authService) SignIn(ctx context.Context, req *models.SignInRequest) (*models.AuthResponse, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, collaborator("failed to load profile", err)
	}
	if profile == nil || !profile.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}

	s.logger.Info().Str("profile_id", profile.ID).Msg("Profile signed in")
	return s.issue(profile)
}

func (s *authService) issue(profile *models.Profile) (*models.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := tokenClaims{
		Role: string(profile.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   profile.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Profile:     profile,
	}, nil
}

func (s *authService) parse(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: token without subject", models.ErrUnauthorized)
	}
	return claims, nil
}

// SignOut revokes the token's id until it would have expired anyway.
func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.cfg.TokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.tokenRepo.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return collaborator("failed to revoke token", err)
	}

	if _, err := s.tokenRepo.PurgeExpired(ctx, s.now()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to purge expired revocations")
	}

	s.logger.Info().Str("profile_id", claims.Subject).Msg("Profile signed out")
	return nil
}

func (s *authService) CurrentIdentity(ctx context.Context, token string) (*models.Profile, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, collaborator("failed to check token revocation", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", models.ErrUnauthorized)
	}

	profile, err := s.profileRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, collaborator("failed to load profile", err)
	}
	if profile == nil || !profile.IsActive {
		return nil, fmt.Errorf("%w: profile unavailable", models.ErrUnauthorized)
	}
	return profile, nil
}
