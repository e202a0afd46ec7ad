package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
	"github.com/RubachokBoss/edujury/internal/repository"
)

type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context, role string, page, limit int) ([]models.Profile, int, error)
	UpdateProfile(ctx context.Context, actor rbac.Actor, id string, req *models.UpdateProfileRequest) (*models.Profile, error)
	DeactivateProfile(ctx context.Context, actor rbac.Actor, id string) error
}

type profileService struct {
	profileRepo repository.ProfileRepository
	logger      zerolog.Logger
	now         clock
}

func NewProfileService(profileRepo repository.ProfileRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		logger:      logger,
		now:         systemClock,
	}
}

func (s *profileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get profile", err)
	}
	if profile == nil {
		return nil, notFound("profile", id)
	}
	return profile, nil
}

func (s *profileService) ListProfiles(ctx context.Context, role string, p, limit int) ([]models.Profile, int, error) {
	if role != "" && !models.IsValidRole(role) {
		return nil, 0, models.NewValidationError("invalid role filter", models.FieldError{Field: "role", Error: role})
	}

	_, limit, offset := page(p, limit)
	profiles, total, err := s.profileRepo.GetAll(ctx, role, limit, offset)
	if err != nil {
		return nil, 0, collaborator("failed to list profiles", err)
	}
	return profiles, total, nil
}

// UpdateProfile changes contact fields. Profiles edit themselves; admins may
// edit anyone.
func (s *profileService) UpdateProfile(ctx context.Context, actor rbac.Actor, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if actor.ID() != id && !isAdmin(actor) {
		return nil, forbidden("cannot edit another profile")
	}

	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Department = req.Department
	profile.Expertise = req.Expertise
	profile.Phone = req.Phone
	profile.UpdatedAt = s.now()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, collaborator("failed to update profile", err)
	}

	s.logger.Info().Str("profile_id", id).Str("actor_id", actor.ID()).Msg("Profile updated")
	return profile, nil
}

func (s *profileService) DeactivateProfile(ctx context.Context, actor rbac.Actor, id string) error {
	if actor.ID() == id {
		return forbidden("cannot deactivate yourself")
	}
	if _, err := s.GetProfile(ctx, id); err != nil {
		return err
	}

	if err := s.profileRepo.Deactivate(ctx, id); err != nil {
		return collaborator("failed to deactivate profile", err)
	}

	s.logger.Info().Str("profile_id", id).Str("actor_id", actor.ID()).Msg("Profile deactivated")
	return nil
}
