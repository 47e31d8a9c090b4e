package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/pkg/auth"
	"github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/security"
)

var ErrInvalidCredentials = stderrors.New("invalid credentials")

type Service struct {
	userRepo    repository.UserRepository
	patientRepo repository.PatientRepository
	jwtSvc      auth.JWTService
	hasher      security.PasswordHasher
}

func NewService(userRepo repository.UserRepository, patientRepo repository.PatientRepository,
	jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		userRepo:    userRepo,
		patientRepo: patientRepo,
		jwtSvc:      jwtSvc,
		hasher:      hasher,
	}
}

// Login checks the password and issues an access token. Patients get their
// patient profile id embedded so later requests can prove ownership.
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized(ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, errors.Unauthorized(ErrInvalidCredentials)
	}

	var patient *model.Patient
	if user.Role == model.RolePatient {
		patient, err = s.patientRepo.GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load patient profile: %w", err)
		}
	}

	token, err := s.jwtSvc.GenerateAccessToken(user, patient)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.Expiry().Seconds()),
	}, nil
}

// Authenticate turns a bearer token into the acting party.
func (s *Service) Authenticate(token string) (model.Actor, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Actor{}, errors.Unauthorized(err)
	}
	return claims.Actor(), nil
}
