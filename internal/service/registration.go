package service

import (
	"context"
	"errors"
	"strings"

	"bookmanager/internal/domain"
)

// RegistrationService registers principals and issues their first API key.
type RegistrationService struct {
	principals  domain.PrincipalRepository
	credentials *CredentialService
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(principals domain.PrincipalRepository, credentials *CredentialService) *RegistrationService {
	return &RegistrationService{principals: principals, credentials: credentials}
}

// Register creates a principal and issues its first credential, returning
// the raw key once. Username uniqueness is enforced by the repository's
// atomic check-and-insert; a duplicate surfaces as ConflictError.
//
// The password is required for parity with the registration contract but is
// not persisted: API keys are the only credential this system authenticates.
func (s *RegistrationService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Principal, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	p, err := s.principals.Create(ctx, &domain.Principal{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
	})
	if err != nil {
		return nil, "", err
	}

	_, rawKey, err := s.credentials.Issue(ctx, p.ID)
	if err != nil {
		// Roll the principal back so the username stays available; a
		// principal without a credential can never authenticate.
		if delErr := s.principals.Delete(ctx, p.ID); delErr != nil {
			return nil, "", errors.Join(err, delErr)
		}
		return nil, "", err
	}
	return p, rawKey, nil
}
