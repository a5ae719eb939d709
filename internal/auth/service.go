package auth

import (
	"context"
	"fmt"
	"strings"
	"vet-clinic/internal/clock"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/database"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwt"
)

// Authenticator determines the methods available to users get authenticated.
type Authenticator interface {

	// Authenticate authenticates a user by its credentials and returns a JWT tokens, otherwise an error.
	Authenticate(ctx context.Context, credentials Credentials) (*Tokens, error)
}

// Authorizer determines the methods used to authorize a user to perform some action.
type Authorizer interface {

	// ValidateToken validates the given access token, returning the user associated to it.
	ValidateToken(ctx context.Context, token string) (*User, error)

	// RefreshTokens generates new tokens based on the given refresh token.
	RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error)

	// GetAuthenticatedUser gets the authenticated user associated to context.
	GetAuthenticatedUser(ctx context.Context) (User, error)
}

type Service interface {
	Authenticator
	Authorizer
}

type defaultService struct {
	repository Repository
	config     configs.Config
	clock      clock.Clock
}

// NewService creates a new auth service.
func NewService(config configs.Config, dbConn database.Connection) Service {
	return &defaultService{
		config:     config,
		repository: newRepository(dbConn),
		clock:      clock.System(),
	}
}

func (d defaultService) Authenticate(ctx context.Context, credentials Credentials) (*Tokens, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	user, err := d.repository.FindUserByEmail(ctx, strings.TrimSpace(credentials.Email))
	if err != nil {
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	if user == nil {
		return nil, NewUnauthorizedError()
	}
	isValidCredentials, err := d.repository.CheckUserPassword(ctx, *user, credentials.Password)
	if err != nil {
		return nil, fmt.Errorf("could not check user password: %w", err)
	}
	if !isValidCredentials {
		return nil, NewUnauthorizedError()
	}
	return GenerateTokens(ctx, d.config.PrivateKey(), *user)
}

// parseToken verifies the signature of the given token, checking that it has the expected type and
// is not expired yet.
func (d defaultService) parseToken(token string, typ string) (jwt.Token, uuid.UUID, error) {
	parsedToken, err := ParseToken(token, d.config.PrivateKey().PublicKey)
	if err != nil {
		return nil, uuid.Nil, NewUnauthorizedError()
	}
	if tokenType, _ := parsedToken.Get("typ"); tokenType != typ {
		return nil, uuid.Nil, NewUnauthorizedError()
	}
	if !d.clock.Now().Before(parsedToken.Expiration()) {
		return nil, uuid.Nil, NewUnauthorizedError()
	}
	subject, err := uuid.Parse(parsedToken.Subject())
	if err != nil {
		return nil, uuid.Nil, NewUnauthorizedError()
	}
	return parsedToken, subject, nil
}

func (d defaultService) ValidateToken(ctx context.Context, token string) (*User, error) {
	_, subject, err := d.parseToken(strings.TrimPrefix(token, "Bearer "), AccessTokenType)
	if err != nil {
		return nil, err
	}
	user, err := d.repository.FindUserByUUID(ctx, subject)
	if err != nil || user == nil {
		return nil, NewUnauthorizedError()
	}
	return user, nil
}

func (d defaultService) RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error) {
	if err := tokens.Validate(); err != nil {
		return nil, err
	}
	_, subject, err := d.parseToken(tokens.RefreshToken, RefreshTokenType)
	if err != nil {
		return nil, err
	}
	user, err := d.repository.FindUserByUUID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	if user == nil {
		return nil, NewUnauthorizedError()
	}
	return GenerateTokens(ctx, d.config.PrivateKey(), *user)
}

func (d defaultService) GetAuthenticatedUser(ctx context.Context) (User, error) {
	user, isUser := ctx.Value(UserContextKey).(User)
	if !isUser {
		return User{}, NewUnauthorizedError()
	}
	return user, nil
}
