package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jws"
	"github.com/lestrrat-go/jwx/jwt"
)

const (
	SigningAlgorithm       = jwa.RS512
	Issuer                 = "vet_clinic"
	Audience               = "vet_clinic_staff"
	AccessTokenType        = "access"
	RefreshTokenType       = "refresh"
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 12 * time.Hour
	roleClaim              = "role"
	typeClaim              = "typ"
)

// TokenOption determines the Functional Options used to create a new Token.
type TokenOption func(token jwt.Token) error

// tokenOptions returns the claims shared by every token of the given type, followed by the given
// options, which may override them.
func tokenOptions(typ string, expiration time.Duration, opts ...TokenOption) []TokenOption {
	return append([]TokenOption{
		WithClaim(jwt.IssuerKey, Issuer),
		WithClaim(jwt.AudienceKey, []string{Audience}),
		WithClaim(typeClaim, typ),
		WithJTI(),
		WithClaim(jwt.IssuedAtKey, time.Now()),
		WithExpiration(expiration),
	}, opts...)
}

// NewJwtToken creates a new Token using the given options.
func NewJwtToken(opts ...TokenOption) (jwt.Token, error) {
	jwtToken := jwt.New()
	for _, opt := range opts {
		if err := opt(jwtToken); err != nil {
			return nil, err
		}
	}
	return jwtToken, nil
}

// WithClaim sets an arbitrary claim.
func WithClaim(name string, value interface{}) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(name, value)
	}
}

// WithExpiration determines the token expiration time, relative to now.
func WithExpiration(duration time.Duration) TokenOption {
	return WithClaim(jwt.ExpirationKey, time.Now().Add(duration))
}

// WithJTI sets a unique identifier to the token.
func WithJTI() TokenOption {
	return func(token jwt.Token) error {
		jti, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		return token.Set(jwt.JwtIDKey, jti.String())
	}
}

// WithUser sets the subject and its role.
func WithUser(user User) TokenOption {
	return func(token jwt.Token) error {
		if err := token.Set(jwt.SubjectKey, user.UUID.String()); err != nil {
			return err
		}
		return token.Set(roleClaim, string(user.Role))
	}
}

// keyHeaders builds the JWS headers carrying the thumbprint of the signing key as key id.
func keyHeaders(privateKey rsa.PrivateKey) (jws.Headers, error) {
	jwKey, err := jwk.New(privateKey)
	if err != nil {
		return nil, err
	}
	thumbprint, err := jwKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, err
	}
	headers := jws.NewHeaders()
	if err = headers.Set(jws.KeyIDKey, hex.EncodeToString(thumbprint)); err != nil {
		return nil, err
	}
	return headers, nil
}

// SignToken signs the given token using the given private key.
func SignToken(token jwt.Token, privateKey rsa.PrivateKey) (string, error) {
	headers, err := keyHeaders(privateKey)
	if err != nil {
		return "", err
	}
	signedToken, err := jwt.Sign(token, SigningAlgorithm, privateKey, jwt.WithHeaders(headers))
	if err != nil {
		return "", err
	}
	return string(signedToken), nil
}

// ParseToken verifies the token signature with the public key and returns the parsed token.
func ParseToken(token string, publicKey rsa.PublicKey) (jwt.Token, error) {
	return jwt.Parse([]byte(token), jwt.WithVerify(SigningAlgorithm, publicKey))
}

func signedToken(privateKey rsa.PrivateKey, opts []TokenOption) (string, error) {
	token, err := NewJwtToken(opts...)
	if err != nil {
		return "", err
	}
	return SignToken(token, privateKey)
}

// GenerateTokens generates an access and a refresh token for the given user. Extra options are
// applied to both tokens.
func GenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User, opts ...TokenOption) (*Tokens, error) {
	opts = append([]TokenOption{WithUser(user)}, opts...)
	accessToken, err := signedToken(privateKey, tokenOptions(AccessTokenType, AccessTokenExpiration, opts...))
	if err != nil {
		return nil, fmt.Errorf("could not sign access token: %w", err)
	}
	refreshToken, err := signedToken(privateKey, tokenOptions(RefreshTokenType, RefreshTokenExpiration, opts...))
	if err != nil {
		return nil, fmt.Errorf("could not sign refresh token: %w", err)
	}
	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// MustGenerateTokens generates Tokens for the given user and if any error occurs, will panic.
func MustGenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User, opts ...TokenOption) *Tokens {
	tokens, err := GenerateTokens(ctx, privateKey, user, opts...)
	if err != nil {
		panic(err)
	}
	return tokens
}
