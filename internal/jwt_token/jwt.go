// Package jwttoken mints and validates the HS256 bearer tokens carried by
// stakeholders, reviewers and operators.
package jwttoken

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"adjudicator/internal/refund/models"
	dErrors "adjudicator/pkg/domain-errors"
	authmw "adjudicator/pkg/platform/middleware/auth"
)

// clockSkew tolerated between the minting host and this one.
const clockSkew = 30 * time.Second

// bearerRoles may appear in a token. The system role is reserved for the
// monitor's own principal and is never accepted from outside.
var bearerRoles = []models.Role{
	models.RoleStakeholder,
	models.RoleReviewer,
	models.RoleFinance,
	models.RoleCompliance,
	models.RoleLegal,
	models.RoleSenior,
	models.RoleOperator,
}

var errInvalidClaims = dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")

// Claims are the bearer token claims: the subject is a stakeholder id or a
// reviewer id, and Role selects which routes the caller may use.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and checks tokens for one issuer and audience.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Mint issues a token for subject acting as role.
func (s *Service) Mint(subject string, role models.Role, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if !slices.Contains(bearerRoles, role) {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be carried in a bearer token")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Parse verifies signature, issuer, audience and expiry, then the claims.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errInvalidClaims
	}
	if !slices.Contains(bearerRoles, models.Role(claims.Role)) {
		return nil, errInvalidClaims
	}
	return claims, nil
}

// ValidateToken satisfies the auth middleware's validator port.
func (s *Service) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Subject: claims.Subject, Role: claims.Role}, nil
}
