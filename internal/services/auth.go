package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid member id or pin")
)

type AuthService interface {
	// Verify resolves an access token to the member it was issued for.
	Verify(ctx context.Context, credential string) (uuid.UUID, error)
	IssueAccessToken(memberID uuid.UUID) (string, error)
	// Login checks a member's PIN and issues an access token.
	Login(ctx context.Context, memberID uuid.UUID, pin string) (string, error)
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	members      repos.MemberRepo
	jwtSecretKey string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(log *logger.Logger, members repos.MemberRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		members:      members,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func (as *authService) IssueAccessToken(memberID uuid.UUID) (string, error) {
	if memberID == uuid.Nil {
		return "", fmt.Errorf("member id required")
	}
	now := as.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) Verify(ctx context.Context, credential string) (uuid.UUID, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return uuid.Nil, ErrInvalidToken
	}
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	parsed, err := jwt.ParseWithClaims(credential, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		as.log.Debug("token rejected", "error", err)
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	memberID, err := uuid.Parse(claims.Subject)
	if err != nil || memberID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return memberID, nil
}

func (as *authService) Login(ctx context.Context, memberID uuid.UUID, pin string) (string, error) {
	if memberID == uuid.Nil || strings.TrimSpace(pin) == "" {
		return "", ErrInvalidCredentials
	}
	member, err := as.members.GetByID(ctx, nil, memberID)
	if err != nil {
		as.log.Warn("member lookup failed", "member_id", memberID, "error", err)
		return "", fmt.Errorf("member lookup: %w", err)
	}
	if member == nil || member.PinHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PinHash), []byte(pin)); err != nil {
		return "", ErrInvalidCredentials
	}
	return as.IssueAccessToken(member.ID)
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

// HashPin bcrypt-hashes a member PIN for storage.
func HashPin(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return "", ErrInvalidCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
