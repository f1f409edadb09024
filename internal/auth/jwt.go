package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity embedded in a voicecore token.
type Claims struct {
	DeviceID string `json:"device_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const deviceTokenTTL = 24 * time.Hour

// ErrInvalidToken is returned for tokens that parse but do not carry
// valid voicecore claims.
var ErrInvalidToken = errors.New("invalid token")

// Service signs and validates JWTs with an injected secret.
type Service struct {
	secret []byte
}

// NewService creates a token service. The secret comes from
// configuration, never from a package-level default.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// GenerateDeviceToken issues a token a device presents when opening
// its websocket.
func (s *Service) GenerateDeviceToken(deviceID string) (string, error) {
	claims := &Claims{
		DeviceID: deviceID,
		Role:     "device",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(deviceTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
