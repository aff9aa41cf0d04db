package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid seat token")

// SeatClaims is the payload of a seat session credential. The token ties a
// seat to one team in one tournament; it carries no write rights beyond
// bidding and voting for that team.
type SeatClaims struct {
	jwt.RegisteredClaims
	TournamentCode string `json:"tc"`
	TeamID         string `json:"team"`
	SeatID         string `json:"seat"`
}

// NewSeatToken signs an HS256 credential for a logged-in seat.
func NewSeatToken(secret, tournamentCode, teamID, seatID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SeatClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   seatID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TournamentCode: tournamentCode,
		TeamID:         teamID,
		SeatID:         seatID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign seat token: %w", err)
	}
	return signed, nil
}

// ParseSeatToken verifies signature and expiry and returns the claims.
func ParseSeatToken(secret, raw string) (*SeatClaims, error) {
	var claims SeatClaims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// HashPIN returns the bcrypt hash stored for a seat's PIN.
func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPIN safely compares a stored hash against the presented PIN.
func VerifyPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
