// Package identity resolves the calling player: a signed bearer token for
// accounts, or a guest id for everyone else.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"arcade/internal/match"
)

// DefaultRating is used when an account carries no rating.
const DefaultRating = 1000

// GuestHeader carries a client-chosen guest id across requests.
const GuestHeader = "X-Guest-ID"

const guestPrefix = "guest-"

var ErrUnauthorized = errors.New("invalid or expired token")

// Caller is the resolved identity of a request.
type Caller struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
	Guest  bool   `json:"guest"`
}

// Claims is the token payload. Subject is the player id.
type Claims struct {
	Rating int `json:"rating,omitempty"`
	jwt.RegisteredClaims
}

// Verifier signs and checks HS256 tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for playerID valid for ttl.
func (v *Verifier) Issue(playerID string, rating int, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Rating: rating,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses a token into an account Caller. A verifier without a
// secret accepts no tokens, so only guests can play.
func (v *Verifier) Verify(tokenString string) (Caller, error) {
	if len(v.secret) == 0 {
		return Caller{}, fmt.Errorf("%w: no signing secret configured", ErrUnauthorized)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Caller{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.Subject == match.AIPlayerID || strings.HasPrefix(claims.Subject, guestPrefix) {
		return Caller{}, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	rating := claims.Rating
	if rating <= 0 {
		rating = DefaultRating
	}
	return Caller{ID: claims.Subject, Rating: rating}, nil
}

// FromRequest resolves the caller of r. A present but invalid bearer token
// is an error; no token at all makes the caller a guest.
func (v *Verifier) FromRequest(r *http.Request) (Caller, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			return Caller{}, fmt.Errorf("%w: malformed authorization header", ErrUnauthorized)
		}
		return v.Verify(token)
	}
	return Guest(r.Header.Get(GuestHeader)), nil
}

// Guest returns a guest caller for id, minting a fresh id when empty.
func Guest(id string) Caller {
	id = strings.TrimPrefix(strings.TrimSpace(id), guestPrefix)
	if id == "" {
		id = uuid.NewString()
	}
	return Caller{ID: guestPrefix + id, Rating: DefaultRating, Guest: true}
}

// IsGuest reports whether id was minted by Guest.
func IsGuest(id string) bool {
	return strings.HasPrefix(id, guestPrefix)
}
