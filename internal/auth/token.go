package auth

import (
	"errors"
	"fmt"
	"sort"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the shortest HMAC secret accepted (256 bits).
const MinSecretBytes = 32

var (
	ErrSecretTooShort        = fmt.Errorf("signing secret must be at least %d bytes", MinSecretBytes)
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenBadSignature     = errors.New("token signature invalid")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenIssuerOrAudience = errors.New("token issuer or audience mismatch")
	ErrMissingSubject        = errors.New("claims carry no subject")
)

// registered names are controlled by the codec and never copied from a claim set.
var registered = map[string]struct{}{
	"iss": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {},
}

// Token is a parsed, verified bearer token.
type Token struct {
	Claims    Claims
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// TokenCodec handles issuing and validating HS256 JWTs.
type TokenCodec struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// TokenCodecOption customizes codec construction.
type TokenCodecOption func(*TokenCodec)

// WithClock injects the time source used for minting and expiry checks.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(tc *TokenCodec) {
		if now != nil {
			tc.now = now
		}
	}
}

// NewTokenCodec builds a codec. A secret shorter than MinSecretBytes is a
// configuration error.
func NewTokenCodec(secret, issuer, audience string, opts ...TokenCodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrSecretTooShort
	}
	tc := &TokenCodec{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

// Mint signs claims with the registered fields and returns the token and its expiry.
// A jti is generated when claims carry none.
func (tc *TokenCodec) Mint(claims Claims, ttl time.Duration) (string, time.Time, error) {
	subject := claims.Subject()
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: ttl must be positive", ErrInvalidInput)
	}

	// exp is signed with second precision; report the same instant
	now := tc.now()
	issuedAt := jwt.NewNumericDate(now)
	expiry := jwt.NewNumericDate(now.Add(ttl))

	payload := jwt.MapClaims{}
	grouped := map[string][]string{}
	var order []string
	for _, claim := range claims.List() {
		if _, skip := registered[claim.Type]; skip {
			continue
		}
		if _, seen := grouped[claim.Type]; !seen {
			order = append(order, claim.Type)
		}
		grouped[claim.Type] = append(grouped[claim.Type], claim.Value)
	}
	for _, t := range order {
		values := grouped[t]
		if len(values) == 1 && t != ClaimOriginalRoles && t != ClaimRole {
			payload[t] = values[0]
			continue
		}
		payload[t] = values
	}
	if _, ok := payload[ClaimTokenID]; !ok {
		payload[ClaimTokenID] = uuid.NewString()
	}
	payload[ClaimSubject] = subject
	payload["iss"] = tc.issuer
	payload["aud"] = tc.audience
	payload["iat"] = issuedAt
	payload["nbf"] = issuedAt
	payload["exp"] = expiry

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiry.Time, nil
}

// Parse validates tokenStr and returns its claims. It performs no I/O.
func (tc *TokenCodec) Parse(tokenStr string) (*Token, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tc.secret, nil
	},
		jwt.WithIssuer(tc.issuer),
		jwt.WithAudience(tc.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tc.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return tokenFromMap(mapClaims)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenIssuerOrAudience
	default:
		return ErrTokenMalformed
	}
}

func tokenFromMap(m jwt.MapClaims) (*Token, error) {
	tok := &Token{}
	var err error
	if tok.Issuer, err = m.GetIssuer(); err != nil {
		return nil, ErrTokenMalformed
	}
	if tok.Audience, err = m.GetAudience(); err != nil {
		return nil, ErrTokenMalformed
	}
	if exp, _ := m.GetExpirationTime(); exp != nil {
		tok.ExpiresAt = exp.Time
	}
	if iat, _ := m.GetIssuedAt(); iat != nil {
		tok.IssuedAt = iat.Time
	}
	if nbf, _ := m.GetNotBefore(); nbf != nil {
		tok.NotBefore = nbf.Time
	}

	var items []Claim
	add := func(claimType string, raw any) bool {
		switch v := raw.(type) {
		case string:
			items = append(items, Claim{Type: claimType, Value: v})
		case []any:
			for _, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return false
				}
				items = append(items, Claim{Type: claimType, Value: s})
			}
		case bool, float64:
			items = append(items, Claim{Type: claimType, Value: fmt.Sprint(v)})
		default:
			return false
		}
		return true
	}

	// sub and jti lead so claim order is stable across mint/parse.
	for _, t := range []string{ClaimSubject, ClaimTokenID} {
		if raw, ok := m[t]; ok && !add(t, raw) {
			return nil, ErrTokenMalformed
		}
	}
	keys := make([]string, 0, len(m))
	for t := range m {
		if _, skip := registered[t]; skip || t == ClaimSubject || t == ClaimTokenID {
			continue
		}
		keys = append(keys, t)
	}
	sort.Strings(keys)
	for _, t := range keys {
		if !add(t, m[t]) {
			return nil, ErrTokenMalformed
		}
	}
	tok.Claims = NewClaims(items...)
	if tok.Claims.Subject() == "" {
		return nil, ErrTokenMalformed
	}
	return tok, nil
}
