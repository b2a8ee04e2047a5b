package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var ErrInvalidToken = errors.New("invalid token")

// CredentialVerifier resolves a bearer token to the client id it belongs to.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

type StaticCredential struct {
	Token     string `yaml:"token"`
	TokenHash string `yaml:"token_hash"`
	ClientID  int64  `yaml:"client_id"`
}

type credentialsFile struct {
	Credentials []StaticCredential `yaml:"credentials"`
}

// DefaultCredentials are the development tokens used when nothing is configured.
func DefaultCredentials() []StaticCredential {
	return []StaticCredential{
		{Token: "test-token-123", ClientID: 1},
		{Token: "demo-token-456", ClientID: 2},
	}
}

// ParseTokenList parses "token:client_id,token2:client_id2".
func ParseTokenList(raw string) ([]StaticCredential, error) {
	var out []StaticCredential
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndex(part, ":")
		if idx <= 0 || idx == len(part)-1 {
			return nil, fmt.Errorf("invalid token entry %q: want token:client_id", part)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(part[idx+1:]), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid client id in token entry %q", part)
		}
		out = append(out, StaticCredential{Token: strings.TrimSpace(part[:idx]), ClientID: id})
	}
	return out, nil
}

// LoadCredentialsFile reads a YAML document of the form
//
//	credentials:
//	  - token: abc
//	    client_id: 1
//	  - token_hash: $2a$10$...
//	    client_id: 2
func LoadCredentialsFile(path string) ([]StaticCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var doc credentialsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return doc.Credentials, nil
}

type StaticCredentials struct {
	plain  map[string]int64
	hashed []StaticCredential
}

func NewStaticCredentials(entries []StaticCredential) (*StaticCredentials, error) {
	sc := &StaticCredentials{plain: map[string]int64{}}
	for i, e := range entries {
		if e.ClientID <= 0 {
			return nil, fmt.Errorf("credential %d: client_id must be positive", i)
		}
		switch {
		case strings.TrimSpace(e.TokenHash) != "":
			if _, err := bcrypt.Cost([]byte(e.TokenHash)); err != nil {
				return nil, fmt.Errorf("credential %d: invalid token_hash: %w", i, err)
			}
			sc.hashed = append(sc.hashed, e)
		case e.Token != "":
			sc.plain[e.Token] = e.ClientID
		default:
			return nil, fmt.Errorf("credential %d: token or token_hash required", i)
		}
	}
	return sc, nil
}

func (s *StaticCredentials) Verify(_ context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}
	if id, ok := s.plain[token]; ok {
		return id, nil
	}
	for _, e := range s.hashed {
		if bcrypt.CompareHashAndPassword([]byte(e.TokenHash), []byte(token)) == nil {
			return e.ClientID, nil
		}
	}
	return 0, ErrInvalidToken
}

type JWTClaims struct {
	ClientID int64 `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTCredentials accepts HS256 tokens carrying a client_id claim.
type JWTCredentials struct {
	secret []byte
}

func NewJWTCredentials(secret string) (*JWTCredentials, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &JWTCredentials{secret: []byte(secret)}, nil
}

// Issue signs a token for clientID. ttl <= 0 issues a token without expiry.
func (j *JWTCredentials) Issue(clientID int64, ttl time.Duration) (string, error) {
	if clientID <= 0 {
		return "", fmt.Errorf("client id must be positive")
	}
	now := time.Now()
	claims := JWTClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(clientID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTCredentials) Verify(_ context.Context, token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || claims.ClientID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.ClientID, nil
}

// ChainCredentials tries each verifier in order; the first acceptance wins.
type ChainCredentials []CredentialVerifier

func (c ChainCredentials) Verify(ctx context.Context, token string) (int64, error) {
	for _, v := range c {
		if v == nil {
			continue
		}
		if id, err := v.Verify(ctx, token); err == nil {
			return id, nil
		}
	}
	return 0, ErrInvalidToken
}
