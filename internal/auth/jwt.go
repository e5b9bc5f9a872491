package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

var ErrWrongTokenKind = errors.New("wrong token kind")

type JWTManager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
	JTI          string    `json:"-"`
}

// Claims is the subset of token claims the API acts on.
type Claims struct {
	UserID       string
	Kind         TokenKind
	TokenVersion int
	AuthMethod   string
	Roles        []string
}

func NewJWTManager(privatePath, publicPath, issuer string) (*JWTManager, error) {
	privPem, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPem)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubPem, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewJWTManagerFromKey(privKey, pubKey, issuer), nil
}

func NewJWTManagerFromKey(priv *rsa.PrivateKey, pub *rsa.PublicKey, issuer string) *JWTManager {
	return &JWTManager{privateKey: priv, publicKey: pub, issuer: issuer}
}

// NewEphemeralJWTManager signs with a throwaway key. Tokens do not survive a
// restart; used for STORE=memory runs and tests.
func NewEphemeralJWTManager(issuer string) (*JWTManager, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewJWTManagerFromKey(key, &key.PublicKey, issuer), nil
}

// createJWT makes a signed JWT for given claims
func (m *JWTManager) createJWT(userID string, kind TokenKind, ttl time.Duration, tokenVersion int, jti string, authMethod string, roles []string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"iss":         m.issuer,
		"sub":         userID,
		"iat":         now.Unix(),
		"exp":         exp.Unix(),
		"jti":         jti,
		"typ":         string(kind),
		"ver":         tokenVersion,
		"auth_method": authMethod,
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenStr, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenStr, exp, nil
}

// GenerateTokenPair creates access + refresh tokens sharing a token version.
func (m *JWTManager) GenerateTokenPair(userID string, accessTTL, refreshTTL time.Duration, tokenVersion int, authMethod string, roles []string) (*TokenPair, error) {
	jti := uuid.New().String()
	accessToken, accessExp, err := m.createJWT(userID, AccessToken, accessTTL, tokenVersion, jti, authMethod, roles)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExp, err := m.createJWT(userID, RefreshToken, refreshTTL, tokenVersion, uuid.New().String(), authMethod, roles)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		JTI:          jti,
	}, nil
}

// VerifyToken checks the RS256 signature, expiry, issuer and token kind.
func (m *JWTManager) VerifyToken(tokenStr string, kind TokenKind) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	c := &Claims{}
	c.UserID, _ = mc["sub"].(string)
	c.AuthMethod, _ = mc["auth_method"].(string)
	typ, _ := mc["typ"].(string)
	c.Kind = TokenKind(typ)
	ver, _ := mc["ver"].(float64)
	c.TokenVersion = int(ver)
	if roles, ok := mc["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				c.Roles = append(c.Roles, s)
			}
		}
	}

	if c.Kind != kind {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenKind, c.Kind, kind)
	}
	return c, nil
}

// HashToken produces SHA256 hex of a secret for storage. Activation keys are
// stored hashed; only the mailed link carries the raw key.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// NewOpaqueToken returns a random URL-safe secret.
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
