package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"retailstore/backend/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Account is a login seeded from configuration. Password may be plain text or a bcrypt hash.
type Account struct {
	Username string
	Password string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type AuthManager struct {
	mu       sync.RWMutex
	secret   []byte
	tokenTTL time.Duration
	users    map[string]credential
}

type credential struct {
	password string
	role     string
}

type storeClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts []Account) (*AuthManager, error) {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	manager := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    make(map[string]credential, len(accounts)),
	}
	for _, account := range accounts {
		if err := manager.AddAccount(account); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// AddAccount registers or replaces a login. Accounts without a password are skipped.
func (a *AuthManager) AddAccount(account Account) error {
	username := strings.ToLower(strings.TrimSpace(account.Username))
	if username == "" || strings.TrimSpace(account.Password) == "" {
		return nil
	}
	if account.Role != domain.RoleManager && account.Role != domain.RoleCashier {
		return fmt.Errorf("unknown role %q for %s", account.Role, username)
	}

	password := account.Password
	if !isPasswordHash(password) {
		hashed, err := hashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", username, err)
		}
		password = hashed
	}

	a.mu.Lock()
	a.users[username] = credential{password: password, role: account.Role}
	a.mu.Unlock()
	return nil
}

func (a *AuthManager) Login(req LoginRequest) (LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, req.Password) {
		return LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &storeClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer("retailstore"))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := storeClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "retailstore",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
