package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/config"
	"serviceinfo/internal/models"
	"serviceinfo/internal/notify"
	"serviceinfo/internal/repository"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	store    repository.Store
	jwt      *auth.JWTManager
	cfg      *config.Config
	notifier notify.Notifier
	logr     *zap.Logger
}

func NewAuthService(store repository.Store, jwt *auth.JWTManager, cfg *config.Config, notifier notify.Notifier, logr *zap.Logger) *AuthService {
	return &AuthService{store: store, jwt: jwt, cfg: cfg, notifier: notifier, logr: logr}
}

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Roles    []string `json:"roles"`
}

func userInfo(u *models.User) *UserInfo {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return &UserInfo{ID: u.ID.String(), Email: u.Email, Name: u.Name, Provider: u.Provider, Roles: roles}
}

// Session is a token pair plus the user it was issued to.
type Session struct {
	*auth.TokenPair
	User *UserInfo `json:"user"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LDAPLoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResendActivationInput struct {
	Email              string `json:"email" validate:"required,email"`
	BaseActivationLink string `json:"base_activation_link" validate:"required,url"`
}

func (s *AuthService) issue(ctx context.Context, u *models.User, method string) (*Session, error) {
	if err := s.store.Users().TouchLastLogin(ctx, u.ID); err != nil {
		s.logr.Warn("last login not recorded", zap.Error(err), zap.String("user_id", u.ID.String()))
	}
	pair, err := s.jwt.GenerateTokenPair(u.ID.String(), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion, method, u.Roles)
	if err != nil {
		return nil, err
	}
	return &Session{TokenPair: pair, User: userInfo(u)}, nil
}

// LoginLocal checks an email and password against the stored bcrypt hash.
// Unknown emails and wrong passwords look the same to the caller.
func (s *AuthService) LoginLocal(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validateStruct(&in).Err(); err != nil {
		return nil, err
	}
	u, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || ComparePassword(u.PasswordHash, in.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return s.issue(ctx, u, models.AuthLocal)
}

// LoginLDAP binds to the directory as the staff member, reads their
// attributes and provisions a local user carrying the staff role.
func (s *AuthService) LoginLDAP(ctx context.Context, in LDAPLoginInput) (*Session, error) {
	if err := validateStruct(&in).Err(); err != nil {
		return nil, err
	}
	if s.cfg.LDAPServer == "" {
		return nil, ErrInvalidCredentials
	}

	username := in.Username
	if i := strings.LastIndexByte(username, '@'); i >= 0 && strings.EqualFold(username[i+1:], s.cfg.LDAPDomain) {
		username = username[:i]
	}

	ldap.DefaultTimeout = 10 * time.Second
	l, err := ldap.DialURL(s.cfg.LDAPServer)
	if err != nil {
		s.logr.Error("LDAP dial failed", zap.Error(err), zap.String("server", s.cfg.LDAPServer))
		return nil, fmt.Errorf("ldap connection failed: %w", err)
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			s.logr.Debug("LDAP close error", zap.Error(closeErr))
		}
	}()
	l.SetTimeout(30 * time.Second)

	if err := l.Bind(fmt.Sprintf("%s@%s", username, s.cfg.LDAPDomain), in.Password); err != nil {
		s.logr.Warn("LDAP bind failed", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	sr, err := l.Search(ldap.NewSearchRequest(
		s.cfg.LDAPBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(username)),
		[]string{"cn", "mail", "displayName"},
		nil,
	))
	if err != nil {
		s.logr.Error("LDAP search failed", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if len(sr.Entries) == 0 {
		return nil, ErrInvalidCredentials
	}

	entry := sr.Entries[0]
	mail := entry.GetAttributeValue("mail")
	if mail == "" {
		s.logr.Error("LDAP user missing email", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	name := entry.GetAttributeValue("displayName")
	if name == "" {
		name = entry.GetAttributeValue("cn")
	}
	if name == "" {
		name = username
	}

	u, err := s.provisionStaff(ctx, mail, name)
	if err != nil {
		return nil, err
	}
	s.logr.Info("LDAP login successful", zap.String("user_id", u.ID.String()), zap.String("username", username))
	return s.issue(ctx, u, models.AuthLDAP)
}

func (s *AuthService) provisionStaff(ctx context.Context, email, name string) (*models.User, error) {
	var out *models.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			u = &models.User{
				Email:    email,
				Name:     name,
				Provider: models.AuthLDAP,
				Roles:    []string{s.cfg.StaffRole},
				IsActive: true,
			}
			if err := tx.Users().Create(ctx, u); err != nil {
				return err
			}
			s.logr.Info("created LDAP user", zap.String("email", email), zap.String("id", u.ID.String()))
			out = u
			return nil
		}
		if err != nil {
			return err
		}
		if !u.HasRole(s.cfg.StaffRole) {
			if err := tx.Users().GrantRole(ctx, u.ID, s.cfg.StaffRole); err != nil {
				return err
			}
			u.Roles = append(u.Roles, s.cfg.StaffRole)
		}
		out = u
		return nil
	})
	return out, err
}

// Refresh trades a refresh token for a new pair. Tokens issued before the
// last logout carry a stale version and are refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.VerifyToken(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.TokenVersion != claims.TokenVersion {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidCredentials)
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return s.jwt.GenerateTokenPair(u.ID.String(), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion, claims.AuthMethod, u.Roles)
}

// Logout revokes every token the user holds.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.store.Users().IncrementTokenVersion(ctx, userID)
}

// Activate consumes an activation key and signs the user in.
func (s *AuthService) Activate(ctx context.Context, key string) (*Session, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fieldError("activation_key", msgBlank)
	}
	var user *models.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		u, err := tx.Users().GetByActivationKey(ctx, auth.HashToken(key))
		if errors.Is(err, repository.ErrNotFound) {
			return fieldError("activation_key", "Invalid or expired activation key.")
		}
		if err != nil {
			return err
		}
		if err := tx.Users().Activate(ctx, u.ID); err != nil {
			return err
		}
		u.IsActive = true
		u.ActivationKey = ""
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logr.Info("user activated", zap.String("user_id", user.ID.String()))
	return s.issue(ctx, user, models.AuthLocal)
}

// ResendActivation replaces the pending user's key and sends a new link.
func (s *AuthService) ResendActivation(ctx context.Context, in ResendActivationInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(&in).Err(); err != nil {
		return err
	}
	u, err := s.store.Users().GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return fieldError("email", "No user with that email")
	}
	if err != nil {
		return err
	}
	if u.IsActive {
		return fieldError("email", "User is not pending activation")
	}

	key, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.store.Users().SetActivationKey(ctx, u.ID, auth.HashToken(key)); err != nil {
		return err
	}
	if err := s.notifier.ActivationRequested(ctx, u, in.BaseActivationLink+key); err != nil {
		s.logr.Error("activation notice failed", zap.Error(err), zap.String("user_id", u.ID.String()))
	}
	return nil
}

// Me returns the caller and, when they have one, their provider.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, *models.Provider, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.store.Providers().GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return userInfo(u), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return userInfo(u), p, nil
}

// CheckTokenVersion reports whether tokens at tokenVersion are still valid
// for an active user.
func (s *AuthService) CheckTokenVersion(ctx context.Context, userID string, tokenVersion int) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive && u.TokenVersion == tokenVersion, nil
}
