package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/dto"
	"github.com/fitstack/fitstack-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRegistration = errors.New("email required and password must be at least 8 characters")
	// ErrInvalidCredentials is returned for unknown email and wrong password
	// alike, so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// RateLimitedError tells the caller how long the lockout has left.
type RateLimitedError struct {
	RetryAfter int64 // seconds
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %d seconds", e.RetryAfter)
}

// AuthService orchestrates the session lifecycle: it composes the token
// codec, refresh store, blacklist and rate limiter and owns all
// cross-cutting policy.
type AuthService struct {
	db        *gorm.DB
	cfg       *config.Config
	tokens    *TokenService
	refresh   *RefreshStore
	blacklist TokenBlacklist
	limiter   RateLimiter
	oauth     *GoogleOAuthClient
	deletion  *DeletionService
}

func NewAuthService(
	db *gorm.DB,
	cfg *config.Config,
	tokens *TokenService,
	refresh *RefreshStore,
	blacklist TokenBlacklist,
	limiter RateLimiter,
	oauth *GoogleOAuthClient,
	deletion *DeletionService,
) *AuthService {
	return &AuthService{
		db:        db,
		cfg:       cfg,
		tokens:    tokens,
		refresh:   refresh,
		blacklist: blacklist,
		limiter:   limiter,
		oauth:     oauth,
		deletion:  deletion,
	}
}

func (s *AuthService) Register(req *dto.RegisterRequest, ip string) (*dto.AuthResponse, error) {
	if s.limiter.IsBlocked(ip, config.EndpointRegister) {
		remaining := s.limiter.RemainingLockout(ip, config.EndpointRegister)
		slog.Warn("registration blocked", "ip", ip, "retry_after", remaining)
		return nil, &RateLimitedError{RetryAfter: remaining}
	}

	if len(req.Email) == 0 || len(req.Password) < 8 {
		return nil, ErrInvalidRegistration
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		s.limiter.RecordFailure(ip, config.EndpointRegister)
		slog.Warn("registration attempt with existing email", "email", req.Email, "ip", ip)
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.limiter.RecordSuccess(ip, config.EndpointRegister)
	slog.Info("user registered", "user_id", user.ID, "ip", ip)

	return s.issueSession(&user, false)
}

func (s *AuthService) Login(req *dto.LoginRequest, ip string) (*dto.AuthResponse, error) {
	if s.limiter.IsBlocked(ip, config.EndpointLogin) {
		remaining := s.limiter.RemainingLockout(ip, config.EndpointLogin)
		slog.Warn("login blocked", "ip", ip, "retry_after", remaining)
		return nil, &RateLimitedError{RetryAfter: remaining}
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		s.limiter.RecordFailure(ip, config.EndpointLogin)
		slog.Warn("failed login, unknown email", "ip", ip)
		return nil, ErrInvalidCredentials
	}

	// OAuth accounts have an empty hash, so password logins for them always
	// land here too.
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.limiter.RecordFailure(ip, config.EndpointLogin)
		slog.Warn("failed login, wrong password", "user_id", user.ID, "ip", ip)
		return nil, ErrInvalidCredentials
	}

	s.limiter.RecordSuccess(ip, config.EndpointLogin)
	slog.Info("login", "user_id", user.ID, "ip", ip, "remember_me", req.RememberMe)

	return s.issueSession(&user, req.RememberMe)
}

func (s *AuthService) GoogleSignIn(req *dto.GoogleAuthRequest) (*dto.AuthResponse, error) {
	verifiedEmail, err := s.oauth.VerifyToken(req.IDToken, req.Email)
	if err != nil {
		slog.Warn("google token verification failed", "error", err)
		return nil, err
	}

	user, err := s.findOrCreateGoogleUser(req.GoogleID, verifiedEmail, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}

	slog.Info("google oauth login", "user_id", user.ID)
	return s.issueSession(user, false)
}

func (s *AuthService) findOrCreateGoogleUser(googleID, email, firstName, lastName string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("google_id = ?", googleID).First(&user).Error; err == nil {
		return &user, nil
	}

	// A password account with this email may predate the OAuth link.
	if err := s.db.Where("email = ?", email).First(&user).Error; err == nil {
		updates := map[string]interface{}{"google_id": googleID}
		if user.FirstName == "" && firstName != "" {
			updates["first_name"] = firstName
		}
		if user.LastName == "" && lastName != "" {
			updates["last_name"] = lastName
		}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		user.GoogleID = &googleID
		return &user, nil
	}

	user = models.User{
		Email:     email,
		GoogleID:  &googleID,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create google user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Refresh(refreshToken, ip string) (*dto.AuthResponse, error) {
	if s.limiter.IsBlocked(ip, config.EndpointRefresh) {
		remaining := s.limiter.RemainingLockout(ip, config.EndpointRefresh)
		slog.Warn("refresh blocked", "ip", ip, "retry_after", remaining)
		return nil, &RateLimitedError{RetryAfter: remaining}
	}

	old, newToken, err := s.refresh.Rotate(refreshToken)
	if err != nil {
		s.limiter.RecordFailure(ip, config.EndpointRefresh)
		slog.Warn("invalid refresh token", "ip", ip, "error", err)
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, old.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}

	accessToken, err := s.tokens.Issue(&user, false)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.limiter.RecordSuccess(ip, config.EndpointRefresh)
	slog.Info("token refreshed", "user_id", user.ID, "ip", ip)

	return s.buildAuthResponse(&user, accessToken, newToken), nil
}

// Logout is best-effort: whatever state the access token is in, the caller
// ends up logged out and never sees an error.
func (s *AuthService) Logout(accessToken string) {
	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		slog.Warn("logout with undecodable token", "error", err)
		return
	}

	s.blacklist.Add(claims.TokenID, claims.ExpiresAt)

	if err := s.refresh.RevokeAll(claims.UserID); err != nil {
		slog.Error("failed to revoke refresh tokens on logout", "user_id", claims.UserID, "error", err)
		return
	}
	slog.Info("logout", "user_id", claims.UserID)
}

// DeleteAccount removes the user and everything they own. The client is
// trusted to have confirmed the action; no password re-check here.
func (s *AuthService) DeleteAccount(userID uint, accessToken string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrUserNotFound
	}

	// Best-effort: the account is going away regardless of whether the
	// current token could be read.
	if claims, err := s.tokens.Decode(accessToken); err == nil {
		s.blacklist.Add(claims.TokenID, claims.ExpiresAt)
	} else {
		slog.Warn("could not blacklist token during account deletion", "user_id", userID, "error", err)
	}

	if err := s.deletion.DeleteAllUserData(userID); err != nil {
		return fmt.Errorf("failed to delete user data: %w", err)
	}

	if err := s.db.Delete(&user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("account deleted", "user_id", userID, "email", user.Email)
	return nil
}

// issueSession mints the access/refresh token pair after a successful
// register, login or OAuth login.
func (s *AuthService) issueSession(user *models.User, rememberMe bool) (*dto.AuthResponse, error) {
	accessToken, err := s.tokens.Issue(user, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.refresh.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user, accessToken, refreshToken), nil
}

func (s *AuthService) buildAuthResponse(user *models.User, accessToken, refreshToken string) *dto.AuthResponse {
	return &dto.AuthResponse{
		Token:                 accessToken,
		TokenType:             "Bearer",
		ExpiresIn:             s.tokens.AccessExpiry(),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: int64(s.cfg.JWTRefreshExpiry.Seconds()),
		User: dto.UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			IsOAuthUser: user.IsOAuthUser(),
		},
	}
}
