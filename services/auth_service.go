package services

import (
	"context"
	"errors"
	"strings"

	"feasto-api/apperr"
	"feasto-api/auth"
	"feasto-api/metrics"
	"feasto-api/models"
	"feasto-api/policy"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthService handles registration, credentials and token lifecycle.
type AuthService struct {
	db     *gorm.DB
	tokens *auth.TokenManager
	policy *policy.Policy
	log    *logrus.Logger
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenManager, p *policy.Policy, log *logrus.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, policy: p, log: log}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Phone           *string
	Address         *string
	Role            models.UserRole
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.policy.Authorize(policy.AuthRegister, policy.Anonymous); err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	fields := map[string]string{}
	if in.Username == "" {
		fields["username"] = "This field is required."
	}
	if len(in.Password) < auth.MinPasswordLength {
		fields["password"] = "Ensure this field has at least 6 characters."
	}
	// Any role may be self-assigned; only later changes need an admin.
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if !in.Role.Valid() {
		fields["role"] = `"` + string(in.Role) + `" is not a valid choice.`
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Invalid registration", fields)
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Validation(apperr.ErrPasswordMismatch.Message,
			map[string]string{"non_field_errors": apperr.ErrPasswordMismatch.Message})
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if count > 0 {
		return nil, apperr.ErrUsernameTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// A concurrent registration can claim the name after the count.
		if apperr.IsDuplicateKey(err) {
			return nil, apperr.ErrUsernameTaken
		}
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &user, nil
}

// Login checks credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	if err := s.policy.Authorize(policy.AuthLogin, policy.Anonymous); err != nil {
		return nil, "", err
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Internal(err)
	}
	if err != nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		metrics.RecordLogin(false)
		return nil, "", apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(&user)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	metrics.RecordLogin(true)
	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &user, token, nil
}

// Logout revokes the presented token. Calling it without a token is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

func (s *AuthService) ChangePassword(ctx context.Context, caller policy.Caller, in ChangePasswordInput) error {
	if err := s.policy.Authorize(policy.AuthChangePassword, caller); err != nil {
		return err
	}
	if len(in.NewPassword) < auth.MinPasswordLength {
		return apperr.Field("new_password", "Ensure this field has at least 6 characters.")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.Validation(apperr.ErrPasswordMismatch.Message,
			map[string]string{"non_field_errors": apperr.ErrPasswordMismatch.Message})
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, caller.UserID).Error; err != nil {
		return apperr.FromDB(err, "User")
	}
	if !auth.CheckPassword(user.PasswordHash, in.OldPassword) {
		return apperr.ErrInvalidOldPassword
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return apperr.Internal(err)
	}
	s.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// Resolve turns a bearer token into a caller. Unknown or inactive users
// resolve to the anonymous caller.
func (s *AuthService) Resolve(ctx context.Context, token string) (policy.Caller, *auth.Claims) {
	claims, err := s.tokens.Parse(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			s.log.WithError(err).Warn("token check failed")
		}
		return policy.Anonymous, nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "role", "is_active").First(&user, claims.UserID).Error; err != nil || !user.IsActive {
		return policy.Anonymous, nil
	}
	// The stored role wins over the one baked into the token.
	return policy.Caller{UserID: user.ID, Role: user.Role}, claims
}
