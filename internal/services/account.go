package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	RollNumber string `json:"roll_number"`
}

// AccountService handles sign-up, login and role changes.
type AccountService struct {
	db           *gorm.DB
	mail         *MailService
	campusDomain string
}

func NewAccountService(db *gorm.DB, mail *MailService, campusDomain string) *AccountService {
	return &AccountService{db: db, mail: mail, campusDomain: campusDomain}
}

// Register creates a profile. Institute addresses become students and must
// give a roll number; everyone else is public and never stores one.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = utils.StripTags(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.RollNumber = strings.TrimSpace(in.RollNumber)

	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, "<> ") {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validation("password must be at least 6 characters")
	}
	if !utils.ValidPhone(in.Phone) {
		return nil, apperr.Validation("phone must have at least 10 digits")
	}

	user := models.User{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Role:       utils.RoleForEmail(in.Email, s.campusDomain),
		VerifyCode: utils.GenerateVerifyCode(),
	}
	if user.Role == authz.RoleStudent {
		if in.RollNumber == "" {
			return nil, apperr.Validation("roll number is required for students")
		}
		user.RollNumber = &in.RollNumber
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hash

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, storageErr("create account", err)
	}
	s.mail.SendVerifyEmail(user.Email, user.Name, user.VerifyCode)
	return &user, nil
}

// Authenticate checks credentials. Unknown email and wrong password fail alike.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, storageErr("load account", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return &user, nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if err != nil {
		return storageErr("load account", notFoundOr(err, "account"))
	}
	if user.EmailVerified {
		return nil
	}
	if code == "" || user.VerifyCode != strings.TrimSpace(code) {
		return apperr.Validation("invalid verification code")
	}
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]any{"email_verified": true, "verify_code": ""}).Error
	return storageErr("verify account", err)
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storageErr("load account", notFoundOr(err, "account"))
	}
	return &user, nil
}

// SetRole changes a user's role; used by the promote command.
func (s *AccountService) SetRole(ctx context.Context, email string, role authz.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.Validationf("unknown role %q", role)
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if err != nil {
		return nil, storageErr("load account", notFoundOr(err, "account"))
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, storageErr("update role", err)
	}
	user.Role = role
	return &user, nil
}
