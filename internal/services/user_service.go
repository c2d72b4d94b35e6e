package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/pkg/crypto"
	apperrors "github.com/yueyuegd/sonarqube/pkg/errors"
	"github.com/yueyuegd/sonarqube/pkg/logger"
	appvalidator "github.com/yueyuegd/sonarqube/pkg/validator"
)

// CreateUserInput captures the attributes required to register a user.
type CreateUserInput struct {
	Login    string `json:"login" validate:"required,min=2,max=255"`
	Name     string `json:"name" validate:"omitempty,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserService manages the user lifecycle events the membership engine reacts
// to: registration (optionally provisioning a personal organization) and
// deactivation (cascading membership cleanup).
type UserService struct {
	db           *gorm.DB
	provisioning *ProvisioningService
	audit        *AuditService
	log          *zap.Logger
}

// NewUserService constructs a UserService instance. The provisioning service
// is optional; without it user registration skips personal organizations.
func NewUserService(db *gorm.DB, provisioning *ProvisioningService, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		provisioning: provisioning,
		audit:        audit,
		log:          logger.WithModule("users"),
	}, nil
}

// Create registers a new user and, when the feature is enabled, provisions
// their personal organization.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	if err := appvalidator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Login:    strings.TrimSpace(input.Login),
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.TrimSpace(input.Email),
		Password: hashed,
		Active:   true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict(fmt.Sprintf("login '%s' is already used", user.Login))
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	if s.provisioning != nil {
		if _, err := s.provisioning.ProvisionPersonalOrganization(ctx, user); err != nil {
			return nil, err
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(user.ID),
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{"login": user.Login},
	})

	return user, nil
}

// GetByLogin loads a user by login.
func (s *UserService) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "login = ?", strings.TrimSpace(login)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// Deactivate marks a user inactive and removes their membership rows across
// all organizations in the same transaction. The last-administrator check is
// intentionally skipped here.
func (s *UserService) Deactivate(ctx context.Context, login string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByLogin(ctx, login)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("user service: deactivate user: %w", err)
		}
		return deleteAllMemberships(tx, user.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("user deactivated", zap.String("login", user.Login))
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(user.ID),
		Action:   "user.deactivate",
		Resource: user.ID,
		Result:   "success",
	})
	return nil
}
