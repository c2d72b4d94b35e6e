package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/internal/permissions"
	apperrors "github.com/yueyuegd/sonarqube/pkg/errors"
	"github.com/yueyuegd/sonarqube/pkg/logger"
	"github.com/yueyuegd/sonarqube/pkg/metrics"
)

// Error codes surfaced by the provisioning service.
const (
	CodeKeyConflict     = "ORG_KEY_CONFLICT"
	CodeKeyIllegalState = "ORG_KEY_ILLEGAL_STATE"
)

const (
	ownersGroupName     = "Owners"
	defaultTemplateName = "Default template"
)

// NewOrganization captures the attributes required to provision a team
// organization. Key and Name are mandatory, the rest optional.
type NewOrganization struct {
	Key         string
	Name        string
	Description string
	URL         string
	AvatarURL   string
}

// ProvisioningService creates organizations together with their default
// group, permission template, and bootstrap membership, atomically.
type ProvisioningService struct {
	db         *gorm.DB
	validation OrganizationValidation
	ids        IDFactory
	clock      Clock
	flags      FeatureFlags
	audit      *AuditService
	log        *zap.Logger
}

// NewProvisioningService constructs a ProvisioningService instance. The id
// factory and clock default to production implementations when nil.
func NewProvisioningService(
	db *gorm.DB,
	validation OrganizationValidation,
	ids IDFactory,
	clock Clock,
	flags FeatureFlags,
	audit *AuditService,
) (*ProvisioningService, error) {
	if db == nil {
		return nil, errors.New("provisioning service: db is required")
	}
	if validation == nil {
		return nil, errors.New("provisioning service: validation is required")
	}
	if ids == nil {
		ids = UUIDFactory{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if flags == nil {
		flags = StaticFlags{}
	}
	return &ProvisioningService{
		db:         db,
		validation: validation,
		ids:        ids,
		clock:      clock,
		flags:      flags,
		audit:      audit,
		log:        logger.WithModule("provisioning"),
	}, nil
}

// CreateOrganization provisions a team organization: the organization row,
// its Owners group holding every global permission, the default permission
// template, and the creator's bootstrap membership. All rows commit together
// or not at all.
func (s *ProvisioningService) CreateOrganization(ctx context.Context, input NewOrganization, creatorUserID string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(creatorUserID) == "" {
		return nil, apperrors.NewBadRequest("creator user id is required")
	}
	if strings.TrimSpace(input.Key) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewBadRequest("organization key and name are required")
	}

	if err := s.validation.CheckKey(input.Key); err != nil {
		return nil, err
	}
	if err := s.validation.CheckDescription(input.Description); err != nil {
		return nil, err
	}
	if err := s.validation.CheckURL(input.URL); err != nil {
		return nil, err
	}
	if err := s.validation.CheckAvatar(input.AvatarURL); err != nil {
		return nil, err
	}

	var org *models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := organizationKeyExists(tx, input.Key)
		if err != nil {
			return err
		}
		if taken {
			return keyConflictError(input.Key)
		}

		now := s.clock.Now()
		org = &models.Organization{
			UUID:        s.ids.NewID(),
			Key:         input.Key,
			Name:        input.Name,
			Description: optionalString(input.Description),
			URL:         optionalString(input.URL),
			AvatarURL:   optionalString(input.AvatarURL),
			Guarded:     false,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(org).Error; err != nil {
			if isUniqueConstraintError(err) {
				return keyConflictError(input.Key)
			}
			return fmt.Errorf("provisioning: insert organization: %w", err)
		}

		group, err := s.insertOwnersGroup(tx, org, creatorUserID)
		if err != nil {
			return err
		}

		if err := tx.Create(&models.OrganizationMember{
			OrganizationUUID: org.UUID,
			UserID:           creatorUserID,
		}).Error; err != nil {
			return fmt.Errorf("provisioning: insert organization member: %w", err)
		}

		return s.insertDefaultTemplate(tx, org, &group.ID)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrganizationsProvisioned.WithLabelValues("team").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(creatorUserID),
		Action:   "org.provision",
		Resource: org.UUID,
		Result:   "success",
		Metadata: map[string]any{"key": org.Key, "guarded": false},
	})
	s.log.Info("organization provisioned",
		zap.String("key", org.Key),
		zap.String("uuid", org.UUID),
	)

	return org, nil
}

// ProvisionPersonalOrganization creates the guarded personal organization of
// a user. When the personal-organization feature flag is disabled the call is
// a silent no-op returning (nil, nil).
func (s *ProvisioningService) ProvisionPersonalOrganization(ctx context.Context, user *models.User) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	if !s.flags.PersonalOrganizationsEnabled() {
		return nil, nil
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, apperrors.NewBadRequest("user is required")
	}

	key := s.validation.GenerateKeyFrom(user.Login)

	// The display name falls back to the login. Only the stored name is
	// truncated; the description keeps the untruncated source.
	source := user.Name
	if strings.TrimSpace(source) == "" {
		source = user.Login
	}

	var org *models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := organizationKeyExists(tx, key)
		if err != nil {
			return err
		}
		if taken {
			// Not a user-resolvable conflict: a slug collision for a new
			// user means broken key generation or corrupt data.
			return apperrors.New(
				CodeKeyIllegalState,
				fmt.Sprintf("Can't create organization with key '%s' for new user '%s' because an organization with this key already exists", key, user.Login),
				http.StatusInternalServerError,
			)
		}

		now := s.clock.Now()
		org = &models.Organization{
			UUID:        s.ids.NewID(),
			Key:         key,
			Name:        truncateRunes(source, models.OrganizationNameMaxLength),
			Description: stringPtr(source + "'s personal organization"),
			Guarded:     true,
			OwnerUserID: stringPtr(user.ID),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("provisioning: insert personal organization: %w", err)
		}

		// Personal organizations have no group: every global permission is
		// granted to the owner directly.
		for _, permission := range permissions.Global() {
			if err := tx.Create(&models.UserPermission{
				OrganizationUUID: org.UUID,
				UserID:           user.ID,
				Permission:       permission,
			}).Error; err != nil {
				return fmt.Errorf("provisioning: grant user permission: %w", err)
			}
		}

		if err := s.insertDefaultTemplate(tx, org, nil); err != nil {
			return err
		}

		if err := tx.Create(&models.OrganizationMember{
			OrganizationUUID: org.UUID,
			UserID:           user.ID,
		}).Error; err != nil {
			return fmt.Errorf("provisioning: insert organization member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrganizationsProvisioned.WithLabelValues("personal").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(user.ID),
		Action:   "org.provision",
		Resource: org.UUID,
		Result:   "success",
		Metadata: map[string]any{"key": org.Key, "guarded": true},
	})
	s.log.Info("personal organization provisioned",
		zap.String("key", org.Key),
		zap.String("login", user.Login),
	)

	return org, nil
}

// insertOwnersGroup creates the Owners group holding every global permission
// and adds the creator to it.
func (s *ProvisioningService) insertOwnersGroup(tx *gorm.DB, org *models.Organization, creatorUserID string) (*models.Group, error) {
	group := &models.Group{
		BaseModel:        models.BaseModel{ID: s.ids.NewID()},
		OrganizationUUID: org.UUID,
		Name:             ownersGroupName,
		Description:      fmt.Sprintf("Owners of organization %s", org.Name),
	}
	if err := tx.Create(group).Error; err != nil {
		return nil, fmt.Errorf("provisioning: insert owners group: %w", err)
	}

	for _, permission := range permissions.Global() {
		if err := tx.Create(&models.GroupPermission{
			OrganizationUUID: org.UUID,
			GroupID:          group.ID,
			Permission:       permission,
		}).Error; err != nil {
			return nil, fmt.Errorf("provisioning: grant group permission: %w", err)
		}
	}

	if err := tx.Create(&models.GroupMember{GroupID: group.ID, UserID: creatorUserID}).Error; err != nil {
		return nil, fmt.Errorf("provisioning: insert group member: %w", err)
	}

	return group, nil
}

// insertDefaultTemplate creates the organization's default permission
// template and records it as the default project template. For team
// organizations targetID names the Owners group receiving the admin grants;
// for personal organizations the same grants target the project-creator
// characteristic instead.
func (s *ProvisioningService) insertDefaultTemplate(tx *gorm.DB, org *models.Organization, targetGroupID *string) error {
	template := &models.PermissionTemplate{
		BaseModel:        models.BaseModel{ID: s.ids.NewID()},
		OrganizationUUID: org.UUID,
		Name:             defaultTemplateName,
		Description:      fmt.Sprintf("Default permission template of organization %s", org.Name),
	}
	if err := tx.Create(template).Error; err != nil {
		return fmt.Errorf("provisioning: insert permission template: %w", err)
	}

	for _, permission := range permissions.DefaultTemplateGroupGrants() {
		if targetGroupID != nil {
			if err := tx.Create(&models.TemplateGroupPermission{
				TemplateID: template.ID,
				GroupID:    *targetGroupID,
				Permission: permission,
			}).Error; err != nil {
				return fmt.Errorf("provisioning: grant template permission: %w", err)
			}
			continue
		}
		if err := tx.Create(&models.TemplateCharacteristic{
			TemplateID:         template.ID,
			Permission:         permission,
			WithProjectCreator: true,
		}).Error; err != nil {
			return fmt.Errorf("provisioning: grant creator characteristic: %w", err)
		}
	}

	for _, permission := range permissions.DefaultTemplateAnyoneGrants() {
		if err := tx.Create(&models.TemplateGroupPermission{
			TemplateID: template.ID,
			GroupID:    permissions.AnyoneGroupID,
			Permission: permission,
		}).Error; err != nil {
			return fmt.Errorf("provisioning: grant anyone template permission: %w", err)
		}
	}

	defaults := &models.DefaultTemplates{
		OrganizationUUID:  org.UUID,
		ProjectTemplateID: template.ID,
	}
	if err := tx.Create(defaults).Error; err != nil {
		return fmt.Errorf("provisioning: insert default templates: %w", err)
	}
	return nil
}

func organizationKeyExists(tx *gorm.DB, key string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Organization{}).Where("kee = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("provisioning: check key uniqueness: %w", err)
	}
	return count > 0, nil
}

func keyConflictError(key string) *apperrors.AppError {
	return apperrors.New(
		CodeKeyConflict,
		fmt.Sprintf("Organization key '%s' is already used", key),
		http.StatusConflict,
	)
}
