package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/internal/permissions"
	apperrors "github.com/yueyuegd/sonarqube/pkg/errors"
	"github.com/yueyuegd/sonarqube/pkg/logger"
	"github.com/yueyuegd/sonarqube/pkg/metrics"
)

var (
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = apperrors.New("ORG_NOT_FOUND", "Organization not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist or is deactivated.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrLastAdministrator rejects a removal that would leave an organization without administrators.
	ErrLastAdministrator = apperrors.New("ORG_LAST_ADMIN", "The last administrator member cannot be removed", http.StatusBadRequest)
)

// MembershipService mutates organization membership while preserving the
// invariant that every organization keeps at least one administrator.
type MembershipService struct {
	db    *gorm.DB
	audit *AuditService
	log   *zap.Logger
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB, audit *AuditService) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{
		db:    db,
		audit: audit,
		log:   logger.WithModule("membership"),
	}, nil
}

// AddMember attaches an active user to an organization. Adding an existing
// member is a no-op, not an error.
func (s *MembershipService) AddMember(ctx context.Context, organizationUUID, userID string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(organizationUUID) == "" || strings.TrimSpace(userID) == "" {
		return apperrors.NewBadRequest("organization uuid and user id are required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOrganization(tx, organizationUUID, false); err != nil {
			return err
		}
		if err := loadActiveUser(tx, userID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.OrganizationMember{}).
			Where("organization_uuid = ? AND user_id = ?", organizationUUID, userID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("membership: check membership: %w", err)
		}
		if existing > 0 {
			return nil
		}

		if err := tx.Create(&models.OrganizationMember{
			OrganizationUUID: organizationUUID,
			UserID:           userID,
		}).Error; err != nil {
			// A concurrent add of the same pair keeps the operation idempotent.
			if isUniqueConstraintError(err) {
				return nil
			}
			return fmt.Errorf("membership: insert member: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.MembershipMutations.WithLabelValues("add", "error").Inc()
		return err
	}

	metrics.MembershipMutations.WithLabelValues("add", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(userID),
		Action:   "org.member.add",
		Resource: organizationUUID,
		Result:   "success",
	})
	return nil
}

// RemoveMember detaches a user from an organization, deleting the direct
// membership row, the user's rows in the organization's groups, and the
// user's direct organization-scoped permissions.
//
// The removal is rejected with ErrLastAdministrator when the user is the only
// remaining holder of the organization's admin permission. The admin count
// and the deletions run in one transaction holding a row lock on the
// organization, so two concurrent removals cannot both observe a surviving
// administrator.
func (s *MembershipService) RemoveMember(ctx context.Context, organizationUUID, userID string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(organizationUUID) == "" || strings.TrimSpace(userID) == "" {
		return apperrors.NewBadRequest("organization uuid and user id are required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOrganization(tx, organizationUUID, true); err != nil {
			return err
		}

		admins, err := adminHolders(tx, organizationUUID)
		if err != nil {
			return err
		}
		if _, isAdmin := admins[userID]; isAdmin && len(admins) == 1 {
			return ErrLastAdministrator
		}

		return deleteMembership(tx, organizationUUID, userID)
	})
	if err != nil {
		result := "error"
		if errors.Is(err, ErrLastAdministrator) {
			result = "rejected"
		}
		metrics.MembershipMutations.WithLabelValues("remove", result).Inc()
		return err
	}

	metrics.MembershipMutations.WithLabelValues("remove", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(userID),
		Action:   "org.member.remove",
		Resource: organizationUUID,
		Result:   "success",
	})
	return nil
}

// OnUserDeactivated cascades a user deactivation into membership cleanup
// across every organization. The last-administrator check deliberately does
// not apply: deactivation is an administrative action, not self-service
// removal.
func (s *MembershipService) OnUserDeactivated(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(userID) == "" {
		return apperrors.NewBadRequest("user id is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteAllMemberships(tx, userID)
	})
	if err != nil {
		return err
	}

	s.log.Info("membership cascade completed", zap.String("user_id", userID))
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   stringPtr(userID),
		Action:   "org.member.cascade",
		Resource: userID,
		Result:   "success",
	})
	return nil
}

// IsMember reports whether the user holds a direct organization membership.
func (s *MembershipService) IsMember(ctx context.Context, organizationUUID, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Where("organization_uuid = ? AND user_id = ?", organizationUUID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("membership: check membership: %w", err)
	}
	return count > 0, nil
}

// ListMembers returns the users holding a direct membership in the organization.
func (s *MembershipService) ListMembers(ctx context.Context, organizationUUID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	if err := loadOrganization(s.db.WithContext(ctx), organizationUUID, false); err != nil {
		return nil, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN organization_members om ON om.user_id = users.id").
		Where("om.organization_uuid = ?", organizationUUID).
		Order("users.login ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("membership: list members: %w", err)
	}
	return users, nil
}

// adminHolders returns the distinct users holding the organization's admin
// permission, whether granted directly or through a group. Both paths count
// identically toward the last-administrator invariant.
func adminHolders(tx *gorm.DB, organizationUUID string) (map[string]struct{}, error) {
	holders := make(map[string]struct{})

	var direct []string
	if err := tx.Model(&models.UserPermission{}).
		Where("organization_uuid = ? AND permission = ?", organizationUUID, permissions.Admin).
		Pluck("user_id", &direct).Error; err != nil {
		return nil, fmt.Errorf("membership: load direct admins: %w", err)
	}
	for _, id := range direct {
		holders[id] = struct{}{}
	}

	var viaGroups []string
	if err := tx.Table("group_members").
		Joins("JOIN group_permissions ON group_permissions.group_id = group_members.group_id").
		Where("group_permissions.organization_uuid = ? AND group_permissions.permission = ?", organizationUUID, permissions.Admin).
		Pluck("group_members.user_id", &viaGroups).Error; err != nil {
		return nil, fmt.Errorf("membership: load group admins: %w", err)
	}
	for _, id := range viaGroups {
		holders[id] = struct{}{}
	}

	return holders, nil
}

// deleteMembership removes every membership row tying the user to the
// organization: the direct membership, rows in the organization's groups,
// and direct permission grants.
func deleteMembership(tx *gorm.DB, organizationUUID, userID string) error {
	if err := tx.Where("organization_uuid = ? AND user_id = ?", organizationUUID, userID).
		Delete(&models.OrganizationMember{}).Error; err != nil {
		return fmt.Errorf("membership: delete organization membership: %w", err)
	}

	groupIDs := tx.Model(&models.Group{}).
		Select("id").
		Where("organization_uuid = ?", organizationUUID)
	if err := tx.Where("user_id = ? AND group_id IN (?)", userID, groupIDs).
		Delete(&models.GroupMember{}).Error; err != nil {
		return fmt.Errorf("membership: delete group memberships: %w", err)
	}

	if err := tx.Where("organization_uuid = ? AND user_id = ?", organizationUUID, userID).
		Delete(&models.UserPermission{}).Error; err != nil {
		return fmt.Errorf("membership: delete user permissions: %w", err)
	}
	return nil
}

// deleteAllMemberships removes the user's membership and direct permission
// rows across every organization. Shared with user deactivation so the
// cascade joins the caller's transaction.
func deleteAllMemberships(tx *gorm.DB, userID string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.OrganizationMember{}).Error; err != nil {
		return fmt.Errorf("membership: delete organization memberships: %w", err)
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.GroupMember{}).Error; err != nil {
		return fmt.Errorf("membership: delete group memberships: %w", err)
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.UserPermission{}).Error; err != nil {
		return fmt.Errorf("membership: delete user permissions: %w", err)
	}
	return nil
}

// loadOrganization verifies the organization exists, optionally taking a row
// lock serializing concurrent membership mutations on the same organization.
func loadOrganization(tx *gorm.DB, organizationUUID string, forUpdate bool) error {
	query := tx
	// SQLite has no SELECT FOR UPDATE; its single writer already serializes
	// membership mutations.
	if forUpdate && tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var org models.Organization
	err := query.First(&org, "uuid = ?", organizationUUID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrganizationNotFound
	}
	if err != nil {
		return fmt.Errorf("membership: load organization: %w", err)
	}
	return nil
}

func loadActiveUser(tx *gorm.DB, userID string) error {
	var user models.User
	err := tx.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("membership: load user: %w", err)
	}
	if !user.Active {
		return ErrUserNotFound
	}
	return nil
}
