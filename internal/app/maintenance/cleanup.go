package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/internal/services"
	"github.com/yueyuegd/sonarqube/pkg/logger"
)

const (
	defaultAuditRetention = 90 * 24 * time.Hour
	defaultAuditSpec      = "@daily"
	defaultMembershipSpec = "@daily"
)

// Cleaner coordinates background maintenance tasks: pruning stale audit logs
// and sweeping membership rows left behind by deactivated or deleted users.
type Cleaner struct {
	db        *gorm.DB
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention time.Duration

	auditSchedule      string
	membershipSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetention adjusts how long audit logs are retained before cleanup.
func WithAuditRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithMembershipSchedule overrides the cron specification for the orphaned membership sweep.
func WithMembershipSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.membershipSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                 db,
		audit:              audit,
		now:                time.Now,
		retention:          defaultAuditRetention,
		auditSchedule:      defaultAuditSpec,
		membershipSchedule: defaultMembershipSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.audit != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.DeleteOlderThan(ctx, c.now().Add(-c.retention)); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.membershipSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupOrphanedMemberships(ctx, c.db); err != nil {
				c.log.Warn("membership cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.DeleteOlderThan(ctx, c.now().Add(-c.retention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := CleanupOrphanedMemberships(ctx, c.db); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// MembershipCleanupStats captures the number of rows removed per table.
type MembershipCleanupStats struct {
	OrganizationMembers int64
	GroupMembers        int64
	UserPermissions     int64
}

// Total reports the overall number of removed rows.
func (s MembershipCleanupStats) Total() int64 {
	return s.OrganizationMembers + s.GroupMembers + s.UserPermissions
}

// CleanupOrphanedMemberships removes membership and permission rows whose
// user is deactivated or no longer exists. The deactivation cascade already
// performs this cleanup inline; the sweep catches rows introduced behind the
// application's back.
func CleanupOrphanedMemberships(ctx context.Context, db *gorm.DB) (MembershipCleanupStats, error) {
	if db == nil {
		return MembershipCleanupStats{}, errors.New("cleanup memberships: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := MembershipCleanupStats{}
	activeUsers := db.Model(&models.User{}).Select("id").Where("active = ?", true)

	if result := db.WithContext(ctx).
		Where("user_id NOT IN (?)", activeUsers).
		Delete(&models.OrganizationMember{}); result.Error != nil {
		return stats, fmt.Errorf("cleanup memberships: organization members: %w", result.Error)
	} else {
		stats.OrganizationMembers = result.RowsAffected
	}

	if result := db.WithContext(ctx).
		Where("user_id NOT IN (?)", activeUsers).
		Delete(&models.GroupMember{}); result.Error != nil {
		return stats, fmt.Errorf("cleanup memberships: group members: %w", result.Error)
	} else {
		stats.GroupMembers = result.RowsAffected
	}

	if result := db.WithContext(ctx).
		Where("user_id NOT IN (?)", activeUsers).
		Delete(&models.UserPermission{}); result.Error != nil {
		return stats, fmt.Errorf("cleanup memberships: user permissions: %w", result.Error)
	} else {
		stats.UserPermissions = result.RowsAffected
	}

	return stats, nil
}
