package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/pkg/crypto"
	apperrors "github.com/yueyuegd/sonarqube/pkg/errors"
)

func newTestUserService(t *testing.T, db *gorm.DB, flags StaticFlags) *UserService {
	t.Helper()

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	provisioning, err := NewProvisioningService(db, stubValidation{}, &sequenceIDs{}, fixedClock{at: someDate}, flags, audit)
	require.NoError(t, err)

	svc, err := NewUserService(db, provisioning, audit)
	require.NoError(t, err)
	return svc
}

func TestCreateUserPersistsHashedPassword(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	user, err := svc.Create(context.Background(), CreateUserInput{
		Login:    "a-login",
		Name:     "A Name",
		Email:    "a@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.True(t, user.Active)
	require.NotEqual(t, "correct-horse", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "correct-horse"))
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	_, err := svc.Create(context.Background(), CreateUserInput{Login: "a-login", Password: "short"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)

	require.Zero(t, countRows(t, db, &models.User{}))
}

func TestCreateUserRejectsDuplicateLogin(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	input := CreateUserInput{Login: "a-login", Password: "correct-horse"}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
	require.Equal(t, "login 'a-login' is already used", appErr.Message)
}

func TestCreateUserProvisionsPersonalOrganizationWhenEnabled(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{PersonalOrganizations: true})

	user, err := svc.Create(context.Background(), CreateUserInput{
		Login:    "a-login",
		Name:     "A Name",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	var org models.Organization
	require.NoError(t, db.First(&org, "kee = ?", "slug-of-a-login").Error)
	require.True(t, org.Guarded)
	require.NotNil(t, org.OwnerUserID)
	require.Equal(t, user.ID, *org.OwnerUserID)
}

func TestCreateUserSkipsPersonalOrganizationWhenDisabled(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{PersonalOrganizations: false})

	_, err := svc.Create(context.Background(), CreateUserInput{Login: "a-login", Password: "correct-horse"})
	require.NoError(t, err)

	require.Zero(t, countRows(t, db, &models.Organization{}))
}

func TestGetByLoginReturnsNotFound(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	_, err := svc.GetByLogin(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeactivateCascadesMembershipCleanup(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	user := insertTestUser(t, db, "a-login", "A Name")
	orgA := insertTestOrganization(t, db, "org-a")
	orgB := insertTestOrganization(t, db, "org-b")

	// sole administrator of org-a: deactivation ignores the
	// last-administrator rule
	insertMembership(t, db, orgA.UUID, user.ID)
	grantDirectAdmin(t, db, orgA.UUID, user.ID)
	insertMembership(t, db, orgB.UUID, user.ID)
	group := insertAdminGroup(t, db, orgB.UUID, "Owners")
	require.NoError(t, db.Create(&models.GroupMember{GroupID: group.ID, UserID: user.ID}).Error)

	require.NoError(t, svc.Deactivate(context.Background(), "a-login"))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.False(t, reloaded.Active)

	require.Zero(t, countRows(t, db, &models.OrganizationMember{}))
	require.Zero(t, countRows(t, db, &models.GroupMember{}))
	require.Zero(t, countRows(t, db, &models.UserPermission{}))
}

func TestDeactivateUnknownLogin(t *testing.T) {
	db := openServicesTestDB(t)
	svc := newTestUserService(t, db, StaticFlags{})

	err := svc.Deactivate(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
