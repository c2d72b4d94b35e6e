package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/models"
	"github.com/yueyuegd/sonarqube/internal/services"
	"github.com/yueyuegd/sonarqube/pkg/errors"
	"github.com/yueyuegd/sonarqube/pkg/response"
)

type OrganizationHandler struct {
	db           *gorm.DB
	provisioning *services.ProvisioningService
	membership   *services.MembershipService
	users        *services.UserService
}

func NewOrganizationHandler(db *gorm.DB, flags services.FeatureFlags) (*OrganizationHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	provisioning, err := services.NewProvisioningService(db, services.NewOrganizationValidation(), nil, nil, flags, audit)
	if err != nil {
		return nil, err
	}
	membership, err := services.NewMembershipService(db, audit)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, provisioning, audit)
	if err != nil {
		return nil, err
	}
	return &OrganizationHandler{
		db:           db,
		provisioning: provisioning,
		membership:   membership,
		users:        users,
	}, nil
}

type createOrganizationRequest struct {
	Key          string `json:"key" validate:"required,orgkey,max=32"`
	Name         string `json:"name" validate:"required,max=64"`
	Description  string `json:"description" validate:"omitempty,max=256"`
	URL          string `json:"url" validate:"omitempty,url,max=256"`
	AvatarURL    string `json:"avatar_url" validate:"omitempty,url,max=256"`
	CreatorLogin string `json:"creator_login" validate:"required,min=2,max=255"`
}

type memberRequest struct {
	Login string `json:"login" validate:"required,min=2,max=255"`
}

// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var body createOrganizationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	creator, err := h.users.GetByLogin(requestContext(c), body.CreatorLogin)
	if err != nil {
		response.Error(c, err)
		return
	}

	org, err := h.provisioning.CreateOrganization(requestContext(c), services.NewOrganization{
		Key:         strings.TrimSpace(body.Key),
		Name:        strings.TrimSpace(body.Name),
		Description: strings.TrimSpace(body.Description),
		URL:         strings.TrimSpace(body.URL),
		AvatarURL:   strings.TrimSpace(body.AvatarURL),
	}, creator.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, org)
}

// GET /api/organizations/:key
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.loadByKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	var orgs []models.Organization
	err := h.db.WithContext(requestContext(c)).Order("kee ASC").Find(&orgs).Error
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// POST /api/organizations/:key/members
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	var body memberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	org, err := h.loadByKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.users.GetByLogin(requestContext(c), body.Login)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.membership.AddMember(requestContext(c), org.UUID, user.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /api/organizations/:key/members/:login
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	org, err := h.loadByKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.users.GetByLogin(requestContext(c), c.Param("login"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.membership.RemoveMember(requestContext(c), org.UUID, user.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GET /api/organizations/:key/members
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	org, err := h.loadByKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	members, err := h.membership.ListMembers(requestContext(c), org.UUID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

func (h *OrganizationHandler) loadByKey(c *gin.Context) (*models.Organization, error) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return nil, errors.NewBadRequest("organization key is required")
	}

	var org models.Organization
	err := h.db.WithContext(requestContext(c)).First(&org, "kee = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, services.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, errors.ErrInternalServer
	}
	return &org, nil
}
