package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/services"
	"github.com/yueyuegd/sonarqube/pkg/response"
)

type UserHandler struct {
	users      *services.UserService
	membership *services.MembershipService
}

func NewUserHandler(db *gorm.DB, flags services.FeatureFlags) (*UserHandler, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	provisioning, err := services.NewProvisioningService(db, services.NewOrganizationValidation(), nil, nil, flags, audit)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, provisioning, audit)
	if err != nil {
		return nil, err
	}
	membership, err := services.NewMembershipService(db, audit)
	if err != nil {
		return nil, err
	}
	return &UserHandler{users: users, membership: membership}, nil
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body services.CreateUserInput
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.users.Create(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// GET /api/users/:login
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByLogin(requestContext(c), c.Param("login"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:login/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	if err := h.users.Deactivate(requestContext(c), c.Param("login")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
