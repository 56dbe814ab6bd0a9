package policy

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
)

// Handler exposes the tenant password policy configuration to admin UIs.
type Handler struct {
	resolver *policyconfig.Resolver
	repo     repository.TenantConfigRepository
	validate *validator.Validate
}

func NewHandler(resolver *policyconfig.Resolver, repo repository.TenantConfigRepository) *Handler {
	return &Handler{
		resolver: resolver,
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/tenants/:tenant/password-policy")
	{
		policies.GET("", h.getPolicy)
		policies.PUT("/:name", h.putOverride)
		policies.DELETE("/:name", h.deleteOverride)
	}
}

type propertyView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Default     string `json:"default"`
	Value       string `json:"value"`
}

func (h *Handler) getPolicy(c *gin.Context) {
	tenant := c.Param("tenant")
	ctx := c.Request.Context()

	properties := make([]propertyView, 0, len(model.SettingNames()))
	for _, name := range model.SettingNames() {
		meta, _ := model.SettingMetadata(name)
		properties = append(properties, propertyView{
			Name:        name,
			DisplayName: meta.DisplayName,
			Description: meta.Description,
			Default:     meta.Default,
			Value:       h.resolver.Resolve(ctx, tenant, name),
		})
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"settings":   h.resolver.ResolveAll(ctx, tenant),
		"properties": properties,
	}))
}

type overrideRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *Handler) putOverride(c *gin.Context) {
	tenant := c.Param("tenant")
	name := c.Param("name")

	if _, recognized := model.SettingMetadata(name); !recognized {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("unknown policy setting"))
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("value is required"))
		return
	}

	rule := "required,number,excludes=-,excludes=."
	if name == model.SettingEnableNotifications {
		rule = "required,boolean"
	}
	if err := h.validate.Var(req.Value, rule); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid value for setting"))
		return
	}

	if err := h.repo.UpsertProperty(c.Request.Context(), tenant, model.HandlerName, name, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to save setting override"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"name":  name,
		"value": req.Value,
	}))
}

func (h *Handler) deleteOverride(c *gin.Context) {
	tenant := c.Param("tenant")
	name := c.Param("name")

	if _, recognized := model.SettingMetadata(name); !recognized {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("unknown policy setting"))
		return
	}

	if err := h.repo.DeleteProperty(c.Request.Context(), tenant, model.HandlerName, name); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to delete setting override"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
