package lifecycle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/event"
)

// Handler is the inbound adapter for credential lifecycle events: the
// credential store posts here before and after a password change and the
// event is dispatched through the in-process bus.
type Handler struct {
	bus    *event.Bus
	claims repository.ClaimRepository
}

func NewHandler(bus *event.Bus, claims repository.ClaimRepository) *Handler {
	return &Handler{
		bus:    bus,
		claims: claims,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/tenants/:tenant/accounts/:username/credential-events", h.postEvent)
}

type eventRequest struct {
	Event string `json:"event" binding:"required"`
}

func (h *Handler) postEvent(c *gin.Context) {
	tenant := c.Param("tenant")
	username := c.Param("username")

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("event is required"))
		return
	}

	evt := &model.LifecycleEvent{
		Kind:         model.ParseEventKind(req.Event),
		Username:     username,
		TenantDomain: tenant,
		Claims:       repository.NewTenantClaimStore(h.claims, tenant),
	}

	if err := h.bus.Dispatch(c.Request.Context(), evt); err != nil {
		switch {
		case errors.IsPolicyViolation(err):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(
				"password changed within the minimum password lifetime"))
		case errors.IsStoreAccess(err):
			c.JSON(http.StatusBadGateway, handler.NewErrorResponse(
				"user attribute store unavailable"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(
				"failed to process lifecycle event"))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"event": evt.Kind.String(),
	}))
}
