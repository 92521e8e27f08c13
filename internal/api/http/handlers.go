package http

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/control"
	"github.com/GriffinCanCode/wsl-terminal/internal/domain/terminal"
	"github.com/GriffinCanCode/wsl-terminal/internal/domain/theme"
	"github.com/GriffinCanCode/wsl-terminal/internal/eventbus"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/monitoring"
)

// Version is reported by the root endpoint.
const Version = "0.4.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *terminal.Manager
	control *control.Server
	bus     *eventbus.Bus
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handler set. control may be nil when the
// control plane is disabled.
func NewHandlers(manager *terminal.Manager, ctl *control.Server, bus *eventbus.Bus, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		manager: manager,
		control: ctl,
		bus:     bus,
		metrics: metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "WSL Terminal",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	controlState := gin.H{"listening": false}
	if h.control != nil {
		controlState["listening"] = h.control.Listening()
		controlState["pending"] = h.control.Pending()
		if addr := h.control.Addr(); addr != nil {
			controlState["address"] = addr.String()
		}
	}

	var subscribers int
	if h.bus != nil {
		subscribers = h.bus.SubscriberCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"sessions":    h.manager.Len(),
		"control":     controlState,
		"subscribers": subscribers,
		"metrics":     h.metrics.Snapshot(),
	})
}

// Metrics exposes Prometheus metrics
func (h *Handlers) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// ControlReply delivers the request body to the pending control request.
func (h *Handlers) ControlReply(c *gin.Context) {
	if h.control == nil {
		respondError(c, http.StatusServiceUnavailable, errors.New("control plane disabled"))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if !sonic.Valid(body) {
		respondError(c, http.StatusBadRequest, errors.New("reply must be a JSON value"))
		return
	}

	delivered := h.control.SubmitReply(body)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"delivered": delivered,
	})
}

// Themes lists the theme catalog
func (h *Handlers) Themes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"themes":  theme.List(),
		"default": theme.Default,
	})
}

// Distros lists installed WSL distributions
func (h *Handlers) Distros(c *gin.Context) {
	distros, err := terminal.ListDistros(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distros": distros})
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
