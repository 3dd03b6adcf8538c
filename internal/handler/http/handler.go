package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	_ "github.com/aniladanir/bulk-messenger-service/docs"
	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	userIDHeader = "X-User-ID"
	userIDKey    = "userId"
)

// Services are the engine components exposed over http.
type Services struct {
	Ledger       *service.Ledger
	Campaigns    *service.CampaignStore
	Importer     *service.Importer
	Orchestrator *service.Orchestrator
	Costs        domain.Costs
}

type Handler struct {
	svc    Services
	server *http.Server
	logger *slog.Logger
}

type errorResponse struct {
	Error     string `json:"error"`
	Required  int    `json:"required,omitempty"`
	Available *int   `json:"available,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
}

// @title Bulk Messenger API
// @version 1.0
// @description Credit gated campaign messaging engine
// @host localhost:6060
// @BasePath /
func NewHttpHandler(addr string, svc Services, logger *slog.Logger) *Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
	}

	// create router
	router := gin.Default()

	// delivery reports come from the dispatcher, not from a user
	router.POST("/reports", h.postReport)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// register user routes
	api := router.Group("/", h.requireUser)
	api.GET("/accounts/me", h.getAccount)
	api.POST("/accounts/me/reward", h.claimReward)
	api.POST("/accounts/me/grant", h.grantCredits)
	api.PUT("/accounts/me/premium", h.setPremium)

	api.POST("/campaigns", h.createCampaign)
	api.GET("/campaigns", h.listCampaigns)
	api.GET("/campaigns/:id", h.getCampaign)
	api.PUT("/campaigns/:id", h.updateCampaign)
	api.DELETE("/campaigns/:id", h.deleteCampaign)

	api.GET("/campaigns/:id/contacts", h.listContacts)
	api.POST("/campaigns/:id/contacts", h.addContact)
	api.POST("/campaigns/:id/contacts/import", h.importContacts)
	api.POST("/campaigns/:id/contacts/estimate", h.estimateImport)
	api.PUT("/contacts/:id", h.updateContact)
	api.DELETE("/contacts", h.deleteContacts)

	api.POST("/campaigns/:id/preview", h.previewMessages)
	api.POST("/campaigns/:id/send", h.sendCampaign)
	api.GET("/batches/:id", h.getBatch)
	api.POST("/batches/:id/resend", h.resendBatch)
	api.GET("/reports", h.getReports)

	// create http server
	h.server = &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *Handler) requireUser(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(userIDHeader))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing " + userIDHeader + " header"})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func pathID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, domain.InvalidInputf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// writeError maps engine errors to http responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		insufficient *domain.InsufficientCreditsError
		notFound     *domain.NotFoundError
		batchErr     *domain.BatchError
	)

	switch {
	case errors.As(err, &insufficient):
		resp := errorResponse{
			Error:     insufficient.Error(),
			Required:  insufficient.Required,
			Available: &insufficient.Available,
		}
		if errors.As(err, &batchErr) {
			resp.BatchID = batchErr.BatchID
		}
		c.JSON(http.StatusPaymentRequired, resp)
	case errors.As(err, &notFound), errors.Is(err, domain.ErrNoMatchingBatch):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrTemplateTooLarge):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDispatchUnconfirmed):
		resp := errorResponse{Error: err.Error()}
		if errors.As(err, &batchErr) {
			resp.BatchID = batchErr.BatchID
		}
		c.JSON(http.StatusGatewayTimeout, resp)
	case errors.Is(err, dispatcher.ErrRejected):
		resp := errorResponse{Error: err.Error()}
		if errors.As(err, &batchErr) {
			resp.BatchID = batchErr.BatchID
		}
		c.JSON(http.StatusBadGateway, resp)
	case errors.Is(err, domain.ErrStorageUnavailable):
		h.logger.Error("storage unavailable", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: domain.ErrStorageUnavailable.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
