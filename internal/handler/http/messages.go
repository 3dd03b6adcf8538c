package handler

import (
	"net/http"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/templater"
	"github.com/gin-gonic/gin"
)

type sendRequest struct {
	ContactIDs []int `json:"contact_ids"`
	// Template is the default template, one to three fragments.
	Template []string `json:"template"`
	// Templates overrides the template per contact id.
	Templates map[int][]string `json:"templates"`
	Channel   string           `json:"channel"`
}

type previewRequest struct {
	ContactIDs []int    `json:"contact_ids"`
	Template   []string `json:"template"`
}

type previewItem struct {
	ContactID int      `json:"contact_id"`
	Phone     string   `json:"phone"`
	Fragments []string `json:"fragments"`
}

type resendRequest struct {
	ContactIDs []int `json:"contact_ids"`
}

type batchResponse struct {
	Batch      *domain.SendBatch       `json:"batch,omitempty"`
	Reconciled *domain.ReconciledBatch `json:"reconciled,omitempty"`
}

// PreviewMessages godoc
// @Summary Render a template for the selected contacts without sending
// @Tags Messages
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body previewRequest true "template and contacts"
// @Success 200 {array} previewItem
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /campaigns/{id}/preview [post]
func (h *Handler) previewMessages(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := templater.Validate(req.Template); err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.svc.Campaigns.GetCampaign(ctx, userID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	contacts, err := h.svc.Campaigns.GetContacts(ctx, userID(c), id, req.ContactIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]previewItem, 0, len(contacts))
	for i := range contacts {
		fragments, err := templater.Render(req.Template, templater.FieldsOf(&contacts[i]))
		if err != nil {
			h.writeError(c, err)
			return
		}
		items = append(items, previewItem{ContactID: contacts[i].ID, Phone: contacts[i].Phone, Fragments: fragments})
	}
	c.JSON(http.StatusOK, items)
}

// SendCampaign godoc
// @Summary Send personalized messages to the selected contacts
// @Description Reserves credits for every selected contact and hands the batch to the dispatcher.
// @Description Nothing is sent and nothing is charged when the balance does not cover the batch.
// @Tags Messages
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body sendRequest true "selection and template"
// @Success 202 {object} domain.SendBatch
// @Failure 400 {object} errorResponse
// @Failure 402 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Failure 504 {object} errorResponse "dispatch outcome unknown, the batch stays dispatched"
// @Router /campaigns/{id}/send [post]
func (h *Handler) sendCampaign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	campaign, err := h.svc.Campaigns.GetCampaign(ctx, userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	contacts, err := h.svc.Campaigns.GetContacts(ctx, userID(c), id, req.ContactIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	batch, err := h.svc.Orchestrator.PrepareBatch(ctx, userID(c), campaign, contacts, req.Templates, req.Template, req.Channel)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sent, err := h.svc.Orchestrator.Send(ctx, batch, h.svc.Costs.PerMessage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sent)
}

// GetBatch godoc
// @Summary Get a batch and its reconciliation
// @Tags Messages
// @Param X-User-ID header string true "caller id"
// @Param id path string true "batch id"
// @Success 200 {object} batchResponse
// @Failure 404 {object} errorResponse
// @Router /batches/{id} [get]
func (h *Handler) getBatch(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var resp batchResponse
	if b, err := h.svc.Orchestrator.Batch(ctx, id); err == nil && b.UserID == userID(c) {
		resp.Batch = b
	}
	if rb, err := h.svc.Orchestrator.Reconciled(ctx, id); err == nil && rb.UserID == userID(c) {
		resp.Reconciled = rb
	}
	if resp.Batch == nil && resp.Reconciled == nil {
		h.writeError(c, domain.NewNotFound("batch", id))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResendBatch godoc
// @Summary Send a reconciled batch again to the selected contacts
// @Description The new batch is charged like any other send.
// @Tags Messages
// @Param X-User-ID header string true "caller id"
// @Param id path string true "batch id"
// @Param request body resendRequest true "contact ids"
// @Success 202 {object} domain.SendBatch
// @Failure 402 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Failure 504 {object} errorResponse "dispatch outcome unknown, the batch stays dispatched"
// @Router /batches/{id}/resend [post]
func (h *Handler) resendBatch(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	rb, err := h.svc.Orchestrator.Reconciled(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rb.UserID != userID(c) {
		h.writeError(c, domain.NewNotFound("reconciled batch", id))
		return
	}

	batch, err := h.svc.Orchestrator.Resend(ctx, id, req.ContactIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sent, err := h.svc.Orchestrator.Send(ctx, batch, h.svc.Costs.PerMessage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sent)
}

// PostReport godoc
// @Summary Deliver the report of a dispatched batch
// @Description success_list may be an array of phones, an array of {"phone"} objects or a JSON string of either.
// @Tags Reports
// @Param request body dispatcher.ReportPayload true "delivery report"
// @Success 200 {object} domain.ReconciledBatch
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /reports [post]
func (h *Handler) postReport(c *gin.Context) {
	var payload dispatcher.ReportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, err)
		return
	}
	report, err := payload.Report()
	if err != nil {
		h.writeError(c, err)
		return
	}

	rb, err := h.svc.Orchestrator.Reconcile(c.Request.Context(), report)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rb)
}

// GetReports godoc
// @Summary List the caller's reconciled batches, newest first
// @Tags Reports
// @Param X-User-ID header string true "caller id"
// @Success 200 {array} domain.SentMessage
// @Router /reports [get]
func (h *Handler) getReports(c *gin.Context) {
	msgs, err := h.svc.Orchestrator.MessageReport(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
