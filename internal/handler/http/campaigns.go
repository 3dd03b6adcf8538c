package handler

import (
	"net/http"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/service"
	"github.com/aniladanir/bulk-messenger-service/internal/templater"
	"github.com/gin-gonic/gin"
)

type campaignRequest struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	ExtraFieldKeys []string `json:"extra_field_keys"`
}

type campaignResponse struct {
	*domain.Campaign
	Placeholders []string `json:"placeholders"`
	ContactCount int64    `json:"contact_count"`
}

type contactsRequest struct {
	Contacts []domain.ContactInput `json:"contacts"`
}

type updateContactRequest struct {
	domain.ContactInput
	CheckDuplicate *bool `json:"check_duplicate"`
}

type deleteContactsRequest struct {
	IDs []int `json:"ids"`
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Charges the campaign insert cost
// @Tags Campaigns
// @Param X-User-ID header string true "caller id"
// @Param request body campaignRequest true "campaign"
// @Success 201 {object} domain.Campaign
// @Failure 400 {object} errorResponse
// @Failure 402 {object} errorResponse
// @Router /campaigns [post]
func (h *Handler) createCampaign(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	campaign, err := h.svc.Campaigns.CreateCampaign(c.Request.Context(), userID(c), req.Name, req.Description, req.ExtraFieldKeys)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags Campaigns
// @Param X-User-ID header string true "caller id"
// @Success 200 {array} domain.Campaign
// @Router /campaigns [get]
func (h *Handler) listCampaigns(c *gin.Context) {
	campaigns, err := h.svc.Campaigns.ListCampaigns(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// GetCampaign godoc
// @Summary Get a campaign with its template placeholders
// @Tags Campaigns
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Success 200 {object} campaignResponse
// @Failure 404 {object} errorResponse
// @Router /campaigns/{id} [get]
func (h *Handler) getCampaign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	campaign, err := h.svc.Campaigns.GetCampaign(c.Request.Context(), userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	count, err := h.svc.Campaigns.CountContacts(c.Request.Context(), userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaignResponse{
		Campaign:     campaign,
		Placeholders: templater.Placeholders(campaign),
		ContactCount: count,
	})
}

// UpdateCampaign godoc
// @Summary Rename a campaign
// @Description Charges the campaign update cost
// @Tags Campaigns
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body campaignRequest true "campaign"
// @Success 200 {object} domain.Campaign
// @Failure 402 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /campaigns/{id} [put]
func (h *Handler) updateCampaign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	campaign, err := h.svc.Campaigns.UpdateCampaign(c.Request.Context(), userID(c), id, req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign godoc
// @Summary Delete a campaign and all of its contacts
// @Tags Campaigns
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Success 204
// @Router /campaigns/{id} [delete]
func (h *Handler) deleteCampaign(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.svc.Campaigns.DeleteCampaignByID(c.Request.Context(), userID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListContacts godoc
// @Summary List the contacts of a campaign
// @Tags Contacts
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Success 200 {array} domain.Contact
// @Router /campaigns/{id}/contacts [get]
func (h *Handler) listContacts(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	contacts, err := h.svc.Campaigns.ListContacts(c.Request.Context(), userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// AddContact godoc
// @Summary Add a single contact
// @Description Charges the contact insert cost unless the phone already exists in the campaign
// @Tags Contacts
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body domain.ContactInput true "contact"
// @Success 201 {object} service.ImportOutcome
// @Success 200 {object} service.ImportOutcome "duplicate"
// @Failure 402 {object} errorResponse
// @Router /campaigns/{id}/contacts [post]
func (h *Handler) addContact(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req domain.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	outcome, err := h.svc.Importer.AddContact(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if len(outcome.InsertedIDs) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, outcome)
}

// ImportContacts godoc
// @Summary Bulk import contacts
// @Description Accepts a JSON body or a text/csv body of "name,phone,extra..." rows.
// @Description Only contacts actually stored are charged.
// @Tags Contacts
// @Accept json
// @Accept text/csv
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body contactsRequest true "contacts"
// @Success 200 {object} service.ImportOutcome
// @Failure 402 {object} errorResponse
// @Router /campaigns/{id}/contacts/import [post]
func (h *Handler) importContacts(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	contacts, err := h.readContacts(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	outcome, err := h.svc.Importer.Import(c.Request.Context(), userID(c), id, contacts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// EstimateImport godoc
// @Summary Estimate the cost of an import without storing anything
// @Tags Contacts
// @Accept json
// @Accept text/csv
// @Param X-User-ID header string true "caller id"
// @Param id path int true "campaign id"
// @Param request body contactsRequest true "contacts"
// @Success 200 {object} service.ImportQuote
// @Router /campaigns/{id}/contacts/estimate [post]
func (h *Handler) estimateImport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	contacts, err := h.readContacts(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	quote, err := h.svc.Importer.Quote(c.Request.Context(), userID(c), id, contacts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// UpdateContact godoc
// @Summary Update a contact
// @Description check_duplicate defaults to true. Charges the contact update cost unless the phone is a duplicate.
// @Tags Contacts
// @Param X-User-ID header string true "caller id"
// @Param id path int true "contact id"
// @Param request body updateContactRequest true "contact"
// @Success 200 {object} domain.UpdateResult
// @Failure 402 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /contacts/{id} [put]
func (h *Handler) updateContact(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	checkDuplicate := req.CheckDuplicate == nil || *req.CheckDuplicate

	result, err := h.svc.Campaigns.UpdateContact(c.Request.Context(), userID(c), id, req.ContactInput, checkDuplicate)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteContacts godoc
// @Summary Delete contacts, all or none
// @Tags Contacts
// @Param X-User-ID header string true "caller id"
// @Param request body deleteContactsRequest true "contact ids"
// @Success 204
// @Failure 400 {object} errorResponse
// @Router /contacts [delete]
func (h *Handler) deleteContacts(c *gin.Context) {
	var req deleteContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.svc.Campaigns.DeleteContacts(c.Request.Context(), userID(c), req.IDs); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readContacts reads contacts from a csv or json body.
func (h *Handler) readContacts(c *gin.Context) ([]domain.ContactInput, error) {
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		return service.ParseCSV(c.Request.Body)
	}

	var req contactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, domain.InvalidInputf("malformed body: %v", err)
	}
	return req.Contacts, nil
}
