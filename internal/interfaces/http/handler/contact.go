package handler

import (
	"github.com/gin-gonic/gin"

	crmapp "github.com/hubcrm/backend/internal/application/crm"
)

// ContactHandler serves /contacts, including photo uploads
type ContactHandler struct {
	*EntityHandler[crmapp.ContactResponse, crmapp.CreateContactRequest, crmapp.UpdateContactRequest]
	contacts *crmapp.ContactService
}

// NewContactHandler creates a ContactHandler
func NewContactHandler(contacts *crmapp.ContactService) *ContactHandler {
	return &ContactHandler{
		EntityHandler: NewEntityHandler[crmapp.ContactResponse, crmapp.CreateContactRequest, crmapp.UpdateContactRequest](contacts),
		contacts:      contacts,
	}
}

// PhotoUpload godoc
// @Summary  Presigned URL to upload a contact photo
// @Param    id path int true "Contact id"
// @Router   /contacts/{id}/photo [post]
func (h *ContactHandler) PhotoUpload(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req crmapp.PhotoUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	upload, err := h.contacts.PhotoUploadURL(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}
