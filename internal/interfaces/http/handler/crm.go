package handler

import (
	"github.com/gin-gonic/gin"

	crmapp "github.com/hubcrm/backend/internal/application/crm"
)

type (
	// CompanyHandler serves /companies
	CompanyHandler = EntityHandler[crmapp.CompanyResponse, crmapp.CreateCompanyRequest, crmapp.UpdateCompanyRequest]
	// DealHandler serves /deals
	DealHandler = EntityHandler[crmapp.DealResponse, crmapp.CreateDealRequest, crmapp.UpdateDealRequest]
	// TaskHandler serves /tasks
	TaskHandler = EntityHandler[crmapp.TaskResponse, crmapp.CreateTaskRequest, crmapp.UpdateTaskRequest]
	// ActivityHandler serves /activities
	ActivityHandler = EntityHandler[crmapp.ActivityResponse, crmapp.CreateActivityRequest, crmapp.UpdateActivityRequest]
	// QuoteHandler serves /quotes
	QuoteHandler = EntityHandler[crmapp.QuoteResponse, crmapp.CreateQuoteRequest, crmapp.UpdateQuoteRequest]
	// InvoiceHandler serves /invoices
	InvoiceHandler = EntityHandler[crmapp.InvoiceResponse, crmapp.CreateInvoiceRequest, crmapp.UpdateInvoiceRequest]
)

// CRMHandlers groups the handlers of every CRM entity
type CRMHandlers struct {
	Contacts   *ContactHandler
	Companies  *CompanyHandler
	Deals      *DealHandler
	Tasks      *TaskHandler
	Activities *ActivityHandler
	Quotes     *QuoteHandler
	Invoices   *InvoiceHandler
	Options    *OptionsHandler
}

// NewCRMHandlers creates the handlers over services
func NewCRMHandlers(services *crmapp.Services) *CRMHandlers {
	return &CRMHandlers{
		Contacts:   NewContactHandler(services.Contacts),
		Companies:  &CompanyHandler{service: services.Companies},
		Deals:      &DealHandler{service: services.Deals},
		Tasks:      &TaskHandler{service: services.Tasks},
		Activities: &ActivityHandler{service: services.Activities},
		Quotes:     &QuoteHandler{service: services.Quotes},
		Invoices:   &InvoiceHandler{service: services.Invoices},
		Options:    NewOptionsHandler(services),
	}
}

// OptionsHandler serves the choices of the entity forms
type OptionsHandler struct {
	BaseHandler
	services *crmapp.Services
}

// NewOptionsHandler creates an OptionsHandler
func NewOptionsHandler(services *crmapp.Services) *OptionsHandler {
	return &OptionsHandler{services: services}
}

// Get godoc
// @Summary  Deal stages, task statuses and priorities, activity types, quote and invoice statuses
// @Router   /options [get]
func (h *OptionsHandler) Get(c *gin.Context) {
	h.Success(c, h.services.Options())
}
