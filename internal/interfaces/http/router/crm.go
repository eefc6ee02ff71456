package router

import (
	"github.com/gin-gonic/gin"

	"github.com/hubcrm/backend/internal/interfaces/http/handler"
)

// crudHandlers is the endpoint set shared by the CRM entities
type crudHandlers interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// EntityGroup maps the list, detail, create, update and delete endpoints
// of one entity under prefix
func EntityGroup(name, prefix string, h crudHandlers) *DomainGroup {
	return NewDomainGroup(name, prefix).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("", h.Create).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete)
}

// CRMGroups returns the route groups of the CRM entities and form options
func CRMGroups(h *handler.CRMHandlers) []*DomainGroup {
	contacts := EntityGroup("contacts", "/contacts", h.Contacts).
		POST("/:id/photo", h.Contacts.PhotoUpload)

	return []*DomainGroup{
		contacts,
		EntityGroup("companies", "/companies", h.Companies),
		EntityGroup("deals", "/deals", h.Deals),
		EntityGroup("tasks", "/tasks", h.Tasks),
		EntityGroup("activities", "/activities", h.Activities),
		EntityGroup("quotes", "/quotes", h.Quotes),
		EntityGroup("invoices", "/invoices", h.Invoices),
		NewDomainGroup("options", "/options").GET("", h.Options.Get),
	}
}

// AuthGroup returns the authentication routes
func AuthGroup(h *handler.AuthHandler) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/login", h.Login).
		POST("/logout", h.Logout).
		GET("/me", h.Me)
}
