package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/interfaces/http/dto"
)

// EntityService is the service surface every CRM entity exposes. R is the
// view model, C the create form and U the partial update form.
type EntityService[R, C, U any] interface {
	List(ctx context.Context, f crm.ListFilter) ([]R, int64, error)
	GetByID(ctx context.Context, id int64) (*R, error)
	GetRecord(ctx context.Context, id int64) (record.Record, error)
	Create(ctx context.Context, req C) (*R, error)
	Update(ctx context.Context, id int64, req U) (*R, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// EntityHandler serves the list, detail, create, update and delete
// endpoints of one CRM entity
type EntityHandler[R, C, U any] struct {
	BaseHandler
	service EntityService[R, C, U]
}

// NewEntityHandler creates a handler over service
func NewEntityHandler[R, C, U any](service EntityService[R, C, U]) *EntityHandler[R, C, U] {
	return &EntityHandler[R, C, U]{service: service}
}

// List godoc
// @Summary  List records with search, preset filter and pagination
// @Param    search    query string false "Case-insensitive search"
// @Param    filter    query string false "Preset: all, active, won, lost, expired, recent, overdue"
// @Param    page      query int    false "Page number"
// @Param    page_size query int    false "Page size (max 100)"
func (h *EntityHandler[R, C, U]) List(c *gin.Context) {
	var q dto.ListQuery
	if !bindQuery(c, &q) {
		return
	}
	f := q.ToFilter()

	items, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, f.Page, f.PageSize)
}

// Get godoc
// @Summary  Get one record; raw=true returns the stored fields unmapped
// @Param    id  path  int  true  "Record id"
// @Param    raw query bool false "Return the raw record"
func (h *EntityHandler[R, C, U]) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var q dto.DetailQuery
	if !bindQuery(c, &q) {
		return
	}

	if q.Raw {
		rec, err := h.service.GetRecord(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, rec)
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Create godoc
// @Summary  Create a record
func (h *EntityHandler[R, C, U]) Create(c *gin.Context) {
	var req C
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Update godoc
// @Summary  Update the provided fields of a record
// @Param    id path int true "Record id"
func (h *EntityHandler[R, C, U]) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req U
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete godoc
// @Summary  Delete a record
// @Param    id path int true "Record id"
func (h *EntityHandler[R, C, U]) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DeleteResponse{ID: deleted})
}
