package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/procurement"
)

// CollectionHandler serves milk collections.
type CollectionHandler struct {
	svc    *procurement.Service
	logger *zap.Logger
}

// NewCollectionHandler constructs the HTTP handler adapter.
func NewCollectionHandler(svc *procurement.Service, logger *zap.Logger) *CollectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionHandler{svc: svc, logger: logger}
}

// List filters by ?fromDate=, ?toDate= and ?farmerId=.
func (h *CollectionHandler) List(c *gin.Context) {
	collections, err := h.svc.List(c.Request.Context(), models.CollectionFilter{
		FromDate: c.Query("fromDate"),
		ToDate:   c.Query("toDate"),
		FarmerID: c.Query("farmerId"),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var in models.CollectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update applies a partial entry; omitted fields keep their stored value.
func (h *CollectionHandler) Update(c *gin.Context) {
	var patch models.CollectionInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Valuate prices an entry without storing it.
func (h *CollectionHandler) Valuate(c *gin.Context) {
	var in models.CollectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	v, err := h.svc.Valuate(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Bulk imports a JSON array of entries. Row failures are reported in the
// summary, so the response is 200 even when rows were skipped.
func (h *CollectionHandler) Bulk(c *gin.Context) {
	var inputs []models.CollectionInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	summary, err := h.svc.BulkImport(c.Request.Context(), inputs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type importSheetRequest struct {
	Range string `json:"range"`
}

// ImportSheet imports from the spreadsheet. The body is optional.
func (h *CollectionHandler) ImportSheet(c *gin.Context) {
	var req importSheetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}
	summary, err := h.svc.ImportFromSheet(c.Request.Context(), req.Range)
	if errors.Is(err, procurement.ErrSheetsDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type recalculateRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

func (h *CollectionHandler) Recalculate(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	summary, err := h.svc.Recalculate(c.Request.Context(), req.FromDate, req.ToDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
