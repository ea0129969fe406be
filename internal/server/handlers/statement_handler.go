package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/service/billing"
)

// StatementHandler serves bill statements.
type StatementHandler struct {
	svc    *billing.Service
	logger *zap.Logger
}

// NewStatementHandler constructs the HTTP handler adapter.
func NewStatementHandler(svc *billing.Service, logger *zap.Logger) *StatementHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementHandler{svc: svc, logger: logger}
}

// Get computes a farmer's statement with ?farmerId=&date=, or lists the
// stored statements of ?periodId=.
func (h *StatementHandler) Get(c *gin.Context) {
	if periodID := c.Query("periodId"); periodID != "" {
		statements, err := h.svc.Statements(c.Request.Context(), periodID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, statements)
		return
	}

	st, err := h.svc.Statement(c.Request.Context(), c.Query("farmerId"), c.Query("date"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type generateStatementsRequest struct {
	Date   string `json:"date"`
	Notify bool   `json:"notify"`
}

// Generate stores the statements of every farmer for the period of date.
func (h *StatementHandler) Generate(c *gin.Context) {
	var req generateStatementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	statements, err := h.svc.GenerateStatements(c.Request.Context(), req.Date, req.Notify)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, statements)
}
