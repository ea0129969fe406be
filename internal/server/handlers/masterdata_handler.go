package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/masterdata"
)

// MasterDataHandler serves farmers, rate configurations, bill periods and locks.
type MasterDataHandler struct {
	svc    *masterdata.Service
	logger *zap.Logger
}

// NewMasterDataHandler constructs the HTTP handler adapter.
func NewMasterDataHandler(svc *masterdata.Service, logger *zap.Logger) *MasterDataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterDataHandler{svc: svc, logger: logger}
}

// =============================================================================
// FARMERS
// =============================================================================

func (h *MasterDataHandler) ListFarmers(c *gin.Context) {
	farmers, err := h.svc.ListFarmers(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmers)
}

func (h *MasterDataHandler) GetFarmer(c *gin.Context) {
	farmer, err := h.svc.GetFarmer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmer)
}

func (h *MasterDataHandler) CreateFarmer(c *gin.Context) {
	var farmer models.Farmer
	if err := c.ShouldBindJSON(&farmer); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	created, err := h.svc.CreateFarmer(c.Request.Context(), farmer)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *MasterDataHandler) UpdateFarmer(c *gin.Context) {
	var farmer models.Farmer
	if err := c.ShouldBindJSON(&farmer); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	updated, err := h.svc.UpdateFarmer(c.Request.Context(), c.Param("id"), farmer)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *MasterDataHandler) DeleteFarmer(c *gin.Context) {
	if err := h.svc.DeleteFarmer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// RATE CONFIGURATIONS
// =============================================================================

func (h *MasterDataHandler) ListRateConfigs(c *gin.Context) {
	configs, err := h.svc.RateConfigs(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *MasterDataHandler) GetRateConfig(c *gin.Context) {
	cfg, err := h.svc.GetRateConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ApplicableRateConfig reports which configuration prices ?date=&shift=.
func (h *MasterDataHandler) ApplicableRateConfig(c *gin.Context) {
	cfg, found, err := h.svc.SelectApplicableConfig(c.Request.Context(), c.Query("date"), models.Shift(c.Query("shift")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "config": cfg})
}

func (h *MasterDataHandler) CreateRateConfig(c *gin.Context) {
	var cfg models.RateConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	created, err := h.svc.CreateRateConfig(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *MasterDataHandler) UpdateRateConfig(c *gin.Context) {
	var cfg models.RateConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	updated, err := h.svc.UpdateRateConfig(c.Request.Context(), c.Param("id"), cfg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *MasterDataHandler) DeleteRateConfig(c *gin.Context) {
	if err := h.svc.DeleteRateConfig(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// BILL PERIODS AND LOCKS
// =============================================================================

func (h *MasterDataHandler) ListBillPeriods(c *gin.Context) {
	periods, err := h.svc.ListBillPeriods(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, periods)
}

// SaveBillPeriods replaces the period definitions with the JSON array body.
func (h *MasterDataHandler) SaveBillPeriods(c *gin.Context) {
	var periods []models.BillPeriod
	if err := c.ShouldBindJSON(&periods); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	saved, err := h.svc.SaveBillPeriods(c.Request.Context(), periods)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ResolveBillPeriod returns the concrete period containing ?date=.
func (h *MasterDataHandler) ResolveBillPeriod(c *gin.Context) {
	period, err := h.svc.BillPeriodOf(c.Request.Context(), c.Query("date"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func (h *MasterDataHandler) ListLocks(c *gin.Context) {
	ids, err := h.svc.LockedPeriods(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lockedPeriods": ids})
}

type toggleLockRequest struct {
	PeriodID string `json:"periodId"`
}

// ToggleLock flips one period and returns the full locked set.
func (h *MasterDataHandler) ToggleLock(c *gin.Context) {
	var req toggleLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	ids, err := h.svc.ToggleLock(c.Request.Context(), req.PeriodID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lockedPeriods": ids})
}

// CheckLock answers ?date=, ?from=&to= or ?periodId=.
func (h *MasterDataHandler) CheckLock(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		locked bool
		err    error
	)
	switch {
	case c.Query("periodId") != "":
		locked, err = h.svc.IsPeriodLocked(ctx, c.Query("periodId"))
	case c.Query("from") != "" || c.Query("to") != "":
		locked, err = h.svc.IsRangeLocked(ctx, c.Query("from"), c.Query("to"))
	default:
		locked, err = h.svc.IsLocked(ctx, c.Query("date"))
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": locked})
}
