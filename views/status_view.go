package views

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrovista/fieldmap/models"
)

type GetStatusRequest struct {
	AOIIDs []uint `json:"aoi_ids" binding:"required"`
}

type AddSignalRequest struct {
	AOIID      uint   `json:"aoi_id" binding:"required"`
	SignalType string `json:"signal_type" binding:"required"`
	Severity   string `json:"severity" binding:"required"`
	DetectedAt string `json:"detected_at"`
}

// GetStatus answers the derived status and badge for each requested AOI
// from the latest poll snapshot.
func (uc *UserController) GetStatus(c *gin.Context) {
	var req GetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	type entry struct {
		AOIID  uint          `json:"aoi_id"`
		Status models.Status `json:"status"`
		Badge  models.Badge  `json:"badge,omitempty"`
	}
	out := make([]entry, 0, len(req.AOIIDs))
	for _, id := range req.AOIIDs {
		status, badge, hasBadge := uc.Status.StatusFor(id)
		e := entry{AOIID: id, Status: status}
		if hasBadge {
			e.Badge = badge
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, out)
}

func (uc *UserController) GetSignals(c *gin.Context) {
	farmID, _ := strconv.ParseUint(c.Query("farm_id"), 10, 64)
	signals, err := uc.BE.ListSignals(c.Request.Context(), uint(farmID))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, signals)
}

// AddSignal is the ingest endpoint the alerting collaborator posts to in
// local mode. The engine otherwise only reads signals.
func (uc *UserController) AddSignal(c *gin.Context) {
	var req AddSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	detectedAt := time.Now()
	if req.DetectedAt != "" {
		t, err := time.Parse(time.RFC3339, req.DetectedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detected_at must be RFC3339"})
			return
		}
		detectedAt = t
	}
	row := models.SignalRecord{
		AOIID:      req.AOIID,
		SignalType: req.SignalType,
		Severity:   req.Severity,
		DetectedAt: detectedAt,
	}
	if err := models.DB.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}
