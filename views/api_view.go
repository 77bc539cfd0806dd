package views

// Raw collaborator API. These handlers expose the backend.Client contract
// over /api/* so one fieldmap instance can act as the remote backend for
// another (the HTTP client in backend/http_client.go targets these paths).

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrovista/fieldmap/backend"
)

type apiSimulateRequest struct {
	GeometryWire string  `json:"geometry_wire" binding:"required"`
	Mode         string  `json:"mode" binding:"required"`
	TargetCount  int     `json:"target_count"`
	MaxAreaHa    float64 `json:"max_area_ha"`
}

type apiApplyRequest struct {
	ParentAOIID uint                   `json:"parent_aoi_id" binding:"required"`
	Polygons    []backend.ApplyPolygon `json:"polygons" binding:"required"`
	EnqueueJobs bool                   `json:"enqueue_jobs"`
	MaxAreaHa   float64                `json:"max_area_ha"`
}

type apiListStatusRequest struct {
	AOIIDs []uint `json:"aoi_ids"`
}

func (uc *UserController) APISimulateSplit(c *gin.Context) {
	var req apiSimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	reply, err := uc.BE.SimulateSplit(c.Request.Context(), req.GeometryWire, req.Mode, req.TargetCount, req.MaxAreaHa)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (uc *UserController) APIApplySplit(c *gin.Context) {
	var req apiApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	if err := uc.BE.ApplySplit(c.Request.Context(), req.ParentAOIID, req.Polygons, req.EnqueueJobs, req.MaxAreaHa); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

func (uc *UserController) APICreateAOI(c *gin.Context) {
	var req AddAOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	aoi, err := uc.BE.CreateAOI(c.Request.Context(), req.FarmID, req.Name, req.UseType, req.GeometryWire)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, aoi)
}

func (uc *UserController) APIDeleteAOI(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}
	if err := uc.BE.DeleteAOI(c.Request.Context(), uint(id)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (uc *UserController) APIUpdateAOI(c *gin.Context) {
	var req UpdateAOIGeoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	if err := uc.BE.UpdateAOI(c.Request.Context(), req.AOIID, req.GeometryWire); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": req.AOIID})
}

func (uc *UserController) APIGetAOI(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}
	aoi, err := uc.BE.GetAOI(c.Request.Context(), uint(id))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, aoi)
}

func (uc *UserController) APIListAOIs(c *gin.Context) {
	farmID, _ := strconv.ParseUint(c.Query("farm_id"), 10, 64)
	aois, err := uc.BE.ListAOIs(c.Request.Context(), uint(farmID))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, aois)
}

func (uc *UserController) APIListStatus(c *gin.Context) {
	var req apiListStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	statuses, err := uc.BE.ListStatus(c.Request.Context(), req.AOIIDs)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (uc *UserController) APIListSignals(c *gin.Context) {
	farmID, _ := strconv.ParseUint(c.Query("farm_id"), 10, 64)
	signals, err := uc.BE.ListSignals(c.Request.Context(), uint(farmID))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, signals)
}
