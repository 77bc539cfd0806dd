package views

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/models"
)

type StartSplitRequest struct {
	AOIID       uint    `json:"aoi_id" binding:"required"`
	Mode        string  `json:"mode" binding:"required"`
	TargetCount int     `json:"target_count"`
	MaxAreaHa   float64 `json:"max_area_ha"`
}

type ResimulateRequest struct {
	Mode        string  `json:"mode" binding:"required"`
	TargetCount int     `json:"target_count"`
	MaxAreaHa   float64 `json:"max_area_ha"`
}

type MergePreviewsRequest struct {
	PreviewIDs []string `json:"preview_ids" binding:"required"`
}

type EditPreviewRequest struct {
	PreviewID string `json:"preview_id" binding:"required"`
}

type DragPreviewRequest struct {
	PreviewID string  `json:"preview_id" binding:"required"`
	PolyIndex int     `json:"poly_index"`
	RingIndex int     `json:"ring_index"`
	VertexIdx int     `json:"vertex_index"`
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
}

type ApplySplitRequest struct {
	EnqueueJobs bool `json:"enqueue_jobs"`
}

type MergeAOIsRequest struct {
	AOIIDs  []uint `json:"aoi_ids" binding:"required"`
	Name    string `json:"name" binding:"required"`
	UseType string `json:"use_type"`
}

// StartSplit opens a split session on one AOI and runs the first
// simulation. Opening over an existing session supersedes it.
func (uc *UserController) StartSplit(c *gin.Context) {
	var req StartSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	aoi, err := uc.BE.GetAOI(c.Request.Context(), req.AOIID)
	if err != nil {
		writeErr(c, err)
		return
	}
	err = uc.Split.Open(c.Request.Context(), aoi, geometry.SimParams{
		Mode:        geometry.SplitMode(req.Mode),
		TargetCount: req.TargetCount,
		MaxAreaHa:   req.MaxAreaHa,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, uc.Split.Session())
}

func (uc *UserController) ReSimulate(c *gin.Context) {
	var req ResimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	err := uc.Split.Resimulate(c.Request.Context(), geometry.SimParams{
		Mode:        geometry.SplitMode(req.Mode),
		TargetCount: req.TargetCount,
		MaxAreaHa:   req.MaxAreaHa,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, uc.Split.Session())
}

func (uc *UserController) MergePreviews(c *gin.Context) {
	var req MergePreviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	combined, err := uc.Split.MergePreviews(req.PreviewIDs)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"combined": combined, "session": uc.Split.Session()})
}

func (uc *UserController) EditPreview(c *gin.Context) {
	var req EditPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	cmds, err := uc.Split.EditPreview(req.PreviewID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": cmds})
}

func (uc *UserController) DragPreviewVertex(c *gin.Context) {
	var req DragPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	areaHa, err := uc.Split.DragPreviewVertex(req.PreviewID, req.PolyIndex, req.RingIndex, req.VertexIdx, req.Lon, req.Lat)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area_ha": areaHa})
}

// ApplySplit persists the preview set. Warnings never block the apply;
// a backend rejection keeps the previews so the user can retry.
func (uc *UserController) ApplySplit(c *gin.Context) {
	var req ApplySplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	if err := uc.Split.Apply(c.Request.Context(), req.EnqueueJobs); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

func (uc *UserController) CancelSplit(c *gin.Context) {
	uc.Split.Cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (uc *UserController) ShowSession(c *gin.Context) {
	c.JSON(http.StatusOK, uc.Split.Session())
}

// MergeAOIs merges existing AOIs into one new AOI and deletes the
// sources. Over-limit merges are rejected locally before any backend
// call is made.
func (uc *UserController) MergeAOIs(c *gin.Context) {
	var req MergeAOIsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	sources := make([]*models.AreaOfInterest, 0, len(req.AOIIDs))
	for _, id := range req.AOIIDs {
		aoi, err := uc.BE.GetAOI(c.Request.Context(), id)
		if err != nil {
			writeErr(c, err)
			return
		}
		sources = append(sources, aoi)
	}
	created, err := uc.Split.MergeAOIs(c.Request.Context(), req.Name, req.UseType, sources)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}
