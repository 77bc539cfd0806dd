package views

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/models"
	"github.com/agrovista/fieldmap/services"
)

type AddAOIRequest struct {
	FarmID       uint   `json:"farm_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	UseType      string `json:"use_type" binding:"required"`
	GeometryWire string `json:"geometry_wire" binding:"required"`
}

type AreaRequest struct {
	GeometryWire string  `json:"geometry_wire" binding:"required"`
	MaxAreaHa    float64 `json:"max_area_ha"`
}

type ConvertGeometryRequest struct {
	GeometryWire string            `json:"geometry_wire"`
	GeoJSON      *geojson.Geometry `json:"geojson"`
}

type UpdateAOIGeoRequest struct {
	AOIID        uint   `json:"aoi_id" binding:"required"`
	GeometryWire string `json:"geometry_wire" binding:"required"`
}

type StartEditRequest struct {
	AOIID uint `json:"aoi_id" binding:"required"`
}

type DragVertexRequest struct {
	TargetKind string  `json:"target_kind" binding:"required"`
	TargetID   string  `json:"target_id" binding:"required"`
	PolyIndex  int     `json:"poly_index"`
	RingIndex  int     `json:"ring_index"`
	VertexIdx  int     `json:"vertex_index"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
}

func (uc *UserController) AddAOI(c *gin.Context) {
	var req AddAOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	if !models.ValidUseType(req.UseType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use_type must be pasture, crop or timber"})
		return
	}
	aoi, err := uc.BE.CreateAOI(c.Request.Context(), req.FarmID, req.Name, req.UseType, req.GeometryWire)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, aoi)
}

func (uc *UserController) ShowAOIs(c *gin.Context) {
	farmID, _ := strconv.ParseUint(c.Query("farm_id"), 10, 64)
	aois, err := uc.BE.ListAOIs(c.Request.Context(), uint(farmID))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, aois)
}

func (uc *UserController) DelAOI(c *gin.Context) {
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

func (uc *UserController) UpdateAOIGeo(c *gin.Context) {
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

// Area computes the hectare area of an ad-hoc wire geometry and
// classifies it against an optional maximum.
func (uc *UserController) Area(c *gin.Context) {
	var req AreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	mp, err := geometry.DecodeOne(req.GeometryWire)
	if err != nil {
		writeErr(c, err)
		return
	}
	areaHa := geometry.AreaHa(mp)
	c.JSON(http.StatusOK, gin.H{
		"area_ha":    areaHa,
		"over_limit": geometry.ClassifyArea(areaHa, req.MaxAreaHa) == geometry.AreaOverLimit,
	})
}

// ConvertGeometry translates between the wire form and GeoJSON. Exactly
// one of the two fields must be set; the reply carries both forms plus
// the hectare area.
func (uc *UserController) ConvertGeometry(c *gin.Context) {
	var req ConvertGeometryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	var mp orb.MultiPolygon
	var err error
	switch {
	case req.GeometryWire != "" && req.GeoJSON == nil:
		mp, err = geometry.DecodeOne(req.GeometryWire)
	case req.GeometryWire == "" && req.GeoJSON != nil:
		mp, err = geometry.FromGeoJSON(req.GeoJSON)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "send exactly one of geometry_wire or geojson"})
		return
	}
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"geometry_wire": geometry.Encode(mp),
		"geojson":       geometry.ToGeoJSON(mp),
		"area_ha":       geometry.AreaHa(mp),
	})
}

// StartEditGeo opens the single AOI edit session. A busy session answers
// with the currently active target instead of stealing it.
func (uc *UserController) StartEditGeo(c *gin.Context) {
	var req StartEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	aoi, err := uc.BE.GetAOI(c.Request.Context(), req.AOIID)
	if err != nil {
		writeErr(c, err)
		return
	}
	cmds, _, ok, err := uc.Edit.BeginAOI(strconv.FormatUint(uint64(req.AOIID), 10), aoi.Geom)
	if err != nil {
		writeErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"started": false, "active": uc.Edit.Active()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": true, "commands": cmds})
}

func (uc *UserController) DragVertex(c *gin.Context) {
	var req DragVertexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request: " + err.Error()})
		return
	}
	var kind services.EditTargetKind
	switch req.TargetKind {
	case "aoi":
		kind = services.TargetAOI
	case "preview":
		kind = services.TargetPreview
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_kind must be aoi or preview"})
		return
	}
	_, areaHa, err := uc.Edit.DragVertex(
		services.EditTarget{Kind: kind, ID: req.TargetID},
		req.PolyIndex, req.RingIndex, req.VertexIdx, orb.Point{req.Lon, req.Lat})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area_ha": areaHa})
}

// SaveEditGeo commits the active AOI edit session and persists the new
// geometry; the stored area is recomputed in the same operation.
func (uc *UserController) SaveEditGeo(c *gin.Context) {
	target := uc.Edit.Active()
	if target.Kind != services.TargetAOI {
		c.JSON(http.StatusConflict, gin.H{"error": "no AOI edit session active"})
		return
	}
	flushed, cmds, err := uc.Edit.Save()
	if err != nil {
		writeErr(c, err)
		return
	}
	id, _ := strconv.ParseUint(flushed.Target.ID, 10, 64)
	if err := uc.BE.UpdateAOI(c.Request.Context(), uint(id), flushed.Wire); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area_ha": flushed.AreaHa, "commands": cmds})
}

// CancelEditGeo discards the active AOI edit session. Preview edits
// belong to the split session and are only closed through it.
func (uc *UserController) CancelEditGeo(c *gin.Context) {
	if uc.Edit.Active().Kind != services.TargetAOI {
		c.JSON(http.StatusConflict, gin.H{"error": "no AOI edit session active"})
		return
	}
	flushed, cmds, err := uc.Edit.Cancel()
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored_area_ha": flushed.AreaHa, "commands": cmds})
}
