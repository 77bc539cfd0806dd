// Package backend defines the persistence collaborator contract the
// engine calls for authoritative split/merge/persist operations, plus two
// implementations: an HTTP client for a remote backend and a gorm-backed
// local store so the server runs self-contained.
package backend

import (
	"context"

	"github.com/agrovista/fieldmap/models"
)

type SimPolygon struct {
	GeometryWire string  `json:"geometry_wire"`
	AreaHa       float64 `json:"area_ha"`
}

type SimulateReply struct {
	Polygons []SimPolygon `json:"polygons"`
	Warnings []string     `json:"warnings"`
}

type ApplyPolygon struct {
	GeometryWire string `json:"geometry_wire"`
	Name         string `json:"name"`
}

type AOIStatus struct {
	AOIID           uint   `json:"aoi_id"`
	Status          string `json:"status"`
	LatestJobStatus string `json:"latest_job_status"`
}

type Client interface {
	SimulateSplit(ctx context.Context, geometryWire, mode string, targetCount int, maxAreaHa float64) (*SimulateReply, error)
	ApplySplit(ctx context.Context, parentAOIID uint, polygons []ApplyPolygon, enqueueJobs bool, maxAreaHa float64) error
	CreateAOI(ctx context.Context, farmID uint, name, useType, geometryWire string) (*models.AreaOfInterest, error)
	DeleteAOI(ctx context.Context, aoiID uint) error
	UpdateAOI(ctx context.Context, aoiID uint, geometryWire string) error
	GetAOI(ctx context.Context, aoiID uint) (*models.AreaOfInterest, error)
	ListAOIs(ctx context.Context, farmID uint) ([]models.AreaOfInterest, error)
	ListStatus(ctx context.Context, aoiIDs []uint) ([]AOIStatus, error)
	ListSignals(ctx context.Context, farmID uint) ([]models.SignalRecord, error)
}
