package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/models"
)

// Local is the gorm-backed collaborator used when no remote backend is
// configured. Simulation delegates to the geometry package, so a local
// deployment is authoritative for its own data.
type Local struct {
	db        *gorm.DB
	maxAreaHa float64
	log       *zap.Logger
}

func NewLocal(db *gorm.DB, maxAreaHa float64, log *zap.Logger) *Local {
	return &Local{db: db, maxAreaHa: maxAreaHa, log: log}
}

func (l *Local) SimulateSplit(ctx context.Context, geometryWire, mode string, targetCount int, maxAreaHa float64) (*SimulateReply, error) {
	mp, err := geometry.DecodeOne(geometryWire)
	if err != nil {
		return nil, &ValidationError{Op: "SimulateSplit", Msg: err.Error()}
	}
	res, err := geometry.Simulate(mp, geometry.SimParams{
		Mode:        geometry.SplitMode(mode),
		TargetCount: targetCount,
		MaxAreaHa:   maxAreaHa,
	})
	if err != nil {
		return nil, err
	}
	reply := &SimulateReply{Warnings: res.Warnings}
	for _, piece := range res.Pieces {
		reply.Polygons = append(reply.Polygons, SimPolygon{
			GeometryWire: geometry.Encode(piece.Geometry),
			AreaHa:       piece.AreaHa,
		})
	}
	return reply, nil
}

// ApplySplit replaces the parent AOI with the given polygons in one
// transaction. maxAreaHa is advisory here: over-limit pieces were already
// flagged as warnings at simulate time and are allowed through, only
// malformed geometry is rejected.
func (l *Local) ApplySplit(ctx context.Context, parentAOIID uint, polygons []ApplyPolygon, enqueueJobs bool, maxAreaHa float64) error {
	if len(polygons) == 0 {
		return &ValidationError{Op: "ApplySplit", Msg: "no polygons to apply"}
	}

	type child struct {
		name   string
		wire   string
		areaHa float64
	}
	children := make([]child, 0, len(polygons))
	var bad []string
	for i, p := range polygons {
		mp, err := geometry.DecodeOne(p.GeometryWire)
		if err != nil {
			bad = append(bad, fmt.Sprintf("polygon %d (%s): %v", i+1, p.Name, err))
			continue
		}
		children = append(children, child{name: p.Name, wire: geometry.Encode(mp), areaHa: geometry.AreaHa(mp)})
	}
	if len(bad) > 0 {
		return &ValidationError{Op: "ApplySplit", Msg: "malformed geometry", Items: bad}
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.AreaOfInterest
		if err := tx.First(&parent, parentAOIID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Op: "ApplySplit", Msg: fmt.Sprintf("parent aoi %d not found", parentAOIID)}
			}
			return err
		}
		for _, c := range children {
			row := models.AreaOfInterest{
				FarmID:     parent.FarmID,
				Name:       c.name,
				UseType:    parent.UseType,
				Geom:       c.wire,
				AreaHa:     c.areaHa,
				Processing: enqueueJobs,
				CreatedBy:  parent.CreatedBy,
				CreatedAt:  now(),
			}
			if enqueueJobs {
				row.LatestJobStatus = "queued"
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.AreaOfInterest{}, parentAOIID).Error; err != nil {
			return err
		}
		l.log.Info("split applied",
			zap.Uint("parent", parentAOIID),
			zap.Int("children", len(children)),
			zap.Bool("jobs", enqueueJobs))
		return nil
	})
}

func (l *Local) CreateAOI(ctx context.Context, farmID uint, name, useType, geometryWire string) (*models.AreaOfInterest, error) {
	mp, err := geometry.DecodeOne(geometryWire)
	if err != nil {
		return nil, &ValidationError{Op: "CreateAOI", Msg: err.Error()}
	}
	areaHa := geometry.AreaHa(mp)
	if geometry.ClassifyArea(areaHa, l.maxAreaHa) == geometry.AreaOverLimit {
		return nil, &ValidationError{
			Op:    "CreateAOI",
			Msg:   "area over limit",
			Items: []string{fmt.Sprintf("%s: %.1f ha exceeds %.1f ha", name, areaHa, l.maxAreaHa)},
		}
	}
	row := models.AreaOfInterest{
		FarmID:    farmID,
		Name:      name,
		UseType:   useType,
		Geom:      geometry.Encode(mp),
		AreaHa:    areaHa,
		CreatedAt: now(),
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (l *Local) DeleteAOI(ctx context.Context, aoiID uint) error {
	res := l.db.WithContext(ctx).Delete(&models.AreaOfInterest{}, aoiID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &ValidationError{Op: "DeleteAOI", Msg: fmt.Sprintf("aoi %d not found", aoiID)}
	}
	return nil
}

// UpdateAOI swaps the geometry and recomputes the stored area in the same
// write, so a stale area is never visible after the update commits.
func (l *Local) UpdateAOI(ctx context.Context, aoiID uint, geometryWire string) error {
	mp, err := geometry.DecodeOne(geometryWire)
	if err != nil {
		return &ValidationError{Op: "UpdateAOI", Msg: err.Error()}
	}
	res := l.db.WithContext(ctx).Model(&models.AreaOfInterest{}).Where("id = ?", aoiID).Updates(map[string]interface{}{
		"geom":    geometry.Encode(mp),
		"area_ha": geometry.AreaHa(mp),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &ValidationError{Op: "UpdateAOI", Msg: fmt.Sprintf("aoi %d not found", aoiID)}
	}
	return nil
}

func (l *Local) GetAOI(ctx context.Context, aoiID uint) (*models.AreaOfInterest, error) {
	var row models.AreaOfInterest
	if err := l.db.WithContext(ctx).First(&row, aoiID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Op: "GetAOI", Msg: fmt.Sprintf("aoi %d not found", aoiID)}
		}
		return nil, err
	}
	return &row, nil
}

func (l *Local) ListAOIs(ctx context.Context, farmID uint) ([]models.AreaOfInterest, error) {
	var rows []models.AreaOfInterest
	q := l.db.WithContext(ctx).Order("id")
	if farmID > 0 {
		q = q.Where("farm_id = ?", farmID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (l *Local) ListStatus(ctx context.Context, aoiIDs []uint) ([]AOIStatus, error) {
	var rows []models.AreaOfInterest
	q := l.db.WithContext(ctx)
	if len(aoiIDs) > 0 {
		q = q.Where("id IN ?", aoiIDs)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]AOIStatus, 0, len(rows))
	for _, row := range rows {
		st := "normal"
		if row.Processing {
			st = "processing"
		}
		out = append(out, AOIStatus{AOIID: row.ID, Status: st, LatestJobStatus: row.LatestJobStatus})
	}
	return out, nil
}

func (l *Local) ListSignals(ctx context.Context, farmID uint) ([]models.SignalRecord, error) {
	var rows []models.SignalRecord
	q := l.db.WithContext(ctx).Order("detected_at desc")
	if farmID > 0 {
		q = q.Joins("JOIN areas_of_interest ON areas_of_interest.id = signal_records.aoi_id").
			Where("areas_of_interest.farm_id = ?", farmID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
