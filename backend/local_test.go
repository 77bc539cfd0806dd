package backend

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/models"
)

func newTestLocal(t *testing.T, maxAreaHa float64) (*Local, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.AreaOfInterest{}, &models.SignalRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLocal(db, maxAreaHa, zap.NewNop()), db
}

func squareWire(lon, lat, areaHa float64) string {
	side := math.Sqrt(areaHa * 10000)
	dLat := side / 2 / 111320
	dLon := side / 2 / (111320 * math.Cos(lat*math.Pi/180))
	return geometry.Encode(orb.MultiPolygon{{{
		{lon - dLon, lat - dLat},
		{lon + dLon, lat - dLat},
		{lon + dLon, lat + dLat},
		{lon - dLon, lat + dLat},
		{lon - dLon, lat - dLat},
	}}})
}

func seedAOI(t *testing.T, db *gorm.DB, farmID uint, name string, areaHa float64) *models.AreaOfInterest {
	t.Helper()
	wire := squareWire(-47.9, -15.8, areaHa)
	row := models.AreaOfInterest{
		FarmID:    farmID,
		Name:      name,
		UseType:   models.UseCrop,
		Geom:      wire,
		AreaHa:    areaHa,
		CreatedBy: "tester",
		CreatedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed aoi: %v", err)
	}
	return &row
}

func TestLocalSimulateSplitDelegates(t *testing.T) {
	l, _ := newTestLocal(t, 1000)
	reply, err := l.SimulateSplit(context.Background(), squareWire(-47.9, -15.8, 120), "grid", 4, 0)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(reply.Polygons) != 4 {
		t.Fatalf("expected 4 polygons, got %d", len(reply.Polygons))
	}
	var sum float64
	for _, p := range reply.Polygons {
		sum += p.AreaHa
	}
	if math.Abs(sum-120) > 1 {
		t.Fatalf("pieces sum to %.2f ha", sum)
	}

	var ve *ValidationError
	if _, err := l.SimulateSplit(context.Background(), "not a polygon", "grid", 4, 0); !errors.As(err, &ve) {
		t.Fatalf("malformed wire must be a validation error, got %v", err)
	}
}

func TestLocalApplySplitReplacesParent(t *testing.T) {
	l, db := newTestLocal(t, 1000)
	parent := seedAOI(t, db, 1, "Sede", 120)

	polys := []ApplyPolygon{
		{Name: "Talhão 01", GeometryWire: squareWire(-47.91, -15.8, 60)},
		{Name: "Talhão 02", GeometryWire: squareWire(-47.89, -15.8, 60)},
	}
	if err := l.ApplySplit(context.Background(), parent.ID, polys, true, 1000); err != nil {
		t.Fatalf("apply split: %v", err)
	}

	if _, err := l.GetAOI(context.Background(), parent.ID); err == nil {
		t.Fatal("parent must be deleted")
	}
	rows, err := l.ListAOIs(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 children, got %d", len(rows))
	}
	for _, row := range rows {
		if row.FarmID != parent.FarmID || row.UseType != parent.UseType {
			t.Errorf("child %s did not inherit farm/use type: %+v", row.Name, row)
		}
		if !row.Processing || row.LatestJobStatus != "queued" {
			t.Errorf("child %s not queued for processing: %+v", row.Name, row)
		}
		if math.Abs(row.AreaHa-60) > 0.5 {
			t.Errorf("child %s area %.2f, want ~60", row.Name, row.AreaHa)
		}
	}
}

func TestLocalApplySplitValidation(t *testing.T) {
	l, db := newTestLocal(t, 1000)
	parent := seedAOI(t, db, 1, "Sede", 120)

	var ve *ValidationError
	err := l.ApplySplit(context.Background(), parent.ID, []ApplyPolygon{
		{Name: "ok", GeometryWire: squareWire(-47.9, -15.8, 60)},
		{Name: "broken", GeometryWire: "MULTIPOLYGON(((garbage)))"},
	}, false, 1000)
	if !errors.As(err, &ve) || len(ve.Items) != 1 {
		t.Fatalf("expected one itemized failure, got %v", err)
	}
	if !strings.Contains(ve.Items[0], "broken") {
		t.Fatalf("item must name the offending polygon: %v", ve.Items)
	}
	// Parent untouched after the rejected apply.
	if _, err := l.GetAOI(context.Background(), parent.ID); err != nil {
		t.Fatalf("parent must survive a rejected apply: %v", err)
	}

	err = l.ApplySplit(context.Background(), 9999, []ApplyPolygon{
		{Name: "ok", GeometryWire: squareWire(-47.9, -15.8, 60)},
	}, false, 1000)
	if !errors.As(err, &ve) {
		t.Fatalf("missing parent must be a validation error, got %v", err)
	}
}

func TestLocalCreateAOIEnforcesMaxArea(t *testing.T) {
	l, _ := newTestLocal(t, 100)

	var ve *ValidationError
	if _, err := l.CreateAOI(context.Background(), 1, "big", models.UseCrop, squareWire(-47.9, -15.8, 150)); !errors.As(err, &ve) {
		t.Fatalf("over-limit create must fail, got %v", err)
	}

	created, err := l.CreateAOI(context.Background(), 1, "ok", models.UseCrop, squareWire(-47.9, -15.8, 80))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created AOI has no id")
	}
	if math.Abs(created.AreaHa-80) > 0.5 {
		t.Fatalf("stored area %.2f, want ~80", created.AreaHa)
	}
	if !strings.HasPrefix(created.Geom, "MULTIPOLYGON(((") {
		t.Fatalf("stored geometry not normalized: %s", created.Geom)
	}
}

func TestLocalUpdateAOIRecomputesArea(t *testing.T) {
	l, db := newTestLocal(t, 1000)
	aoi := seedAOI(t, db, 1, "Sede", 100)

	if err := l.UpdateAOI(context.Background(), aoi.ID, squareWire(-47.9, -15.8, 200)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := l.GetAOI(context.Background(), aoi.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if math.Abs(got.AreaHa-200) > 1 {
		t.Fatalf("area not recomputed: %.2f", got.AreaHa)
	}

	var ve *ValidationError
	if err := l.UpdateAOI(context.Background(), 9999, squareWire(-47.9, -15.8, 10)); !errors.As(err, &ve) {
		t.Fatalf("missing aoi must be a validation error, got %v", err)
	}
}

func TestLocalDeleteAOI(t *testing.T) {
	l, db := newTestLocal(t, 1000)
	aoi := seedAOI(t, db, 1, "Sede", 100)

	if err := l.DeleteAOI(context.Background(), aoi.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var ve *ValidationError
	if err := l.DeleteAOI(context.Background(), aoi.ID); !errors.As(err, &ve) {
		t.Fatalf("double delete must report not found, got %v", err)
	}
}

func TestLocalListStatusAndSignals(t *testing.T) {
	l, db := newTestLocal(t, 1000)
	busy := seedAOI(t, db, 1, "A", 100)
	idle := seedAOI(t, db, 1, "B", 100)
	other := seedAOI(t, db, 2, "C", 100)

	if err := db.Model(busy).Updates(map[string]interface{}{
		"processing":        true,
		"latest_job_status": "running",
	}).Error; err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	for _, rec := range []models.SignalRecord{
		{AOIID: idle.ID, SignalType: models.SignalCropStress, Severity: models.SeverityHigh, DetectedAt: time.Now()},
		{AOIID: other.ID, SignalType: models.SignalOther, Severity: models.SeverityLow, DetectedAt: time.Now()},
	} {
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed signal: %v", err)
		}
	}

	statuses, err := l.ListStatus(context.Background(), []uint{busy.ID, idle.ID})
	if err != nil {
		t.Fatalf("list status: %v", err)
	}
	byID := map[uint]AOIStatus{}
	for _, st := range statuses {
		byID[st.AOIID] = st
	}
	if st := byID[busy.ID]; st.Status != "processing" || st.LatestJobStatus != "running" {
		t.Errorf("busy AOI status: %+v", st)
	}
	if st := byID[idle.ID]; st.Status != "normal" {
		t.Errorf("idle AOI status: %+v", st)
	}

	// Signals are scoped to the requested farm.
	signals, err := l.ListSignals(context.Background(), 1)
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	if len(signals) != 1 || signals[0].AOIID != idle.ID {
		t.Fatalf("farm 1 signals: %+v", signals)
	}
}
