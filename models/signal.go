package models

import "time"

// Signal types emitted by the alerting collaborator.
const (
	SignalCropStress        = "crop_stress"
	SignalPestOutbreak      = "pest_outbreak"
	SignalPastureForageRisk = "pasture_forage_risk"
	SignalOther             = "other"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SignalRecord is an externally detected anomaly tied to an AOI. The
// engine only reads these; the alerting collaborator owns them.
type SignalRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AOIID      uint      `gorm:"index" json:"aoi_id"`
	SignalType string    `gorm:"type:varchar(50)" json:"signal_type"`
	Severity   string    `gorm:"type:varchar(20)" json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

func (SignalRecord) TableName() string {
	return "signal_records"
}

func severityRank(s string) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}
