package models

// Use types an AOI can carry.
const (
	UsePasture = "pasture"
	UseCrop    = "crop"
	UseTimber  = "timber"
)

func ValidUseType(s string) bool {
	switch s {
	case UsePasture, UseCrop, UseTimber:
		return true
	}
	return false
}

// AreaOfInterest is a monitored farm sub-region. Geom holds the
// MULTIPOLYGON wire text; AreaHa is recomputed from Geom on every
// geometry mutation before the row becomes visible again.
type AreaOfInterest struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	FarmID          uint    `gorm:"index" json:"farm_id"`
	Name            string  `gorm:"type:varchar(255)" json:"name"`
	UseType         string  `gorm:"type:varchar(50)" json:"use_type"`
	Geom            string  `gorm:"type:text" json:"geometry_wire"`
	AreaHa          float64 `json:"area_ha"`
	Processing      bool    `gorm:"default:false" json:"processing"`
	LatestJobStatus string  `gorm:"type:varchar(50)" json:"latest_job_status"`
	CreatedBy       string  `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt       string  `gorm:"type:varchar(255)" json:"created_at"`
}

func (AreaOfInterest) TableName() string {
	return "areas_of_interest"
}
