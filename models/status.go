package models

// Status is the derived visual state of an AOI or preview. Closed set;
// keep the switch in DeriveStatus exhaustive when adding members.
type Status string

const (
	StatusNormal     Status = "normal"
	StatusProcessing Status = "processing"
	StatusWarning    Status = "warning"
	StatusAlert      Status = "alert"
	StatusSplit      Status = "split"
)

type Badge string

const (
	BadgeWaterStress Badge = "water_stress"
	BadgeDiseaseRisk Badge = "disease_risk"
	BadgeYieldRisk   Badge = "yield_risk"
	BadgeGeneral     Badge = "general"
)

// DeriveStatus computes the discrete status for one AOI. Processing takes
// precedence over anything signal-derived. The badge comes from the
// highest-severity signal, ties broken by the most recent DetectedAt;
// hasBadge is false when the AOI has no signals at all.
func DeriveStatus(aoiID uint, processing map[uint]bool, signals []SignalRecord) (status Status, badge Badge, hasBadge bool) {
	var top *SignalRecord
	maxRank := 0
	for i := range signals {
		sig := &signals[i]
		if sig.AOIID != aoiID {
			continue
		}
		rank := severityRank(sig.Severity)
		if rank > maxRank {
			maxRank = rank
			top = sig
		} else if top != nil && rank == maxRank && sig.DetectedAt.After(top.DetectedAt) {
			top = sig
		}
	}

	switch {
	case processing[aoiID]:
		status = StatusProcessing
	case maxRank >= severityRank(SeverityHigh):
		status = StatusAlert
	case maxRank >= severityRank(SeverityMedium):
		status = StatusWarning
	default:
		status = StatusNormal
	}

	if top == nil {
		return status, "", false
	}
	switch top.SignalType {
	case SignalCropStress:
		badge = BadgeWaterStress
	case SignalPestOutbreak:
		badge = BadgeDiseaseRisk
	case SignalPastureForageRisk:
		badge = BadgeYieldRisk
	default:
		badge = BadgeGeneral
	}
	return status, badge, true
}
