package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrovista/fieldmap/backend"
	"github.com/agrovista/fieldmap/models"
)

// StatusService holds the latest processing/signal snapshot pushed in by
// the poller and answers derived status queries. The service has no timer
// of its own; snapshots arrive from outside.
type StatusService struct {
	mu         sync.RWMutex
	processing map[uint]bool
	signals    []models.SignalRecord
	splitAOI   uint
	splitOpen  bool
}

func NewStatusService() *StatusService {
	return &StatusService{processing: map[uint]bool{}}
}

// SetSnapshot replaces the whole snapshot. An AOI counts as processing
// when the backend says so outright or when its latest job is still
// queued or running.
func (s *StatusService) SetSnapshot(statuses []backend.AOIStatus, signals []models.SignalRecord) {
	processing := make(map[uint]bool, len(statuses))
	for _, st := range statuses {
		if st.Status == "processing" || st.LatestJobStatus == "queued" || st.LatestJobStatus == "running" {
			processing[st.AOIID] = true
		}
	}

	s.mu.Lock()
	s.processing = processing
	s.signals = append(s.signals[:0], signals...)
	s.mu.Unlock()
}

// SetSplitTarget marks the AOI currently inside a split session; its
// derived status becomes split unless processing wins.
func (s *StatusService) SetSplitTarget(aoiID uint, active bool) {
	s.mu.Lock()
	if active {
		s.splitAOI = aoiID
		s.splitOpen = true
	} else if s.splitAOI == aoiID {
		s.splitOpen = false
		s.splitAOI = 0
	}
	s.mu.Unlock()
}

// StatusFor derives the visual status and badge for one AOI from the
// current snapshot.
func (s *StatusService) StatusFor(aoiID uint) (models.Status, models.Badge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, badge, hasBadge := models.DeriveStatus(aoiID, s.processing, s.signals)
	if status != models.StatusProcessing && s.splitOpen && s.splitAOI == aoiID {
		status = models.StatusSplit
	}
	return status, badge, hasBadge
}

// ProcessingSet returns a copy of the processing set.
func (s *StatusService) ProcessingSet() map[uint]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uint]bool, len(s.processing))
	for k, v := range s.processing {
		out[k] = v
	}
	return out
}

// StatusPoller is the repeating task that refreshes the snapshot from the
// backend on a fixed interval. It belongs to the caller: main starts it,
// the engine itself never owns a timer.
type StatusPoller struct {
	svc      *StatusService
	be       backend.Client
	farmID   uint
	interval time.Duration
	log      *zap.Logger
}

func NewStatusPoller(svc *StatusService, be backend.Client, farmID uint, interval time.Duration, log *zap.Logger) *StatusPoller {
	return &StatusPoller{svc: svc, be: be, farmID: farmID, interval: interval, log: log}
}

// Run polls until the context is cancelled. Poll failures are logged and
// the previous snapshot stays in place.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *StatusPoller) poll(ctx context.Context) {
	aois, err := p.be.ListAOIs(ctx, p.farmID)
	if err != nil {
		p.log.Warn("status poll: list aois", zap.Error(err))
		return
	}
	ids := make([]uint, len(aois))
	for i, aoi := range aois {
		ids[i] = aoi.ID
	}

	statuses, err := p.be.ListStatus(ctx, ids)
	if err != nil {
		p.log.Warn("status poll: list status", zap.Error(err))
		return
	}
	signals, err := p.be.ListSignals(ctx, p.farmID)
	if err != nil {
		p.log.Warn("status poll: list signals", zap.Error(err))
		return
	}
	p.svc.SetSnapshot(statuses, signals)
}
