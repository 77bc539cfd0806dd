package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrovista/fieldmap/backend"
	"github.com/agrovista/fieldmap/geometry"
	"github.com/agrovista/fieldmap/models"
)

var (
	ErrNoSession         = errors.New("services: no active split session")
	ErrBadPhase          = errors.New("services: operation not valid in the current session phase")
	ErrOperationInFlight = errors.New("services: operation already in flight")
	ErrStaleSession      = errors.New("services: session superseded, response discarded")
	ErrPreviewNotFound   = errors.New("services: preview not found")
)

type SplitPhase int

const (
	PhaseClosed SplitPhase = iota
	PhaseSimulating
	PhasePreviewReady
	PhaseApplying
)

func (p SplitPhase) String() string {
	switch p {
	case PhaseSimulating:
		return "simulating"
	case PhasePreviewReady:
		return "preview_ready"
	case PhaseApplying:
		return "applying"
	default:
		return "closed"
	}
}

// MergeIncompleteError reports the non-atomic tail of a merge: the new AOI
// exists but some consumed sources survived deletion. Not rolled back;
// the caller reconciles on the next list refresh.
type MergeIncompleteError struct {
	NewAOIID  uint
	Undeleted []uint
	Err       error
}

func (e *MergeIncompleteError) Error() string {
	return fmt.Sprintf("services: merge created aoi %d but cleanup incomplete, sources %v not deleted: %v",
		e.NewAOIID, e.Undeleted, e.Err)
}

func (e *MergeIncompleteError) Unwrap() error { return e.Err }

// AppliedEvent carries the AOI ids touched by a successful apply or merge
// so the caller can refresh lists and selection state.
type AppliedEvent struct {
	AffectedAOIIDs []uint
}

// SessionView is a point-in-time copy of the session for rendering.
type SessionView struct {
	Phase         string                  `json:"phase"`
	AOIID         uint                    `json:"aoi_id"`
	ParentAreaHa  float64                 `json:"parent_area_ha"`
	Previews      []models.PreviewPolygon `json:"previews"`
	Warnings      []string                `json:"warnings"`
	LastError     string                  `json:"last_error,omitempty"`
	Authoritative bool                    `json:"authoritative"`
}

// SplitOrchestrator owns the whole split/merge workflow: local previews,
// the single edit session, and the strictly sequenced backend calls.
// Stale responses are detected with a monotonically increasing session
// token compared after every suspend point.
type SplitOrchestrator struct {
	mu        sync.Mutex
	be        backend.Client
	edit      *EditManager
	log       *zap.Logger
	maxAreaHa float64

	phase         SplitPhase
	token         uint64
	aoiID         uint
	farmID        uint
	parentWire    string
	parentAreaHa  float64
	previews      []*models.PreviewPolygon
	warnings      []string
	lastErr       string
	authoritative bool
	editing       string
	nameSeq       int

	applyInFlight bool
	mergeInFlight bool

	// OnApplied fires after a successful apply or merge. OnSession fires
	// when a split session opens or closes for an AOI.
	OnApplied func(AppliedEvent)
	OnSession func(aoiID uint, active bool)
}

func NewSplitOrchestrator(be backend.Client, edit *EditManager, maxAreaHa float64, log *zap.Logger) *SplitOrchestrator {
	return &SplitOrchestrator{be: be, edit: edit, maxAreaHa: maxAreaHa, log: log}
}

// Open starts a split session for one AOI and runs the first simulation.
// Any previous session is invalidated first: a response still in flight
// for it will be discarded on arrival.
func (o *SplitOrchestrator) Open(ctx context.Context, aoi *models.AreaOfInterest, p geometry.SimParams) error {
	mp, err := geometry.DecodeOne(aoi.Geom)
	if err != nil {
		return err
	}

	o.mu.Lock()
	prev := o.aoiID
	prevActive := o.phase != PhaseClosed
	o.token++
	tok := o.token
	o.resetLocked()
	o.phase = PhaseSimulating
	o.aoiID = aoi.ID
	o.farmID = aoi.FarmID
	o.parentWire = aoi.Geom
	o.parentAreaHa = geometry.AreaHa(mp)
	cb := o.OnSession
	o.mu.Unlock()

	if cb != nil {
		if prevActive && prev != aoi.ID {
			cb(prev, false)
		}
		cb(aoi.ID, true)
	}
	return o.simulate(ctx, tok, p)
}

// Resimulate discards the current previews and re-runs the simulation
// with new parameters inside the same session.
func (o *SplitOrchestrator) Resimulate(ctx context.Context, p geometry.SimParams) error {
	o.mu.Lock()
	if o.phase == PhaseClosed {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.phase != PhasePreviewReady {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBadPhase, o.phase)
	}
	o.edit.Reset()
	o.editing = ""
	o.previews = nil
	o.warnings = nil
	o.lastErr = ""
	o.phase = PhaseSimulating
	tok := o.token
	o.mu.Unlock()

	return o.simulate(ctx, tok, p)
}

// simulate calls the authoritative backend endpoint, falling back to the
// local simulator on a transient failure. The lock is dropped across the
// call; the token decides afterwards whether the result still matters.
func (o *SplitOrchestrator) simulate(ctx context.Context, tok uint64, p geometry.SimParams) error {
	o.mu.Lock()
	wire := o.parentWire
	o.mu.Unlock()

	authoritative := true
	reply, err := o.be.SimulateSplit(ctx, wire, string(p.Mode), p.TargetCount, p.MaxAreaHa)
	if err != nil && backend.IsTransient(err) {
		o.log.Warn("simulate endpoint unavailable, building local preview", zap.Error(err))
		reply, err = localSimulate(wire, p)
		authoritative = false
	}

	o.mu.Lock()

	if o.token != tok {
		o.mu.Unlock()
		o.log.Info("discarding stale simulate response", zap.Uint64("token", tok))
		return ErrStaleSession
	}
	if err != nil {
		o.phase = PhaseClosed
		o.lastErr = err.Error()
		aoiID := o.aoiID
		cb := o.OnSession
		o.mu.Unlock()
		// The session opened with an OnSession(true); a failed simulate
		// closes it, so the close event must go out too or the split
		// status overlay sticks to a dead session.
		if cb != nil {
			cb(aoiID, false)
		}
		return err
	}
	defer o.mu.Unlock()

	o.previews = o.previews[:0]
	o.nameSeq = 0
	for _, poly := range reply.Polygons {
		o.nameSeq++
		o.previews = append(o.previews, &models.PreviewPolygon{
			ID:            models.NewPreviewID(),
			Name:          fmt.Sprintf("Talhão %02d", o.nameSeq),
			Geom:          poly.GeometryWire,
			AreaHa:        poly.AreaHa,
			Authoritative: authoritative,
		})
	}
	o.warnings = append([]string(nil), reply.Warnings...)
	o.authoritative = authoritative
	o.checkConservationLocked()
	o.phase = PhasePreviewReady
	return nil
}

// checkConservationLocked warns when the preview areas stop adding up to
// the parent area. Tolerance: 0.5% or 0.01 ha, whichever is larger.
func (o *SplitOrchestrator) checkConservationLocked() {
	var sum float64
	for _, pv := range o.previews {
		sum += pv.AreaHa
	}
	tol := math.Max(o.parentAreaHa*0.005, 0.01)
	if diff := math.Abs(sum - o.parentAreaHa); diff > tol {
		o.warnings = append(o.warnings,
			fmt.Sprintf("preview areas sum to %.2f ha, parent is %.2f ha", sum, o.parentAreaHa))
	}
}

// MergePreviews coalesces two or more previews into one, recomputing the
// combined area. The merged entries are removed in place.
func (o *SplitOrchestrator) MergePreviews(ids []string) (*models.PreviewPolygon, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhasePreviewReady {
		return nil, fmt.Errorf("%w: %s", ErrBadPhase, o.phase)
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("services: merging previews needs at least two, got %d", len(ids))
	}

	picked := make(map[string]bool, len(ids))
	for _, id := range ids {
		picked[id] = true
	}
	var geoms []orb.MultiPolygon
	insertAt := -1
	for i, pv := range o.previews {
		if !picked[pv.ID] {
			continue
		}
		delete(picked, pv.ID)
		mp, err := geometry.DecodeOne(pv.Geom)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", pv.ID, err)
		}
		geoms = append(geoms, mp)
		if insertAt < 0 {
			insertAt = i
		}
	}
	if len(picked) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrPreviewNotFound, keys(picked))
	}

	merged, err := geometry.Union(geoms)
	if err != nil {
		return nil, err
	}

	// An in-progress edit on one of the merged previews dies with it.
	if o.editing != "" && contains(ids, o.editing) {
		o.edit.Reset()
		o.editing = ""
	}

	o.nameSeq++
	combined := &models.PreviewPolygon{
		ID:            models.NewPreviewID(),
		Name:          fmt.Sprintf("Talhão %02d", o.nameSeq),
		Geom:          geometry.Encode(merged),
		AreaHa:        geometry.AreaHa(merged),
		Authoritative: o.authoritative,
	}

	kept := o.previews[:0]
	for i, pv := range o.previews {
		if i == insertAt {
			kept = append(kept, combined)
		}
		if !contains(ids, pv.ID) {
			kept = append(kept, pv)
		}
	}
	o.previews = kept
	return combined, nil
}

// EditPreview delegates to the edit manager, choosing this preview as the
// single editable target. Whatever preview was being edited before gets
// its flushed buffer written back first.
func (o *SplitOrchestrator) EditPreview(id string) ([]EditCommand, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhasePreviewReady {
		return nil, fmt.Errorf("%w: %s", ErrBadPhase, o.phase)
	}
	target := o.findPreviewLocked(id)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrPreviewNotFound, id)
	}

	cmds, flushed, err := o.edit.BeginPreview(id, target.Geom)
	o.applyFlushLocked(flushed)
	if err != nil {
		o.editing = ""
		return cmds, err
	}
	o.editing = id
	return cmds, nil
}

// DragPreviewVertex mutates the edited preview. The conservation warning
// is not re-checked here: a manual vertex edit may transiently break the
// sum until the next full re-simulation.
func (o *SplitOrchestrator) DragPreviewVertex(id string, polyIdx, ringIdx, vtxIdx int, lon, lat float64) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	wire, areaHa, err := o.edit.DragVertex(
		EditTarget{Kind: TargetPreview, ID: id}, polyIdx, ringIdx, vtxIdx, orb.Point{lon, lat})
	if err != nil {
		return 0, err
	}
	if pv := o.findPreviewLocked(id); pv != nil {
		pv.Geom = wire
		pv.AreaHa = areaHa
	}
	return areaHa, nil
}

// Apply sends the final preview set to the backend. On failure the
// previews survive so the user can retry without re-simulating; on
// success the whole session resets and OnApplied fires.
func (o *SplitOrchestrator) Apply(ctx context.Context, enqueueJobs bool) error {
	o.mu.Lock()
	if o.phase == PhaseClosed {
		o.mu.Unlock()
		return ErrNoSession
	}
	// The in-flight check comes first: while an apply is out the phase is
	// Applying, and a double submit must read as "already running", not as
	// a phase violation.
	if o.applyInFlight {
		o.mu.Unlock()
		return ErrOperationInFlight
	}
	if o.phase != PhasePreviewReady {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBadPhase, o.phase)
	}
	if o.editing != "" {
		if flushed, _, err := o.edit.Save(); err == nil {
			o.applyFlushLocked(&flushed)
		}
		o.editing = ""
	}

	polys := make([]backend.ApplyPolygon, len(o.previews))
	for i, pv := range o.previews {
		polys[i] = backend.ApplyPolygon{GeometryWire: pv.Geom, Name: pv.Name}
	}
	aoiID := o.aoiID
	tok := o.token
	o.applyInFlight = true
	o.phase = PhaseApplying
	o.mu.Unlock()

	err := o.be.ApplySplit(ctx, aoiID, polys, enqueueJobs, o.maxAreaHa)

	o.mu.Lock()
	o.applyInFlight = false
	if o.token != tok {
		o.mu.Unlock()
		o.log.Info("discarding stale apply response", zap.Uint64("token", tok))
		return ErrStaleSession
	}
	if err != nil {
		o.phase = PhasePreviewReady
		o.lastErr = err.Error()
		o.mu.Unlock()
		return err
	}

	o.token++
	o.resetLocked()
	o.phase = PhaseClosed
	applied := o.OnApplied
	session := o.OnSession
	o.mu.Unlock()

	o.log.Info("split applied", zap.Uint("aoi", aoiID), zap.Int("polygons", len(polys)))
	if session != nil {
		session(aoiID, false)
	}
	if applied != nil {
		applied(AppliedEvent{AffectedAOIIDs: []uint{aoiID}})
	}
	return nil
}

// Cancel tears the session down. In-flight responses for it will be
// discarded when they arrive.
func (o *SplitOrchestrator) Cancel() {
	o.mu.Lock()
	aoiID := o.aoiID
	active := o.phase != PhaseClosed
	o.token++
	o.resetLocked()
	o.phase = PhaseClosed
	cb := o.OnSession
	o.mu.Unlock()

	if active && cb != nil {
		cb(aoiID, false)
	}
}

// Session returns a copy of the current session for rendering.
func (o *SplitOrchestrator) Session() SessionView {
	o.mu.Lock()
	defer o.mu.Unlock()

	view := SessionView{
		Phase:         o.phase.String(),
		AOIID:         o.aoiID,
		ParentAreaHa:  o.parentAreaHa,
		Warnings:      append([]string(nil), o.warnings...),
		LastError:     o.lastErr,
		Authoritative: o.authoritative,
	}
	for _, pv := range o.previews {
		view.Previews = append(view.Previews, *pv)
	}
	return view
}

// MergeAOIs is the out-of-session merge saga: union the sources, check
// the area budget locally (no network call when over limit), create the
// combined AOI, then best-effort delete the consumed sources. A failed
// deletion is reported distinctly, never rolled back.
func (o *SplitOrchestrator) MergeAOIs(ctx context.Context, name, useType string, sources []*models.AreaOfInterest) (*models.AreaOfInterest, error) {
	o.mu.Lock()
	if o.mergeInFlight {
		o.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	o.mergeInFlight = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.mergeInFlight = false
		o.mu.Unlock()
	}()

	if len(sources) < 2 {
		return nil, fmt.Errorf("services: merge needs at least two AOIs, got %d", len(sources))
	}

	geoms := make([]orb.MultiPolygon, 0, len(sources))
	var bad []string
	for _, aoi := range sources {
		mp, err := geometry.DecodeOne(aoi.Geom)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s (id %d): %v", aoi.Name, aoi.ID, err))
			continue
		}
		geoms = append(geoms, mp)
	}
	if len(bad) > 0 {
		return nil, &backend.ValidationError{Op: "MergeAOIs", Msg: "invalid geometry", Items: bad}
	}

	merged, err := geometry.Union(geoms)
	if err != nil {
		return nil, err
	}
	totalHa := geometry.AreaHa(merged)
	if geometry.ClassifyArea(totalHa, o.maxAreaHa) == geometry.AreaOverLimit {
		return nil, &backend.ValidationError{
			Op:  "MergeAOIs",
			Msg: "merged area over limit",
			Items: []string{
				fmt.Sprintf("combined area %.1f ha exceeds %.1f ha", totalHa, o.maxAreaHa),
			},
		}
	}

	if useType == "" {
		useType = sources[0].UseType
	}
	created, err := o.be.CreateAOI(ctx, sources[0].FarmID, name, useType, geometry.Encode(merged))
	if err != nil {
		return nil, err
	}

	// Phase two: delete the consumed sources. Different entities, so the
	// deletions may run concurrently.
	var delMu sync.Mutex
	var undeleted []uint
	var firstErr error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, aoi := range sources {
		aoi := aoi
		g.Go(func() error {
			if err := o.be.DeleteAOI(gctx, aoi.ID); err != nil {
				delMu.Lock()
				undeleted = append(undeleted, aoi.ID)
				if firstErr == nil {
					firstErr = err
				}
				delMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	affected := []uint{created.ID}
	for _, aoi := range sources {
		affected = append(affected, aoi.ID)
	}
	if applied := o.OnApplied; applied != nil {
		applied(AppliedEvent{AffectedAOIIDs: affected})
	}

	if len(undeleted) > 0 {
		sort.Slice(undeleted, func(i, j int) bool { return undeleted[i] < undeleted[j] })
		o.log.Error("merge cleanup incomplete",
			zap.Uint("new_aoi", created.ID), zap.Uints("undeleted", undeleted))
		return created, &MergeIncompleteError{NewAOIID: created.ID, Undeleted: undeleted, Err: firstErr}
	}
	o.log.Info("merge complete", zap.Uint("new_aoi", created.ID), zap.Int("sources", len(sources)))
	return created, nil
}

func (o *SplitOrchestrator) resetLocked() {
	o.edit.Reset()
	o.editing = ""
	o.aoiID = 0
	o.farmID = 0
	o.parentWire = ""
	o.parentAreaHa = 0
	o.previews = nil
	o.warnings = nil
	o.lastErr = ""
	o.authoritative = false
	o.nameSeq = 0
	o.phase = PhaseClosed
}

func (o *SplitOrchestrator) findPreviewLocked(id string) *models.PreviewPolygon {
	for _, pv := range o.previews {
		if pv.ID == id {
			return pv
		}
	}
	return nil
}

func (o *SplitOrchestrator) applyFlushLocked(flushed *FlushedEdit) {
	if flushed == nil || flushed.Target.Kind != TargetPreview {
		return
	}
	if pv := o.findPreviewLocked(flushed.Target.ID); pv != nil {
		pv.Geom = flushed.Wire
		pv.AreaHa = flushed.AreaHa
	}
}

// localSimulate is the client-side fallback used when the authoritative
// simulate endpoint is unreachable.
func localSimulate(wire string, p geometry.SimParams) (*backend.SimulateReply, error) {
	mp, err := geometry.DecodeOne(wire)
	if err != nil {
		return nil, err
	}
	res, err := geometry.Simulate(mp, p)
	if err != nil {
		return nil, err
	}
	reply := &backend.SimulateReply{Warnings: res.Warnings}
	for _, piece := range res.Pieces {
		reply.Polygons = append(reply.Polygons, backend.SimPolygon{
			GeometryWire: geometry.Encode(piece.Geometry),
			AreaHa:       piece.AreaHa,
		})
	}
	return reply, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
