package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/agrovista/fieldmap/geometry"
)

// ErrNotEditing rejects vertex drags addressed at anything but the single
// active edit target.
var ErrNotEditing = errors.New("services: target is not in an edit session")

type EditTargetKind int

const (
	TargetNone EditTargetKind = iota
	TargetAOI
	TargetPreview
)

func (k EditTargetKind) String() string {
	switch k {
	case TargetAOI:
		return "aoi"
	case TargetPreview:
		return "preview"
	default:
		return "none"
	}
}

type EditTarget struct {
	Kind EditTargetKind `json:"kind"`
	ID   string         `json:"id"`
}

type EditCommandAction string

const (
	CmdEnableEdit  EditCommandAction = "enable_edit"
	CmdDisableEdit EditCommandAction = "disable_edit"
)

// EditCommand tells the rendering adapter to toggle vertex-drag handles on
// one polygon. The engine never reaches into rendering internals itself.
type EditCommand struct {
	Action EditCommandAction `json:"action"`
	Target EditTarget        `json:"target"`
}

// FlushedEdit is the final buffer state of a session that just closed,
// already passed through the area computation so the last rendered state
// stays consistent.
type FlushedEdit struct {
	Target EditTarget
	Wire   string
	AreaHa float64
}

// EditManager is the process-wide edit session state machine. At most one
// target (AOI or preview) is editable at any time; everything else is
// render-only and its drag callbacks are rejected here, not at the UI.
type EditManager struct {
	mu        sync.Mutex
	target    EditTarget
	committed orb.MultiPolygon
	buffer    orb.MultiPolygon
}

func NewEditManager() *EditManager {
	return &EditManager{}
}

func (m *EditManager) Active() EditTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// BeginAOI opens an edit session on an AOI geometry. If another AOI edit
// is already active the request fails silently (ok=false): the user must
// save or cancel first. An active preview edit, however, is forcibly
// closed and its flushed buffer returned so the caller can keep the
// preview entry consistent.
func (m *EditManager) BeginAOI(aoiID, wire string) (cmds []EditCommand, flushed *FlushedEdit, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind == TargetAOI {
		return nil, nil, false, nil
	}
	if m.target.Kind == TargetPreview {
		cmds, flushed = m.closeLocked()
	}
	enable, err := m.openLocked(EditTarget{Kind: TargetAOI, ID: aoiID}, wire)
	if err != nil {
		return nil, flushed, false, err
	}
	return append(cmds, enable...), flushed, true, nil
}

// BeginPreview opens an edit session on one preview polygon, forcibly
// closing whatever session was active before (a previous preview's buffer
// is flushed and returned; an interrupted AOI edit is discarded).
func (m *EditManager) BeginPreview(previewID, wire string) (cmds []EditCommand, flushed *FlushedEdit, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind != TargetNone {
		var f *FlushedEdit
		cmds, f = m.closeLocked()
		if f != nil && f.Target.Kind == TargetPreview {
			flushed = f
		}
	}
	enable, err := m.openLocked(EditTarget{Kind: TargetPreview, ID: previewID}, wire)
	if err != nil {
		return nil, flushed, err
	}
	return append(cmds, enable...), flushed, nil
}

// DragVertex applies one vertex drag to the active buffer and returns the
// updated wire and area. Drags for any other target are no-ops by
// construction.
func (m *EditManager) DragVertex(t EditTarget, polyIdx, ringIdx, vtxIdx int, pt orb.Point) (wire string, areaHa float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind == TargetNone || t != m.target {
		return "", 0, fmt.Errorf("%w: %s %q", ErrNotEditing, t.Kind, t.ID)
	}
	if polyIdx < 0 || polyIdx >= len(m.buffer) {
		return "", 0, fmt.Errorf("services: polygon index %d out of range", polyIdx)
	}
	poly := m.buffer[polyIdx]
	if ringIdx < 0 || ringIdx >= len(poly) {
		return "", 0, fmt.Errorf("services: ring index %d out of range", ringIdx)
	}
	ring := poly[ringIdx]
	if vtxIdx < 0 || vtxIdx >= len(ring) {
		return "", 0, fmt.Errorf("services: vertex index %d out of range", vtxIdx)
	}

	ring[vtxIdx] = pt
	// Keep the ring closed when an endpoint moves.
	if vtxIdx == 0 {
		ring[len(ring)-1] = pt
	} else if vtxIdx == len(ring)-1 {
		ring[0] = pt
	}
	return geometry.Encode(m.buffer), geometry.AreaHa(m.buffer), nil
}

// Save commits the buffer, closes the session and returns the committed
// state for persistence.
func (m *EditManager) Save() (FlushedEdit, []EditCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind == TargetNone {
		return FlushedEdit{}, nil, ErrNotEditing
	}
	m.committed = m.buffer.Clone()
	cmds, flushed := m.closeLocked()
	return *flushed, cmds, nil
}

// Cancel discards the in-progress buffer and returns the last-committed
// geometry so the caller can restore it.
func (m *EditManager) Cancel() (FlushedEdit, []EditCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind == TargetNone {
		return FlushedEdit{}, nil, ErrNotEditing
	}
	m.buffer = m.committed.Clone()
	cmds, flushed := m.closeLocked()
	return *flushed, cmds, nil
}

// Reset drops any session without reporting state. Used when the whole
// split session is torn down.
func (m *EditManager) Reset() []EditCommand {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Kind == TargetNone {
		return nil
	}
	cmds, _ := m.closeLocked()
	return cmds
}

func (m *EditManager) openLocked(t EditTarget, wire string) ([]EditCommand, error) {
	mp, err := geometry.DecodeOne(wire)
	if err != nil {
		return nil, err
	}
	m.target = t
	m.committed = mp.Clone()
	m.buffer = mp
	return []EditCommand{{Action: CmdEnableEdit, Target: t}}, nil
}

// closeLocked flushes the buffer through the area computation, idles the
// machine and returns the disable command plus the flushed state.
func (m *EditManager) closeLocked() ([]EditCommand, *FlushedEdit) {
	flushed := &FlushedEdit{
		Target: m.target,
		Wire:   geometry.Encode(m.buffer),
		AreaHa: geometry.AreaHa(m.buffer),
	}
	cmds := []EditCommand{{Action: CmdDisableEdit, Target: m.target}}
	m.target = EditTarget{}
	m.committed = nil
	m.buffer = nil
	return cmds, flushed
}
