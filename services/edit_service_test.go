package services

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/agrovista/fieldmap/geometry"
)

const editSquare = "MULTIPOLYGON(((-47.91 -15.81,-47.90 -15.81,-47.90 -15.80,-47.91 -15.80,-47.91 -15.81)))"

func TestBeginAOIFailsSilentlyWhileAnotherAOIActive(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("first session must open: ok=%v err=%v", ok, err)
	}
	cmds, flushed, ok, err := m.BeginAOI("2", editSquare)
	if err != nil {
		t.Fatalf("second begin must not error: %v", err)
	}
	if ok || flushed != nil || len(cmds) != 0 {
		t.Fatalf("second begin must be a silent no-op: ok=%v flushed=%v cmds=%v", ok, flushed, cmds)
	}
	if got := m.Active(); got.ID != "1" {
		t.Fatalf("active target changed to %q", got.ID)
	}
}

func TestBeginAOIForcesPreviewClosed(t *testing.T) {
	m := NewEditManager()
	if _, _, err := m.BeginPreview("pv-1", editSquare); err != nil {
		t.Fatalf("open preview: %v", err)
	}

	cmds, flushed, ok, err := m.BeginAOI("9", editSquare)
	if err != nil || !ok {
		t.Fatalf("AOI edit must displace a preview edit: ok=%v err=%v", ok, err)
	}
	if flushed == nil || flushed.Target.Kind != TargetPreview || flushed.Target.ID != "pv-1" {
		t.Fatalf("displaced preview buffer must be flushed, got %v", flushed)
	}
	if len(cmds) != 2 || cmds[0].Action != CmdDisableEdit || cmds[1].Action != CmdEnableEdit {
		t.Fatalf("expected disable-then-enable, got %v", cmds)
	}

	// Drags aimed at the closed preview are rejected from now on.
	_, _, err = m.DragVertex(EditTarget{Kind: TargetPreview, ID: "pv-1"}, 0, 0, 1, orb.Point{-47.89, -15.81})
	if !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing for the displaced preview, got %v", err)
	}
}

func TestBeginPreviewDisplacesAnything(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("open aoi: ok=%v err=%v", ok, err)
	}
	_, flushed, err := m.BeginPreview("pv-2", editSquare)
	if err != nil {
		t.Fatalf("preview must displace an AOI edit: %v", err)
	}
	// An interrupted AOI edit is discarded, not reported as a preview flush.
	if flushed != nil {
		t.Fatalf("AOI buffer must not surface as a preview flush: %v", flushed)
	}
	if got := m.Active(); got.Kind != TargetPreview || got.ID != "pv-2" {
		t.Fatalf("active target is %v", got)
	}
}

func TestDragVertexKeepsRingClosed(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("open: ok=%v err=%v", ok, err)
	}

	target := EditTarget{Kind: TargetAOI, ID: "1"}
	wire, areaHa, err := m.DragVertex(target, 0, 0, 0, orb.Point{-47.915, -15.815})
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if areaHa <= 0 {
		t.Fatalf("area must stay positive, got %f", areaHa)
	}
	mp, err := geometry.DecodeOne(wire)
	if err != nil {
		t.Fatalf("decode dragged wire: %v", err)
	}
	ring := mp[0][0]
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("dragging an endpoint broke ring closure: %v", ring)
	}
	if math.Abs(ring[0][0]-(-47.915)) > 1e-6 {
		t.Fatalf("dragged vertex not applied: %v", ring[0])
	}
}

func TestDragVertexBounds(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("open: ok=%v err=%v", ok, err)
	}
	target := EditTarget{Kind: TargetAOI, ID: "1"}
	if _, _, err := m.DragVertex(target, 3, 0, 0, orb.Point{}); err == nil {
		t.Error("polygon index out of range must fail")
	}
	if _, _, err := m.DragVertex(target, 0, 0, 99, orb.Point{}); err == nil {
		t.Error("vertex index out of range must fail")
	}
}

func TestCancelRestoresCommittedGeometry(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("open: ok=%v err=%v", ok, err)
	}
	target := EditTarget{Kind: TargetAOI, ID: "1"}
	if _, _, err := m.DragVertex(target, 0, 0, 1, orb.Point{-47.7, -15.7}); err != nil {
		t.Fatalf("drag: %v", err)
	}

	flushed, cmds, err := m.Cancel()
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Action != CmdDisableEdit {
		t.Fatalf("cancel must disable handles, got %v", cmds)
	}
	want, _ := geometry.DecodeOne(editSquare)
	if flushed.Wire != geometry.Encode(want) {
		t.Fatalf("cancel did not restore the committed geometry: %s", flushed.Wire)
	}
	if m.Active().Kind != TargetNone {
		t.Fatal("session still active after cancel")
	}
}

func TestSaveCommitsBuffer(t *testing.T) {
	m := NewEditManager()
	if _, _, ok, err := m.BeginAOI("1", editSquare); err != nil || !ok {
		t.Fatalf("open: ok=%v err=%v", ok, err)
	}
	target := EditTarget{Kind: TargetAOI, ID: "1"}
	if _, _, err := m.DragVertex(target, 0, 0, 1, orb.Point{-47.895, -15.815}); err != nil {
		t.Fatalf("drag: %v", err)
	}

	flushed, _, err := m.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(flushed.Wire, "-47.8950000") {
		t.Fatalf("saved wire lost the drag: %s", flushed.Wire)
	}
	if flushed.Target != target {
		t.Fatalf("flushed target is %v", flushed.Target)
	}

	if _, _, err := m.Save(); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("save without a session must fail, got %v", err)
	}
}
