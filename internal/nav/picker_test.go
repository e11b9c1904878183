package nav

import (
	"testing"

	"github.com/starford/raido/internal/models"
)

func cand(to string, bearing, dist float64) Candidate {
	return Candidate{
		Link:           models.Link{From: "here", To: to, BearingDeg: bearing},
		DistanceMeters: dist,
	}
}

func roleCand(to string, bearing float64, role string) Candidate {
	return Candidate{
		Link: models.Link{From: "here", To: to, BearingDeg: bearing, Role: role},
	}
}

func TestPick_NoCandidates(t *testing.T) {
	r := Pick(nil, 90, nil, Memo{})
	if r.Forward != nil || r.Backward != nil {
		t.Errorf("expected empty result, got %+v", r)
	}
}

func TestPick_ExplicitRolesAreAuthoritative(t *testing.T) {
	// Bearings would argue for the opposite assignment; roles win.
	candidates := []Candidate{
		roleCand("ahead-by-role", 180, models.RoleNext),
		roleCand("behind-by-role", 0, models.RolePrev),
	}
	r := Pick(candidates, 0, nil, Memo{})
	if r.Forward == nil || r.Forward.To != "ahead-by-role" {
		t.Errorf("forward = %+v, want ahead-by-role", r.Forward)
	}
	if r.Backward == nil || r.Backward.To != "behind-by-role" {
		t.Errorf("backward = %+v, want behind-by-role", r.Backward)
	}
}

func TestPick_ProjectionSplitsAheadAndBehind(t *testing.T) {
	candidates := []Candidate{
		cand("north", 0, 10),
		cand("south", 180, 10),
	}
	r := Pick(candidates, 0, nil, Memo{})
	if r.Forward == nil || r.Forward.To != "north" {
		t.Errorf("forward = %+v, want north", r.Forward)
	}
	if r.Backward == nil || r.Backward.To != "south" {
		t.Errorf("backward = %+v, want south", r.Backward)
	}
}

func TestPick_HintOverridesYaw(t *testing.T) {
	// The viewer looks north but has been traveling east; the hint decides.
	hint := NewTravelHint(1.0)
	hint.Observe(posAt(0, 0))
	hint.Observe(posAt(0, 0.001))

	candidates := []Candidate{
		cand("east", 90, 10),
		cand("west", 270, 10),
	}
	r := Pick(candidates, 0, hint, Memo{})
	if r.Forward == nil || r.Forward.To != "east" {
		t.Errorf("forward = %+v, want east", r.Forward)
	}
	if r.Backward == nil || r.Backward.To != "west" {
		t.Errorf("backward = %+v, want west", r.Backward)
	}
}

func TestPick_RanksByProjectionThenDistance(t *testing.T) {
	candidates := []Candidate{
		cand("straight-far", 0, 50),
		cand("straight-near", 0, 5),
		cand("diagonal", 45, 1),
	}
	r := Pick(candidates, 0, nil, Memo{})
	if r.Forward == nil || r.Forward.To != "straight-near" {
		t.Errorf("forward = %+v, want straight-near", r.Forward)
	}
}

func TestPick_HysteresisKeepsMarginalPick(t *testing.T) {
	// B's projection dipped just below zero (bearing slightly past 90°) so
	// the ahead side is empty, but the previous pick must survive.
	candidates := []Candidate{
		cand("B", 93, 10), // cos(93°) ≈ -0.05, inside the epsilon band
	}
	r := Pick(candidates, 0, nil, Memo{ForwardID: "B"})
	if r.Forward == nil || r.Forward.To != "B" {
		t.Errorf("forward = %+v, want hysteresis to keep B", r.Forward)
	}
	// B is taken by the kept forward pick; it must not double as backward.
	if r.Backward != nil {
		t.Errorf("backward = %+v, want nil", r.Backward)
	}
}

func TestPick_HysteresisReleasesOnFullFlip(t *testing.T) {
	// B moved fully behind the viewer; hysteresis must let go.
	candidates := []Candidate{
		cand("B", 180, 10),
	}
	r := Pick(candidates, 0, nil, Memo{ForwardID: "B"})
	if r.Forward != nil {
		t.Errorf("forward = %+v, want nil after full flip", r.Forward)
	}
	if r.Backward == nil || r.Backward.To != "B" {
		t.Errorf("backward = %+v, want B", r.Backward)
	}
}

func TestPick_DegenerateSameTargetResolves(t *testing.T) {
	// B hovers barely ahead (cos(85°) ≈ 0.09): ranked forward, and the
	// backward memo resurrects it too. The kept side wins — B stays the
	// backward target until its projection decisively flips, and forward
	// re-ranks to nothing.
	candidates := []Candidate{
		cand("B", 85, 5),
	}
	r := Pick(candidates, 0, nil, Memo{BackwardID: "B"})
	if r.Backward == nil || r.Backward.To != "B" {
		t.Errorf("backward = %+v, want B held by hysteresis", r.Backward)
	}
	if r.Forward != nil {
		t.Errorf("forward = %+v, want nil (B already taken by backward)", r.Forward)
	}
}

func TestPickByYaw(t *testing.T) {
	candidates := []Candidate{
		cand("east", 85, 10),
		cand("north", 10, 10),
		cand("south", 180, 10),
	}
	if got := PickByYaw(candidates, 90, 60); got == nil || got.To != "east" {
		t.Errorf("PickByYaw(90) = %+v, want east", got)
	}
	if got := PickByYaw(candidates, 270, 60); got != nil {
		t.Errorf("PickByYaw(270) = %+v, want nil (nothing within 60°)", got)
	}
	// Wraparound: yaw 355 and bearing 10 are 15° apart.
	if got := PickByYaw(candidates, 355, 60); got == nil || got.To != "north" {
		t.Errorf("PickByYaw(355) = %+v, want north", got)
	}
}
