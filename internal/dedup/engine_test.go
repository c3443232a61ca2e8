package dedup

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jacklau/picdedup/internal/fingerprint"
)

// bitItems builds perceptual items named item1..itemN from bit strings.
func bitItems(t *testing.T, bits ...string) []Item {
	t.Helper()
	items := make([]Item, len(bits))
	for i, b := range bits {
		fp, err := fingerprint.ParseBits(b)
		if err != nil {
			t.Fatalf("parsing %q: %v", b, err)
		}
		items[i] = Item{ID: fmt.Sprintf("item%d", i+1), Fingerprint: fp}
	}
	return items
}

// digestItems builds exact items named item1..itemN from digest labels.
func digestItems(labels ...string) []Item {
	items := make([]Item, len(labels))
	for i, l := range labels {
		items[i] = Item{ID: fmt.Sprintf("item%d", i+1), Fingerprint: fingerprint.NewExact([]byte(l))}
	}
	return items
}

func duplicateIDs(r *Result) []string {
	var ids []string
	for _, a := range r.Duplicates() {
		ids = append(ids, a.Item.ID)
	}
	return ids
}

func TestEngine_Defaults(t *testing.T) {
	e := NewEngine()
	if e.Mode() != fingerprint.ModeExact {
		t.Errorf("expected default mode exact, got %s", e.Mode())
	}
	if e.Threshold() != 1 {
		t.Errorf("expected default threshold 1, got %d", e.Threshold())
	}
}

func TestEngine_ExactScenario(t *testing.T) {
	// [h1, h1, h2, h1] -> 2 groups, delete item2 and item4.
	items := digestItems("h1", "h1", "h2", "h1")

	res, err := NewEngine(WithMode(fingerprint.ModeExact)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.GroupCount() != 2 {
		t.Errorf("expected 2 groups, got %d", res.GroupCount())
	}
	if got, want := duplicateIDs(res), []string{"item2", "item4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("duplicates = %v, want %v", got, want)
	}
	for _, a := range res.Duplicates() {
		if a.Representative != "item1" {
			t.Errorf("%s: expected representative item1, got %s", a.Item.ID, a.Representative)
		}
	}
	if res.Groups[1].Representative.ID != "item3" {
		t.Errorf("expected item3 to represent group 2, got %s", res.Groups[1].Representative.ID)
	}
	if res.Groups[0].Size() != 3 {
		t.Errorf("expected group 1 size 3, got %d", res.Groups[0].Size())
	}
}

func TestEngine_ExactIgnoresThreshold(t *testing.T) {
	// Digests that differ in one bit are still different content.
	items := []Item{
		{ID: "a", Fingerprint: fingerprint.NewExact([]byte{0x00})},
		{ID: "b", Fingerprint: fingerprint.NewExact([]byte{0x01})},
	}

	res, err := NewEngine(WithMode(fingerprint.ModeExact), WithThreshold(64)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GroupCount() != 2 {
		t.Errorf("expected 2 groups, got %d", res.GroupCount())
	}
}

func TestEngine_ExactEarlierIsNeverDuplicate(t *testing.T) {
	items := digestItems("x", "y", "x", "y", "z", "x")

	res, err := NewEngine().Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstSeen := map[string]string{}
	for _, a := range res.Assignments {
		key := a.Item.Fingerprint.Key()
		first, seen := firstSeen[key]
		if !seen {
			firstSeen[key] = a.Item.ID
			if a.Duplicate {
				t.Errorf("%s is the first of its content but marked duplicate", a.Item.ID)
			}
			continue
		}
		if !a.Duplicate || a.Representative != first {
			t.Errorf("%s: expected duplicate of %s, got duplicate=%v rep=%s", a.Item.ID, first, a.Duplicate, a.Representative)
		}
	}
}

func TestEngine_PerceptualScenario(t *testing.T) {
	// item4 joins item1's group (distance 1) even though item2 is 2 away.
	items := bitItems(t, "0000", "0001", "1111", "0010")

	res, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(1)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.GroupCount() != 2 {
		t.Errorf("expected 2 groups, got %d", res.GroupCount())
	}
	if got, want := duplicateIDs(res), []string{"item2", "item4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("duplicates = %v, want %v", got, want)
	}

	want := []struct {
		group int
		rep   string
		dist  int
	}{
		{0, "item1", 0},
		{0, "item1", 1},
		{1, "item3", 0},
		{0, "item1", 1},
	}
	for i, a := range res.Assignments {
		if a.Group != want[i].group || a.Representative != want[i].rep || a.Distance != want[i].dist {
			t.Errorf("assignment %d = {group %d, rep %s, dist %d}, want %+v",
				i, a.Group, a.Representative, a.Distance, want[i])
		}
	}
}

func TestEngine_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		candidate string
		wantDup   bool
	}{
		{"distance equals threshold joins", 2, "0011", true},
		{"distance threshold plus one starts group", 2, "0111", false},
		{"threshold zero requires identical", 0, "0001", false},
		{"threshold zero identical joins", 0, "0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := bitItems(t, "0000", tt.candidate)
			res, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(tt.threshold)).Group(items)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := res.Assignments[1].Duplicate
			if got != tt.wantDup {
				t.Errorf("duplicate = %v, want %v", got, tt.wantDup)
			}
			if !tt.wantDup && res.GroupCount() != 2 {
				t.Errorf("expected candidate to start a new group, got %d groups", res.GroupCount())
			}
		})
	}
}

func TestEngine_FirstMatchPrecedence(t *testing.T) {
	// R1=0000 and R2=0111 are 3 apart (two groups at threshold 2).
	// C=0011 is 2 from R1 and 1 from R2: it must join R1 despite R2 being closer.
	items := bitItems(t, "0000", "0111", "0011")

	res, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(2)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.GroupCount() != 2 {
		t.Fatalf("expected 2 groups, got %d", res.GroupCount())
	}
	c := res.Assignments[2]
	if !c.Duplicate || c.Representative != "item1" {
		t.Errorf("expected item3 to join item1 first-match, got rep=%s dup=%v", c.Representative, c.Duplicate)
	}
	if c.Distance != 2 {
		t.Errorf("expected recorded distance 2, got %d", c.Distance)
	}
}

func TestEngine_SingleLinkageToRepresentativeOnly(t *testing.T) {
	// item2 joins item1 (distance 1). item3 is 1 from item2 but 2 from item1,
	// so it starts its own group: only the representative is compared.
	items := bitItems(t, "0000", "0001", "0011")

	res, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(1)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GroupCount() != 2 {
		t.Errorf("expected 2 groups, got %d", res.GroupCount())
	}
	if res.Assignments[2].Duplicate {
		t.Error("item3 should not join via a non-representative member")
	}
}

func TestEngine_Deterministic(t *testing.T) {
	items := bitItems(t, "01010101", "01010100", "11110000", "01011101", "11110001", "00000000")
	e := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(2))

	first, err := e.Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Group(items)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different result", i)
		}
	}
}

func TestEngine_EveryItemAssignedOnce(t *testing.T) {
	items := bitItems(t, "0000", "1111", "0001", "1110", "0110", "1001", "0000")

	res, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(1)).Group(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Assignments) != len(items) {
		t.Fatalf("expected %d assignments, got %d", len(items), len(res.Assignments))
	}
	members := 0
	for _, g := range res.Groups {
		members += g.Size()
		for _, d := range g.Duplicates {
			dist, _ := fingerprint.Distance(g.Representative.Fingerprint, d.Fingerprint)
			if dist > 1 {
				t.Errorf("%s is %d from representative %s", d.ID, dist, g.Representative.ID)
			}
		}
	}
	if members != len(items) {
		t.Errorf("groups hold %d members, want %d", members, len(items))
	}
	if got := len(res.Representatives()) + len(res.Duplicates()); got != len(items) {
		t.Errorf("kept + duplicates = %d, want %d", got, len(items))
	}
}

func TestEngine_Empty(t *testing.T) {
	res, err := NewEngine(WithMode(fingerprint.ModePerceptual)).Group(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GroupCount() != 0 || len(res.Assignments) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestEngine_NegativeThreshold(t *testing.T) {
	_, err := NewEngine(WithMode(fingerprint.ModePerceptual), WithThreshold(-1)).Group(bitItems(t, "0"))
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestEngine_InvalidFingerprints(t *testing.T) {
	mixedLen := bitItems(t, "0000", "00000")
	wrongMode := digestItems("abc")
	mixedExact := []Item{
		{ID: "a", Fingerprint: fingerprint.NewExact([]byte{1, 2})},
		{ID: "b", Fingerprint: fingerprint.NewExact([]byte{1, 2, 3})},
	}

	tests := []struct {
		name  string
		mode  fingerprint.Mode
		items []Item
	}{
		{"perceptual length mismatch", fingerprint.ModePerceptual, mixedLen},
		{"exact items in perceptual engine", fingerprint.ModePerceptual, wrongMode},
		{"perceptual items in exact engine", fingerprint.ModeExact, mixedLen[:1]},
		{"exact length mismatch", fingerprint.ModeExact, mixedExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewEngine(WithMode(tt.mode)).Group(tt.items)
			if !errors.Is(err, fingerprint.ErrInvalidFingerprint) {
				t.Errorf("expected ErrInvalidFingerprint, got %v", err)
			}
			if res != nil {
				t.Error("expected no partial result")
			}
		})
	}
}
