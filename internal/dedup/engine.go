// Package dedup decides which items of an ordered sequence are duplicates of
// an earlier item.
//
// Grouping is a single greedy left-to-right pass. The first item of each group
// is its representative and is kept; every later member is a duplicate. In
// perceptual mode a candidate joins the first group, in discovery order, whose
// representative is within the threshold. It never looks for the closest
// group and never merges groups, so the output depends on input order.
package dedup

import (
	"errors"
	"fmt"

	"github.com/jacklau/picdedup/internal/fingerprint"
)

// ErrInvalidThreshold is returned for a negative threshold.
var ErrInvalidThreshold = errors.New("invalid threshold")

const (
	defaultMode      = fingerprint.ModeExact
	defaultThreshold = 1
)

// Item is one input to grouping: a unique identifier and its fingerprint.
type Item struct {
	ID          string
	Fingerprint fingerprint.Fingerprint
}

// Assignment is the grouping decision for one item.
type Assignment struct {
	Item Item
	// Group indexes Result.Groups.
	Group int
	// Representative is the ID of the group's representative.
	Representative string
	// Duplicate is false only for the representative itself.
	Duplicate bool
	// Distance to the representative: 0 for the representative and for exact
	// duplicates, the Hamming distance for perceptual duplicates.
	Distance int
}

// Group is a representative and the items assigned to it, in input order.
type Group struct {
	Representative Item
	Duplicates     []Item
}

// Size returns the number of members including the representative.
func (g Group) Size() int { return 1 + len(g.Duplicates) }

// Result is the partition produced by Engine.Group.
type Result struct {
	Mode      fingerprint.Mode
	Threshold int
	// Assignments has one entry per input item, in input order.
	Assignments []Assignment
	// Groups are in discovery order.
	Groups []Group
}

// GroupCount returns the number of distinct groups.
func (r *Result) GroupCount() int { return len(r.Groups) }

// Duplicates returns the assignments of every duplicate, in input order.
func (r *Result) Duplicates() []Assignment {
	var out []Assignment
	for _, a := range r.Assignments {
		if a.Duplicate {
			out = append(out, a)
		}
	}
	return out
}

// Representatives returns the kept item of every group, in discovery order.
func (r *Result) Representatives() []Item {
	out := make([]Item, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.Representative
	}
	return out
}

func (r *Result) open(it Item) int {
	idx := len(r.Groups)
	r.Groups = append(r.Groups, Group{Representative: it})
	r.Assignments = append(r.Assignments, Assignment{
		Item:           it,
		Group:          idx,
		Representative: it.ID,
	})
	return idx
}

func (r *Result) join(idx int, it Item, distance int) {
	g := &r.Groups[idx]
	g.Duplicates = append(g.Duplicates, it)
	r.Assignments = append(r.Assignments, Assignment{
		Item:           it,
		Group:          idx,
		Representative: g.Representative.ID,
		Duplicate:      true,
		Distance:       distance,
	})
}

// Engine groups items by fingerprint.
type Engine struct {
	mode      fingerprint.Mode
	threshold int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the matching mode.
func WithMode(m fingerprint.Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithThreshold sets the inclusive Hamming distance bound used in perceptual
// mode. It is ignored in exact mode.
func WithThreshold(t int) Option {
	return func(e *Engine) { e.threshold = t }
}

// NewEngine creates an Engine. It defaults to exact mode with threshold 1.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		mode:      defaultMode,
		threshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the engine's matching mode.
func (e *Engine) Mode() fingerprint.Mode { return e.mode }

// Threshold returns the engine's perceptual threshold.
func (e *Engine) Threshold() int { return e.threshold }

// Group partitions items, which must already be in their final deterministic
// order. Every fingerprint must match the engine mode and share one length;
// violations wrap fingerprint.ErrInvalidFingerprint and no partial result is
// returned.
func (e *Engine) Group(items []Item) (*Result, error) {
	if e.threshold < 0 {
		return nil, fmt.Errorf("%w: %d must not be negative", ErrInvalidThreshold, e.threshold)
	}

	res := &Result{
		Mode:        e.mode,
		Threshold:   e.threshold,
		Assignments: make([]Assignment, 0, len(items)),
	}
	if len(items) == 0 {
		return res, nil
	}

	for _, it := range items {
		if it.Fingerprint.Mode() != e.mode {
			return nil, fmt.Errorf("%w: item %s has mode %s, engine expects %s",
				fingerprint.ErrInvalidFingerprint, it.ID, it.Fingerprint.Mode(), e.mode)
		}
		if err := fingerprint.Compatible(items[0].Fingerprint, it.Fingerprint); err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
	}

	switch e.mode {
	case fingerprint.ModeExact:
		e.groupExact(res, items)
	case fingerprint.ModePerceptual:
		if err := e.groupPerceptual(res, items); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported mode %s", e.mode)
	}
	return res, nil
}

// groupExact keys groups by fingerprint value.
func (e *Engine) groupExact(res *Result, items []Item) {
	seen := make(map[string]int, len(items))
	for _, it := range items {
		key := it.Fingerprint.Key()
		if idx, ok := seen[key]; ok {
			res.join(idx, it, 0)
			continue
		}
		seen[key] = res.open(it)
	}
}

// groupPerceptual scans representatives in discovery order and assigns each
// item to the first one within threshold.
func (e *Engine) groupPerceptual(res *Result, items []Item) error {
	for _, it := range items {
		match := -1
		var matchDist int
		for idx := range res.Groups {
			d, err := fingerprint.Distance(res.Groups[idx].Representative.Fingerprint, it.Fingerprint)
			if err != nil {
				return fmt.Errorf("item %s: %w", it.ID, err)
			}
			if d <= e.threshold {
				match, matchDist = idx, d
				break
			}
		}

		if match < 0 {
			res.open(it)
			continue
		}
		res.join(match, it, matchDist)
	}
	return nil
}
