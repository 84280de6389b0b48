package external

import (
	"context"
	"fmt"
	"sync"

	"engine/errs"
)

// MemoryEconomy is an in-process Economy used by tests, fixtures and
// the demo configuration. Setting Err makes every call fail until it
// is cleared, which is how delivery retries are exercised.
type MemoryEconomy struct {
	mu      sync.Mutex
	awards  map[string]string // idempotency key -> ref of the award
	byRef   map[string]int64
	nextRef int

	Err error
}

func NewMemoryEconomy() *MemoryEconomy {
	return &MemoryEconomy{awards: map[string]string{}, byRef: map[string]int64{}}
}

func (e *MemoryEconomy) Award(_ context.Context, idempotencyKey, competitorRef, category string, amount int64) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return Receipt{}, &errs.CollaboratorError{Collaborator: "economy", Err: e.Err}
	}
	// A repeated key references the record the first call created.
	if ref, seen := e.awards[idempotencyKey]; seen {
		return Receipt{Ref: ref, Duplicate: true}, nil
	}
	e.nextRef++
	ref := fmt.Sprintf("eco-%s-%d", category, e.nextRef)
	e.awards[idempotencyKey] = ref
	e.byRef[competitorRef] += amount
	return Receipt{Ref: ref}, nil
}

// Balance returns the total credited to a competitor.
func (e *MemoryEconomy) Balance(competitorRef string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byRef[competitorRef]
}

// MemoryRanking is an in-process Ranking with the same idempotency
// semantics as MemoryEconomy.
type MemoryRanking struct {
	mu      sync.Mutex
	applied map[string]string // idempotency key -> ref of the adjustment
	byRef   map[string]int
	nextRef int

	Err error
}

func NewMemoryRanking() *MemoryRanking {
	return &MemoryRanking{applied: map[string]string{}, byRef: map[string]int{}}
}

func (r *MemoryRanking) ApplyDelta(_ context.Context, idempotencyKey, competitorRef string, delta int) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Receipt{}, &errs.CollaboratorError{Collaborator: "ranking", Err: r.Err}
	}
	if ref, seen := r.applied[idempotencyKey]; seen {
		return Receipt{Ref: ref, Duplicate: true}, nil
	}
	r.nextRef++
	ref := fmt.Sprintf("rnk-%d", r.nextRef)
	r.applied[idempotencyKey] = ref
	r.byRef[competitorRef] += delta
	return Receipt{Ref: ref}, nil
}

// Rating returns the accumulated delta for a competitor.
func (r *MemoryRanking) Rating(competitorRef string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byRef[competitorRef]
}

// MemoryRoster serves rosters from a fixed map.
type MemoryRoster struct {
	mu      sync.Mutex
	rosters map[string]*Roster
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{rosters: map[string]*Roster{}}
}

// Put registers or replaces a roster.
func (p *MemoryRoster) Put(roster *Roster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rosters[roster.CompetitorRef] = roster
}

func (p *MemoryRoster) GetRoster(_ context.Context, competitorRef string) (*Roster, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	roster, ok := p.rosters[competitorRef]
	if !ok {
		return nil, &errs.CollaboratorError{
			Collaborator: "roster",
			Err:          fmt.Errorf("no roster for competitor %q", competitorRef),
		}
	}
	return roster, nil
}
