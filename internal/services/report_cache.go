package services

import (
	"sync"
	"time"

	"finplan/internal/budget"
	"finplan/internal/cache"
	"finplan/internal/core"

	"github.com/google/uuid"
)

// ReportCache keeps computed reports keyed by goal and month.
//
// Every invalidation bumps a generation. A report is stored only if no
// invalidation of its goal happened since the caller took its Generation, so
// a report computed before a concurrent write never outlives that write.
// Writes made by another process (bill-worker) are not seen here and become
// visible once the entry's TTL expires.
type ReportCache struct {
	lru *cache.LRUCache[budget.Report]

	mu    sync.Mutex
	epoch uint64
	goals map[uuid.UUID]uint64
}

// ReportGeneration identifies the cache state a report was computed against.
type ReportGeneration struct {
	epoch uint64
	goal  uint64
}

func NewReportCache(size int, ttl time.Duration) *ReportCache {
	return &ReportCache{
		lru:   cache.NewLRUCache[budget.Report](size, ttl),
		goals: make(map[uuid.UUID]uint64),
	}
}

func reportKey(goalID uuid.UUID, m core.Month) string {
	return goalID.String() + ":" + m.String()
}

func (c *ReportCache) Get(goalID uuid.UUID, m core.Month) (budget.Report, bool) {
	return c.lru.Get(reportKey(goalID, m))
}

// Generation returns the current generation of goalID. Take it before
// loading the data a report is computed from.
func (c *ReportCache) Generation(goalID uuid.UUID) ReportGeneration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ReportGeneration{epoch: c.epoch, goal: c.goals[goalID]}
}

// Set stores r unless its goal was invalidated after gen was taken. It
// reports whether r was stored.
func (c *ReportCache) Set(r budget.Report, gen ReportGeneration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen.epoch != c.epoch || gen.goal != c.goals[r.GoalID] {
		return false
	}
	c.lru.Set(reportKey(r.GoalID, r.Month), r)
	return true
}

// InvalidateGoal drops every cached month of the goal.
func (c *ReportCache) InvalidateGoal(goalID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goals[goalID]++
	c.lru.DeletePrefix(goalID.String() + ":")
}

// Clear drops every cached report.
func (c *ReportCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.goals = make(map[uuid.UUID]uint64)
	c.lru.DeletePrefix("")
}

// Cleaner exposes the underlying cache to a cache.Manager.
func (c *ReportCache) Cleaner() cache.Cleaner { return c.lru }
