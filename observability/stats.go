package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProcessStats is the last self sample taken by the health monitoring worker.
type ProcessStats struct {
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Status     string    `json:"status"`
	SampledAt  time.Time `json:"sampled_at"`
}

type StatsSnapshot struct {
	DotsRelayed     uint64       `json:"dots_relayed"`
	ActionsApplied  uint64       `json:"actions_applied"`
	DecodeErrors    uint64       `json:"decode_errors"`
	UnknownTags     uint64       `json:"unknown_tags"`
	ActionsRejected uint64       `json:"actions_rejected"`
	PublishFailures uint64       `json:"publish_failures"`
	Process         ProcessStats `json:"process"`
}

// Stats holds the bridge counters. Safe for concurrent use; a nil *Stats is a no-op.
type Stats struct {
	dotsRelayed     atomic.Uint64
	actionsApplied  atomic.Uint64
	decodeErrors    atomic.Uint64
	unknownTags     atomic.Uint64
	actionsRejected atomic.Uint64
	publishFailures atomic.Uint64

	mu      sync.RWMutex
	process ProcessStats
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) IncrDotsRelayed() {
	if s != nil {
		s.dotsRelayed.Add(1)
	}
}

func (s *Stats) IncrActionsApplied() {
	if s != nil {
		s.actionsApplied.Add(1)
	}
}

func (s *Stats) IncrDecodeErrors() {
	if s != nil {
		s.decodeErrors.Add(1)
	}
}

func (s *Stats) IncrUnknownTags() {
	if s != nil {
		s.unknownTags.Add(1)
	}
}

func (s *Stats) IncrActionsRejected() {
	if s != nil {
		s.actionsRejected.Add(1)
	}
}

func (s *Stats) IncrPublishFailures() {
	if s != nil {
		s.publishFailures.Add(1)
	}
}

func (s *Stats) SetProcess(p ProcessStats) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.process = p
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.RLock()
	process := s.process
	s.mu.RUnlock()
	return StatsSnapshot{
		DotsRelayed:     s.dotsRelayed.Load(),
		ActionsApplied:  s.actionsApplied.Load(),
		DecodeErrors:    s.decodeErrors.Load(),
		UnknownTags:     s.unknownTags.Load(),
		ActionsRejected: s.actionsRejected.Load(),
		PublishFailures: s.publishFailures.Load(),
		Process:         process,
	}
}
