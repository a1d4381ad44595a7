package cown

import "time"

// Record is the persisted form of a behavior: identity, requested cowns and
// lifecycle timestamps, without the body or any payload references.
type Record struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Cowns       []uint64   `json:"cowns"`
	State       State      `json:"state"`
	Error       string     `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if len(r.Cowns) > 0 {
		clone.Cowns = append([]uint64(nil), r.Cowns...)
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		clone.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		clone.CompletedAt = &t
	}
	return &clone
}
