package model

import "sync/atomic"

// IDSource hands out increasing ids. Each task owns one so that node and
// solution ids are deterministic per task and isolated between tasks.
type IDSource struct {
	next atomic.Int64
}

func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next id, starting at 1.
func (s *IDSource) Next() int64 {
	return s.next.Add(1)
}

// Peek returns the last id handed out.
func (s *IDSource) Peek() int64 {
	return s.next.Load()
}
