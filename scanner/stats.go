package scanner

import "sync/atomic"

// Stats holds process-wide counters. Each counter is updated atomically on
// its own; there is no ordering between counters while a scan is running.
type Stats struct {
	DirsFound      atomic.Uint64
	FilesFound     atomic.Uint64
	UnknownFound   atomic.Uint64
	FilterMatches  atomic.Uint64
	StatCalls      atomic.Uint64
	AccessACLs     atomic.Uint64
	DefaultACLs    atomic.Uint64
	Errors         atomic.Uint64
	BytesCopied    atomic.Uint64
	FilesNotCopied atomic.Uint64
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	DirsFound      uint64
	FilesFound     uint64
	UnknownFound   uint64
	FilterMatches  uint64
	StatCalls      uint64
	AccessACLs     uint64
	DefaultACLs    uint64
	Errors         uint64
	BytesCopied    uint64
	FilesNotCopied uint64
}

// Snapshot loads every counter. Only authoritative after the scan is done.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		DirsFound:      s.DirsFound.Load(),
		FilesFound:     s.FilesFound.Load(),
		UnknownFound:   s.UnknownFound.Load(),
		FilterMatches:  s.FilterMatches.Load(),
		StatCalls:      s.StatCalls.Load(),
		AccessACLs:     s.AccessACLs.Load(),
		DefaultACLs:    s.DefaultACLs.Load(),
		Errors:         s.Errors.Load(),
		BytesCopied:    s.BytesCopied.Load(),
		FilesNotCopied: s.FilesNotCopied.Load(),
	}
}

// Entries is the number of files and directories found.
func (s StatsSnapshot) Entries() uint64 {
	return s.DirsFound + s.FilesFound
}
