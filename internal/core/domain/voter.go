package domain

import (
	"time"
)

const VerificationBasicFormat = "basic_format_check"

// VoterRecord tracks a voter identity and the votes it cast inside the
// current rate window. VoteTimestamps is kept in ascending order.
type VoterRecord struct {
	Address            string      `json:"address"`
	FirstSeen          time.Time   `json:"firstSeen"`
	VerifiedAt         time.Time   `json:"verifiedAt"`
	VerificationMethod string      `json:"verificationMethod"`
	VoteTimestamps     []time.Time `json:"-"`
}

func NewVoterRecord(address string, now time.Time) *VoterRecord {
	return &VoterRecord{
		Address:            address,
		FirstSeen:          now,
		VerifiedAt:         now,
		VerificationMethod: VerificationBasicFormat,
	}
}

// Prune drops timestamps at or before windowStart.
func (r *VoterRecord) Prune(windowStart time.Time) {
	kept := r.VoteTimestamps[:0]
	for _, ts := range r.VoteTimestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	r.VoteTimestamps = kept
}

func (r *VoterRecord) Clone() *VoterRecord {
	c := *r
	c.VoteTimestamps = append([]time.Time(nil), r.VoteTimestamps...)
	return &c
}

type RateLimitStatus struct {
	Limit          int        `json:"limit"`
	Used           int        `json:"used"`
	RemainingVotes int        `json:"remainingVotes"`
	ResetTime      *time.Time `json:"resetTime"`
}

// RateStatus assumes the record has been pruned for now. ResetTime is when the
// oldest counted vote leaves the window.
func (r *VoterRecord) RateStatus(window time.Duration, limit int) RateLimitStatus {
	used := len(r.VoteTimestamps)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	status := RateLimitStatus{
		Limit:          limit,
		Used:           used,
		RemainingVotes: remaining,
	}
	if used > 0 {
		reset := r.VoteTimestamps[0].Add(window)
		status.ResetTime = &reset
	}
	return status
}
