package journal

import (
	"fmt"
	"time"
)

// DefaultPeerAverages are the average daily practice seconds of players with
// the same profile, indexed by weekday (Sunday first).
var DefaultPeerAverages = []int{2700, 2100, 2400, 2800, 2500, 4200, 4800}

// Comparison is one day of the user's practice next to the peer average.
type Comparison struct {
	Date        time.Time `json:"date"`
	UserSeconds int       `json:"user_seconds"`
	PeerSeconds int       `json:"peer_seconds"`
}

// Compare pairs each day with the peer average for its weekday. peers must
// hold seven values, Sunday first; nil selects DefaultPeerAverages.
func Compare(days []Day, peers []int) ([]Comparison, error) {
	if peers == nil {
		peers = DefaultPeerAverages
	}
	if len(peers) != 7 {
		return nil, fmt.Errorf("peer averages: want 7 values, got %d", len(peers))
	}
	out := make([]Comparison, len(days))
	for i, d := range days {
		out[i] = Comparison{
			Date:        d.Date,
			UserSeconds: d.TotalSeconds,
			PeerSeconds: peers[d.Weekday()],
		}
	}
	return out, nil
}

// ComparisonMax returns the largest user or peer value, never less than 1.
func ComparisonMax(cs []Comparison) int {
	hi := 1
	for _, c := range cs {
		if c.UserSeconds > hi {
			hi = c.UserSeconds
		}
		if c.PeerSeconds > hi {
			hi = c.PeerSeconds
		}
	}
	return hi
}

// ComparisonTotals sums both columns.
func ComparisonTotals(cs []Comparison) (user, peer int) {
	for _, c := range cs {
		user += c.UserSeconds
		peer += c.PeerSeconds
	}
	return user, peer
}
