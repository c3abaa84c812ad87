package app

import (
	"time"

	"github.com/mvidala/gavel/internal/domain"
)

const defaultReputationThreshold = 0.8

// EligibilityGuard decides whether a bidder may act on an auction. It is a
// pure check with no side effects; services re-run it inside the placement
// transaction against the locked auction row to close the check/write race.
type EligibilityGuard struct {
	threshold float64
}

// NewEligibilityGuard builds a guard with the given positive-rating ratio
// threshold; non-positive values fall back to the default.
func NewEligibilityGuard(threshold float64) EligibilityGuard {
	if threshold <= 0 {
		threshold = defaultReputationThreshold
	}
	return EligibilityGuard{threshold: threshold}
}

// Admit runs the full bid-eligibility chain, short-circuiting on the first
// failure: auction still open and not past its deadline, bidder not banned,
// reputation gate.
func (g EligibilityGuard) Admit(a domain.Auction, bidder domain.User, banned bool, now time.Time) error {
	if a.Status != domain.AuctionStatusOpen || !now.Before(a.EndTime) {
		return domain.ErrAuctionEnded
	}
	if banned {
		return domain.ErrBidderBanned
	}
	return g.AdmitReputation(a, bidder)
}

// AdmitReputation runs only the reputation gate. Buy-now uses this directly:
// it is itself a closing action, so the deadline check does not apply.
func (g EligibilityGuard) AdmitReputation(a domain.Auction, bidder domain.User) error {
	if bidder.TotalRatings == 0 {
		if !a.InstantPurchase {
			return domain.ErrUnratedBidder
		}
		return nil
	}
	ratio := float64(bidder.PositiveRatings) / float64(bidder.TotalRatings)
	if ratio < g.threshold {
		return domain.ErrReputationTooLow
	}
	return nil
}
