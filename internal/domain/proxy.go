package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the observable auction state implied by a bid history: who leads
// and what the current price is.
type Outcome struct {
	LeaderID *uuid.UUID
	Price    decimal.Decimal
}

// ReplayBids folds a valid-bid history, in arrival order, into the current
// leader and price. It is the single definition of the proxy-bidding result:
// placement appends one bid and replays; a ban filters the history and
// replays the remainder with the same function.
//
// Rules, applied per bid against the running leader L:
//   - the first bid leads at startPrice (nothing competes yet);
//   - a bid from L raises L's private ceiling and never moves the price;
//   - a challenger at or below L's ceiling loses, and the price rises to the
//     challenger's ceiling (the second-highest ceiling becomes visible);
//   - a challenger above L's ceiling takes the lead at one step over L's old
//     ceiling, capped by the challenger's own.
//
// The fold never rejects a bid; minimum-increment enforcement happens at
// placement time against the live price. A replayed bid whose ceiling equals
// the running price simply passes through without raising it.
func ReplayBids(bids []Bid, startPrice, stepPrice decimal.Decimal) Outcome {
	out := Outcome{Price: startPrice}
	var leaderMax decimal.Decimal

	for i := range bids {
		b := bids[i]

		if out.LeaderID == nil {
			leader := b.BidderID
			out.LeaderID = &leader
			leaderMax = b.MaxBid
			continue
		}

		if b.BidderID == *out.LeaderID {
			if b.MaxBid.GreaterThan(leaderMax) {
				leaderMax = b.MaxBid
			}
			continue
		}

		if b.MaxBid.LessThanOrEqual(leaderMax) {
			if b.MaxBid.GreaterThan(out.Price) {
				out.Price = b.MaxBid
			}
			continue
		}

		price := leaderMax.Add(stepPrice)
		if price.GreaterThan(b.MaxBid) {
			price = b.MaxBid
		}
		if price.GreaterThan(out.Price) {
			out.Price = price
		}
		leader := b.BidderID
		out.LeaderID = &leader
		leaderMax = b.MaxBid
	}

	return out
}

// MinimumBid returns the smallest acceptable ceiling for the next bid: the
// start price while the auction has no valid bids, one step over the current
// price after that.
func MinimumBid(a Auction, validBidCount int) decimal.Decimal {
	if validBidCount == 0 {
		return a.StartPrice
	}
	return a.CurrentPrice.Add(a.StepPrice)
}
