package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvidala/gavel/internal/clock"
	"github.com/mvidala/gavel/internal/domain"
)

func TestBanService_RejectBidder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	seed := func() (*fakeRepo, domain.Auction) {
		repo := newFakeRepo()
		a := domain.Auction{
			ID:           uuid.New(),
			SellerID:     uuid.New(),
			StartPrice:   dec("50"),
			StepPrice:    dec("10"),
			EndTime:      now.Add(time.Hour),
			Status:       domain.AuctionStatusOpen,
			CurrentPrice: dec("50"),
		}
		repo.addAuction(a)
		return repo, a
	}

	placeHistory := func(repo *fakeRepo, auctionID uuid.UUID, entries ...domain.Bid) {
		for i := range entries {
			entries[i].AuctionID = auctionID
			entries[i].Status = domain.BidStatusValid
			repo.addBid(entries[i])
		}
		history, _ := repo.ListValidBids(context.Background(), auctionID)
		a, _ := repo.GetAuction(context.Background(), auctionID)
		out := domain.ReplayBids(history, a.StartPrice, a.StepPrice)
		_ = repo.UpdateAuctionBidState(context.Background(), auctionID, out.Price, out.LeaderID, a.EndTime)
	}

	t.Run("banning the leader restores the runner-up", func(t *testing.T) {
		repo, a := seed()
		placeHistory(repo, a.ID,
			domain.Bid{ID: uuid.New(), BidderID: alice, MaxBid: dec("100"), PlacedAt: now},
			domain.Bid{ID: uuid.New(), BidderID: bob, MaxBid: dec("150"), PlacedAt: now.Add(time.Second)},
			domain.Bid{ID: uuid.New(), BidderID: carol, MaxBid: dec("120"), PlacedAt: now.Add(2 * time.Second)},
		)

		notifier := &fakeNotifier{}
		svc := NewBanService(repo, clock.NewFixed(now), notifier, nil, nil)

		res, err := svc.RejectBidder(context.Background(), a.ID, bob)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Auction.CurrentLeaderID == nil || *res.Auction.CurrentLeaderID != carol {
			t.Fatalf("expected carol to lead after ban, got %v", res.Auction.CurrentLeaderID)
		}
		if !res.Auction.CurrentPrice.Equal(dec("110")) {
			t.Fatalf("expected replayed price 110, got %s", res.Auction.CurrentPrice)
		}
		if !res.LeaderChanged {
			t.Fatalf("expected leader change")
		}
		if res.BidCount != 2 {
			t.Fatalf("expected 2 surviving bids, got %d", res.BidCount)
		}
		if len(notifier.banned) != 1 {
			t.Fatalf("expected banned event, got %d", len(notifier.banned))
		}
		if notifier.banned[0].NewLeaderID == nil || *notifier.banned[0].NewLeaderID != carol {
			t.Fatalf("expected new leader in event, got %v", notifier.banned[0].NewLeaderID)
		}
	})

	t.Run("banning the only bidder reverts to start price", func(t *testing.T) {
		repo, a := seed()
		placeHistory(repo, a.ID,
			domain.Bid{ID: uuid.New(), BidderID: alice, MaxBid: dec("100"), PlacedAt: now},
		)
		svc := NewBanService(repo, clock.NewFixed(now), &fakeNotifier{}, nil, nil)

		res, err := svc.RejectBidder(context.Background(), a.ID, alice)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Auction.CurrentLeaderID != nil {
			t.Fatalf("expected no leader, got %v", res.Auction.CurrentLeaderID)
		}
		if !res.Auction.CurrentPrice.Equal(dec("50")) {
			t.Fatalf("expected start price 50, got %s", res.Auction.CurrentPrice)
		}
	})

	t.Run("banning a non-leader keeps leader and may lower nothing", func(t *testing.T) {
		repo, a := seed()
		placeHistory(repo, a.ID,
			domain.Bid{ID: uuid.New(), BidderID: alice, MaxBid: dec("100"), PlacedAt: now},
			domain.Bid{ID: uuid.New(), BidderID: bob, MaxBid: dec("80"), PlacedAt: now.Add(time.Second)},
		)
		svc := NewBanService(repo, clock.NewFixed(now), &fakeNotifier{}, nil, nil)

		res, err := svc.RejectBidder(context.Background(), a.ID, bob)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Auction.CurrentLeaderID == nil || *res.Auction.CurrentLeaderID != alice {
			t.Fatalf("expected alice to keep the lead")
		}
		if !res.Auction.CurrentPrice.Equal(dec("50")) {
			t.Fatalf("expected price to replay back to 50, got %s", res.Auction.CurrentPrice)
		}
		if res.LeaderChanged {
			t.Fatalf("leader did not change")
		}
	})

	t.Run("double ban is rejected", func(t *testing.T) {
		repo, a := seed()
		svc := NewBanService(repo, clock.NewFixed(now), &fakeNotifier{}, nil, nil)

		if _, err := svc.RejectBidder(context.Background(), a.ID, alice); err != nil {
			t.Fatalf("first ban: %v", err)
		}
		if _, err := svc.RejectBidder(context.Background(), a.ID, alice); err != domain.ErrAlreadyBanned {
			t.Fatalf("expected ErrAlreadyBanned, got %v", err)
		}
	})

	t.Run("ban on closed auction is rejected", func(t *testing.T) {
		repo, a := seed()
		repo.auctions[a.ID].Status = domain.AuctionStatusClosed
		svc := NewBanService(repo, clock.NewFixed(now), &fakeNotifier{}, nil, nil)

		if _, err := svc.RejectBidder(context.Background(), a.ID, alice); err != domain.ErrAuctionEnded {
			t.Fatalf("expected ErrAuctionEnded, got %v", err)
		}
	})

	t.Run("banned bidder cannot re-bid", func(t *testing.T) {
		repo, a := seed()
		repo.addUser(domain.User{ID: alice, PositiveRatings: 9, TotalRatings: 10})
		banSvc := NewBanService(repo, clock.NewFixed(now), &fakeNotifier{}, nil, nil)
		bidSvc := NewBidService(repo, clock.NewFixed(now), NewEligibilityGuard(0.8), &fakeNotifier{})

		if _, err := banSvc.RejectBidder(context.Background(), a.ID, alice); err != nil {
			t.Fatalf("ban: %v", err)
		}
		if _, err := bidSvc.PlaceBid(context.Background(), PlaceBidInput{AuctionID: a.ID, BidderID: alice, MaxBid: dec("100")}); err != domain.ErrBidderBanned {
			t.Fatalf("expected ErrBidderBanned, got %v", err)
		}
	})
}
