package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvidala/gavel/internal/app"
	"github.com/mvidala/gavel/internal/domain"
)

// AuctionCreator is the minimal interface needed to list an auction.
type AuctionCreator interface {
	CreateAuction(ctx context.Context, in app.CreateAuctionInput) (domain.Auction, error)
}

// StateReader serves the observable auction state.
type StateReader interface {
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (app.CurrentState, error)
}

// BidPlacer is the minimal interface needed to place a bid.
type BidPlacer interface {
	PlaceBid(ctx context.Context, in app.PlaceBidInput) (app.PlaceBidResult, error)
}

// Purchaser is the minimal interface needed for the buy-now path.
type Purchaser interface {
	BuyNow(ctx context.Context, auctionID, buyerID uuid.UUID) (domain.Auction, error)
}

// BidderRejecter is the minimal interface needed to ban a bidder.
type BidderRejecter interface {
	RejectBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (app.RejectBidderResult, error)
}

// HandleCreateAuction returns an HTTP handler for listing auctions.
func HandleCreateAuction(svc AuctionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createAuctionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid seller_id")
			return
		}
		endTime, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidEndTime, "invalid end_time format")
			return
		}

		auction, err := svc.CreateAuction(r.Context(), app.CreateAuctionInput{
			SellerID:        sellerID,
			Title:           req.Title,
			StartPrice:      req.StartPrice,
			StepPrice:       req.StepPrice,
			BuyNowPrice:     req.BuyNowPrice,
			EndTime:         endTime,
			AutoExtend:      req.AutoExtend,
			InstantPurchase: req.InstantPurchase,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(auctionResponse{
			ID:           auction.ID.String(),
			Status:       string(auction.Status),
			CurrentPrice: auction.CurrentPrice,
			EndTime:      auction.EndTime,
		})
	}
}

// HandleAuctionRoutes dispatches /auctions/{id} and its bidding sub-routes.
func HandleAuctionRoutes(state StateReader, bids BidPlacer, purchases Purchaser, bans BidderRejecter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, sub, ok := parseAuctionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch sub {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleGetState(w, r, state, auctionID)
		case "bids":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handlePlaceBid(w, r, bids, auctionID)
		case "purchase":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleBuyNow(w, r, purchases, auctionID)
		case "rejections":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleRejectBidder(w, r, bans, auctionID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleGetState(w http.ResponseWriter, r *http.Request, svc StateReader, auctionID uuid.UUID) {
	cur, err := svc.GetAuctionState(r.Context(), auctionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := stateResponse{
		AuctionID:            cur.State.AuctionID.String(),
		Status:               string(cur.State.Status),
		CurrentPrice:         cur.State.CurrentPrice,
		BidCount:             cur.State.BidCount,
		EndTime:              cur.State.EndTime,
		TimeRemainingSeconds: int64(cur.TimeRemaining / time.Second),
	}
	if cur.State.CurrentLeaderID != nil {
		id := cur.State.CurrentLeaderID.String()
		resp.CurrentLeaderID = &id
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func handlePlaceBid(w http.ResponseWriter, r *http.Request, svc BidPlacer, auctionID uuid.UUID) {
	var req placeBidRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	bidderID, err := uuid.Parse(req.BidderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid bidder_id")
		return
	}

	res, err := svc.PlaceBid(r.Context(), app.PlaceBidInput{
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxBid:    req.MaxBid,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := placeBidResponse{
		BidID:        res.Bid.ID.String(),
		IsLeading:    res.IsLeading,
		CurrentPrice: res.Auction.CurrentPrice,
		EndTime:      res.Auction.EndTime,
	}
	if res.Auction.CurrentLeaderID != nil {
		id := res.Auction.CurrentLeaderID.String()
		resp.CurrentLeaderID = &id
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func handleBuyNow(w http.ResponseWriter, r *http.Request, svc Purchaser, auctionID uuid.UUID) {
	var req purchaseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	buyerID, err := uuid.Parse(req.BuyerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid buyer_id")
		return
	}

	auction, err := svc.BuyNow(r.Context(), auctionID, buyerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := auctionResponse{
		ID:           auction.ID.String(),
		Status:       string(auction.Status),
		CurrentPrice: auction.CurrentPrice,
		EndTime:      auction.EndTime,
	}
	if auction.CurrentLeaderID != nil {
		id := auction.CurrentLeaderID.String()
		resp.WinnerID = &id
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func handleRejectBidder(w http.ResponseWriter, r *http.Request, svc BidderRejecter, auctionID uuid.UUID) {
	var req rejectBidderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	bidderID, err := uuid.Parse(req.BidderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid bidder_id")
		return
	}

	res, err := svc.RejectBidder(r.Context(), auctionID, bidderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := rejectBidderResponse{
		AuctionID:     res.Auction.ID.String(),
		CurrentPrice:  res.Auction.CurrentPrice,
		LeaderChanged: res.LeaderChanged,
	}
	if res.Auction.CurrentLeaderID != nil {
		id := res.Auction.CurrentLeaderID.String()
		resp.CurrentLeaderID = &id
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func parseAuctionPath(path string) (uuid.UUID, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "auctions" {
		return uuid.UUID{}, "", false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.UUID{}, "", false
	}
	if len(parts) == 2 {
		return id, "", true
	}
	return id, parts[2], true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidAmount:
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrBidTooLow:
		writeError(w, http.StatusBadRequest, codeBidTooLow, err.Error())
	case domain.ErrAuctionNotFound:
		writeError(w, http.StatusNotFound, codeAuctionNotFound, err.Error())
	case domain.ErrUserNotFound:
		writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
	case domain.ErrAuctionEnded:
		writeError(w, http.StatusConflict, codeAuctionEnded, err.Error())
	case domain.ErrAlreadyBanned:
		writeError(w, http.StatusConflict, codeAlreadyBanned, err.Error())
	case domain.ErrBuyNowUnavailable:
		writeError(w, http.StatusConflict, codeBuyNowUnavailable, err.Error())
	case domain.ErrBidderBanned:
		writeError(w, http.StatusForbidden, codeBidderBanned, err.Error())
	case domain.ErrUnratedBidder:
		writeError(w, http.StatusForbidden, codeUnratedBidder, err.Error())
	case domain.ErrReputationTooLow:
		writeError(w, http.StatusForbidden, codeReputationTooLow, err.Error())
	case domain.ErrSellerRoleRequired:
		writeError(w, http.StatusForbidden, codeSellerRoleRequired, err.Error())
	case domain.ErrConcurrencyConflict:
		writeError(w, http.StatusServiceUnavailable, codeConcurrencyConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createAuctionRequest struct {
	SellerID        string           `json:"seller_id"`
	Title           string           `json:"title"`
	StartPrice      decimal.Decimal  `json:"start_price"`
	StepPrice       decimal.Decimal  `json:"step_price"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price"`
	EndTime         string           `json:"end_time"`
	AutoExtend      bool             `json:"auto_extend"`
	InstantPurchase bool             `json:"instant_purchase"`
}

type auctionResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	WinnerID     *string         `json:"winner_id,omitempty"`
	EndTime      time.Time       `json:"end_time"`
}

type stateResponse struct {
	AuctionID            string          `json:"auction_id"`
	Status               string          `json:"status"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	CurrentLeaderID      *string         `json:"current_leader_id"`
	BidCount             int             `json:"bid_count"`
	EndTime              time.Time       `json:"end_time"`
	TimeRemainingSeconds int64           `json:"time_remaining_seconds"`
}

type placeBidRequest struct {
	BidderID string          `json:"bidder_id"`
	MaxBid   decimal.Decimal `json:"max_bid"`
}

type placeBidResponse struct {
	BidID           string          `json:"bid_id"`
	IsLeading       bool            `json:"is_leading"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentLeaderID *string         `json:"current_leader_id"`
	EndTime         time.Time       `json:"end_time"`
}

type purchaseRequest struct {
	BuyerID string `json:"buyer_id"`
}

type rejectBidderRequest struct {
	BidderID string `json:"bidder_id"`
}

type rejectBidderResponse struct {
	AuctionID       string          `json:"auction_id"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentLeaderID *string         `json:"current_leader_id"`
	LeaderChanged   bool            `json:"leader_changed"`
}
