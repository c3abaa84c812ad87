package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidAmount       = "invalid_amount"
	codeInvalidEndTime      = "invalid_end_time"
	codeAuctionNotFound     = "auction_not_found"
	codeAuctionEnded        = "auction_ended"
	codeBidTooLow           = "bid_too_low"
	codeBidderBanned        = "bidder_banned"
	codeUnratedBidder       = "unrated_bidder_not_allowed"
	codeReputationTooLow    = "reputation_too_low"
	codeAlreadyBanned       = "bidder_already_banned"
	codeBuyNowUnavailable   = "buy_now_unavailable"
	codeSellerRoleRequired  = "seller_role_required"
	codeUserNotFound        = "user_not_found"
	codeConcurrencyConflict = "concurrency_conflict"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
