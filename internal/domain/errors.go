package domain

import "errors"

var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrAuctionEnded        = errors.New("auction ended")
	ErrBidderBanned        = errors.New("bidder banned from auction")
	ErrUnratedBidder       = errors.New("unrated bidders not allowed")
	ErrReputationTooLow    = errors.New("reputation too low")
	ErrBidTooLow           = errors.New("bid below required minimum")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidID           = errors.New("invalid id")
	ErrAlreadyBanned       = errors.New("bidder already banned")
	ErrBuyNowUnavailable   = errors.New("buy now not available")
	ErrSellerRoleRequired  = errors.New("seller role required")
	ErrUserNotFound        = errors.New("user not found")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)
