package notify

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

// Subjects for outbound events. auction.closed is consumed by the post-sale
// workflow; the rest drive bidder/seller notifications.
const (
	SubjectBidPlaced     = "auction.bid_placed"
	SubjectOutbid        = "auction.outbid"
	SubjectBidderBanned  = "auction.bidder_banned"
	SubjectAuctionClosed = "auction.closed"
)

type BidPlacedEvent struct {
	AuctionID    uuid.UUID       `json:"auction_id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	BidderID     uuid.UUID       `json:"bidder_id"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	IsLeading    bool            `json:"is_leading"`
}

type OutbidEvent struct {
	AuctionID        uuid.UUID       `json:"auction_id"`
	PreviousLeaderID uuid.UUID       `json:"previous_leader_id"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
}

type BidderBannedEvent struct {
	AuctionID   uuid.UUID  `json:"auction_id"`
	BidderID    uuid.UUID  `json:"bidder_id"`
	NewLeaderID *uuid.UUID `json:"new_leader_id"`
}

type AuctionClosedEvent struct {
	AuctionID  uuid.UUID       `json:"auction_id"`
	WinnerID   *uuid.UUID      `json:"winner_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// Notifier dispatches events to interested parties. All methods are
// fire-and-forget: failures are logged by the implementation, never returned,
// so a dead broker cannot fail a committed bid or block a sweep.
type Notifier interface {
	BidPlaced(ev BidPlacedEvent)
	Outbid(ev OutbidEvent)
	BidderBanned(ev BidderBannedEvent)
	AuctionClosed(ev AuctionClosedEvent)
}

// NATSNotifier publishes events as JSON over NATS subjects.
type NATSNotifier struct {
	conn   *nats.Conn
	logger *log.Logger
}

func NewNATS(conn *nats.Conn, logger *log.Logger) *NATSNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &NATSNotifier{conn: conn, logger: logger}
}

func (n *NATSNotifier) BidPlaced(ev BidPlacedEvent)         { n.publish(SubjectBidPlaced, ev) }
func (n *NATSNotifier) Outbid(ev OutbidEvent)               { n.publish(SubjectOutbid, ev) }
func (n *NATSNotifier) BidderBanned(ev BidderBannedEvent)   { n.publish(SubjectBidderBanned, ev) }
func (n *NATSNotifier) AuctionClosed(ev AuctionClosedEvent) { n.publish(SubjectAuctionClosed, ev) }

func (n *NATSNotifier) publish(subject string, ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Printf("WARN: marshal %s event: %v", subject, err)
		return
	}
	if err := n.conn.Publish(subject, payload); err != nil {
		n.logger.Printf("WARN: publish %s event: %v", subject, err)
	}
}

// LogNotifier writes events to the log; used when no broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BidPlaced(ev BidPlacedEvent) {
	n.logger.Printf("notify bid_placed auction=%s bidder=%s price=%s leading=%t",
		ev.AuctionID, ev.BidderID, ev.CurrentPrice, ev.IsLeading)
}

func (n *LogNotifier) Outbid(ev OutbidEvent) {
	n.logger.Printf("notify outbid auction=%s previous_leader=%s price=%s",
		ev.AuctionID, ev.PreviousLeaderID, ev.CurrentPrice)
}

func (n *LogNotifier) BidderBanned(ev BidderBannedEvent) {
	n.logger.Printf("notify bidder_banned auction=%s bidder=%s", ev.AuctionID, ev.BidderID)
}

func (n *LogNotifier) AuctionClosed(ev AuctionClosedEvent) {
	winner := "none"
	if ev.WinnerID != nil {
		winner = ev.WinnerID.String()
	}
	n.logger.Printf("notify auction_closed auction=%s winner=%s final_price=%s",
		ev.AuctionID, winner, ev.FinalPrice)
}
