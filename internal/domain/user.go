package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleBidder Role = "bidder"
	RoleSeller Role = "seller"
)

// User mirrors the identity/reputation aggregate the engine consumes.
// Ratings feed the eligibility gate; Role is flipped back to bidder when a
// seller privilege lapses past its grace window.
type User struct {
	ID              uuid.UUID
	Role            Role
	PositiveRatings int
	TotalRatings    int
	CreatedAt       time.Time
}
