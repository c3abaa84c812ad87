package domain

import (
	"time"

	"github.com/google/uuid"
)

type PrivilegeStatus string

const (
	PrivilegeStatusActive     PrivilegeStatus = "active"
	PrivilegeStatusExpired    PrivilegeStatus = "expired"
	PrivilegeStatusDowngraded PrivilegeStatus = "downgraded"
)

// SellerPrivilege is a time-bounded grant of the seller role. The hourly
// sweep expires it at ExpiresAt and, after the grace window passes without
// renewal, downgrades it and returns the user to plain bidder.
type SellerPrivilege struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	GrantedAt time.Time
	ExpiresAt time.Time
	Status    PrivilegeStatus
}
