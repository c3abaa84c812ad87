package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mvidala/gavel/internal/app"
	"github.com/mvidala/gavel/internal/domain"
)

// UserRegistrar is the minimal interface needed to register users.
type UserRegistrar interface {
	RegisterUser(ctx context.Context, in app.RegisterUserInput) (domain.User, error)
}

// PrivilegeGranter is the minimal interface needed to grant seller privileges.
type PrivilegeGranter interface {
	GrantSellerPrivilege(ctx context.Context, userID uuid.UUID) (domain.SellerPrivilege, error)
}

// HandleRegisterUser returns an HTTP handler for account registration.
func HandleRegisterUser(svc UserRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req registerUserRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, err := svc.RegisterUser(r.Context(), app.RegisterUserInput{
			Role:            domain.Role(req.Role),
			PositiveRatings: req.PositiveRatings,
			TotalRatings:    req.TotalRatings,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(userResponse{
			ID:              user.ID.String(),
			Role:            string(user.Role),
			PositiveRatings: user.PositiveRatings,
			TotalRatings:    user.TotalRatings,
		})
	}
}

// HandleGrantPrivilege returns an HTTP handler for granting the seller role.
func HandleGrantPrivilege(svc PrivilegeGranter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req grantPrivilegeRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid user_id")
			return
		}

		privilege, err := svc.GrantSellerPrivilege(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(privilegeResponse{
			ID:        privilege.ID.String(),
			UserID:    privilege.UserID.String(),
			Status:    string(privilege.Status),
			ExpiresAt: privilege.ExpiresAt,
		})
	}
}

type registerUserRequest struct {
	Role            string `json:"role"`
	PositiveRatings int    `json:"positive_ratings"`
	TotalRatings    int    `json:"total_ratings"`
}

type userResponse struct {
	ID              string `json:"id"`
	Role            string `json:"role"`
	PositiveRatings int    `json:"positive_ratings"`
	TotalRatings    int    `json:"total_ratings"`
}

type grantPrivilegeRequest struct {
	UserID string `json:"user_id"`
}

type privilegeResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}
