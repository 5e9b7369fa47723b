// Package creators serves creator profiles, membership tiers and reader
// memberships under /api/creators.
package creators

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/stratablog/internal/app/features/errors"
	creatorstore "github.com/dalemusser/stratablog/internal/app/store/creators"
	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/inputval"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/stratablog/internal/app/system/timefmt"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/creators.
type Handler struct {
	profiles    *creatorstore.Store
	memberships *creatorstore.MembershipStore
	policy      *authz.Policy
	errLog      *errors.ErrorLogger
	logger      *zap.Logger
}

// NewHandler creates a creators Handler.
func NewHandler(profiles *creatorstore.Store, memberships *creatorstore.MembershipStore, policy *authz.Policy, errLog *errors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		profiles:    profiles,
		memberships: memberships,
		policy:      policy,
		errLog:      errLog,
		logger:      logger,
	}
}

// Routes mounts the creator routes. Profiles and access checks are public;
// everything else needs a session.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/{userId}", h.getProfile)
	r.Get("/{userId}/access", h.access)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireSignedIn)
		r.Put("/{userId}", h.updateProfile)
		r.Post("/{userId}/tiers", h.addTier)
		r.Put("/{userId}/tiers/{tierId}", h.replaceTier)
		r.Delete("/{userId}/tiers/{tierId}", h.removeTier)
		r.Post("/{userId}/membership", h.subscribe)
		r.Delete("/{userId}/membership", h.cancel)
	})
	return r
}

// ProfileResponse is the wire form of a creator profile.
type ProfileResponse struct {
	ID                string                  `json:"id"`
	DisplayName       string                  `json:"displayName"`
	Bio               string                  `json:"bio"`
	IsCreator         bool                    `json:"isCreator"`
	MembershipEnabled bool                    `json:"membershipEnabled"`
	MembershipTiers   []models.MembershipTier `json:"membershipTiers"`
	SubscriptionCount int64                   `json:"subscriptionCount"`
	CreatedAt         string                  `json:"createdAt"`
	UpdatedAt         string                  `json:"updatedAt"`
}

func (h *Handler) toResponse(p *models.CreatorProfile) ProfileResponse {
	tiers := p.MembershipTiers
	if tiers == nil {
		tiers = []models.MembershipTier{}
	}
	return ProfileResponse{
		ID:                p.ID,
		DisplayName:       p.DisplayName,
		Bio:               p.Bio,
		IsCreator:         p.IsCreator,
		MembershipEnabled: p.MembershipEnabled,
		MembershipTiers:   tiers,
		SubscriptionCount: p.SubscriptionCount,
		CreatedAt:         timefmt.ToISOStringSafe(p.CreatedAt, h.logger),
		UpdatedAt:         timefmt.ToISOStringSafe(p.UpdatedAt, h.logger),
	}
}

// MembershipResponse is the wire form of a membership.
type MembershipResponse struct {
	ID           string `json:"id"`
	SubscriberID string `json:"subscriberId"`
	CreatorID    string `json:"creatorId"`
	TierID       string `json:"tierId"`
	Status       string `json:"status"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate,omitempty"`
}

func (h *Handler) toMembershipResponse(m *models.Membership) MembershipResponse {
	resp := MembershipResponse{
		ID:           m.ID.Hex(),
		SubscriberID: m.SubscriberID,
		CreatorID:    m.CreatorID,
		TierID:       m.TierID,
		Status:       m.Status,
		StartDate:    timefmt.ToISOStringSafe(m.StartDate, h.logger),
	}
	if m.EndDate != nil {
		resp.EndDate = timefmt.ToISOStringSafe(*m.EndDate, h.logger)
	}
	return resp
}

type profileRequest struct {
	DisplayName       *string `json:"displayName"`
	Bio               *string `json:"bio"`
	MembershipEnabled *bool   `json:"membershipEnabled"`
}

type tierRequest struct {
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
	Description string   `json:"description"`
}

// input checks the tier fields and converts them for the store.
func (req tierRequest) input() (creatorstore.TierInput, error) {
	res := &inputval.Result{}
	if strings.TrimSpace(req.Name) == "" {
		res.Add("name", "Name is required.")
	}
	switch {
	case req.Price == nil:
		res.Add("price", "Price is required.")
	case *req.Price < 0:
		res.Add("price", "Price must be zero or more.")
	}
	if c := strings.TrimSpace(req.Currency); c != "" && !inputval.IsValidCurrency(c) {
		res.Add("currency", "Currency must be a three-letter code.")
	}
	if err := res.Err(); err != nil {
		return creatorstore.TierInput{}, err
	}
	return creatorstore.TierInput{
		Name:        req.Name,
		Price:       *req.Price,
		Currency:    req.Currency,
		Features:    req.Features,
		Description: req.Description,
	}, nil
}

type membershipRequest struct {
	TierID string `json:"tierId" validate:"required" label:"Tier ID"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.profiles.GetProfile(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		h.errLog.Write(w, r, "failed to load creator profile", err)
		return
	}
	jsonutil.OK(w, h.toResponse(p))
}

// authorize allows the creator themself or an admin.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	if err := h.policy.Check(authz.FromRequest(r), userID); err != nil {
		jsonutil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !h.authorize(w, r, userID) {
		return
	}

	var req profileRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.profiles.UpsertProfile(ctx, userID, creatorstore.ProfileInput{
		DisplayName:       req.DisplayName,
		Bio:               req.Bio,
		MembershipEnabled: req.MembershipEnabled,
	})
	if err != nil {
		h.errLog.Write(w, r, "failed to save creator profile", err)
		return
	}
	jsonutil.OK(w, h.toResponse(p))
}

func decodeTier(w http.ResponseWriter, r *http.Request) (creatorstore.TierInput, bool) {
	var req tierRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return creatorstore.TierInput{}, false
	}
	in, err := req.input()
	if err != nil {
		jsonutil.WriteError(w, err)
		return creatorstore.TierInput{}, false
	}
	return in, true
}

func (h *Handler) addTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !h.authorize(w, r, userID) {
		return
	}
	in, ok := decodeTier(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.profiles.AddTier(ctx, userID, in)
	if err != nil {
		h.errLog.Write(w, r, "failed to add membership tier", err)
		return
	}
	jsonutil.Created(w, t)
}

func (h *Handler) replaceTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !h.authorize(w, r, userID) {
		return
	}
	in, ok := decodeTier(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.profiles.ReplaceTier(ctx, userID, chi.URLParam(r, "tierId"), in)
	if err != nil {
		h.errLog.Write(w, r, "failed to update membership tier", err)
		return
	}
	jsonutil.OK(w, t)
}

func (h *Handler) removeTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !h.authorize(w, r, userID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.profiles.RemoveTier(ctx, userID, chi.URLParam(r, "tierId")); err != nil {
		h.errLog.Write(w, r, "failed to remove membership tier", err)
		return
	}
	jsonutil.OK(w, map[string]any{"success": true, "message": "membership tier removed"})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	creatorID := chi.URLParam(r, "userId")

	var req membershipRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.profiles.GetProfile(ctx, creatorID)
	if err != nil {
		h.errLog.Write(w, r, "failed to load creator profile", err)
		return
	}
	if creatorstore.FindTier(p, req.TierID) == nil {
		jsonutil.WriteError(w, apperr.NotFound("membership tier not found"))
		return
	}

	m, err := h.memberships.Subscribe(ctx, user.ID, creatorID, req.TierID)
	if err != nil {
		h.errLog.Write(w, r, "failed to save membership", err)
		return
	}
	h.recount(ctx, creatorID)
	jsonutil.OK(w, map[string]any{
		"message":    "membership active",
		"membership": h.toMembershipResponse(m),
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	creatorID := chi.URLParam(r, "userId")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.memberships.Cancel(ctx, user.ID, creatorID)
	if err != nil {
		h.errLog.Write(w, r, "failed to cancel membership", err)
		return
	}
	h.recount(ctx, creatorID)
	jsonutil.OK(w, map[string]any{
		"message":    "membership cancelled",
		"membership": h.toMembershipResponse(m),
	})
}

// recount stores the creator's active member count. The membership change
// has already been written, so a failure here is only logged.
func (h *Handler) recount(ctx context.Context, creatorID string) {
	n, err := h.memberships.CountActive(ctx, creatorID)
	if err == nil {
		err = h.profiles.SetSubscriptionCount(ctx, creatorID, n)
	}
	if err != nil {
		h.logger.Warn("subscription count not updated",
			zap.String("creator_id", creatorID), zap.Error(err))
	}
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	var userID string
	if _, _, oid, ok := authz.UserCtx(r); ok {
		userID = oid.Hex()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ok, err := h.memberships.CanAccessMemberContent(ctx, userID, chi.URLParam(r, "userId"))
	if err != nil {
		h.errLog.Write(w, r, "failed to check member access", err)
		return
	}
	jsonutil.OK(w, map[string]bool{"canAccess": ok})
}
