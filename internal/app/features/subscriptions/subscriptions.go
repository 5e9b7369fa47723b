// Package subscriptions serves blog email subscriptions: subscribe,
// one-click unsubscribe, and a signed-in reader's subscription list.
package subscriptions

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratablog/internal/app/features/errors"
	poststore "github.com/dalemusser/stratablog/internal/app/store/posts"
	substore "github.com/dalemusser/stratablog/internal/app/store/subscriptions"
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

// UnknownCreator names the author of a subscription whose post is gone.
const UnknownCreator = "Unknown Creator"

// Handler serves /api/blog.
type Handler struct {
	subs   *substore.Store
	posts  *poststore.Store
	policy *authz.Policy
	errLog *errors.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a subscriptions Handler.
func NewHandler(subs *substore.Store, posts *poststore.Store, policy *authz.Policy, errLog *errors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{subs: subs, posts: posts, policy: policy, errLog: errLog, logger: logger}
}

// Routes mounts the subscription routes. Unsubscribe is public so the
// link in every notification email works without signing in.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Post("/subscribe", h.subscribe)
	r.Post("/unsubscribe", h.unsubscribe)
	r.With(sm.RequireSignedIn).Get("/subscriptions", h.list)
	return r
}

type subscriptionRequest struct {
	BlogID string `json:"blogId" validate:"required" label:"Blog ID"`
	Email  string `json:"email" validate:"required,subemail" label:"Email"`
}

// SubscriptionResponse is the wire form of a subscription.
type SubscriptionResponse struct {
	ID          string `json:"id"`
	BlogID      string `json:"blogId"`
	Email       string `json:"email"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	BlogTitle   string `json:"blogTitle,omitempty"`
	CreatorName string `json:"creatorName,omitempty"`
}

func (h *Handler) toResponse(s *models.BlogSubscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:        s.ID.Hex(),
		BlogID:    s.BlogID.Hex(),
		Email:     s.Email,
		IsActive:  s.IsActive,
		CreatedAt: timefmt.ToISOStringSafe(s.CreatedAt, h.logger),
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (subscriptionRequest, bool) {
	var req subscriptionRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return req, false
	}
	if res := inputval.Validate(req); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return req, false
	}
	return req, true
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	post, err := h.posts.Get(ctx, req.BlogID)
	if err != nil {
		h.errLog.Write(w, r, "failed to load post", err)
		return
	}
	// Drafts stay hidden from everyone who could not open them.
	if !post.Published && !h.policy.CanMutate(authz.FromRequest(r), post.AuthorID) {
		jsonutil.NotFound(w, "post not found")
		return
	}

	sub, created, err := h.subs.Subscribe(ctx, user.ID, req.BlogID, req.Email)
	if err != nil {
		h.errLog.Write(w, r, "failed to subscribe", err)
		return
	}

	body := map[string]any{"subscription": h.toResponse(sub)}
	if created {
		body["message"] = "subscribed successfully"
		jsonutil.Created(w, body)
		return
	}
	body["message"] = "already subscribed"
	jsonutil.OK(w, body)
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.subs.Unsubscribe(ctx, req.BlogID, req.Email)
	if err != nil {
		h.errLog.Write(w, r, "failed to unsubscribe", err)
		return
	}
	if n == 0 {
		jsonutil.NotFound(w, "no active subscription found")
		return
	}
	jsonutil.OK(w, map[string]any{
		"message":     "unsubscribed successfully",
		"deactivated": n,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	subs, err := h.subs.ListByUser(ctx, user.ID)
	if err != nil {
		h.errLog.Write(w, r, "failed to list subscriptions", err)
		return
	}

	ids := make([]string, len(subs))
	for i := range subs {
		ids[i] = subs[i].BlogID.Hex()
	}
	posts, err := h.posts.GetByIDs(ctx, ids)
	if err != nil {
		h.logger.Warn("subscription posts unavailable", zap.Error(err))
		posts = map[string]models.Post{}
	}

	out := make([]SubscriptionResponse, len(subs))
	for i := range subs {
		resp := h.toResponse(&subs[i])
		if p, ok := posts[ids[i]]; ok {
			resp.BlogTitle = p.Title
			resp.CreatorName = p.AuthorName
		} else {
			resp.CreatorName = UnknownCreator
		}
		out[i] = resp
	}
	jsonutil.OK(w, map[string]any{"subscriptions": out})
}
