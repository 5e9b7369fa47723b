// Package notifications exposes the publish notification fan-out to
// machine callers (API key) and to a post's owner.
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratablog/internal/app/features/errors"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/inputval"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/stratablog/internal/app/system/notify"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PostGetter loads the post being announced.
type PostGetter interface {
	Get(ctx context.Context, id string) (*models.Post, error)
}

// Notifier runs the fan-out.
type Notifier interface {
	NotifyOnPublish(ctx context.Context, p notify.Publication) (*notify.Result, error)
}

// Handler serves /api/notifications.
type Handler struct {
	posts    PostGetter
	notifier Notifier
	policy   *authz.Policy
	apiKey   string
	errLog   *errors.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a notifications Handler.
func NewHandler(posts PostGetter, notifier Notifier, policy *authz.Policy, apiKey string, errLog *errors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		posts:    posts,
		notifier: notifier,
		policy:   policy,
		apiKey:   apiKey,
		errLog:   errLog,
		logger:   logger,
	}
}

// Routes mounts POST /send.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/send", h.send)
	return r
}

type sendRequest struct {
	BlogID          string `json:"blogId" validate:"required" label:"Blog ID"`
	CreatorID       string `json:"creatorId" validate:"required" label:"Creator ID"`
	CreatorName     string `json:"creatorName" validate:"required" label:"Creator name"`
	CreatorPhotoURL string `json:"creatorPhotoURL"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	byKey := auth.HasValidAPIKey(r, h.apiKey)
	identity := authz.FromRequest(r)
	if !byKey && identity == nil {
		jsonutil.Unauthorized(w, "authentication required")
		return
	}

	var req sendRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}

	// The fan-out outlives the router's request deadline; Batch bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Batch())
	defer cancel()

	if !byKey {
		post, err := h.posts.Get(ctx, req.BlogID)
		if err != nil {
			h.errLog.Write(w, r, "failed to load post", err)
			return
		}
		if err := h.policy.Check(identity, post.AuthorID); err != nil {
			jsonutil.WriteError(w, err)
			return
		}
	}

	res, err := h.notifier.NotifyOnPublish(ctx, notify.Publication{
		BlogID:          req.BlogID,
		CreatorID:       req.CreatorID,
		CreatorName:     req.CreatorName,
		CreatorPhotoURL: req.CreatorPhotoURL,
	})
	if err != nil {
		h.errLog.Write(w, r, "failed to send notifications", err)
		return
	}
	jsonutil.OK(w, res)
}
