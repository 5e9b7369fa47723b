// Package posts serves the blog post API: CRUD, view counting, cover
// uploads, and the publish notification trigger.
package posts

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/stratablog/internal/app/features/errors"
	poststore "github.com/dalemusser/stratablog/internal/app/store/posts"
	viewstore "github.com/dalemusser/stratablog/internal/app/store/views"
	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/auth"
	"github.com/dalemusser/stratablog/internal/app/system/authz"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"github.com/dalemusser/stratablog/internal/app/system/notify"
	"github.com/dalemusser/stratablog/internal/app/system/textutil"
	"github.com/dalemusser/stratablog/internal/app/system/timeouts"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxListLimit = 100

// Notifier announces a newly published post to its subscribers.
type Notifier interface {
	NotifyOnPublish(ctx context.Context, p notify.Publication) (*notify.Result, error)
}

// ViewEmitter queues a view increment without blocking.
type ViewEmitter interface {
	Emit(postID string) bool
}

// Handler serves /api/posts.
type Handler struct {
	posts    *poststore.Store
	views    *viewstore.Store
	queue    ViewEmitter
	covers   CoverStorage
	notifier Notifier
	policy   *authz.Policy
	errLog   *errors.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a posts Handler. covers may be nil, in which case
// cover uploads are refused.
func NewHandler(
	posts *poststore.Store,
	views *viewstore.Store,
	queue ViewEmitter,
	covers CoverStorage,
	notifier Notifier,
	policy *authz.Policy,
	errLog *errors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		posts:    posts,
		views:    views,
		queue:    queue,
		covers:   covers,
		notifier: notifier,
		policy:   policy,
		errLog:   errLog,
		logger:   logger,
	}
}

// Routes returns a chi.Router with the post routes mounted.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.With(sm.RequireSignedIn).Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/view", h.view)
	r.Post("/{id}/cover", h.uploadCover)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	filter := poststore.ListFilter{
		PublishedOnly: true,
		Tag:           strings.TrimSpace(q.Get("tag")),
		Limit:         parseLimit(q.Get("limit")),
	}
	if q.Get("mine") == "true" {
		if !authz.IsLoggedIn(r) {
			jsonutil.Unauthorized(w, "authentication required")
			return
		}
		filter.PublishedOnly = false
		filter.AuthorID = authz.FromRequest(r).ID
	}

	list, err := h.posts.List(ctx, filter)
	if err != nil {
		h.errLog.Write(w, r, "failed to list posts", err)
		return
	}

	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID.Hex()
	}
	counts, err := h.views.GetMany(ctx, ids)
	if err != nil {
		h.logger.Warn("view counts unavailable, listing with zeros", zap.Error(err))
		counts = viewstore.ZeroCounts(ids)
	}

	out := make([]PostResponse, len(list))
	for i := range list {
		out[i] = toResponse(&list[i], counts[ids[i]], h.logger)
	}
	jsonutil.OK(w, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.posts.Create(ctx, poststore.Author{
		ID:       user.ID,
		Name:     user.Name,
		PhotoURL: user.PhotoURL,
	}, poststore.CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		CoverImage: req.CoverImage,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		h.errLog.Write(w, r, "failed to create post", err)
		return
	}

	if p.Published {
		h.notifyAsync(r.Context(), p)
	}
	jsonutil.Created(w, toResponse(p, 0, h.logger))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.posts.Get(ctx, id)
	if err != nil {
		h.errLog.Write(w, r, "failed to load post", err)
		return
	}
	if !p.Published && !h.policy.CanMutate(authz.FromRequest(r), p.AuthorID) {
		jsonutil.NotFound(w, "post not found")
		return
	}

	count, err := h.views.Get(ctx, id)
	if err != nil {
		h.logger.Warn("view count unavailable", zap.String("post_id", id), zap.Error(err))
		count = 0
	}
	h.queue.Emit(id)

	resp := toResponse(p, count, h.logger)
	resp.TOC = textutil.TableOfContents(p.Content)
	jsonutil.OK(w, resp)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.authorize(ctx, r, id)
	if err != nil {
		h.errLog.Write(w, r, "failed to load post", err)
		return
	}

	after, err := h.posts.Update(ctx, id, poststore.UpdateInput{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		CoverImage: req.CoverImage,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		h.errLog.Write(w, r, "failed to update post", err)
		return
	}

	if before.CoverImageKey != "" && after.CoverImageKey == "" {
		h.removeCover(before.CoverImageKey)
	}
	if !before.Published && after.Published {
		h.notifyAsync(r.Context(), after)
	}

	count, err := h.views.Get(ctx, id)
	if err != nil {
		h.logger.Warn("view count unavailable", zap.String("post_id", id), zap.Error(err))
		count = 0
	}
	jsonutil.OK(w, toResponse(after, count, h.logger))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.authorize(ctx, r, id); err != nil {
		h.errLog.Write(w, r, "failed to load post", err)
		return
	}

	deleted, err := h.posts.Delete(ctx, id)
	if err != nil {
		h.errLog.Write(w, r, "failed to delete post", err)
		return
	}
	if deleted.CoverImageKey != "" {
		h.removeCover(deleted.CoverImageKey)
	}

	h.logger.Info("post deleted", zap.String("post_id", id))
	jsonutil.OK(w, map[string]any{"success": true, "message": "post deleted"})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	h.queue.Emit(chi.URLParam(r, "id"))
	jsonutil.Accepted(w, map[string]bool{"success": true})
}

// authorize loads the post and checks that the caller may mutate it.
func (h *Handler) authorize(ctx context.Context, r *http.Request, id string) (*models.Post, error) {
	identity := authz.FromRequest(r)
	if identity == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	p, err := h.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.policy.Check(identity, p.AuthorID); err != nil {
		return nil, err
	}
	return p, nil
}

// notifyAsync announces p without holding up the response. The work is
// detached from the request and bounded by the batch timeout.
func (h *Handler) notifyAsync(parent context.Context, p *models.Post) {
	if h.notifier == nil {
		return
	}
	pub := notify.Publication{
		BlogID:          p.ID.Hex(),
		CreatorID:       p.AuthorID,
		CreatorName:     p.AuthorName,
		CreatorPhotoURL: p.AuthorPhotoURL,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeouts.Batch())
		defer cancel()
		if _, err := h.notifier.NotifyOnPublish(ctx, pub); err != nil {
			h.logger.Warn("publish notification failed",
				zap.String("post_id", pub.BlogID), zap.Error(err))
		}
	}()
}

func parseLimit(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
