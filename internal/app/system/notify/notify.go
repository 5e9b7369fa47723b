// Package notify fans a "new post" email out to a post's subscribers.
package notify

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/dalemusser/stratablog/internal/app/system/mailer"
	"github.com/dalemusser/stratablog/internal/app/system/metrics"
	"github.com/dalemusser/stratablog/internal/domain/models"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults applied by New.
const (
	DefaultConcurrency   = 4
	DefaultRatePerSecond = 10
)

// PostGetter loads a post by ID.
type PostGetter interface {
	Get(ctx context.Context, id string) (*models.Post, error)
}

// SubscriberLister lists the active subscriber emails of a post.
type SubscriberLister interface {
	ListActiveSubscribers(ctx context.Context, blogID string) ([]string, error)
}

// Config controls link building and dispatch pacing.
type Config struct {
	SiteURL       string
	Concurrency   int
	RatePerSecond float64
}

// Publication identifies the post being announced and who published it.
type Publication struct {
	BlogID          string
	CreatorID       string
	CreatorName     string
	CreatorPhotoURL string
}

// Recipient is the outcome of one send.
type Recipient struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result summarizes a fan-out.
type Result struct {
	TotalSubscribers int         `json:"totalSubscribers"`
	SuccessfulEmails int         `json:"successfulEmails"`
	FailedEmails     int         `json:"failedEmails"`
	Results          []Recipient `json:"results"`
}

// Service sends publish notifications.
type Service struct {
	posts   PostGetter
	subs    SubscriberLister
	sender  mailer.Sender
	siteURL string
	workers int
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New creates a Service. Zero concurrency or rate fall back to the defaults.
func New(posts PostGetter, subs SubscriberLister, sender mailer.Sender, cfg Config, m *metrics.Metrics, log *zap.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Service{
		posts:   posts,
		subs:    subs,
		sender:  sender,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		workers: cfg.Concurrency,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		metrics: m,
		log:     log,
	}
}

// NotifyOnPublish emails every active subscriber of the post. A failed send
// is recorded in the result and never stops the others. Errors are only
// returned when the post or its subscribers cannot be loaded.
func (s *Service) NotifyOnPublish(ctx context.Context, p Publication) (*Result, error) {
	post, err := s.posts.Get(ctx, p.BlogID)
	if err != nil {
		return nil, err
	}
	emails, err := s.subs.ListActiveSubscribers(ctx, p.BlogID)
	if err != nil {
		return nil, err
	}

	res := &Result{TotalSubscribers: len(emails), Results: []Recipient{}}
	if len(emails) == 0 {
		return res, nil
	}

	blogURL := s.BlogURL(p.BlogID)
	subject := mailer.BlogNotificationSubject(p.CreatorName, post.Title)

	res.Results = make([]Recipient, len(emails))
	var mu sync.Mutex
	wp := pool.New().WithMaxGoroutines(s.workers)
	for i, to := range emails {
		wp.Go(func() {
			r := s.sendOne(ctx, to, subject, mailer.BlogNotificationEmailData{
				SubscriberName:  localPart(to),
				CreatorName:     p.CreatorName,
				CreatorPhotoURL: p.CreatorPhotoURL,
				BlogTitle:       post.Title,
				BlogExcerpt:     post.Excerpt,
				BlogURL:         blogURL,
				UnsubscribeURL:  s.UnsubscribeURL(p.BlogID, to),
			})
			mu.Lock()
			res.Results[i] = r
			if r.Success {
				res.SuccessfulEmails++
			} else {
				res.FailedEmails++
			}
			mu.Unlock()
		})
	}
	wp.Wait()

	s.log.Info("publish notifications sent",
		zap.String("post_id", p.BlogID),
		zap.String("creator_id", p.CreatorID),
		zap.Int("total", res.TotalSubscribers),
		zap.Int("sent", res.SuccessfulEmails),
		zap.Int("failed", res.FailedEmails))
	return res, nil
}

func (s *Service) sendOne(ctx context.Context, to, subject string, data mailer.BlogNotificationEmailData) Recipient {
	if err := s.limiter.Wait(ctx); err != nil {
		s.metrics.EmailSent(false)
		return Recipient{Email: to, Error: err.Error()}
	}

	text, html := mailer.BlogNotificationEmail(data)
	err := s.sender.Send(mailer.Email{
		To:       to,
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,

		UnsubscribeURL: data.UnsubscribeURL,
	})
	s.metrics.EmailSent(err == nil)
	if err != nil {
		s.log.Warn("notification email failed", zap.String("to", to), zap.Error(err))
		return Recipient{Email: to, Error: err.Error()}
	}
	return Recipient{Email: to, Success: true}
}

// BlogURL is the public link to a post.
func (s *Service) BlogURL(blogID string) string {
	return s.siteURL + "/blog/" + url.PathEscape(blogID)
}

// UnsubscribeURL is the one-click unsubscribe link for email on blogID.
func (s *Service) UnsubscribeURL(blogID, email string) string {
	q := url.Values{}
	q.Set("blog", blogID)
	q.Set("email", email)
	return s.siteURL + "/unsubscribe?" + q.Encode()
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
