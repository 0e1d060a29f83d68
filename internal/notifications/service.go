package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/telehealth-platform/internal/observability"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Service coordinates notification creation, per-channel fan-out, and
// the recipient-facing read/delete operations.
type Service struct {
	repo     Repository
	registry *Registry
	cache    *UnreadCache
	metrics  *observability.NotificationMetrics
	logger   *logging.Logger
	ttl      time.Duration

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithUnreadCache attaches the Redis badge-count cache.
func WithUnreadCache(cache *UnreadCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.NotificationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTTL overrides the default record lifetime.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates the notification service.
func NewService(repo Repository, registry *Registry, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	s := &Service{
		repo:     repo,
		registry: registry,
		logger:   logger,
		ttl:      DefaultTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request, persists the record, then fans out to
// every requested channel concurrently. Channel failures are recorded on
// the record and never fail the call; only validation or persistence
// errors do.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	n := &Notification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Priority:    req.Priority,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		Channels:    req.Channels,
		Delivery:    make(map[Channel]ChannelDelivery, len(req.Channels)),
		ActionURL:   req.ActionURL,
		ActionText:  req.ActionText,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	s.metrics.RecordCreated(string(n.Type))

	s.fanOut(ctx, n)

	if err := s.cache.Invalidate(ctx, n.RecipientID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "recipient_id", n.RecipientID, "error", err)
	}

	s.logger.Info("notification created",
		"notification_id", n.ID,
		"recipient_id", n.RecipientID,
		"type", n.Type,
		"channels", len(n.Channels),
	)
	return n, nil
}

// fanOut attempts every requested channel concurrently and records each
// outcome on the stored record. One channel's failure never blocks or
// fails another's.
func (s *Service) fanOut(ctx context.Context, n *Notification) {
	start := s.now()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ch := range n.Channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			outcome := s.attempt(ctx, n, ch)

			mu.Lock()
			n.Delivery[ch] = outcome
			mu.Unlock()

			status := "delivered"
			if !outcome.Delivered {
				status = "failed"
			}
			s.metrics.RecordDelivery(string(ch), status)

			if err := s.repo.SetDelivery(ctx, n.ID, ch, outcome); err != nil {
				s.logger.Error("failed to record delivery outcome",
					"notification_id", n.ID, "channel", ch, "error", err)
			}
		}(ch)
	}
	wg.Wait()

	s.metrics.ObserveFanout(s.now().Sub(start).Seconds())
}

// attempt runs one channel delivery, converting panics in a sender into
// recorded failures.
func (s *Service) attempt(ctx context.Context, n *Notification, ch Channel) (outcome ChannelDelivery) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("channel sender panicked", "notification_id", n.ID, "channel", ch, "panic", r)
			at := s.now()
			outcome = ChannelDelivery{Delivered: false, DeliveredAt: &at, Error: fmt.Sprintf("sender panic: %v", r)}
		}
	}()

	sender, ok := s.registry.Sender(ch)
	if !ok {
		at := s.now()
		return ChannelDelivery{Delivered: false, DeliveredAt: &at, Error: "channel not configured"}
	}

	if err := sender.Send(ctx, n); err != nil {
		s.logger.Warn("channel delivery failed", "notification_id", n.ID, "channel", ch, "error", err)
		at := s.now()
		return ChannelDelivery{Delivered: false, DeliveredAt: &at, Error: err.Error()}
	}

	at := s.now()
	return ChannelDelivery{Delivered: true, DeliveredAt: &at}
}

// Get fetches one notification scoped to the recipient.
func (s *Service) Get(ctx context.Context, id, recipientID string) (*Notification, error) {
	return s.repo.GetByID(ctx, id, recipientID)
}

// List returns one page of the recipient's notifications. TotalCount
// respects the filter; UnreadCount is always the global badge count.
func (s *Service) List(ctx context.Context, recipientID string, filter ListFilter) (*ListResult, error) {
	filter.normalize()

	page, total, err := s.repo.List(ctx, recipientID, filter)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}

	return &ListResult{
		Notifications: page,
		TotalCount:    total,
		UnreadCount:   unread,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
	}, nil
}

// MarkAsRead flags one notification read. Calling it on an already-read
// record succeeds and refreshes read_at.
func (s *Service) MarkAsRead(ctx context.Context, id, recipientID string) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, recipientID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, recipientID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
	return n, nil
}

// MarkAllAsRead flags every unread notification for the recipient and
// returns how many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	if err := s.cache.Invalidate(ctx, recipientID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
	return count, nil
}

// Delete removes one notification owned by the recipient.
func (s *Service) Delete(ctx context.Context, id, recipientID string) error {
	if err := s.repo.Delete(ctx, id, recipientID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, recipientID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
	return nil
}

// DeleteAll removes every notification for the recipient.
func (s *Service) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.repo.DeleteAll(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	if err := s.cache.Invalidate(ctx, recipientID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
	return count, nil
}

// UnreadCount returns the recipient's badge count, served from cache
// when possible.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	if count, err := s.cache.Get(ctx, recipientID); err == nil {
		return count, nil
	}
	count, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, recipientID, count); err != nil {
		s.logger.Warn("unread cache write failed", "recipient_id", recipientID, "error", err)
	}
	return count, nil
}

// Stats aggregates the recipient's notifications by type and priority.
func (s *Service) Stats(ctx context.Context, recipientID string) (*Stats, error) {
	return s.repo.Stats(ctx, recipientID)
}

// CleanupExpired removes records past their expiry. Invoked by the
// scheduler; individual unread caches are left to expire on their own
// TTL rather than enumerating every affected user.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired notifications removed", "count", count)
	}
	return count, nil
}
