package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for notification storage. Each
// record is the unit of mutation; no cross-record transactions are
// assumed.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id, recipientID string) (*Notification, error)
	List(ctx context.Context, recipientID string, filter ListFilter) ([]*Notification, int, error)
	SetDelivery(ctx context.Context, id string, ch Channel, d ChannelDelivery) error
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	DeleteAll(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	Stats(ctx context.Context, recipientID string) (*Stats, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InMemoryRepository is an in-memory implementation of Repository,
// used in tests and when no database is configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Notification
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*Notification)}
}

// Create stores the record.
func (r *InMemoryRepository) Create(ctx context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := cloneNotification(n)
	r.records[n.ID] = clone
	return nil
}

// GetByID returns the record if it belongs to recipientID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id, recipientID string) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.records[id]
	if !ok || n.RecipientID != recipientID {
		return nil, ErrNotFound
	}
	return cloneNotification(n), nil
}

// List returns one page, newest first, plus the filtered total.
func (r *InMemoryRepository) List(ctx context.Context, recipientID string, filter ListFilter) ([]*Notification, int, error) {
	filter.normalize()

	r.mu.RLock()
	var matched []*Notification
	for _, n := range r.records {
		if n.RecipientID != recipientID {
			continue
		}
		if !matchesFilter(n, &filter) {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*Notification{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// SetDelivery records the outcome of one channel attempt.
func (r *InMemoryRepository) SetDelivery(ctx context.Context, id string, ch Channel, d ChannelDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if n.Delivery == nil {
		n.Delivery = make(map[Channel]ChannelDelivery)
	}
	n.Delivery[ch] = d
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRead sets the read flag. ReadAt is re-stamped even when the
// record was already read; that matches the observed behavior callers
// depend on.
func (r *InMemoryRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok || n.RecipientID != recipientID {
		return nil, ErrNotFound
	}
	n.IsRead = true
	readAt := at
	n.ReadAt = &readAt
	n.UpdatedAt = at
	return cloneNotification(n), nil
}

// MarkAllRead flags every unread record for the recipient.
func (r *InMemoryRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.records {
		if n.RecipientID != recipientID || n.IsRead {
			continue
		}
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		n.UpdatedAt = at
		count++
	}
	return count, nil
}

// Delete removes a record owned by the recipient.
func (r *InMemoryRepository) Delete(ctx context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// DeleteAll removes every record for the recipient.
func (r *InMemoryRepository) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.records {
		if n.RecipientID == recipientID {
			delete(r.records, id)
			count++
		}
	}
	return count, nil
}

// UnreadCount counts unread records for the recipient. Expired records
// are deliberately not filtered out; they disappear when the sweep
// removes them.
func (r *InMemoryRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.records {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Stats aggregates the recipient's records by type and priority.
func (r *InMemoryRepository) Stats(ctx context.Context, recipientID string) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &Stats{
		ByType:     make(map[Type]int),
		ByPriority: make(map[Priority]int),
	}
	for _, n := range r.records {
		if n.RecipientID != recipientID {
			continue
		}
		stats.Total++
		if !n.IsRead {
			stats.Unread++
		}
		stats.ByType[n.Type]++
		stats.ByPriority[n.Priority]++
	}
	return stats, nil
}

// DeleteExpired removes every record whose expiry has passed.
func (r *InMemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.records {
		if n.ExpiresAt.Before(now) {
			delete(r.records, id)
			count++
		}
	}
	return count, nil
}

func matchesFilter(n *Notification, f *ListFilter) bool {
	if f.Type != nil && n.Type != *f.Type {
		return false
	}
	if f.Priority != nil && n.Priority != *f.Priority {
		return false
	}
	if f.IsRead != nil && n.IsRead != *f.IsRead {
		return false
	}
	if f.DateFrom != nil && n.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && n.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func cloneNotification(n *Notification) *Notification {
	clone := *n
	if n.Data != nil {
		clone.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			clone.Data[k] = v
		}
	}
	clone.Channels = append([]Channel(nil), n.Channels...)
	if n.Delivery != nil {
		clone.Delivery = make(map[Channel]ChannelDelivery, len(n.Delivery))
		for k, v := range n.Delivery {
			clone.Delivery[k] = v
		}
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		clone.ReadAt = &readAt
	}
	return &clone
}

var _ Repository = (*InMemoryRepository)(nil)
