// Package payments keeps deposit payments that were started but not yet
// confirmed by the gateway callback.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrPendingNotFound means the reference expired, was already consumed or never existed.
	ErrPendingNotFound = errors.New("pending payment not found")
	ErrDuplicateRef    = errors.New("pending payment reference already in use")
)

// PendingPayment is a deposit waiting for the gateway confirmation.
type PendingPayment struct {
	TxnRef        string    `json:"txnRef"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Store is a TTL-bounded Redis store of pending payments keyed by transaction
// reference.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("payments: redis client cannot be nil")
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("evservice.internal.payments"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL is how long a pending payment stays claimable.
func (s *Store) TTL() time.Duration { return s.ttl }

// Save stores p under its reference. An existing reference is never overwritten.
func (s *Store) Save(ctx context.Context, p *PendingPayment) error {
	ctx, span := s.tracer.Start(ctx, "payments.save_pending")
	defer span.End()

	if p.TxnRef == "" {
		return fmt.Errorf("payments: empty transaction reference")
	}
	p.CreatedAt = s.now()
	p.ExpiresAt = p.CreatedAt.Add(s.ttl)

	data, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: failed to marshal pending payment: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, pendingKey(p.TxnRef), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: failed to persist pending payment: %w", err)
	}
	if !ok {
		return ErrDuplicateRef
	}
	return nil
}

// Consume atomically reads and deletes the pending payment of ref, so a
// callback delivered twice confirms at most once.
func (s *Store) Consume(ctx context.Context, ref string) (*PendingPayment, error) {
	ctx, span := s.tracer.Start(ctx, "payments.consume_pending")
	defer span.End()

	data, err := s.redis.GetDel(ctx, pendingKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("payments: failed to load pending payment: %w", err)
	}

	var p PendingPayment
	if err := json.Unmarshal(data, &p); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payments: failed to decode pending payment: %w", err)
	}
	return &p, nil
}

// NewTxnRef builds a gateway reference from the appointment number.
func NewTxnRef(appointmentNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("DEP-%s-%s", appointmentNumber, suffix)
}

func pendingKey(ref string) string {
	return fmt.Sprintf("payment:pending:%s", ref)
}
