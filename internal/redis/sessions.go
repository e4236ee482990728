package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:checkout:"

// CheckoutSession bridges the two-phase guest checkout: contact details are
// captured when the payment intent is created and consumed once the charge
// is confirmed. Stored with a TTL so abandoned checkouts expire on their own.
type CheckoutSession struct {
	TxRef      string    `json:"tx_ref"`
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	GuestPhone string    `json:"guest_phone"`
	CreatedAt  time.Time `json:"created_at"`
}

// CheckoutSessionStore is a redis-backed keyed store with a fixed TTL. It is
// injected rather than process-global so multiple worker processes share it.
type CheckoutSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckoutSessionStore creates a new CheckoutSessionStore.
func NewCheckoutSessionStore(client *redis.Client, ttl time.Duration) *CheckoutSessionStore {
	return &CheckoutSessionStore{client: client, ttl: ttl}
}

// Put stores a session keyed by tx_ref.
func (s *CheckoutSessionStore) Put(ctx context.Context, session *CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.TxRef, data, s.ttl).Err()
}

// Get retrieves a session by tx_ref. Returns nil on a miss or after expiry.
func (s *CheckoutSessionStore) Get(ctx context.Context, txRef string) (*CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+txRef).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes a consumed session.
func (s *CheckoutSessionStore) Delete(ctx context.Context, txRef string) error {
	return s.client.Del(ctx, sessionKeyPrefix+txRef).Err()
}
