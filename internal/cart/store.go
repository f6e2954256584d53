package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists one cart per session subject in Redis. Each cart belongs to
// exactly one cashier session; the TTL mirrors the auth cookie lifetime so an
// abandoned cart disappears with its session.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s *Store) key(subject string) string {
	return fmt.Sprintf("cart:%s", subject)
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

// Load fetches the session's cart, returning an empty cart when none exists.
func (s *Store) Load(ctx context.Context, subject string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	if subject == "" {
		return Cart{}, errors.New("session subject is required")
	}
	data, err := s.R.Get(ctx, s.key(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, nil
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		// a corrupt entry is unrecoverable; start the session fresh
		return Cart{}, nil
	}
	return c, nil
}

// Save writes the cart back and refreshes its TTL.
func (s *Store) Save(ctx context.Context, subject string, c Cart) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	if subject == "" {
		return errors.New("session subject is required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(subject), data, s.ttl()).Err()
}

// Delete removes the session's cart entirely.
func (s *Store) Delete(ctx context.Context, subject string) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	return s.R.Del(ctx, s.key(subject)).Err()
}

// Update applies fn to the session's cart inside a load-modify-save cycle.
// The cart is owned by a single session so no cross-session locking applies.
func (s *Store) Update(ctx context.Context, subject string, fn func(*Cart)) (Cart, error) {
	c, err := s.Load(ctx, subject)
	if err != nil {
		return Cart{}, err
	}
	fn(&c)
	if err := s.Save(ctx, subject, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}
