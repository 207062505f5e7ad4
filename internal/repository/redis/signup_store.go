package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"identity-sync-backend/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultSignupPrefix = "signup:attempt:"

// SignupStore keeps signup flows as JSON values with a TTL.
type SignupStore struct {
	client *goredis.Client
	prefix string
}

func NewSignupStore(client *goredis.Client, prefix string) *SignupStore {
	if prefix == "" {
		prefix = DefaultSignupPrefix
	}
	return &SignupStore{client: client, prefix: prefix}
}

var _ domain.SignupStore = (*SignupStore)(nil)

func (s *SignupStore) Load(ctx context.Context, id string) (*domain.SignupFlow, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load signup attempt: %w", err)
	}

	var flow domain.SignupFlow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return nil, fmt.Errorf("decode signup attempt: %w", err)
	}
	return &flow, nil
}

func (s *SignupStore) Save(ctx context.Context, flow *domain.SignupFlow, ttl time.Duration) error {
	raw, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode signup attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+flow.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save signup attempt: %w", err)
	}
	return nil
}

func (s *SignupStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("delete signup attempt: %w", err)
	}
	return nil
}
