package agents

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

type countingRepo struct {
	agent *Agent
	err   error
	calls int
}

func (r *countingRepo) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Agent, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.agent, nil
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedRepositoryReadThrough(t *testing.T) {
	inner := &countingRepo{agent: &Agent{
		ID:            uuid.New(),
		Name:          "Support Bot",
		PhoneNumberID: "123",
		Status:        StatusActive,
	}}
	repo := NewCachedRepository(inner, newTestRedis(t), time.Minute, logging.Default())

	first, err := repo.GetByPhoneNumberID(context.Background(), "123")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := repo.GetByPhoneNumberID(context.Background(), "123")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected one inner lookup, got %d", inner.calls)
	}
	if first.ID != second.ID || second.Name != "Support Bot" {
		t.Errorf("cached agent mismatch: %+v vs %+v", first, second)
	}
}

func TestCachedRepositoryMissPropagates(t *testing.T) {
	inner := &countingRepo{err: ErrAgentNotFound}
	repo := NewCachedRepository(inner, newTestRedis(t), time.Minute, logging.Default())

	if _, err := repo.GetByPhoneNumberID(context.Background(), "nope"); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner lookup, got %d calls", inner.calls)
	}
}

func TestCachedRepositoryInvalidate(t *testing.T) {
	inner := &countingRepo{agent: &Agent{ID: uuid.New(), PhoneNumberID: "123"}}
	repo := NewCachedRepository(inner, newTestRedis(t), time.Minute, logging.Default())

	if _, err := repo.GetByPhoneNumberID(context.Background(), "123"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := repo.Invalidate(context.Background(), "123"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetByPhoneNumberID(context.Background(), "123"); err != nil {
		t.Fatalf("lookup after invalidate: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected two inner lookups after invalidate, got %d", inner.calls)
	}
}
