package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repository defines read access to configured agents.
type Repository interface {
	GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Agent, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads agents from the relational database.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool rowQuerier) *PostgresRepository {
	if pool == nil {
		panic("agents: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetByPhoneNumberID fetches the agent owning a WhatsApp phone number id.
func (r *PostgresRepository) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Agent, error) {
	query := `
		SELECT id, user_id, name, phone_number_id, access_token, status,
			model, temperature, max_tokens, system_prompt, personality, context, created_at
		FROM agents
		WHERE phone_number_id = $1
	`
	row := r.pool.QueryRow(ctx, query, phoneNumberID)

	var agent Agent
	var personality []byte
	if err := row.Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Name,
		&agent.PhoneNumberID,
		&agent.AccessToken,
		&agent.Status,
		&agent.Model,
		&agent.Temperature,
		&agent.MaxTokens,
		&agent.SystemPrompt,
		&personality,
		&agent.Context,
		&agent.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("agents: select by phone number id: %w", err)
	}
	if len(personality) > 0 {
		if err := json.Unmarshal(personality, &agent.Personality); err != nil {
			return nil, fmt.Errorf("agents: decode personality: %w", err)
		}
	}
	return &agent, nil
}
