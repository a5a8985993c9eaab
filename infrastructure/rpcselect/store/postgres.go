// Package store provides rpcselect.Store implementations: a Postgres-backed
// store for production deployments and an in-memory store for tests and
// single-process setups.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/service_layer/infrastructure/rpcselect"
)

// row mirrors rpc_endpoints' columns for sqlx scanning.
type row struct {
	ID                string     `db:"id"`
	Chain             int64      `db:"chain"`
	URL               string     `db:"url"`
	State             string     `db:"state"`
	Priority          int        `db:"priority"`
	ConsecutiveErrors int        `db:"consecutive_errors"`
	ErrorMessage      string     `db:"error_message"`
	LastErrorAt       *time.Time `db:"last_error_at"`
	CreatedAt         time.Time  `db:"created_at"`
	ModifiedAt        time.Time  `db:"modified_at"`
}

func (r row) toEndpoint() rpcselect.Endpoint {
	return rpcselect.Endpoint{
		ID:                r.ID,
		Chain:             r.Chain,
		URL:               r.URL,
		State:             rpcselect.State(r.State),
		Priority:          r.Priority,
		ConsecutiveErrors: r.ConsecutiveErrors,
		ErrorMessage:      r.ErrorMessage,
		LastErrorAt:       r.LastErrorAt,
		CreatedAt:         r.CreatedAt,
		ModifiedAt:        r.ModifiedAt,
	}
}

// Postgres is a Postgres-backed rpcselect.Store, implemented against
// the rpc_endpoints table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an existing *sqlx.DB. Callers own the connection
// pool's lifecycle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const selectColumns = `id, chain, url, state, priority, consecutive_errors, error_message, last_error_at, created_at, modified_at`

func (p *Postgres) GetByChainAndState(ctx context.Context, chain int64, state rpcselect.State) ([]rpcselect.Endpoint, error) {
	var rows []row
	query := `SELECT ` + selectColumns + ` FROM rpc_endpoints WHERE chain = $1 AND state = $2 ORDER BY priority ASC, consecutive_errors ASC`
	if err := p.db.SelectContext(ctx, &rows, query, chain, state); err != nil {
		return nil, err
	}
	return toEndpoints(rows), nil
}

func (p *Postgres) GetByChain(ctx context.Context, chain int64) ([]rpcselect.Endpoint, error) {
	var rows []row
	query := `SELECT ` + selectColumns + ` FROM rpc_endpoints WHERE chain = $1 ORDER BY priority ASC, consecutive_errors ASC`
	if err := p.db.SelectContext(ctx, &rows, query, chain); err != nil {
		return nil, err
	}
	return toEndpoints(rows), nil
}

func (p *Postgres) GetByURL(ctx context.Context, url string) (*rpcselect.Endpoint, error) {
	var r row
	query := `SELECT ` + selectColumns + ` FROM rpc_endpoints WHERE url = $1`
	if err := p.db.GetContext(ctx, &r, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ep := r.toEndpoint()
	return &ep, nil
}

func (p *Postgres) GetByID(ctx context.Context, id string) (*rpcselect.Endpoint, error) {
	var r row
	query := `SELECT ` + selectColumns + ` FROM rpc_endpoints WHERE id = $1`
	if err := p.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ep := r.toEndpoint()
	return &ep, nil
}

func (p *Postgres) GetAll(ctx context.Context) ([]rpcselect.Endpoint, error) {
	var rows []row
	query := `SELECT ` + selectColumns + ` FROM rpc_endpoints ORDER BY chain ASC, priority ASC`
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return toEndpoints(rows), nil
}

func (p *Postgres) Add(ctx context.Context, ep *rpcselect.Endpoint) error {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ep.CreatedAt = now
	ep.ModifiedAt = now
	query := `INSERT INTO rpc_endpoints
		(id, chain, url, state, priority, consecutive_errors, error_message, last_error_at, created_at, modified_at)
		VALUES (:id, :chain, :url, :state, :priority, :consecutive_errors, :error_message, :last_error_at, :created_at, :modified_at)`
	_, err := p.db.NamedExecContext(ctx, query, fromEndpoint(*ep))
	return err
}

func (p *Postgres) Update(ctx context.Context, ep *rpcselect.Endpoint) error {
	ep.ModifiedAt = time.Now().UTC()
	query := `UPDATE rpc_endpoints SET
		chain = :chain, url = :url, state = :state, priority = :priority,
		consecutive_errors = :consecutive_errors, error_message = :error_message,
		last_error_at = :last_error_at, modified_at = :modified_at
		WHERE id = :id`
	_, err := p.db.NamedExecContext(ctx, query, fromEndpoint(*ep))
	return err
}

func fromEndpoint(ep rpcselect.Endpoint) row {
	return row{
		ID:                ep.ID,
		Chain:             ep.Chain,
		URL:               ep.URL,
		State:             string(ep.State),
		Priority:          ep.Priority,
		ConsecutiveErrors: ep.ConsecutiveErrors,
		ErrorMessage:      ep.ErrorMessage,
		LastErrorAt:       ep.LastErrorAt,
		CreatedAt:         ep.CreatedAt,
		ModifiedAt:        ep.ModifiedAt,
	}
}

func toEndpoints(rows []row) []rpcselect.Endpoint {
	out := make([]rpcselect.Endpoint, len(rows))
	for i, r := range rows {
		out[i] = r.toEndpoint()
	}
	return out
}
