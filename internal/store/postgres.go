package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlInsertProfile = `INSERT INTO company_profiles (id, name, domain, industry, employee_count, profile, score, breakdown, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	sqlProfileExists = `SELECT 1 FROM company_profiles WHERE id = $1`
	sqlInsertInsight = `INSERT INTO insights (id, profile_id, summary, data, created_at) VALUES ($1, $2, $3, $4, $5)`
	sqlGetProfile    = `SELECT id, profile, score, breakdown, created_at FROM company_profiles WHERE id = $1`
	sqlListContacts  = `SELECT data FROM contacts WHERE profile_id = $1 ORDER BY position`
	sqlLatestInsight = `SELECT data FROM insights WHERE profile_id = $1 ORDER BY created_at DESC LIMIT 1`
)

var contactColumns = []string{"id", "profile_id", "position", "full_name", "title", "email", "is_decision_maker", "data", "created_at"}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_profile": sqlInsertProfile,
	"profile_exists": sqlProfileExists,
	"insert_insight": sqlInsertInsight,
	"get_profile":    sqlGetProfile,
	"list_contacts":  sqlListContacts,
	"latest_insight": sqlLatestInsight,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// The tables may not exist yet on the first connection of `migrate`, so
	// preparation failures are not fatal.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			_, _ = conn.Prepare(ctx, name, sql)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS company_profiles (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	profile        JSONB NOT NULL,
	score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	breakdown      JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_id        TEXT NOT NULL REFERENCES company_profiles(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	full_name         TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	is_decision_maker BOOLEAN NOT NULL DEFAULT false,
	data              JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS insights (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_id TEXT NOT NULL REFERENCES company_profiles(id) ON DELETE CASCADE,
	summary    TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_company_profiles_domain ON company_profiles(domain);
CREATE INDEX IF NOT EXISTS idx_contacts_profile_id ON contacts(profile_id);
CREATE INDEX IF NOT EXISTS idx_insights_profile_created ON insights(profile_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile model.CompanyProfile, score model.LeadScore) (string, error) {
	profileJSON, breakdownJSON, err := encodeProfile(profile, score)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal profile")
	}

	id := uuid.New().String()
	_, err = s.pool.Exec(ctx, sqlInsertProfile,
		id, profile.Name, profile.Domain, profile.Industry, profile.EmployeeCount,
		profileJSON, score.Total, breakdownJSON, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert profile")
	}
	return id, nil
}

func (s *PostgresStore) SaveContacts(ctx context.Context, profileID string, contacts []model.CanonicalContact) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin contacts tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := pgProfileExists(ctx, tx, profileID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(contacts))
	rows := make([][]any, 0, len(contacts))
	for i, c := range contacts {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal contact")
		}
		id := uuid.New().String()
		rows = append(rows, []any{id, profileID, i, c.FullName, c.Title, c.Email, c.IsDecisionMaker, data, now})
		ids = append(ids, id)
	}
	if _, err := db.CopyFrom(ctx, tx, "contacts", contactColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy contacts")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit contacts")
	}
	return ids, nil
}

func (s *PostgresStore) SaveInsight(ctx context.Context, profileID string, insight model.Insight) (string, error) {
	if err := pgProfileExists(ctx, s.pool, profileID); err != nil {
		return "", err
	}
	data, err := json.Marshal(insight)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal insight")
	}

	id := uuid.New().String()
	if _, err := s.pool.Exec(ctx, sqlInsertInsight, id, profileID, insight.Summary, data, time.Now().UTC()); err != nil {
		return "", eris.Wrap(err, "postgres: insert insight")
	}
	return id, nil
}

func (s *PostgresStore) LoadProfile(ctx context.Context, id string) (*model.StoredProfile, error) {
	var (
		sp                         model.StoredProfile
		profileJSON, breakdownJSON []byte
	)
	err := s.pool.QueryRow(ctx, sqlGetProfile, id).
		Scan(&sp.ID, &profileJSON, &sp.Score.Total, &breakdownJSON, &sp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: profile %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", id)
	}
	if err := decodeProfile(profileJSON, breakdownJSON, &sp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}

	rows, err := s.pool.Query(ctx, sqlListContacts, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	sp.Contacts = []model.CanonicalContact{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		var c model.CanonicalContact
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal contact")
		}
		sp.Contacts = append(sp.Contacts, c)
	}
	return &sp, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) LoadInsight(ctx context.Context, profileID string) (*model.Insight, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, sqlLatestInsight, profileID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: insight for profile %s", profileID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get insight %s", profileID)
	}
	var ins model.Insight
	if err := json.Unmarshal(data, &ins); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal insight")
	}
	return &ins, nil
}

type pgRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgProfileExists(ctx context.Context, q pgRower, id string) error {
	var one int
	err := q.QueryRow(ctx, sqlProfileExists, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "postgres: profile %s", id)
	}
	return eris.Wrapf(err, "postgres: check profile %s", id)
}
