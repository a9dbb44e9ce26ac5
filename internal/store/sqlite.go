package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS company_profiles (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	profile        TEXT NOT NULL,
	score          REAL NOT NULL DEFAULT 0,
	breakdown      TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id                TEXT PRIMARY KEY,
	profile_id        TEXT NOT NULL REFERENCES company_profiles(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	full_name         TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	is_decision_maker INTEGER NOT NULL DEFAULT 0,
	data              TEXT NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS insights (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES company_profiles(id) ON DELETE CASCADE,
	summary    TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_company_profiles_domain ON company_profiles(domain);
CREATE INDEX IF NOT EXISTS idx_contacts_profile_id ON contacts(profile_id);
CREATE INDEX IF NOT EXISTS idx_insights_profile_id ON insights(profile_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, profile model.CompanyProfile, score model.LeadScore) (string, error) {
	profileJSON, breakdownJSON, err := encodeProfile(profile, score)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal profile")
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO company_profiles (id, name, domain, industry, employee_count, profile, score, breakdown, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, profile.Name, profile.Domain, profile.Industry, profile.EmployeeCount,
		string(profileJSON), score.Total, string(breakdownJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert profile")
	}
	return id, nil
}

func (s *SQLiteStore) SaveContacts(ctx context.Context, profileID string, contacts []model.CanonicalContact) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin contacts tx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := sqliteProfileExists(ctx, tx, profileID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(contacts))
	for i, c := range contacts {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal contact")
		}
		id := uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO contacts (id, profile_id, position, full_name, title, email, is_decision_maker, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, profileID, i, c.FullName, c.Title, c.Email, c.IsDecisionMaker, string(data), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert contact %d", i)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit contacts")
	}
	return ids, nil
}

func (s *SQLiteStore) SaveInsight(ctx context.Context, profileID string, insight model.Insight) (string, error) {
	if err := sqliteProfileExists(ctx, s.db, profileID); err != nil {
		return "", err
	}
	data, err := json.Marshal(insight)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal insight")
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insights (id, profile_id, summary, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, profileID, insight.Summary, string(data), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert insight")
	}
	return id, nil
}

func (s *SQLiteStore) LoadProfile(ctx context.Context, id string) (*model.StoredProfile, error) {
	var (
		sp                       model.StoredProfile
		profileJSON, breakdownJS string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, profile, score, breakdown, created_at FROM company_profiles WHERE id = ?`, id,
	).Scan(&sp.ID, &profileJSON, &sp.Score.Total, &breakdownJS, &sp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: profile %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", id)
	}
	if err := decodeProfile([]byte(profileJSON), []byte(breakdownJS), &sp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM contacts WHERE profile_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	sp.Contacts = []model.CanonicalContact{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		var c model.CanonicalContact
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal contact")
		}
		sp.Contacts = append(sp.Contacts, c)
	}
	return &sp, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) LoadInsight(ctx context.Context, profileID string) (*model.Insight, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM insights WHERE profile_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, profileID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: insight for profile %s", profileID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get insight %s", profileID)
	}
	var ins model.Insight
	if err := json.Unmarshal([]byte(data), &ins); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal insight")
	}
	return &ins, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteProfileExists(ctx context.Context, q queryRower, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM company_profiles WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: profile %s", id)
	}
	return eris.Wrapf(err, "sqlite: check profile %s", id)
}

func encodeProfile(profile model.CompanyProfile, score model.LeadScore) (profileJSON, breakdownJSON []byte, err error) {
	if profileJSON, err = json.Marshal(profile); err != nil {
		return nil, nil, err
	}
	if breakdownJSON, err = json.Marshal(score.Breakdown); err != nil {
		return nil, nil, err
	}
	return profileJSON, breakdownJSON, nil
}

func decodeProfile(profileJSON, breakdownJSON []byte, sp *model.StoredProfile) error {
	if err := json.Unmarshal(profileJSON, &sp.Profile); err != nil {
		return err
	}
	return json.Unmarshal(breakdownJSON, &sp.Score.Breakdown)
}
