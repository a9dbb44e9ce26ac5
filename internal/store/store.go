// Package store persists collected profiles, their contacts and insights.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrNotFound is returned when a profile or insight id does not exist.
var ErrNotFound = eris.New("store: not found")

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store defines the persistence interface for collected prospects.
type Store interface {
	SaveProfile(ctx context.Context, profile model.CompanyProfile, score model.LeadScore) (string, error)
	SaveContacts(ctx context.Context, profileID string, contacts []model.CanonicalContact) ([]string, error)
	SaveInsight(ctx context.Context, profileID string, insight model.Insight) (string, error)

	LoadProfile(ctx context.Context, id string) (*model.StoredProfile, error)
	// LoadInsight returns the most recent insight saved for a profile.
	LoadInsight(ctx context.Context, profileID string) (*model.Insight, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver. The "none" driver returns a
// nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "prospect.db"
		}
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
