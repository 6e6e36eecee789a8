package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/persistence/file"
	"github.com/bidflow/bidflow/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the database URL scheme: postgres for
// postgres:// and postgresql://, file persistence for everything else.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
