package commands

import (
	"context"
	"log/slog"

	"github.com/maltedev/candidate-contact-scraper/internal/config"
	"github.com/maltedev/candidate-contact-scraper/internal/database"
	"github.com/maltedev/candidate-contact-scraper/internal/scraper"
	"github.com/maltedev/candidate-contact-scraper/internal/storage"
)

// openDatabase connects and migrates. It returns nil when no database is
// configured.
func openDatabase(ctx context.Context, c config.DatabaseConfig) (*database.DB, error) {
	if !c.Enabled() {
		return nil, nil
	}

	db, err := database.New(ctx, database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.DBName,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// saver picks Postgres when db is set and the JSON file otherwise.
func saver(db *database.DB, stream, output string, logger *slog.Logger) (scraper.SaveFunc, error) {
	if db != nil {
		return database.NewProfileStore(db, stream, logger).Save, nil
	}

	pf, err := storage.NewProfileFile(output)
	if err != nil {
		return nil, err
	}
	logger.Info("saving profiles to file", "path", output, "existing", pf.Len())
	return pf.Save, nil
}
