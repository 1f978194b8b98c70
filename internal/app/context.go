package app

import (
	"database/sql"
	"fmt"
	"os"

	"hireline/internal/config"
	"hireline/internal/db"
	"hireline/internal/migrate"
)

// Context bundles the opened database and resolved config for the CLI and
// the server.
type Context struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
}

// Open resolves the workspace, opens the database, applies pending
// migrations and loads hireline.yml. A missing config file falls back to
// defaults so read-only commands work in a fresh workspace.
func Open(workspace string) (*Context, error) {
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workspace = wd
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("default-org")
	}
	return &Context{Workspace: workspace, DB: conn, Config: cfg}, nil
}

// Close releases the database handle.
func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
