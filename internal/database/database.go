package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	// drivers: postgres for hosted installs, pure-Go sqlite for the embedded store
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// sqlx does not know the modernc driver name; queries are written with "?"
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

func NewConnection(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time keeps SQLite from returning SQLITE_BUSY to the jobs
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_time_format=sqlite",
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range params {
		key := strings.SplitN(p, "(", 2)[0]
		if strings.Contains(dsn, key) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn
}

// Migrate creates the schema when missing and moves the single account of a
// legacy user_config table into the accounts table. It is safe to run on
// every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := sqliteSchema
	if db.DriverName() == DriverPostgres {
		stmts = postgresSchema
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO app_config (id, settings) VALUES (1, '{}') ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("seed app config: %w", err)
	}

	if err := migrateLegacyConfig(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// legacyAccount is the single account the desktop app kept in user_config
// before it had an accounts table.
type legacyAccount struct {
	ExternalUserID string
	BusinessID     string
	PageID         string
	AccessToken    string
	UserName       string
	Picture        string
}

func migrateLegacyConfig(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := tableExists(ctx, tx, "user_config")
	if err != nil {
		return fmt.Errorf("look up legacy config: %w", err)
	}
	if !exists {
		return nil
	}

	legacy, err := readLegacyAccount(ctx, tx)
	if err != nil {
		return err
	}
	if legacy == nil || legacy.AccessToken == "" || legacy.BusinessID == "" {
		return nil
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts`); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	slog.Info("migrating single-account config to accounts table", "business_id", legacy.BusinessID)

	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO accounts (external_user_id, business_id, page_id, access_token, display_name, avatar_url)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		legacy.ExternalUserID, legacy.BusinessID, legacy.PageID, legacy.AccessToken,
		legacy.UserName, legacy.Picture,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("migrate legacy account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE app_config SET active_account_id = ? WHERE id = 1`), id); err != nil {
		return fmt.Errorf("activate migrated account: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, tx *sqlx.Tx, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if tx.DriverName() == DriverPostgres {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(query), name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// readLegacyAccount reads the first user_config row. Older installs lack some
// of the columns, so the row is scanned into a map. The token and business id
// live in meta_access_token and instagram_business_id, with access_token as
// the fallback for the token.
func readLegacyAccount(ctx context.Context, tx *sqlx.Tx) (*legacyAccount, error) {
	rows, err := tx.QueryxContext(ctx, `SELECT * FROM user_config ORDER BY id LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("read legacy config: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	row := map[string]any{}
	if err := rows.MapScan(row); err != nil {
		return nil, fmt.Errorf("scan legacy config: %w", err)
	}

	token := columnString(row, "meta_access_token")
	if token == "" {
		token = columnString(row, "access_token")
	}
	return &legacyAccount{
		ExternalUserID: columnString(row, "meta_user_id"),
		BusinessID:     columnString(row, "instagram_business_id"),
		PageID:         columnString(row, "page_id"),
		AccessToken:    token,
		UserName:       columnString(row, "user_name"),
		Picture:        columnString(row, "profile_picture_url"),
	}, nil
}

func columnString(row map[string]any, column string) string {
	switch v := row[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
