package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"emailbuilder/internal/domain"
)

// sqlQuery maps one pick kind onto a table. Columns are scanned in order
// into the record keys.
type sqlQuery struct {
	table   string
	key     string
	columns []string
	keys    []string
}

var sqlQueries = map[domain.PickKind]sqlQuery{
	domain.PickProduct: {
		table: "products", key: "id",
		columns: []string{"id", "name", "price", "image_url", "url"},
		keys:    []string{"id", "name", "price", "imageUrl", "url"},
	},
	domain.PickDiscount: {
		table: "discounts", key: "code",
		columns: []string{"code", "description", "expires_at"},
		keys:    []string{"code", "description", "expiresAt"},
	},
	domain.PickCollection: {
		table: "collections", key: "id",
		columns: []string{"id", "title", "url", "image_url"},
		keys:    []string{"id", "title", "url", "imageUrl"},
	},
	domain.PickImage: {
		table: "images", key: "id",
		columns: []string{"id", "url", "alt"},
		keys:    []string{"id", "url", "alt"},
	},
}

// statement renders the lookup for driver; Postgres uses numbered placeholders.
func (q sqlQuery) statement(driver string) string {
	ph := "?"
	if driver == DriverPostgres {
		ph = "$1"
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(q.columns, ", "), q.table, q.key, ph)
}

// sqlCatalog is the shared implementation for SQLite, MySQL and Postgres.
type sqlCatalog struct {
	driver string
	db     *sql.DB
	settings
}

func newSQLCatalog(driver, dsn string, s settings) (*sqlCatalog, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &sqlCatalog{driver: driver, db: db, settings: s}, nil
}

func (c *sqlCatalog) Lookup(ctx context.Context, kind domain.PickKind, ref string) (domain.PickedRecord, error) {
	q, ok := sqlQueries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	vals := make([]sql.NullString, len(q.columns))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}
	err := c.db.QueryRowContext(ctx, q.statement(c.driver), ref).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, ref, ErrNotFound)
	}
	if err != nil {
		c.logger.Warn("catalog lookup failed", zap.String("driver", c.driver), zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("lookup %s: %w", kind, err)
	}

	rec := domain.PickedRecord{}
	for i, k := range q.keys {
		if vals[i].Valid {
			rec[k] = vals[i].String
		}
	}
	rec = compact(rec)
	if kind == domain.PickDiscount {
		rec["id"] = rec["code"]
		rec = labelDiscount(rec, c.now())
	}
	return rec, nil
}

func (c *sqlCatalog) Close() error {
	return c.db.Close()
}

func buildSQLiteDSN(src Source) string {
	return src.Host + "?_pragma=busy_timeout(5000)"
}

func buildMySQLDSN(src Source) string {
	port := src.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		src.Username, src.Password, src.Host, port, src.Database,
	)
	if src.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

func buildPostgresDSN(src Source) string {
	port := src.Port
	if port == 0 {
		port = 5432
	}
	sslMode := src.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		src.Host, port, src.Username, src.Password, src.Database, sslMode,
	)
}
