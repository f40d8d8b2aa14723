// Package sql reads local table rows for the sync engine.
//
// MySQL/MariaDB and SQLite are supported. Both go through sqlx; the two
// dialects differ only in how identifiers are quoted and how the primary key
// column is discovered.
package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/bft-labs/rowship/internal/domain"
)

// Supported driver names.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

type dialect struct {
	quote      func(string) string
	primaryKey func(ctx context.Context, db *sqlx.DB, table string) (string, error)
}

var dialects = map[string]dialect{
	DriverMySQL: {
		quote:      func(s string) string { return "`" + s + "`" },
		primaryKey: mysqlPrimaryKey,
	},
	DriverSQLite: {
		quote:      func(s string) string { return `"` + s + `"` },
		primaryKey: sqlitePrimaryKey,
	},
}

// Source implements ports.RowSource on a sqlx database handle.
type Source struct {
	db      *sqlx.DB
	dialect dialect
	pkCache map[string]string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Source, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("%w: unsupported driver %q", domain.ErrInvalidConfig, driver)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return NewSource(db)
}

// NewSource wraps an existing handle. The dialect follows db.DriverName().
func NewSource(db *sqlx.DB) (*Source, error) {
	d, ok := dialects[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported driver %q", domain.ErrInvalidConfig, db.DriverName())
	}
	return &Source{db: db, dialect: d, pkCache: make(map[string]string)}, nil
}

// Close releases the database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// PrimaryKey returns the table's primary key column. Results are cached for
// the life of the Source.
func (s *Source) PrimaryKey(ctx context.Context, table string) (string, error) {
	if !domain.ValidIdentifier(table) {
		return "", fmt.Errorf("%w: table %q", domain.ErrInvalidIdentifier, table)
	}
	if pk, ok := s.pkCache[table]; ok {
		return pk, nil
	}
	pk, err := s.dialect.primaryKey(ctx, s.db, table)
	if err != nil {
		return "", err
	}
	if !domain.ValidIdentifier(pk) {
		return "", fmt.Errorf("%w: primary key %q of %s", domain.ErrInvalidIdentifier, pk, table)
	}
	s.pkCache[table] = pk
	return pk, nil
}

// FetchAfter returns rows with a primary key strictly greater than after,
// ascending, columns in declaration order.
func (s *Source) FetchAfter(ctx context.Context, table string, after int64) ([]domain.Row, error) {
	pk, err := s.PrimaryKey(ctx, table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s > ? ORDER BY %s ASC",
		s.dialect.quote(table), s.dialect.quote(pk), s.dialect.quote(pk))

	rows, err := s.db.QueryxContext(ctx, q, after)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("fetch %s columns: %w", table, err)
	}

	var out []domain.Row
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for i := range vals {
			vals[i] = normalize(vals[i])
		}
		out = append(out, domain.NewRow(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return out, nil
}

// normalize converts driver values to the scalar set domain.Row carries.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}

func mysqlPrimaryKey(ctx context.Context, db *sqlx.DB, table string) (string, error) {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SHOW KEYS FROM `%s` WHERE Key_name = 'PRIMARY'", table))
	if err != nil {
		return "", fmt.Errorf("primary key of %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("primary key of %s: %w", table, err)
		}
		return "", fmt.Errorf("table %s has no primary key", table)
	}
	m := map[string]any{}
	if err := rows.MapScan(m); err != nil {
		return "", fmt.Errorf("primary key of %s: %w", table, err)
	}
	name, _ := domain.FormatValue(normalize(m["Column_name"]))
	if name == "" {
		return "", fmt.Errorf("table %s has no primary key", table)
	}
	return name, nil
}

type sqliteColumn struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

func sqlitePrimaryKey(ctx context.Context, db *sqlx.DB, table string) (string, error) {
	var cols []sqliteColumn
	if err := db.SelectContext(ctx, &cols, fmt.Sprintf(`PRAGMA table_info("%s")`, table)); err != nil {
		return "", fmt.Errorf("primary key of %s: %w", table, err)
	}
	best := ""
	bestPos := 0
	for _, c := range cols {
		if c.PK > 0 && (bestPos == 0 || c.PK < bestPos) {
			best, bestPos = c.Name, c.PK
		}
	}
	if best == "" {
		return "", fmt.Errorf("table %s has no primary key", table)
	}
	return best, nil
}

// MySQLConfig holds connection parameters for a MySQL or MariaDB server.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

// DSN formats the connection string for go-sql-driver/mysql.
func (c MySQLConfig) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = c.Database
	cfg.AllowNativePasswords = true
	if len(c.Params) > 0 {
		cfg.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// SQLiteDSN returns a DSN for a SQLite file opened read-only.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?mode=ro"
}
