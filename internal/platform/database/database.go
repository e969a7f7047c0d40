package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"userapi/internal/model"
)

var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

type Options struct {
	URL          string
	MaxIdleConns int
	MaxOpenConns int
	// Logger receives gorm's own warnings and query errors. The zero value
	// discards them.
	Logger zerolog.Logger
}

// Dialector maps a connection URL onto a gorm dialector. Scheme suffixes such
// as "+pymysql" or "+psycopg2" are ignored so that URLs written for other
// tooling keep working.
func Dialector(rawURL string) (gorm.Dialector, error) {
	raw := strings.TrimSpace(rawURL)
	if strings.HasPrefix(raw, "file:") {
		return sqlite.Open(raw), nil
	}

	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, redact(raw))
	}
	scheme := strings.ToLower(raw[:idx])
	if plus := strings.Index(scheme, "+"); plus >= 0 {
		scheme = scheme[:plus]
	}
	rest := raw[idx+3:]

	switch scheme {
	case "sqlite", "sqlite3":
		return sqlite.Open(sqlitePath(rest)), nil
	case "mysql", "mariadb":
		dsn, err := mysqlDSN(rest)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open("postgres://" + rest), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// Open performs a single connection attempt and verifies it with a ping.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	dialector, err := Dialector(opts.URL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newGormLogger(opts.Logger),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get %s sql db failed: %w", dialector.Name(), err)
	}

	if dialector.Name() == "sqlite" {
		// in-memory databases live only as long as their single connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
		sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s failed: %w", dialector.Name(), err)
	}

	return db, nil
}

// AutoMigrate creates the users table when it does not exist yet.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter forwards gorm's log lines into the application logger.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Str("component", "gorm").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// newGormLogger reports slow queries and query errors. A missing row is an
// expected outcome and is not logged.
func newGormLogger(log zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func sqlitePath(rest string) string {
	if rest == "" || rest == "/" || rest == ":memory:" || rest == "/:memory:" {
		return ":memory:"
	}
	// sqlite:///users.db is relative, sqlite:////var/lib/users.db is absolute
	if strings.HasPrefix(rest, "/") {
		return rest[1:]
	}
	return rest
}

func mysqlDSN(rest string) (string, error) {
	if strings.Contains(rest, "@tcp(") || strings.Contains(rest, "@unix(") {
		cfg, err := mysqldriver.ParseDSN(rest)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn failed: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}

	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return "", fmt.Errorf("parse mysql url failed: %w", redactErr(err))
	}

	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	charset := u.Query().Get("charset")
	if charset == "" {
		charset = "utf8mb4"
	}
	cfg.Params = map[string]string{"charset": charset}

	return cfg.FormatDSN(), nil
}

func redact(raw string) string {
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		return "***" + raw[at:]
	}
	return raw
}

// url.Error embeds the full URL, which carries the password.
func redactErr(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
