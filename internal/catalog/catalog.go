// Package catalog looks up store records (products, discounts, collections,
// images) for the editor's pickers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"emailbuilder/internal/domain"
)

var (
	ErrNotFound          = errors.New("catalog record not found")
	ErrUnsupportedKind   = errors.New("unsupported pick kind")
	ErrUnsupportedDriver = errors.New("unsupported catalog driver")
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Source describes where the store catalog lives.
type Source struct {
	Driver   string `json:"driver" yaml:"driver" toml:"driver" validate:"required,oneof=sqlite mysql postgres mongodb"`
	Host     string `json:"host" yaml:"host" toml:"host"` // file path for sqlite, URI allowed for mongodb
	Port     int    `json:"port" yaml:"port" toml:"port" validate:"gte=0,lte=65535"`
	Database string `json:"database" yaml:"database" toml:"database"`
	Username string `json:"username" yaml:"username" toml:"username"`
	Password string `json:"password" yaml:"password" toml:"password"`
	SSLMode  string `json:"sslMode" yaml:"ssl_mode" toml:"ssl_mode"`
}

// Catalog resolves a picker reference into a record.
type Catalog interface {
	Lookup(ctx context.Context, kind domain.PickKind, ref string) (domain.PickedRecord, error)
	Close() error
}

type settings struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a catalog.
type Option func(*settings)

// WithClock sets the time used to decide whether a discount has expired.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Open connects to the catalog described by src.
func Open(src Source, opts ...Option) (Catalog, error) {
	s := settings{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	switch src.Driver {
	case DriverSQLite:
		return newSQLCatalog(DriverSQLite, buildSQLiteDSN(src), s)
	case DriverMySQL:
		return newSQLCatalog(DriverMySQL, buildMySQLDSN(src), s)
	case DriverPostgres:
		return newSQLCatalog(DriverPostgres, buildPostgresDSN(src), s)
	case DriverMongoDB:
		return newMongoCatalog(src, s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, src.Driver)
	}
}

// Picker adapts a catalog to the picker collaborator for one kind.
func Picker(c Catalog, kind domain.PickKind) domain.Picker {
	return domain.PickerFunc(func(ctx context.Context, ref string) (domain.PickedRecord, error) {
		return c.Lookup(ctx, kind, ref)
	})
}

// Kinds lists the pick kinds every catalog serves.
var Kinds = []domain.PickKind{domain.PickProduct, domain.PickDiscount, domain.PickCollection, domain.PickImage}
