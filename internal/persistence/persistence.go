// Package persistence bootstraps gorm connections for realm: it assembles persistence
// properties from the application settings, selects the models to manage, applies DDL and
// hands out per-tenant database handles.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Arthur-Pio/axelor-open-platform/internal/config"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

var (
	ErrUnknownTenant     = errors.New("persistence: unknown tenant")
	ErrUnsupportedDriver = errors.New("persistence: unsupported driver")
	ErrNotStarted        = errors.New("persistence: not started")
	ErrClosed            = errors.New("persistence: closed")
)

// DefaultUnit is the persistence unit name used when none is given.
const DefaultUnit = "persistenceUnit"

// Option configures a Manager.
type Option func(*Manager)

// WithUnit names the persistence unit (used in logs).
func WithUnit(name string) Option {
	return func(m *Manager) {
		if name = strings.TrimSpace(name); name != "" {
			m.unit = name
		}
	}
}

// WithAutoscan toggles whether every registered model package is managed.
func WithAutoscan(enabled bool) Option {
	return func(m *Manager) { m.autoscan = enabled }
}

// WithAutostart toggles whether New starts the manager.
func WithAutostart(enabled bool) Option {
	return func(m *Manager) { m.autostart = enabled }
}

// WithProperties seeds the caller supplied properties.
func WithProperties(props Properties) Option {
	return func(m *Manager) {
		for k, v := range props {
			m.props[k] = v
		}
	}
}

// WithModels registers models declared by pkg.
func WithModels(pkg string, models ...any) Option {
	return func(m *Manager) {
		if len(models) == 0 {
			return
		}
		m.models = append(m.models, modelSet{pkg: pkg, models: models})
	}
}

// WithIncludes restricts scanning to the given packages.
func WithIncludes(pkgs ...string) Option {
	return func(m *Manager) { m.includes = append(m.includes, pkgs...) }
}

// WithExcludes drops the given packages from scanning.
func WithExcludes(pkgs ...string) Option {
	return func(m *Manager) { m.excludes = append(m.excludes, pkgs...) }
}

// WithDataSource provides a ready connection for the named data source or tenant. The caller
// keeps ownership: Close does not close it.
func WithDataSource(name string, db *sql.DB) Option {
	return func(m *Manager) {
		if db != nil {
			m.dataSources[name] = db
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns the gorm handles of a persistence unit.
type Manager struct {
	settings    config.Settings
	unit        string
	autoscan    bool
	autostart   bool
	props       Properties
	models      []modelSet
	includes    []string
	excludes    []string
	dataSources map[string]*sql.DB
	logger      zerolog.Logger

	mu       sync.Mutex
	resolved Properties
	conns    map[string]*gorm.DB
	owned    map[string]bool
	started  bool
	closed   bool
}

// New constructs a Manager. Autoscan and autostart are on unless disabled.
func New(settings config.Settings, opts ...Option) (*Manager, error) {
	m := &Manager{
		settings:    settings,
		unit:        DefaultUnit,
		autoscan:    true,
		autostart:   true,
		props:       Properties{},
		dataSources: map[string]*sql.DB{},
		logger:      obs.WithComponent("persistence"),
		conns:       map[string]*gorm.DB{},
		owned:       map[string]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.autostart {
		if err := m.Start(context.Background()); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Start resolves the properties, opens the default connection and pings it.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.started {
		return nil
	}
	m.logger.Info().Str("unit", m.unit).Msg("configuring persistence")
	props, err := m.Properties()
	if err != nil {
		return err
	}
	m.resolved = props
	if err := m.checkTenantsLocked(); err != nil {
		return err
	}
	db, err := m.openLocked(ctx, DefaultTenant)
	if err != nil {
		return err
	}
	if err := pingDB(ctx, db); err != nil {
		return fmt.Errorf("persistence: ping default: %w", err)
	}
	m.started = true
	m.logger.Info().Str("unit", m.unit).Int("models", len(m.ScannedModels())).
		Strs("tenants", m.tenantsLocked()).Msg("persistence started")
	return nil
}

// DB returns the handle for the tenant selected in ctx, bound to ctx.
func (m *Manager) DB(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if !m.started {
		return nil, ErrNotStarted
	}
	db, err := m.openLocked(ctx, m.tenantLocked(ctx))
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// SQLDB returns the database/sql pool behind the tenant selected in ctx.
func (m *Manager) SQLDB(ctx context.Context) (*sql.DB, error) {
	db, err := m.DB(ctx)
	if err != nil {
		return nil, err
	}
	return db.DB()
}

// Ping checks the default connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	db, ok := m.conns[DefaultTenant]
	m.mu.Unlock()
	if !ok {
		return ErrNotStarted
	}
	return pingDB(ctx, db)
}

// TenantFor returns the tenant DB(ctx) routes to: the tenant in ctx when multi-tenancy
// is on, DefaultTenant otherwise.
func (m *Manager) TenantFor(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenantLocked(ctx)
}

func (m *Manager) tenantLocked(ctx context.Context) string {
	if !m.multiTenantLocked() {
		return DefaultTenant
	}
	return TenantFromContext(ctx)
}

func (m *Manager) multiTenantLocked() bool {
	return m.resolved[PropMultiTenant] == MultiTenantDatabase
}

// Tenants lists the tenants the manager serves: DefaultTenant plus db.tenants when
// multi-tenancy is on.
func (m *Manager) Tenants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenantsLocked()
}

func (m *Manager) tenantsLocked() []string {
	out := []string{DefaultTenant}
	if !m.multiTenantLocked() {
		return out
	}
	for _, t := range m.settings.GetList("db.tenants") {
		if t != DefaultTenant && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// checkTenantsLocked requires a connection source for every tenant listed in db.tenants.
func (m *Manager) checkTenantsLocked() error {
	if !m.multiTenantLocked() {
		return nil
	}
	for _, t := range m.tenantsLocked() {
		if t == DefaultTenant {
			continue
		}
		if _, ok := m.dataSources[t]; ok {
			continue
		}
		if m.settings.Get("db."+t+".url") == "" {
			return fmt.Errorf("%w: %s listed in db.tenants has no db.%s.url", ErrUnknownTenant, t, t)
		}
	}
	return nil
}

// Close closes the connections opened by the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	for tenant, db := range m.conns {
		if !m.owned[tenant] {
			continue
		}
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", tenant, err))
		}
	}
	m.conns = map[string]*gorm.DB{}
	return errors.Join(errs...)
}

func (m *Manager) openLocked(ctx context.Context, tenant string) (*gorm.DB, error) {
	if db, ok := m.conns[tenant]; ok {
		return db, nil
	}
	dialector, owned, err := m.dialector(tenant)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: m.resolved.Bool(PropSingularTable),
			TablePrefix:   m.resolved[PropTablePrefix],
		},
		Logger:                 newGormLogger(m.logger, m.resolved),
		SkipDefaultTransaction: m.resolved.Bool(PropSkipDefaultTx),
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", tenant, err)
	}
	if m.resolved.Bool(PropAudit) {
		if err := db.Use(auditPlugin{}); err != nil {
			return nil, fmt.Errorf("persistence: register audit plugin: %w", err)
		}
	}
	if owned {
		if err := m.configurePool(db); err != nil {
			return nil, err
		}
	}
	if err := m.applyDDL(ctx, db, tenant); err != nil {
		return nil, err
	}
	m.conns[tenant] = db
	m.owned[tenant] = owned
	m.logger.Debug().Str("tenant", tenant).Msg("opened connection")
	return db, nil
}

func (m *Manager) dialector(tenant string) (gorm.Dialector, bool, error) {
	if conn, ok := m.dataSources[tenant]; ok {
		return postgres.New(postgres.Config{Conn: conn}), false, nil
	}

	var driver, rawURL, user, password string
	if tenant == DefaultTenant {
		if ds := m.resolved[PropDataSource]; ds != "" {
			conn, ok := m.dataSources[ds]
			if !ok {
				return nil, false, fmt.Errorf("persistence: data source %q is not registered", ds)
			}
			return postgres.New(postgres.Config{Conn: conn}), false, nil
		}
		driver = m.resolved[PropDriver]
		rawURL = m.resolved[PropURL]
		user = m.resolved[PropUser]
		password = m.resolved[PropPassword]
	} else {
		prefix := "db." + tenant + "."
		rawURL = m.settings.Get(prefix + "url")
		if rawURL == "" {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownTenant, tenant)
		}
		driver = m.settings.Get(prefix + "driver")
		user = m.settings.Get(prefix + "user")
		password = m.settings.Get(prefix + "password")
	}
	if err := checkDriver(driver); err != nil {
		return nil, false, err
	}
	dsn, err := buildDSN(rawURL, user, password)
	if err != nil {
		return nil, false, err
	}
	return postgres.Open(dsn), true, nil
}

func (m *Manager) configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pool := config.New(m.resolved)
	maxOpen, err := pool.GetInt(PropMaxOpenConns, 0)
	if err != nil {
		return err
	}
	maxIdle, err := pool.GetInt(PropMaxIdleConns, 2)
	if err != nil {
		return err
	}
	lifetime, err := pool.GetDuration(PropConnMaxLifetime, 30*time.Minute)
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

func (m *Manager) applyDDL(ctx context.Context, db *gorm.DB, tenant string) error {
	models := m.ScannedModels()
	if len(models) == 0 {
		return nil
	}
	mode := m.resolved[PropDDL]
	if mode == "" || mode == DDLNone {
		return nil
	}
	tx := db.WithContext(ctx)
	switch mode {
	case DDLCreate:
		for i := len(models) - 1; i >= 0; i-- {
			if err := tx.Migrator().DropTable(models[i]); err != nil {
				return fmt.Errorf("persistence: drop schema for %s: %w", tenant, err)
			}
		}
		fallthrough
	case DDLUpdate:
		if err := tx.AutoMigrate(models...); err != nil {
			return fmt.Errorf("persistence: migrate schema for %s: %w", tenant, err)
		}
	case DDLValidate:
		for _, model := range models {
			if !tx.Migrator().HasTable(model) {
				return fmt.Errorf("persistence: schema for %s is missing table of %T", tenant, model)
			}
		}
	}
	m.logger.Info().Str("tenant", tenant).Str("ddl", mode).Int("models", len(models)).Msg("schema checked")
	return nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
