package persistence

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Properties are the resolved persistence settings handed to the ORM layer.
type Properties map[string]string

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bool reports whether key holds "true".
func (p Properties) Bool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(p[key]), "true")
}

const (
	PropAutoscan           = "gorm.autoscan"
	PropAudit              = "gorm.audit"
	PropSingularTable      = "gorm.naming.singular_table"
	PropTablePrefix        = "gorm.naming.table_prefix"
	PropSkipDefaultTx      = "gorm.skip_default_transaction"
	PropMaxFetchDepth      = "gorm.max_fetch_depth"
	PropSecondLevelCache   = "gorm.cache.second_level"
	PropQueryCache         = "gorm.cache.query"
	PropCacheRegionFactory = "gorm.cache.region_factory"
	PropEntityCache        = "gorm.cache.entity"
	PropCollectionCache    = "gorm.cache.collection"
	PropMultiTenant        = "gorm.multi_tenant"
	// MultiTenantDatabase is the only gorm.multi_tenant value that enables tenant routing.
	MultiTenantDatabase = "database"
	PropDataSource      = "gorm.connection.datasource"
	PropDriver          = "gorm.connection.driver"
	PropURL             = "gorm.connection.url"
	PropUser            = "gorm.connection.user"
	PropPassword        = "gorm.connection.password"
	PropDDL             = "gorm.ddl"
	PropMaxOpenConns    = "gorm.max_open_conns"
	PropMaxIdleConns    = "gorm.max_idle_conns"
	PropConnMaxLifetime = "gorm.conn_max_lifetime"
	PropLogLevel        = "gorm.log_level"
	PropSlowThreshold   = "gorm.slow_threshold"
)

// connectionKeys maps default database settings onto connection properties.
var connectionKeys = []struct{ setting, prop string }{
	{"db.default.driver", PropDriver},
	{"db.default.ddl", PropDDL},
	{"db.default.url", PropURL},
	{"db.default.user", PropUser},
	{"db.default.password", PropPassword},
}

// Properties assembles the persistence properties from the caller's properties, the fixed
// defaults and the application settings. Later steps override earlier ones.
func (m *Manager) Properties() (Properties, error) {
	props := make(Properties, len(m.props)+16)
	for k, v := range m.props {
		props[k] = v
	}
	if m.autoscan {
		props[PropAutoscan] = "true"
	}

	props[PropAudit] = "true"
	props[PropSingularTable] = "true"
	props[PropSkipDefaultTx] = "false"
	props[PropMaxFetchDepth] = "3"

	cacheEnabled, err := m.settings.GetBool("cache.enabled", false)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		props[PropSecondLevelCache] = "true"
		props[PropQueryCache] = "true"
		props[PropCacheRegionFactory] = "redis"
		m.cacheRegions(props)
	}

	return props, m.connectionProperties(props)
}

func (m *Manager) cacheRegions(props Properties) {
	const prefix = "cache.region."
	for _, key := range m.settings.Names(prefix) {
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			continue
		}
		ttl, err := m.settings.GetDuration(key, 0)
		if err != nil || ttl <= 0 {
			m.logger.Warn().Err(err).Str("key", key).Msg("skipping cache region with invalid ttl")
			continue
		}
		props[regionProperty(name)] = ttl.String()
	}
}

// regionProperty picks the entity namespace when the last dotted segment is capitalised
// (a model name) and the collection namespace otherwise (a model field).
func regionProperty(name string) string {
	r, _ := utf8.DecodeRuneInString(name[strings.LastIndex(name, ".")+1:])
	if unicode.IsUpper(r) {
		return PropEntityCache + "." + name
	}
	return PropCollectionCache + "." + name
}

func (m *Manager) connectionProperties(props Properties) error {
	for _, key := range m.settings.Names("gorm.") {
		v, _ := m.settings.Lookup(key)
		props[key] = v
	}

	multi, err := m.settings.GetBool("db.multi_tenant", false)
	if err != nil {
		return err
	}
	if multi {
		props[PropMultiTenant] = MultiTenantDatabase
	}

	if ds := m.settings.Get("db.default.datasource"); ds != "" {
		props[PropDataSource] = ds
		return nil
	}
	for _, k := range connectionKeys {
		if v := m.settings.Get(k.setting); v != "" {
			props[k.prop] = v
		}
	}
	if ddl := props[PropDDL]; ddl != "" {
		switch ddl {
		case DDLNone, DDLUpdate, DDLCreate, DDLValidate:
		default:
			return fmt.Errorf("persistence: unknown ddl mode %q", ddl)
		}
	}
	return nil
}
