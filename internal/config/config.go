// Package config loads the flat, dotted application settings used across realm.
//
// Settings come from a YAML file whose nested maps are flattened with "." and are then
// overlaid by REALM_* environment variables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REALM_"

// Known lists the keys that may be set from the environment even when the file omits them.
var Known = []string{
	"db.default.driver",
	"db.default.ddl",
	"db.default.url",
	"db.default.user",
	"db.default.password",
	"db.default.datasource",
	"db.multi_tenant",
	"db.tenants",
	"cache.enabled",
	"cache.ttl",
	"cache.redis.addr",
	"cache.redis.password",
	"cache.redis.db",
	"server.addr",
	"server.grpc_addr",
	"server.rate.burst",
	"server.rate.per_second",
	"server.trusted_proxies",
	"log.level",
}

// Settings is an immutable view over flat key/value settings.
type Settings struct {
	values map[string]string
}

// New returns settings holding a copy of values.
func New(values map[string]string) Settings {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[strings.TrimSpace(k)] = v
	}
	return Settings{values: cp}
}

// Load reads path (optional) and applies the process environment.
func Load(path string) (Settings, error) {
	s := New(nil)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if s, err = Parse(data); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return s.WithEnv(os.Environ()), nil
}

// Parse flattens a YAML document into settings.
func Parse(data []byte) (Settings, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, err
	}
	values := make(map[string]string)
	flatten("", doc, values)
	return Settings{values: values}, nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case map[any]any:
		for k, child := range v {
			flatten(join(prefix, fmt.Sprint(k)), child, out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// EnvName maps a dotted key to its environment variable name.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// WithEnv returns a copy of s overlaid by environ ("KEY=value" pairs). Keys already present or
// listed in Known are matched by EnvName; REALM_A__B__C addresses any other key as a.b.c.
func (s Settings) WithEnv(environ []string) Settings {
	out := New(s.values)
	byEnv := make(map[string]string, len(out.values)+len(Known))
	for _, k := range Known {
		byEnv[EnvName(k)] = k
	}
	for k := range out.values {
		byEnv[EnvName(k)] = k
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if key, ok := byEnv[name]; ok {
			out.values[key] = value
			continue
		}
		if rest := strings.TrimPrefix(name, EnvPrefix); strings.Contains(rest, "__") {
			out.values[strings.ToLower(strings.ReplaceAll(rest, "__", "."))] = value
		}
	}
	return out
}

// With returns a copy of s with key set to value.
func (s Settings) With(key, value string) Settings {
	out := New(s.values)
	out.values[key] = value
	return out
}

// Lookup returns the raw value and whether it was set.
func (s Settings) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Get returns the trimmed value for key, or "".
func (s Settings) Get(key string) string {
	return strings.TrimSpace(s.values[key])
}

// GetBool parses key as a boolean, returning def when unset or blank.
func (s Settings) GetBool(key string, def bool) (bool, error) {
	raw := s.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// GetInt parses key as an integer, returning def when unset or blank.
func (s Settings) GetInt(key string, def int) (int, error) {
	raw := s.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// GetFloat parses key as a float, returning def when unset or blank.
func (s Settings) GetFloat(key string, def float64) (float64, error) {
	raw := s.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// GetDuration parses key as a duration. Bare integers are seconds.
func (s Settings) GetDuration(key string, def time.Duration) (time.Duration, error) {
	raw := s.Get(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// GetList splits a comma separated value, dropping blanks.
func (s Settings) GetList(key string) []string {
	var out []string
	for _, part := range strings.Split(s.Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Names returns the sorted keys starting with prefix.
func (s Settings) Names(prefix string) []string {
	var names []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Len reports how many keys are set.
func (s Settings) Len() int { return len(s.values) }
