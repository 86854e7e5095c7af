package repository

import (
	"fmt"
	"log/slog"
	"strings"
)

// MethodConfig is the explicit configuration of one repository method.
// Fields left at their zero value fall back to the struct tag.
type MethodConfig struct {
	// Entity names the target entity instead of detecting it from the
	// method name.
	Entity string

	// GUID lists the identity paths an insertOrUpdate matches on.
	GUID []string

	// Paths overrides, per parameter, the field path inferred from the
	// method name. "" keeps the inferred path.
	Paths []string

	// Query is a custom query. A string names a method of a query source
	// registered with WithQueries; anything else is handed to the compiler
	// (a query.Query or a factory function).
	Query any
}

func (c MethodConfig) merge(explicit MethodConfig) MethodConfig {
	if explicit.Entity != "" {
		c.Entity = explicit.Entity
	}
	if explicit.GUID != nil {
		c.GUID = explicit.GUID
	}
	if explicit.Paths != nil {
		c.Paths = explicit.Paths
	}
	if explicit.Query != nil {
		c.Query = explicit.Query
	}
	return c
}

// Option configures one Bind.
type Option func(*settings)

type settings struct {
	methods map[string]MethodConfig
	sources []any
	logger  *slog.Logger
}

func newSettings(opts []Option) *settings {
	s := &settings{methods: make(map[string]MethodConfig), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithMethod configures the method field called name.
func WithMethod(name string, cfg MethodConfig) Option {
	return func(s *settings) {
		s.methods[name] = cfg
	}
}

// WithQueries registers a query source: a value whose methods are looked
// up by the query= tag and MethodConfig.Query names.
func WithQueries(src any) Option {
	return func(s *settings) {
		s.sources = append(s.sources, src)
	}
}

// WithLogger sets the logger bind decisions are reported to.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// tagName is the struct tag read from repository fields:
//
//	FindAllCarsByOwner func(string) ([]Car, error) `byname:"paths=owner.name"`
//	InsertOrUpdatePlate func(Plate) error         `byname:"entity=Plate;guid=country,number"`
//	FindAllRedCars func() ([]Car, error)          `byname:"query=RedCars"`
//	Helper func()                                 `byname:"-"`
const tagName = "byname"

// parseTag reads a byname tag. skip is true for "-".
func parseTag(tag string) (cfg MethodConfig, skip bool, err error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return cfg, false, nil
	}
	if tag == "-" {
		return cfg, true, nil
	}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return cfg, false, fmt.Errorf("tag %q: %q is not key=value", tag, part)
		}
		switch strings.TrimSpace(key) {
		case "entity":
			cfg.Entity = strings.TrimSpace(value)
		case "guid":
			cfg.GUID = splitList(value)
		case "paths":
			cfg.Paths = splitList(value)
		case "query":
			cfg.Query = strings.TrimSpace(value)
		default:
			return cfg, false, fmt.Errorf("tag %q: unknown key %q, expected entity, guid, paths or query", tag, key)
		}
	}
	return cfg, false, nil
}

// splitList splits on commas, keeping empty entries. An empty value is a
// non-nil empty list.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
