package store

// Config holds configuration for a Store.
type Config struct {
	// Table is the DynamoDB table name (or bbolt bucket name).
	// Default: "items"
	Table string

	// DefaultPageSize is the number of items List returns when the caller
	// does not ask for a limit.
	// Default: 50
	DefaultPageSize int

	// MaxPageSize caps the limit a caller may ask for. Larger limits are clamped.
	// Default: 1000
	MaxPageSize int
}

const (
	defaultTable       = "items"
	defaultPageSize    = 50
	defaultMaxPageSize = 1000
)

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Table:           defaultTable,
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     defaultMaxPageSize,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = defaultMaxPageSize
	}
	if c.DefaultPageSize < 1 {
		c.DefaultPageSize = defaultPageSize
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
}

// PageLimit resolves the page size for a List call.
// Zero or negative means "use the default"; anything above MaxPageSize is clamped.
func (c Config) PageLimit(requested int) int {
	c.validate()
	if requested < 1 {
		return c.DefaultPageSize
	}
	if requested > c.MaxPageSize {
		return c.MaxPageSize
	}
	return requested
}
