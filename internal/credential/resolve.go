package credential

// Source says where a resolved secret came from.
type Source string

const (
	SourceConfig   Source = "config"
	SourceKeyring  Source = "keyring"
	SourceFallback Source = "fallback"
)

// Lookup reads a keyring entry. Get satisfies it.
type Lookup func(key string) (string, error)

// Resolve picks the first non-empty value from configured, the keyring
// entry key, and fallback, in that order. Keyring errors are treated as
// an absent entry.
func Resolve(configured string, lookup Lookup, key, fallback string) (string, Source) {
	if configured != "" {
		return configured, SourceConfig
	}
	if lookup != nil {
		if v, err := lookup(key); err == nil && v != "" {
			return v, SourceKeyring
		}
	}
	return fallback, SourceFallback
}
