package credential

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	found := func(string) (string, error) { return "from-keyring", nil }
	missing := func(key string) (string, error) { return "", ErrNotFound }
	broken := func(string) (string, error) { return "", errors.New("dbus unavailable") }

	tests := []struct {
		name       string
		configured string
		lookup     Lookup
		want       string
		wantSource Source
	}{
		{"config wins", "from-env", found, "from-env", SourceConfig},
		{"keyring next", "", found, "from-keyring", SourceKeyring},
		{"missing entry", "", missing, "dev", SourceFallback},
		{"keyring error", "", broken, "dev", SourceFallback},
		{"no lookup", "", nil, "dev", SourceFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src := Resolve(tt.configured, tt.lookup, KeyAutomationSecret, "dev")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSource, src)
		})
	}
}
