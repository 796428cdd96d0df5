package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetViper clears viper before the test and again when it completes.
func ResetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetViperValue sets key for the duration of the test.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	old := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, old) })
}
