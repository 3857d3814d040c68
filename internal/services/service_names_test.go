package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServiceNames_Embedded(t *testing.T) {
	names, err := LoadServiceNames("")
	require.NoError(t, err)

	name, ok := names.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "Tecnomecánica Livianos Particulares", name)
	assert.Empty(t, names.Unmapped())
}

func TestLoadServiceNames_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  500: Lavado\n"), 0o600))

	names, err := LoadServiceNames(path)
	require.NoError(t, err)

	name, ok := names.Lookup(500)
	assert.True(t, ok)
	assert.Equal(t, "Lavado", name)

	_, err = LoadServiceNames(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseServiceNames_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"empty table": "services: {}\n",
		"not yaml":    "services: [1, 2",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseServiceNames([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestServiceNames_CountsMisses(t *testing.T) {
	names, err := ParseServiceNames([]byte("services:\n  1: RTM\n"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names.Lookup(999)
			names.Lookup(1)
		}()
	}
	wg.Wait()
	names.Lookup(7)

	assert.Equal(t, map[int]int64{999: 20, 7: 1}, names.Unmapped())
}
