package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCfgPath(t *testing.T) {
	assert.Panics(t, func() { GetCfgPath("") })

	// absolute path returns as-is
	assert.Equal(t, "/tmp/relay.yaml", GetCfgPath("/tmp/relay.yaml"))

	old, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(old) })

	tmp := t.TempDir()
	assert.NoError(t, os.Chdir(tmp))

	// not found anywhere: fallback to /etc/fortitwin
	assert.Equal(t, "/etc/fortitwin/relay.yaml", GetCfgPath("relay.yaml"))

	// found in current dir
	assert.NoError(t, os.WriteFile(filepath.Join(tmp, "relay.yaml"), []byte("port: 1"), 0644))
	got := GetCfgPath("relay.yaml")
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "relay.yaml", filepath.Base(got))

	// found in configs/ subdir
	assert.NoError(t, os.Remove(filepath.Join(tmp, "relay.yaml")))
	assert.NoError(t, os.MkdirAll(filepath.Join(tmp, "configs"), 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(tmp, "configs", "relay.yaml"), []byte("port: 1"), 0644))
	got = GetCfgPath("relay.yaml")
	assert.Contains(t, got, filepath.Join("configs", "relay.yaml"))
}
