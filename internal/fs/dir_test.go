package fs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantdDir(t *testing.T) {
	dir, err := TenantdDir()
	require.NoError(t, err)
	assert.Equal(t, DirName, filepath.Base(dir))

	assert.Equal(t, filepath.Join(dir, "tenantd.bolt"), DataFile("tenantd.bolt"))
}
