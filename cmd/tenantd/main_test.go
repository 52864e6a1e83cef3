package main

import (
	"bytes"
	"testing"

	"github.com/percussion/tenantd"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	tenantd.SetBuildInfo("2.0.1", "deadbeef", "2026-01-02T03:04:05Z")

	cmd, err := newRootCommand(viper.New())
	require.NoError(t, err)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tenantd 2.0.1 (git: deadbeef) build_date: 2026-01-02T03:04:05Z\n", out.String())
}

func TestPrintConfigCommand(t *testing.T) {
	cmd, err := newRootCommand(viper.New())
	require.NoError(t, err)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"print-config", "--cache-ttl", "2m", "--format", "yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "cache-ttl: 2m0s\n")
}
