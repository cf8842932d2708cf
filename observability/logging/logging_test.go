package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := SetupWithOptions(Options{Service: "soud", Env: "test", Output: &buf})
	defer closer.Close()

	logger.Info("pool seeded", MaskField("rpc_token", "secret"), slog.String("reason", "genesis"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "pool seeded", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "soud", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["rpc_token"])
	require.Equal(t, "genesis", line["reason"])
	require.Contains(t, line, "timestamp")
}

func TestSetupRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := SetupWithOptions(Options{Service: "soud", Output: &buf})
	defer closer.Close()

	logger.Warn("faucet auth rejected",
		slog.String("Authorization", "Bearer hunter2"),
		slog.String("faucet_caller", "192.0.2.7"),
		slog.String("auth_token", ""),
		slog.String("op", "bank.mint"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, RedactedValue, line["Authorization"])
	require.Equal(t, RedactedValue, line["faucet_caller"])
	require.Equal(t, "", line["auth_token"])
	require.Equal(t, "bank.mint", line["op"])
	require.NotContains(t, buf.String(), "hunter2")
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("RPC_TOKEN", "s3cret").Value.String())
	require.Equal(t, " ", MaskField("rpc_token", " ").Value.String())
	require.Equal(t, "SOU", MaskField("token", "SOU").Value.String())
	require.True(t, IsSensitive(" authorization "))
	require.False(t, IsSensitive("tx_id"))
}

func TestSetupRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := SetupWithOptions(Options{Service: "soud", Level: "warn", Output: &buf})
	defer closer.Close()
	logger.Info("dropped")
	require.Zero(t, buf.Len())
	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestSetupWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soud.log")
	var buf bytes.Buffer
	logger, closer := SetupWithOptions(Options{Service: "soud", File: path, Output: &buf})
	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}
