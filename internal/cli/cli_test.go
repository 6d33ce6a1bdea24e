package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LeJamon/goMarble/internal/config"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/crypto"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/storage/database"
	"github.com/LeJamon/goMarble/internal/types"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configFile = ""
		debug = false
		quiet = false
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, backend, path string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "marbled.toml")
	content := fmt.Sprintf("[database]\nbackend = %q\npath = %q\n\n[index]\nenabled = false\n", backend, path)
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "marbled version "+Version)
}

func TestKeysCommands(t *testing.T) {
	out, err := executeCommand(t, "keys", "generate")
	require.NoError(t, err)
	var generated keyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	require.NotEmpty(t, generated.PrivateKey)

	key, err := crypto.KeyPairFromHex(generated.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, key.Address().String(), generated.Address)

	out, err = executeCommand(t, "keys", "address", generated.PrivateKey)
	require.NoError(t, err)
	var derived keyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &derived))
	assert.Equal(t, generated.Address, derived.Address)
	assert.Equal(t, generated.PublicKey, derived.PublicKey)
	assert.Empty(t, derived.PrivateKey)

	_, err = executeCommand(t, "keys", "address", "zz")
	assert.Error(t, err)
}

func TestOpenStateDB(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{database.BackendPebble, database.BackendLevelDB, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			db, closeDB, err := openStateDB(config.DatabaseConfig{Backend: backend, Path: t.TempDir()})
			require.NoError(t, err)
			require.NoError(t, db.Write(ctx, []byte("k"), []byte("v")))
			got, err := db.Read(ctx, []byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
			require.NoError(t, closeDB())
		})
	}

	_, _, err := openStateDB(config.DatabaseConfig{Backend: "bolt"})
	assert.Error(t, err)
}

func TestSnapshotExportImport(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()

	// Seed the source store through a real chain so the snapshot holds
	// genuine state.
	db, closeDB, err := openStateDB(config.DatabaseConfig{Backend: database.BackendPebble, Path: srcDir})
	require.NoError(t, err)
	chain := newChain(db, zaptest.NewLogger(t))
	_, err = chain.InitGenesis(ctx, host.Genesis{
		Balances: []host.GenesisBalance{{Address: "marble1alice", Coin: types.NewCoin("umarble", 1_000)}},
	})
	require.NoError(t, err)
	require.NoError(t, closeDB())

	file := filepath.Join(t.TempDir(), "state.snap")
	out, err := executeCommand(t, "--conf", writeConfig(t, database.BackendPebble, srcDir), "snapshot", "export", file)
	require.NoError(t, err)
	assert.Contains(t, out, "exported")

	dstDir := t.TempDir()
	dstConf := writeConfig(t, database.BackendLevelDB, dstDir)
	_, err = executeCommand(t, "--conf", dstConf, "snapshot", "import", file)
	require.NoError(t, err)

	// A second import into the now populated store is refused
	_, err = executeCommand(t, "--conf", dstConf, "snapshot", "import", file)
	assert.Error(t, err)

	db, closeDB, err = openStateDB(config.DatabaseConfig{Backend: database.BackendLevelDB, Path: dstDir})
	require.NoError(t, err)
	defer closeDB()
	chain = newChain(db, zaptest.NewLogger(t))
	balance, err := chain.Balance(ctx, "marble1alice", types.NativeAsset("umarble"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance.Uint64())
}

func TestConfigExampleAndCheck(t *testing.T) {
	file := filepath.Join(t.TempDir(), "marbled.toml")

	out, err := executeCommand(t, "config", "example", file)
	require.NoError(t, err)
	assert.Contains(t, out, file)

	cfg, err := config.LoadConfig(config.ConfigPaths{Main: file})
	require.NoError(t, err)
	assert.Equal(t, "marble1fees", cfg.Market.FeeCollector)
	assert.Equal(t, royalty.Percent(2), cfg.Market.ProtocolFee)
	require.Len(t, cfg.Genesis.Collections, 1)

	out, err = executeCommand(t, "config", "check", "--conf", file)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration OK ("+file+")")
	assert.Contains(t, out, "collections at genesis: 1")

	_, err = executeCommand(t, "config", "check", "--conf", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
