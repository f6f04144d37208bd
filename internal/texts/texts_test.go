package texts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conciergebot/internal/constants"
)

func TestDefaultsCoverEveryState(t *testing.T) {
	table := NewDefault()
	for _, state := range constants.AllStates {
		assert.NotEqual(t, "state."+string(state), table.Title(state), "no title for %s", state)
	}
}

func TestGetFormatsAndFallsBack(t *testing.T) {
	table := NewDefault()
	assert.Equal(t, "Здравствуйте, Анна! Выберите раздел:", table.Get("start.member", "Анна"))
	assert.Equal(t, "missing.key", table.Get("missing.key"))
}

func TestLoadOverridesAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`button.back: "Back"`), 0o600))

	table, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Back", table.Get("button.back"))
	assert.Equal(t, "❌ Отмена", table.Get("button.cancel"), "other keys keep defaults")

	require.NoError(t, os.WriteFile(path, []byte(`button.back: "Go back"`), 0o600))
	require.NoError(t, table.Reload())
	assert.Equal(t, "Go back", table.Get("button.back"))
}

func TestReloadKeepsOldValuesOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`button.back: "Back"`), 0o600))
	table, err := Load(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("button.back: [unclosed"), 0o600))
	assert.Error(t, table.Reload())
	assert.Equal(t, "Back", table.Get("button.back"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
