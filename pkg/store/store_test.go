package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/illustraitor/cli/pkg/illustraitor"
)

func openTestStore(t *testing.T, useKeyring bool) *Store {
	t.Helper()
	if useKeyring {
		keyring.MockInit()
	}
	s, err := Open(Options{Dir: t.TempDir(), UseKeyring: useKeyring, KeyringService: "illustraitor-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_APIKeyRoundTrip(t *testing.T) {
	for _, useKeyring := range []bool{false, true} {
		s := openTestStore(t, useKeyring)
		t.Run(s.KeyBackend(), func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.APIKey(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetAPIKey(ctx, "  my-odd-key-without-prefix\n"))
			key, ok, err := s.APIKey(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "my-odd-key-without-prefix", key)

			require.NoError(t, s.ClearAPIKey(ctx))
			_, ok, err = s.APIKey(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.ClearAPIKey(ctx), "clearing twice is fine")
		})
	}
}

func TestStore_RejectsEmptyAndMaskedKeys(t *testing.T) {
	s := openTestStore(t, false)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetAPIKey(ctx, "   "), ErrEmptyKey)
	assert.ErrorIs(t, s.SetAPIKey(ctx, illustraitor.MaskKey("sk-proj-abcdefghijkl")), ErrMaskedKey)

	_, ok, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.SetAPIKey(ctx, "ilust_persisted"))
	require.NoError(t, s.SetCredits(ctx, 7))
	require.NoError(t, s.SetSetting(ctx, "default_style", "anime"))
	require.NoError(t, s.Close())

	s, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	key, _, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ilust_persisted", key)

	credits, ok, err := s.Credits(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, credits)

	style, ok, err := s.Setting(ctx, SettingDefaultStyle)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "anime", style)
}

func TestStore_AddCredits(t *testing.T) {
	s := openTestStore(t, false)
	ctx := context.Background()

	n, err := s.AddCredits(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.AddCredits(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	n, err = s.AddCredits(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_ConcurrentWritesAreLastWriteWins(t *testing.T) {
	s := openTestStore(t, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, s.SetCredits(ctx, n))
		}(i)
	}
	wg.Wait()

	credits, ok, err := s.Credits(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, credits, 1)
	assert.LessOrEqual(t, credits, 20)
}

func TestStore_Settings(t *testing.T) {
	s := openTestStore(t, false)
	ctx := context.Background()

	require.NoError(t, s.SetSetting(ctx, "api_endpoint", "http://localhost:9000"))
	require.NoError(t, s.SetSetting(ctx, SettingDefaultStyle, "creative"))

	all, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		SettingEndpoint:     "http://localhost:9000",
		SettingDefaultStyle: "creative",
	}, all)

	require.NoError(t, s.SetSetting(ctx, "api_endpoint", ""))
	_, ok, err := s.Setting(ctx, "api_endpoint")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.SetSetting(ctx, "theme", "dark"), ErrUnknownSetting)
	_, _, err = s.Setting(ctx, "theme")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestStore_User(t *testing.T) {
	s := openTestStore(t, false)
	ctx := context.Background()

	_, ok, err := s.User(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetUser(ctx, User{Email: "ada@example.com", Name: "Ada", ID: "17"}))
	u, ok, err := s.User(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, User{Email: "ada@example.com", Name: "Ada", ID: "17"}, u)
}

func TestStore_Reset(t *testing.T) {
	s := openTestStore(t, true)
	ctx := context.Background()

	require.NoError(t, s.SetAPIKey(ctx, "sk-reset-me"))
	require.NoError(t, s.SetCredits(ctx, 3))
	require.NoError(t, s.SetSetting(ctx, "default_style", "anime"))

	require.NoError(t, s.Reset(ctx))

	_, ok, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Credits(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	all, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSettingName(t *testing.T) {
	name, err := SettingName("api_endpoint")
	require.NoError(t, err)
	assert.Equal(t, SettingEndpoint, name)

	name, err = SettingName("settings.default_style")
	require.NoError(t, err)
	assert.Equal(t, SettingDefaultStyle, name)

	_, err = SettingName("credits")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}
