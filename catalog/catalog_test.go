package catalog

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := writeCatalogFile(t, `[
		{"name": "Netflix", "website": "https://www.netflix.com", "category": "Streaming", "typicalCost": 15.49},
		{"name": "Spotify", "website": "https://www.spotify.com", "category": "Music", "typicalCost": 10.99},
		{"name": "Apple Music", "website": "https://music.apple.com", "category": "Music", "typicalCost": 10.99}
	]`)
	m, err := NewManager(ManagerOptions{
		Logger:            zap.NewNop(),
		PathToCatalogJSON: path,
	})
	require.NoError(t, err)
	return m
}

func TestListSortedByName(t *testing.T) {
	m := newTestManager(t)

	entries := m.List()
	require.Len(t, entries, 3)
	require.Equal(t, "Apple Music", entries[0].Name)
	require.Equal(t, "Netflix", entries[1].Name)
	require.Equal(t, "Spotify", entries[2].Name)
}

func TestGetByNameCaseInsensitive(t *testing.T) {
	m := newTestManager(t)

	entry, ok := m.GetByName("netflix")
	require.True(t, ok)
	require.Equal(t, "Netflix", entry.Name)

	_, ok = m.GetByName("Hulu")
	require.False(t, ok)
}

func TestSearchMatchesNameAndCategory(t *testing.T) {
	m := newTestManager(t)

	require.Len(t, m.Search("music"), 2)
	require.Len(t, m.Search("netf"), 1)
	require.Len(t, m.Search(""), 3)
	require.Empty(t, m.Search("gaming"))
}

func TestNewManagerInvalidFile(t *testing.T) {
	_, err := NewManager(ManagerOptions{
		Logger:            zap.NewNop(),
		PathToCatalogJSON: "/nonexistent/catalog.json",
	})
	require.Error(t, err)

	path := writeCatalogFile(t, `{not json`)
	_, err = NewManager(ManagerOptions{
		Logger:            zap.NewNop(),
		PathToCatalogJSON: path,
	})
	require.Error(t, err)
}
