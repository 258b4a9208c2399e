package catalog

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Entry describes a known subscription service that can be autofilled when
// the user tracks a new subscription
type Entry struct {
	Name          string  `json:"name"`
	Website       string  `json:"website"`
	ManagementURL string  `json:"managementUrl"`
	Category      string  `json:"category"`
	Icon          string  `json:"icon"`
	TypicalCost   float64 `json:"typicalCost"`
}

// loadEntriesFromFile will read the directory of known services from a JSON file
func loadEntriesFromFile(filename string) ([]Entry, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open catalog JSON file")
	}
	entries := make([]Entry, 0, 16)
	if err := json.Unmarshal(jsonBytes, &entries); err != nil {
		return nil, extErrors.Wrap(err, "Invalid catalog JSON file")
	}
	return entries, nil
}

// ManagerOptions contains the dependencies of a Manager
type ManagerOptions struct {
	Logger            *zap.Logger
	PathToCatalogJSON string
}

// Manager serves the directory of known subscription services
type Manager struct {
	ManagerOptions
	entries   []Entry
	nameIndex map[string]int
}

// NewManager returns a new Manager with the catalog loaded from file
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(option.PathToCatalogJSON) == 0 {
		return nil, fmt.Errorf("empty PathToCatalogJSON is invalid")
	}

	entries, err := loadEntriesFromFile(option.PathToCatalogJSON)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot populate the service catalog")
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	nameIndex := make(map[string]int)
	for index, e := range entries {
		nameIndex[strings.ToLower(e.Name)] = index + 1
	}

	return &Manager{
		ManagerOptions: option,
		entries:        entries,
		nameIndex:      nameIndex,
	}, nil
}

// List returns every catalog entry, sorted by name
func (m *Manager) List() []Entry {
	return m.entries
}

// GetByName will try to return the catalog entry with an exact name match
func (m *Manager) GetByName(name string) (Entry, bool) {
	index := m.nameIndex[strings.ToLower(name)]
	if index == 0 {
		return Entry{}, false
	}
	return m.entries[index-1], true
}

// Search returns entries whose name or category contains the query,
// case-insensitively
func (m *Manager) Search(query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return m.entries
	}
	matches := make([]Entry, 0, 4)
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strings.ToLower(e.Category), query) {
			matches = append(matches, e)
		}
	}
	return matches
}
