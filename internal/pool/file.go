package pool

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/studyloop/engine/internal/item"
)

// LoadFile reads a JSON array of items from path and returns a Memory pool.
// Items missing a difficulty default to medium.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool file: %w", err)
	}

	var items []item.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse pool file %s: %w", path, err)
	}

	for i := range items {
		if items[i].ID == "" {
			return nil, fmt.Errorf("pool file %s: item %d has no id", path, i)
		}
		if items[i].Difficulty == "" {
			items[i].Difficulty = item.DifficultyMedium
		}
		if !items[i].Difficulty.Valid() {
			return nil, fmt.Errorf("pool file %s: item %q has unknown difficulty %q", path, items[i].ID, items[i].Difficulty)
		}
	}

	return NewMemory(items...), nil
}
