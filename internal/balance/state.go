package balance

import (
	"encoding/json"
	"os"
	"time"

	"RendaBot/internal/model"
)

// LoadState reads the balance state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.BalanceState, error) {
	if filePath == "" {
		return &model.BalanceState{}, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.BalanceState{}, nil
		}
		return nil, err
	}
	var state model.BalanceState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the balance state to a JSON file. An empty path keeps it in memory only.
func SaveState(filePath string, state *model.BalanceState) error {
	state.UpdatedAt = time.Now()
	if filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o600)
}
