package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry records one settlement-caused balance delta for audit. The entry log
// is advisory: the balances themselves are authoritative, and a failed append
// never blocks or reverses a settlement.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Game      string    `json:"game"` // "table" or "arcade"
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"` // "wager", "entry_fee", "payout", "compensation"
	At        time.Time `json:"at"`
}

// EntryLog appends settlement entries to data/ledger_entries.json.
type EntryLog struct {
	mu      sync.Mutex
	dataDir string
}

func NewEntryLog(dataDir string) *EntryLog {
	if dataDir == "" {
		dataDir = "data"
	}
	return &EntryLog{dataDir: dataDir}
}

func (el *EntryLog) path() string {
	return filepath.Join(el.dataDir, "ledger_entries.json")
}

// Append adds an entry to the log (append to array, same as the other JSON stores).
func (el *EntryLog) Append(e *Entry) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if err := os.MkdirAll(el.dataDir, 0755); err != nil {
		return err
	}
	path := el.path()
	var list []*Entry
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &list)
	}
	if list == nil {
		list = []*Entry{}
	}
	list = append(list, e)
	data, err = json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ByUser returns the logged entries for a user, oldest first.
func (el *EntryLog) ByUser(userID string) ([]*Entry, error) {
	el.mu.Lock()
	defer el.mu.Unlock()
	data, err := os.ReadFile(el.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var list []*Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range list {
		if e != nil && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
