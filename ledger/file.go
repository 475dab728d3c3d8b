package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileLedger keeps balances in memory and persists them to balances.json
// (same style as the other data/*.json stores). The single mutex makes
// debit-if-sufficient indivisible.
type FileLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	dataDir  string
}

func NewFileLedger(dataDir string) *FileLedger {
	if dataDir == "" {
		dataDir = "data"
	}
	l := &FileLedger{
		balances: make(map[string]int64),
		dataDir:  dataDir,
	}
	l.load()
	return l
}

func (l *FileLedger) path() string {
	return filepath.Join(l.dataDir, "balances.json")
}

func (l *FileLedger) load() {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path())
	if err != nil {
		return
	}
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}
	l.balances = m
}

// saveLocked writes balances to disk. Caller must hold l.mu.
func (l *FileLedger) saveLocked() error {
	data, err := json.MarshalIndent(l.balances, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(l.path(), data, 0644)
}

func (l *FileLedger) Balance(ctx context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *FileLedger) Apply(ctx context.Context, userID string, delta int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[userID]
	next := bal + delta
	if next < 0 {
		return 0, ErrInsufficientFunds
	}
	l.balances[userID] = next
	if err := l.saveLocked(); err != nil {
		l.balances[userID] = bal
		return 0, err
	}
	return next, nil
}
