package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFileLedger_ApplyAndBalance(t *testing.T) {
	ctx := context.Background()
	l := NewFileLedger(t.TempDir())

	bal, err := l.Apply(ctx, "u1", 10)
	if err != nil || bal != 10 {
		t.Fatalf("credit: bal=%d err=%v", bal, err)
	}
	bal, err = l.Apply(ctx, "u1", -4)
	if err != nil || bal != 6 {
		t.Fatalf("debit: bal=%d err=%v", bal, err)
	}
	bal, err = l.Balance(ctx, "u1")
	if err != nil || bal != 6 {
		t.Fatalf("balance: bal=%d err=%v", bal, err)
	}
	if bal, _ := l.Balance(ctx, "nobody"); bal != 0 {
		t.Errorf("unknown user balance = %d, want 0", bal)
	}
}

func TestFileLedger_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := NewFileLedger(t.TempDir())
	if _, err := l.Apply(ctx, "u1", 5); err != nil {
		t.Fatal(err)
	}
	_, err := l.Apply(ctx, "u1", -6)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if bal, _ := l.Balance(ctx, "u1"); bal != 5 {
		t.Errorf("failed debit changed balance: %d", bal)
	}
}

func TestFileLedger_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l1 := NewFileLedger(dir)
	if _, err := l1.Apply(ctx, "u1", 42); err != nil {
		t.Fatal(err)
	}
	l2 := NewFileLedger(dir)
	if bal, _ := l2.Balance(ctx, "u1"); bal != 42 {
		t.Errorf("reloaded balance = %d, want 42", bal)
	}
}

func TestFileLedger_ConcurrentApplies(t *testing.T) {
	ctx := context.Background()
	l := NewFileLedger(t.TempDir())
	if _, err := l.Apply(ctx, "u1", 1000); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Apply(ctx, "u1", -10); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if bal, _ := l.Balance(ctx, "u1"); bal != 500 {
		t.Errorf("balance after 50 concurrent debits = %d, want 500", bal)
	}
}

func TestEntryLog_AppendAndByUser(t *testing.T) {
	el := NewEntryLog(t.TempDir())
	if err := el.Append(&Entry{ID: "e1", UserID: "u1", Game: "table", Delta: -5, Reason: "wager"}); err != nil {
		t.Fatal(err)
	}
	if err := el.Append(&Entry{ID: "e2", UserID: "u2", Game: "arcade", Delta: -3, Reason: "entry_fee"}); err != nil {
		t.Fatal(err)
	}
	if err := el.Append(&Entry{ID: "e3", UserID: "u1", Game: "table", Delta: 10, Reason: "payout"}); err != nil {
		t.Fatal(err)
	}
	got, err := el.ByUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e3" {
		t.Errorf("ByUser(u1) = %+v", got)
	}
	none, err := el.ByUser("u3")
	if err != nil || len(none) != 0 {
		t.Errorf("ByUser(u3) = %v, %v", none, err)
	}
}
