package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type capturedEvent struct {
	transferID string
	from, to   string
	amount     int64
}

type fakePublisher struct {
	events []capturedEvent
	fail   error
}

func (f *fakePublisher) PublishTransferCompleted(ctx context.Context, transferID, from, to string, amount int64, occurredAt time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, capturedEvent{transferID, from, to, amount})
	return nil
}

func newLedgerWithAccounts(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()
	ledger := NewLedger(storage.NewMemoryStore(), opts...)
	ctx := context.Background()
	if _, err := ledger.store.CreateAccount(ctx, "a", 100); err != nil {
		t.Fatalf("seed account a: %v", err)
	}
	if _, err := ledger.store.CreateAccount(ctx, "b", 50); err != nil {
		t.Fatalf("seed account b: %v", err)
	}
	return ledger
}

func TestCreateAccountAppliesInitialGrant(t *testing.T) {
	ledger := NewLedger(storage.NewMemoryStore(), WithInitialGrant(10000))
	ctx := context.Background()

	acct, err := ledger.CreateAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Balance != 10000 {
		t.Fatalf("initial balance = %d, want 10000", acct.Balance)
	}

	if _, err := ledger.CreateAccount(ctx, "alice"); !errors.Is(err, core.ErrAccountExists) {
		t.Fatalf("second create: expected ErrAccountExists, got %v", err)
	}

	if _, err := ledger.CreateAccount(ctx, ""); !errors.Is(err, core.ErrInvalidOwner) {
		t.Fatalf("empty owner: expected ErrInvalidOwner, got %v", err)
	}
}

func TestCreateAccountDefaultsToZeroGrant(t *testing.T) {
	ledger := NewLedger(storage.NewMemoryStore())
	acct, err := ledger.CreateAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("initial balance = %d, want 0", acct.Balance)
	}
}

func TestDeposit(t *testing.T) {
	ledger := newLedgerWithAccounts(t)
	ctx := context.Background()

	balance, err := ledger.Deposit(ctx, "a", 25)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if balance != 125 {
		t.Fatalf("balance = %d, want 125", balance)
	}

	for _, amount := range []int64{0, -10} {
		if _, err := ledger.Deposit(ctx, "a", amount); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("deposit %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	if _, err := ledger.Deposit(ctx, "ghost", 5); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetBalance(t *testing.T) {
	ledger := newLedgerWithAccounts(t)
	ctx := context.Background()

	balance, err := ledger.GetBalance(ctx, "a")
	if err != nil || balance != 100 {
		t.Fatalf("balance = %d err=%v, want 100", balance, err)
	}
	if _, err := ledger.GetBalance(ctx, "ghost"); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	pub := &fakePublisher{}
	ledger := newLedgerWithAccounts(t, WithPublisher(pub))
	ctx := context.Background()

	transferID, err := ledger.Transfer(ctx, core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: 30})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transferID == "" {
		t.Fatal("empty transfer id")
	}

	if got, _ := ledger.GetBalance(ctx, "a"); got != 70 {
		t.Fatalf("a = %d, want 70", got)
	}
	if got, _ := ledger.GetBalance(ctx, "b"); got != 80 {
		t.Fatalf("b = %d, want 80", got)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.transferID != transferID || ev.from != "a" || ev.to != "b" || ev.amount != 30 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestTransferValidation(t *testing.T) {
	ledger := newLedgerWithAccounts(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		intent core.TransferIntent
		want   error
	}{
		{"zero amount", core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: 0}, core.ErrInvalidAmount},
		{"negative amount", core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: -5}, core.ErrInvalidAmount},
		{"same account", core.TransferIntent{FromOwnerID: "a", ToOwnerID: "a", Amount: 5}, core.ErrSameAccount},
		{"missing source", core.TransferIntent{FromOwnerID: "ghost", ToOwnerID: "b", Amount: 5}, core.ErrAccountNotFound},
		{"missing target", core.TransferIntent{FromOwnerID: "a", ToOwnerID: "ghost", Amount: 5}, core.ErrAccountNotFound},
		{"insufficient", core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: 1000}, core.ErrInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ledger.Transfer(ctx, tc.intent); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			// No mutation on any failure path.
			if got, _ := ledger.GetBalance(ctx, "a"); got != 100 {
				t.Fatalf("a = %d after failed transfer, want 100", got)
			}
			if got, _ := ledger.GetBalance(ctx, "b"); got != 50 {
				t.Fatalf("b = %d after failed transfer, want 50", got)
			}
		})
	}
}

func TestTransferSurvivesPublisherFailure(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("broker is down")}
	ledger := newLedgerWithAccounts(t, WithPublisher(pub))
	ctx := context.Background()

	if _, err := ledger.Transfer(ctx, core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: 30}); err != nil {
		t.Fatalf("transfer must not fail on publish error: %v", err)
	}
	if got, _ := ledger.GetBalance(ctx, "a"); got != 70 {
		t.Fatalf("a = %d, want 70", got)
	}
}

func TestTotalBalanceConservedAcrossTransfers(t *testing.T) {
	ledger := newLedgerWithAccounts(t)
	ctx := context.Background()

	before, err := ledger.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := ledger.Transfer(ctx, core.TransferIntent{FromOwnerID: "a", ToOwnerID: "b", Amount: 7}); err != nil {
			if errors.Is(err, core.ErrInsufficientBalance) {
				break
			}
			t.Fatalf("transfer: %v", err)
		}
	}
	after, err := ledger.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if before != after {
		t.Fatalf("total balance changed: %d -> %d", before, after)
	}
}
