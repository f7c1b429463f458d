package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

func TestCreditValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.wallet.Credit(ctx, "", models.WalletMain, 100, "x", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty user id: got %v, want ErrValidation", err)
	}
	if _, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 0, "x", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero amount: got %v, want ErrValidation", err)
	}
	if _, err := f.wallet.Credit(ctx, "u1", models.WalletMain, -5, "x", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative amount: got %v, want ErrValidation", err)
	}
	if _, err := f.wallet.Debit(ctx, "u1", models.WalletMain, -5, "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative debit: got %v, want ErrValidation", err)
	}
}

func TestCreditDebitRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 5000, "funding", "")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if w.MainBalance != 5000 {
		t.Fatalf("main balance = %d, want 5000", w.MainBalance)
	}

	w, err = f.wallet.Credit(ctx, "u1", models.WalletCashback, 200, "cashback", "")
	if err != nil {
		t.Fatalf("cashback credit: %v", err)
	}
	if w.CashbackBalance != 200 || w.MainBalance != 5000 {
		t.Fatalf("balances = main %d cashback %d, want 5000/200", w.MainBalance, w.CashbackBalance)
	}

	w, err = f.wallet.Debit(ctx, "u1", models.WalletMain, 1500, "airtime")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if w.MainBalance != 3500 {
		t.Fatalf("main balance after debit = %d, want 3500", w.MainBalance)
	}

	entries, err := f.wallet.Ledger(ctx, "u1", 50, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ledger entries = %d, want 3", len(entries))
	}
}

func TestDebitInsufficientLeavesBalanceUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 1000, "funding", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	_, err := f.wallet.Debit(ctx, "u1", models.WalletMain, 2500, "too much")
	if !errors.Is(err, repo.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}

	w, err := f.wallet.Balances(ctx, "u1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if w.MainBalance != 1000 {
		t.Fatalf("balance changed on failed debit: %d", w.MainBalance)
	}
	entries, _ := f.wallet.Ledger(ctx, "u1", 50, 0)
	if len(entries) != 1 {
		t.Fatalf("failed debit wrote a ledger entry: %d entries", len(entries))
	}
}

func TestDuplicateReferenceIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 3000, "funding", "FUND-1"); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	w, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 3000, "funding", "FUND-1")
	if err != nil {
		t.Fatalf("duplicate credit returned error: %v", err)
	}
	if w.MainBalance != 3000 {
		t.Fatalf("duplicate credit changed balance: %d", w.MainBalance)
	}
	if n := f.store.creditEntriesWithRef("FUND-1"); n != 1 {
		t.Fatalf("credit entries with ref = %d, want 1", n)
	}
}

func TestConcurrentCreditsDistinctRefs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("REF-%03d", i)
			if _, err := f.wallet.Credit(ctx, "u1", models.WalletMain, 1, "concurrent", ref); err != nil {
				t.Errorf("credit %s: %v", ref, err)
			}
		}(i)
	}
	wg.Wait()

	w, err := f.wallet.Balances(ctx, "u1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if w.MainBalance != n {
		t.Fatalf("main balance = %d, want %d", w.MainBalance, n)
	}
	entries, _ := f.wallet.Ledger(ctx, "u1", n+10, 0)
	if len(entries) != n {
		t.Fatalf("ledger entries = %d, want %d", len(entries), n)
	}
}

func TestBalancesCreatesWalletLazily(t *testing.T) {
	f := newFixture()

	w, err := f.wallet.Balances(context.Background(), "fresh-user")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if w.MainBalance != 0 || w.CashbackBalance != 0 || w.ReferralBalance != 0 {
		t.Fatalf("fresh wallet not zeroed: %+v", w)
	}
}
