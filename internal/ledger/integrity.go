package ledger

import (
	"context"
	"fmt"

	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/observability"
	"github.com/tobiodua/bankcore/internal/store"
	"go.uber.org/zap"
)

// Integrity verifies the ledger invariants after the fact: every account
// balance equals the signed sum of its completed postings, and every
// transfer links exactly two completed postings on distinct accounts with
// the transfer's own amount.
type Integrity struct {
	store store.Store
}

// NewIntegrity creates an integrity checker over the given store.
func NewIntegrity(st store.Store) *Integrity {
	return &Integrity{store: st}
}

// Report summarizes one integrity pass.
type Report struct {
	AccountsChecked  int
	TransfersChecked int
	Violations       []string
}

// Clean reports whether the pass found no violations.
func (r Report) Clean() bool {
	return len(r.Violations) == 0
}

const integrityPageSize = 500

// Check runs one full pass over accounts and transfers.
func (s *Integrity) Check(ctx context.Context) (*Report, error) {
	report := &Report{}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		sum, err := s.signedSum(ctx, a)
		if err != nil {
			return nil, err
		}
		if sum != a.BalanceKobo {
			report.Violations = append(report.Violations,
				fmt.Sprintf("account %s: balance %d does not equal posting sum %d", a.Number, a.BalanceKobo, sum))
			observability.IncrementLedgerImbalance()
			zap.L().Error("ledger imbalance detected",
				zap.String("account", a.Number),
				zap.Int64("balance_kobo", a.BalanceKobo),
				zap.Int64("posting_sum_kobo", sum),
			)
		}
		report.AccountsChecked++
	}

	transfers, err := s.store.ListTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	for _, t := range transfers {
		if v := s.checkTransfer(ctx, t); v != "" {
			report.Violations = append(report.Violations, v)
			zap.L().Error("malformed transfer", zap.String("transfer_id", t.ID.String()), zap.String("violation", v))
		}
		report.TransfersChecked++
	}

	if report.Clean() {
		zap.L().Info("ledger balanced",
			zap.Int("accounts", report.AccountsChecked),
			zap.Int("transfers", report.TransfersChecked),
		)
	}
	return report, nil
}

func (s *Integrity) signedSum(ctx context.Context, a domain.Account) (int64, error) {
	var sum int64
	for offset := 0; ; offset += integrityPageSize {
		page, err := s.store.ListAccountTransactions(ctx, a.ID, integrityPageSize, offset)
		if err != nil {
			return 0, fmt.Errorf("list postings for %s: %w", a.Number, err)
		}
		for _, t := range page {
			if t.Status == domain.StatusCompleted {
				sum += t.SignedAmount()
			}
		}
		if len(page) < integrityPageSize {
			return sum, nil
		}
	}
}

func (s *Integrity) checkTransfer(ctx context.Context, t domain.Transfer) string {
	debit, err := s.store.GetTransaction(ctx, t.DebitTransactionID)
	if err != nil {
		return fmt.Sprintf("transfer %s: debit leg missing", t.ID)
	}
	credit, err := s.store.GetTransaction(ctx, t.CreditTransactionID)
	if err != nil {
		return fmt.Sprintf("transfer %s: credit leg missing", t.ID)
	}
	switch {
	case debit.AccountID == credit.AccountID:
		return fmt.Sprintf("transfer %s: both legs on account %s", t.ID, debit.AccountID)
	case debit.Status != domain.StatusCompleted || credit.Status != domain.StatusCompleted:
		return fmt.Sprintf("transfer %s: legs not completed (%s/%s)", t.ID, debit.Status, credit.Status)
	case debit.Direction != domain.DirectionDebit || credit.Direction != domain.DirectionCredit:
		return fmt.Sprintf("transfer %s: leg directions are %s/%s", t.ID, debit.Direction, credit.Direction)
	case debit.AmountKobo != t.AmountKobo || credit.AmountKobo != t.AmountKobo:
		return fmt.Sprintf("transfer %s: amounts %d/%d do not match %d", t.ID, debit.AmountKobo, credit.AmountKobo, t.AmountKobo)
	}
	return ""
}
