package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/libraryops/internal/domain"
)

type PaymentResult struct {
	Fine             domain.Fine
	RemainingBalance float64
}

// payableStatus and waivableStatus gate the fine's terminal states. Paid
// and Waived fines never settle a second time.
func payableStatus(status domain.FineStatus) error {
	switch status {
	case domain.FinePaid:
		return ErrFineAlreadyPaid
	case domain.FineWaived:
		return ErrFineWaived
	}
	return nil
}

func waivableStatus(status domain.FineStatus) error {
	switch status {
	case domain.FinePaid:
		return ErrCannotWaivePaid
	case domain.FineWaived:
		return ErrFineWaived
	}
	return nil
}

func lockFine(ctx context.Context, tx pgx.Tx, id int64) (domain.Fine, error) {
	f := domain.Fine{ID: id}
	var paidDate *time.Time
	err := tx.QueryRow(ctx,
		`SELECT member_id, loan_id, amount, reason, status, paid_date, days_overdue, created_at, updated_at
		 FROM fines WHERE id = $1 FOR UPDATE`, id,
	).Scan(&f.MemberID, &f.LoanID, &f.Amount, &f.Reason, &f.Status, &paidDate,
		&f.DaysOverdue, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return f, ErrFineNotFound
		}
		return f, fmt.Errorf("lock acquisition failed: %w", err)
	}
	if paidDate != nil {
		d := domain.NewDate(*paidDate)
		f.PaidDate = &d
	}
	return f, nil
}

// PayFine settles a pending fine. The payment amount defaults to the fine's
// full amount; an explicit amount only moves the member's aggregate balance
// (floored at zero), never the fine's own recorded amount — per-fine
// partial payments are not modeled.
func (s *CirculationService) PayFine(ctx context.Context, fineID int64, amount *float64) (*PaymentResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	fine, err := lockFine(ctx, tx, fineID)
	if err != nil {
		return nil, err
	}
	if err := payableStatus(fine.Status); err != nil {
		return nil, err
	}

	member, err := lockMember(ctx, tx, fine.MemberID)
	if err != nil {
		return nil, err
	}

	payment := fine.Amount
	if amount != nil && *amount > 0 {
		payment = *amount
	}
	newBalance := domain.SettleBalance(member.FineBalance, payment)

	today := domain.Today()
	err = tx.QueryRow(ctx,
		`UPDATE fines SET status = 'Paid', paid_date = $1, updated_at = now()
		 WHERE id = $2 RETURNING updated_at`,
		today.Time, fine.ID,
	).Scan(&fine.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fine update failed: %w", err)
	}
	fine.Status = domain.FinePaid
	fine.PaidDate = &today

	_, err = tx.Exec(ctx,
		`UPDATE members SET fine_balance = $1, updated_at = now() WHERE id = $2`,
		newBalance, fine.MemberID)
	if err != nil {
		return nil, fmt.Errorf("balance update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &PaymentResult{Fine: fine, RemainingBalance: newBalance}, nil
}

// WaiveFine forgives a pending fine, reducing the member's balance by the
// fine's full amount, floored at zero. Paid and already-waived fines are
// rejected; waiving twice must not drain the balance twice.
func (s *CirculationService) WaiveFine(ctx context.Context, fineID int64) (*PaymentResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	fine, err := lockFine(ctx, tx, fineID)
	if err != nil {
		return nil, err
	}
	if err := waivableStatus(fine.Status); err != nil {
		return nil, err
	}

	member, err := lockMember(ctx, tx, fine.MemberID)
	if err != nil {
		return nil, err
	}

	newBalance := domain.SettleBalance(member.FineBalance, fine.Amount)

	err = tx.QueryRow(ctx,
		`UPDATE fines SET status = 'Waived', updated_at = now() WHERE id = $1 RETURNING updated_at`,
		fine.ID,
	).Scan(&fine.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fine update failed: %w", err)
	}
	fine.Status = domain.FineWaived

	_, err = tx.Exec(ctx,
		`UPDATE members SET fine_balance = $1, updated_at = now() WHERE id = $2`,
		newBalance, fine.MemberID)
	if err != nil {
		return nil, fmt.Errorf("balance update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &PaymentResult{Fine: fine, RemainingBalance: newBalance}, nil
}
