package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/libraryops/internal/domain"
)

// Reserve places a hold on a book for a member. The hold is born Available
// when copies are on the shelf with no queue ahead of it, Pending
// otherwise. The book row lock serializes competing holds.
func (s *CirculationService) Reserve(ctx context.Context, memberID, bookID int64) (*domain.Reservation, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var memberStatus domain.MemberStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM members WHERE id = $1`, memberID,
	).Scan(&memberStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("member lookup failed: %w", err)
	}
	if memberStatus != domain.MemberActive {
		return nil, ErrMemberSuspended
	}

	book, err := lockBook(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}

	var onLoan bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE member_id = $1 AND book_id = $2 AND status = 'Borrowed')`,
		memberID, bookID,
	).Scan(&onLoan)
	if err != nil {
		return nil, fmt.Errorf("loan check failed: %w", err)
	}
	if onLoan {
		return nil, ErrHasBookOnLoan
	}

	var held bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations
		 WHERE member_id = $1 AND book_id = $2 AND status IN ('Pending', 'Available'))`,
		memberID, bookID,
	).Scan(&held)
	if err != nil {
		return nil, fmt.Errorf("reservation check failed: %w", err)
	}
	if held {
		return nil, ErrDuplicateReservation
	}

	status := domain.ReservationPending
	if book.Quantity > 0 && book.Status == domain.BookAvailable {
		status = domain.ReservationAvailable
	}

	today := domain.Today()
	reservation := domain.Reservation{
		MemberID:        memberID,
		BookID:          bookID,
		ReservationDate: today,
		Status:          status,
		ExpiryDate:      today.AddDays(s.policy.ReservationExpiryDays),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO reservations (member_id, book_id, reservation_date, status, notification_sent, expiry_date)
		 VALUES ($1, $2, $3, $4, false, $5)
		 RETURNING id, created_at, updated_at`,
		reservation.MemberID, reservation.BookID, reservation.ReservationDate.Time,
		reservation.Status, reservation.ExpiryDate.Time,
	).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reservation insert failed: %w", err)
	}

	if err := settleBookStatus(ctx, tx, book, book.Quantity); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &reservation, nil
}

// CancelReservation closes an active hold. When the last active hold on an
// in-stock book goes away the title reverts to Available.
func (s *CirculationService) CancelReservation(ctx context.Context, reservationID int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var bookID int64
	var status domain.ReservationStatus
	err = tx.QueryRow(ctx,
		`SELECT book_id, status FROM reservations WHERE id = $1 FOR UPDATE`, reservationID,
	).Scan(&bookID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReservationNotFound
		}
		return fmt.Errorf("lock acquisition failed: %w", err)
	}
	if !status.Active() {
		return ErrReservationClosed
	}

	_, err = tx.Exec(ctx,
		`UPDATE reservations SET status = 'Cancelled', updated_at = now() WHERE id = $1`,
		reservationID)
	if err != nil {
		return fmt.Errorf("reservation update failed: %w", err)
	}

	book, err := lockBook(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if err := settleBookStatus(ctx, tx, book, book.Quantity); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
