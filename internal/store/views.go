package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/libraryops/internal/domain"
)

// Read-only circulation views. These never mutate state; overdue flags and
// projected fines are computed live against today's date.

// ReservationFilter narrows the reservation listing. Nil/empty fields match
// everything.
type ReservationFilter struct {
	MemberID *int64
	BookID   *int64
	Status   domain.ReservationStatus
}

// LoanFilter narrows the flat circulation listing.
type LoanFilter struct {
	MemberID *int64
	BookID   *int64
	Status   domain.LoanStatus
}

const reservationColumns = `r.id, r.member_id, r.book_id, r.reservation_date, r.status, r.notification_sent, r.expiry_date, r.created_at, r.updated_at`

func scanReservation(scan func(dest ...any) error, extra ...any) (domain.Reservation, error) {
	var rv domain.Reservation
	var resDate time.Time
	var expiry *time.Time
	dest := []any{&rv.ID, &rv.MemberID, &rv.BookID, &resDate, &rv.Status,
		&rv.NotificationSent, &expiry, &rv.CreatedAt, &rv.UpdatedAt}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return rv, err
	}
	rv.ReservationDate = domain.NewDate(resDate)
	if expiry != nil {
		rv.ExpiryDate = domain.NewDate(*expiry)
	}
	return rv, nil
}

// ListReservations returns reservations in queue order (earliest first),
// each joined with book and member summaries.
func (s *Store) ListReservations(ctx context.Context, f ReservationFilter) ([]domain.ReservationDetail, error) {
	query := `SELECT ` + reservationColumns + `,
		b.id, b.title, b.author, b.isbn, m.id, m.name, m.email
		FROM reservations r
		JOIN books b ON b.id = r.book_id
		JOIN members m ON m.id = r.member_id`

	var where []string
	var args []any
	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		where = append(where, fmt.Sprintf("r.member_id = $%d", len(args)))
	}
	if f.BookID != nil {
		args = append(args, *f.BookID)
		where = append(where, fmt.Sprintf("r.book_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.reservation_date ASC"

	rows, err := s.Db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []domain.ReservationDetail{}
	for rows.Next() {
		var book domain.BookSummary
		var member domain.MemberSummary
		rv, err := scanReservation(rows.Scan,
			&book.ID, &book.Title, &book.Author, &book.ISBN,
			&member.ID, &member.Name, &member.Email)
		if err != nil {
			return nil, err
		}
		details = append(details, domain.ReservationDetail{
			Reservation: rv,
			Book:        &book,
			Member:      &member,
		})
	}
	return details, rows.Err()
}

// MemberFines returns a member's fine history, newest first, with
// aggregates over the history and the member's live balance.
func (s *Store) MemberFines(ctx context.Context, memberID int64) (*domain.MemberFines, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, member_id, loan_id, amount, reason, status, paid_date, days_overdue, created_at, updated_at
		 FROM fines WHERE member_id = $1 ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &domain.MemberFines{Fines: []domain.Fine{}}
	for rows.Next() {
		var f domain.Fine
		var paidDate *time.Time
		if err := rows.Scan(&f.ID, &f.MemberID, &f.LoanID, &f.Amount, &f.Reason,
			&f.Status, &paidDate, &f.DaysOverdue, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		f.PaidDate = datePtr(paidDate)
		result.Fines = append(result.Fines, f)
		result.TotalAmount += f.Amount
		if f.Status == domain.FinePending {
			result.UnpaidAmount += f.Amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.TotalFines = len(result.Fines)
	result.TotalAmount = domain.RoundCents(result.TotalAmount)
	result.UnpaidAmount = domain.RoundCents(result.UnpaidAmount)

	// The member may have been deleted; the fine history is still served
	// with a zero balance in that case.
	var balance float64
	err = s.Db.QueryRow(ctx, `SELECT fine_balance FROM members WHERE id = $1`, memberID).Scan(&balance)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	result.MemberBalance = balance
	return result, nil
}

// MemberCirculation assembles the member-centric desk view: profile, loans
// split active/returned with live overdue annotation, and active holds.
func (s *Store) MemberCirculation(ctx context.Context, memberID int64) (*domain.MemberCirculation, error) {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	loans, err := s.MemberLoans(ctx, memberID)
	if err != nil {
		return nil, err
	}

	rows, err := s.Db.Query(ctx,
		`SELECT `+reservationColumns+`, b.id, b.title, b.author, b.isbn
		 FROM reservations r JOIN books b ON b.id = r.book_id
		 WHERE r.member_id = $1 AND r.status IN ('Pending', 'Available')
		 ORDER BY r.reservation_date ASC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := []domain.ReservationDetail{}
	for rows.Next() {
		var book domain.BookSummary
		rv, err := scanReservation(rows.Scan, &book.ID, &book.Title, &book.Author, &book.ISBN)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, domain.ReservationDetail{Reservation: rv, Book: &book})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	view := &domain.MemberCirculation{
		ActiveLoans:   []domain.MemberLoan{},
		ReturnedLoans: []domain.MemberLoan{},
		Reservations:  reservations,
		TotalLoans:    len(loans),
	}
	for _, ln := range loans {
		if ln.Status == domain.LoanBorrowed {
			view.ActiveLoans = append(view.ActiveLoans, ln)
		} else {
			view.ReturnedLoans = append(view.ReturnedLoans, ln)
		}
	}
	view.ActiveLoansCount = len(view.ActiveLoans)
	view.Member = domain.MemberProfile{
		ID:               member.ID,
		Name:             member.Name,
		Email:            member.Email,
		FineBalance:      member.FineBalance,
		MaxBooksLimit:    member.MaxBooksLimit,
		ActiveLoansCount: view.ActiveLoansCount,
	}
	return view, nil
}

// BookCirculation is the symmetric view keyed by book. TimesBorrowed counts
// completed (returned) loans.
func (s *Store) BookCirculation(ctx context.Context, bookID int64) (*domain.BookCirculation, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	rows, err := s.Db.Query(ctx,
		`SELECT `+loanColumns+`, m.id, m.name, m.email
		 FROM loans l JOIN members m ON m.id = l.member_id
		 WHERE l.book_id = $1
		 ORDER BY l.created_at DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	active := []domain.BookLoan{}
	returned := []domain.BookLoan{}
	for rows.Next() {
		var bl domain.BookLoan
		var member domain.MemberSummary
		var loanDate, dueDate time.Time
		var returnDate *time.Time
		if err := rows.Scan(&bl.ID, &bl.MemberID, &bl.BookID, &loanDate, &dueDate, &returnDate,
			&bl.Status, &bl.RenewalCount, &bl.FineAmount, &bl.CreatedAt, &bl.UpdatedAt,
			&member.ID, &member.Name, &member.Email); err != nil {
			return nil, err
		}
		bl.LoanDate = domain.NewDate(loanDate)
		bl.DueDate = domain.NewDate(dueDate)
		bl.ReturnDate = datePtr(returnDate)
		bl.Member = &member
		if bl.Status == domain.LoanBorrowed {
			active = append(active, bl)
		} else {
			returned = append(returned, bl)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resRows, err := s.Db.Query(ctx,
		`SELECT `+reservationColumns+`, m.id, m.name, m.email
		 FROM reservations r JOIN members m ON m.id = r.member_id
		 WHERE r.book_id = $1 AND r.status IN ('Pending', 'Available')
		 ORDER BY r.reservation_date ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer resRows.Close()

	reservations := []domain.ReservationDetail{}
	for resRows.Next() {
		var member domain.MemberSummary
		rv, err := scanReservation(resRows.Scan, &member.ID, &member.Name, &member.Email)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, domain.ReservationDetail{Reservation: rv, Member: &member})
	}
	if err := resRows.Err(); err != nil {
		return nil, err
	}

	return &domain.BookCirculation{
		Book: domain.BookProfile{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			ISBN:     book.ISBN,
			Quantity: book.Quantity,
			Status:   book.Status,
		},
		ActiveLoans:   active,
		ReturnedLoans: returned,
		Reservations:  reservations,
		TotalLoans:    len(active) + len(returned),
		TimesBorrowed: len(returned),
	}, nil
}

// AllCirculation is the flat loan listing with optional filters, newest
// first.
func (s *Store) AllCirculation(ctx context.Context, f LoanFilter) ([]domain.CirculationEntry, error) {
	query := `SELECT ` + loanColumns + `,
		b.id, b.title, b.author, b.isbn, m.id, m.name, m.email
		FROM loans l
		JOIN books b ON b.id = l.book_id
		JOIN members m ON m.id = l.member_id`

	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		where = append(where, fmt.Sprintf("l.member_id = $%d", len(args)))
	}
	if f.BookID != nil {
		args = append(args, *f.BookID)
		where = append(where, fmt.Sprintf("l.book_id = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY l.created_at DESC"

	rows, err := s.Db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	today := domain.Today()
	entries := []domain.CirculationEntry{}
	for rows.Next() {
		var e domain.CirculationEntry
		var book domain.BookSummary
		var member domain.MemberSummary
		var loanDate, dueDate time.Time
		var returnDate *time.Time
		if err := rows.Scan(&e.ID, &e.MemberID, &e.BookID, &loanDate, &dueDate, &returnDate,
			&e.Status, &e.RenewalCount, &e.FineAmount, &e.CreatedAt, &e.UpdatedAt,
			&book.ID, &book.Title, &book.Author, &book.ISBN,
			&member.ID, &member.Name, &member.Email); err != nil {
			return nil, err
		}
		e.LoanDate = domain.NewDate(loanDate)
		e.DueDate = domain.NewDate(dueDate)
		e.ReturnDate = datePtr(returnDate)
		e.Book = &book
		e.Member = &member
		if e.Status == domain.LoanBorrowed {
			if days := domain.DaysOverdue(e.DueDate, today); days > 0 {
				e.IsOverdue = true
				e.DaysOverdue = days
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OverdueLoans lists all Borrowed loans past due, earliest due date first,
// with the fine each would accrue if returned today. Nothing is persisted;
// the real fine is created at return time.
func (s *Store) OverdueLoans(ctx context.Context, finePerDay float64) ([]domain.OverdueLoan, error) {
	today := domain.Today()
	rows, err := s.Db.Query(ctx,
		`SELECT `+loanColumns+`,
		 b.id, b.title, b.author, b.isbn, m.id, m.name, m.email
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 JOIN members m ON m.id = l.member_id
		 WHERE l.status = 'Borrowed' AND l.due_date < $1
		 ORDER BY l.due_date ASC`, today.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overdue := []domain.OverdueLoan{}
	for rows.Next() {
		var o domain.OverdueLoan
		var book domain.BookSummary
		var member domain.MemberSummary
		var loanDate, dueDate time.Time
		var returnDate *time.Time
		if err := rows.Scan(&o.ID, &o.MemberID, &o.BookID, &loanDate, &dueDate, &returnDate,
			&o.Status, &o.RenewalCount, &o.FineAmount, &o.CreatedAt, &o.UpdatedAt,
			&book.ID, &book.Title, &book.Author, &book.ISBN,
			&member.ID, &member.Name, &member.Email); err != nil {
			return nil, err
		}
		o.LoanDate = domain.NewDate(loanDate)
		o.DueDate = domain.NewDate(dueDate)
		o.ReturnDate = datePtr(returnDate)
		o.Book = &book
		o.Member = &member
		o.DaysOverdue = domain.DaysOverdue(o.DueDate, today)
		o.ProjectedFine = domain.OverdueFine(o.DueDate, today, finePerDay)
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}
