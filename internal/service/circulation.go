package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/libraryops/internal/domain"
)

var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrBookNotFound         = errors.New("book not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrFineNotFound         = errors.New("fine not found")
	ErrMemberSuspended      = errors.New("member account is suspended")
	ErrBookUnavailable      = errors.New("book is not available for borrowing")
	ErrAlreadyBorrowed      = errors.New("member has already borrowed this book")
	ErrAlreadyReturned      = errors.New("book has already been returned")
	ErrLoanAlreadyClosed    = errors.New("cannot renew a returned loan")
	ErrReservedByAnother    = errors.New("book is reserved by another member")
	ErrDueDateNotFuture     = errors.New("new due date must be in the future")
	ErrHasBookOnLoan        = errors.New("member already has this book borrowed")
	ErrDuplicateReservation = errors.New("member already has a reservation for this book")
	ErrReservationClosed    = errors.New("reservation cannot be cancelled")
	ErrFineAlreadyPaid      = errors.New("fine has already been paid")
	ErrFineWaived           = errors.New("fine has already been waived")
	ErrCannotWaivePaid      = errors.New("cannot waive a paid fine")
)

// UnpaidFinesError blocks borrowing while the member owes money.
type UnpaidFinesError struct {
	Balance float64
}

func (e *UnpaidFinesError) Error() string {
	return fmt.Sprintf("member has unpaid fines of $%.2f", e.Balance)
}

// BorrowLimitError reports the member's cap on concurrent loans.
type BorrowLimitError struct {
	Limit int
}

func (e *BorrowLimitError) Error() string {
	return fmt.Sprintf("member has reached the maximum borrowing limit of %d books", e.Limit)
}

// RenewalLimitError reports the per-loan renewal cap.
type RenewalLimitError struct {
	Max int
}

func (e *RenewalLimitError) Error() string {
	return fmt.Sprintf("maximum renewal limit of %d has been reached", e.Max)
}

// BookWithdrawnError blocks circulation of lost or damaged copies.
type BookWithdrawnError struct {
	Status domain.BookStatus
}

func (e *BookWithdrawnError) Error() string {
	return fmt.Sprintf("book is %s and cannot be borrowed", e.Status)
}

// CirculationService runs the circulation workflow. Every mutating
// operation is a single transaction that locks the book, member, loan,
// reservation and fine rows it touches with FOR UPDATE and re-validates
// preconditions after the locks are held, so two concurrent borrows of the
// last copy serialize instead of both passing the availability check.
type CirculationService struct {
	db     *pgxpool.Pool
	policy domain.Policy
}

func NewCirculationService(db *pgxpool.Pool, policy domain.Policy) *CirculationService {
	return &CirculationService{db: db, policy: policy}
}

func (s *CirculationService) Policy() domain.Policy {
	return s.policy
}

func (s *CirculationService) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	return tx, nil
}

type lockedBook struct {
	ID       int64
	Title    string
	Quantity int
	Status   domain.BookStatus
}

func lockBook(ctx context.Context, tx pgx.Tx, id int64) (*lockedBook, error) {
	b := lockedBook{ID: id}
	err := tx.QueryRow(ctx,
		`SELECT title, quantity, status FROM books WHERE id = $1 FOR UPDATE`, id,
	).Scan(&b.Title, &b.Quantity, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return &b, nil
}

type lockedMember struct {
	ID            int64
	Name          string
	Status        domain.MemberStatus
	FineBalance   float64
	MaxBooksLimit int
}

func lockMember(ctx context.Context, tx pgx.Tx, id int64) (*lockedMember, error) {
	m := lockedMember{ID: id}
	err := tx.QueryRow(ctx,
		`SELECT name, status, fine_balance, max_books_limit FROM members WHERE id = $1 FOR UPDATE`, id,
	).Scan(&m.Name, &m.Status, &m.FineBalance, &m.MaxBooksLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return &m, nil
}

// activeReservationCount counts reservations still holding a place in the
// queue (Pending or Available) for the book.
func activeReservationCount(ctx context.Context, tx pgx.Tx, bookID int64) (int, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND status IN ('Pending', 'Available')`,
		bookID,
	).Scan(&n)
	return n, err
}

// settleBookStatus recomputes and stores the book's status from quantity
// and the live hold queue. Called at the end of every mutation that touches
// either input.
func settleBookStatus(ctx context.Context, tx pgx.Tx, book *lockedBook, quantity int) error {
	active, err := activeReservationCount(ctx, tx, book.ID)
	if err != nil {
		return fmt.Errorf("reservation count failed: %w", err)
	}
	status := domain.DeriveBookStatus(book.Status, quantity, active > 0)
	_, err = tx.Exec(ctx,
		`UPDATE books SET quantity = $1, status = $2, updated_at = now() WHERE id = $3`,
		quantity, status, book.ID)
	if err != nil {
		return fmt.Errorf("book update failed: %w", err)
	}
	return nil
}

type BorrowRequest struct {
	MemberID int64
	BookID   int64
	DueDate  *domain.Date
}

type BorrowResult struct {
	Loan    domain.Loan
	Receipt domain.Receipt
}

// Borrow checks a copy out to a member. Preconditions run in order against
// locked rows; the first failure wins.
func (s *CirculationService) Borrow(ctx context.Context, req BorrowRequest) (*BorrowResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	member, err := lockMember(ctx, tx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if member.Status != domain.MemberActive {
		return nil, ErrMemberSuspended
	}
	if member.FineBalance > 0 {
		return nil, &UnpaidFinesError{Balance: member.FineBalance}
	}

	var activeLoans int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status = 'Borrowed'`,
		req.MemberID,
	).Scan(&activeLoans)
	if err != nil {
		return nil, fmt.Errorf("loan count failed: %w", err)
	}
	if activeLoans >= member.MaxBooksLimit {
		return nil, &BorrowLimitError{Limit: member.MaxBooksLimit}
	}

	book, err := lockBook(ctx, tx, req.BookID)
	if err != nil {
		return nil, err
	}
	if book.Status == domain.BookLost || book.Status == domain.BookDamaged {
		return nil, &BookWithdrawnError{Status: book.Status}
	}
	if book.Quantity <= 0 {
		return nil, ErrBookUnavailable
	}

	var duplicate bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE member_id = $1 AND book_id = $2 AND status = 'Borrowed')`,
		req.MemberID, req.BookID,
	).Scan(&duplicate)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if duplicate {
		return nil, ErrAlreadyBorrowed
	}

	today := domain.Today()
	dueDate := today.AddDays(s.policy.LoanPeriodDays)
	if req.DueDate != nil && !req.DueDate.IsZero() {
		dueDate = *req.DueDate
	}

	loan := domain.Loan{
		MemberID: req.MemberID,
		BookID:   req.BookID,
		LoanDate: today,
		DueDate:  dueDate,
		Status:   domain.LoanBorrowed,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO loans (member_id, book_id, loan_date, due_date, status, renewal_count, fine_amount)
		 VALUES ($1, $2, $3, $4, 'Borrowed', 0, 0)
		 RETURNING id, created_at, updated_at`,
		loan.MemberID, loan.BookID, loan.LoanDate.Time, loan.DueDate.Time,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("loan insert failed: %w", err)
	}

	// The member picking up a book they had on hold closes that hold,
	// whether it was still queued or already marked Available.
	_, err = tx.Exec(ctx,
		`UPDATE reservations SET status = 'Fulfilled', updated_at = now()
		 WHERE member_id = $1 AND book_id = $2 AND status IN ('Pending', 'Available')`,
		req.MemberID, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("reservation fulfil failed: %w", err)
	}

	if err := settleBookStatus(ctx, tx, book, book.Quantity-1); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	return &BorrowResult{
		Loan: loan,
		Receipt: domain.Receipt{
			LoanID:     loan.ID,
			MemberName: member.Name,
			BookTitle:  book.Title,
			LoanDate:   loan.LoanDate,
			DueDate:    loan.DueDate,
		},
	}, nil
}

type ReturnResult struct {
	Loan domain.Loan
	Fine *domain.FineNotice
}

// Return checks a copy back in, assessing an overdue fine when due. The
// fine row and the member's denormalized balance commit together, and the
// earliest queued hold is promoted to Available.
func (s *CirculationService) Return(ctx context.Context, loanID int64) (*ReturnResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	loan := domain.Loan{ID: loanID}
	var loanDate, dueDate time.Time
	err = tx.QueryRow(ctx,
		`SELECT member_id, book_id, loan_date, due_date, status, renewal_count, created_at
		 FROM loans WHERE id = $1 FOR UPDATE`, loanID,
	).Scan(&loan.MemberID, &loan.BookID, &loanDate, &dueDate, &loan.Status, &loan.RenewalCount, &loan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	loan.LoanDate = domain.NewDate(loanDate)
	loan.DueDate = domain.NewDate(dueDate)
	if loan.Status == domain.LoanReturned {
		return nil, ErrAlreadyReturned
	}

	book, err := lockBook(ctx, tx, loan.BookID)
	if err != nil {
		return nil, err
	}
	member, err := lockMember(ctx, tx, loan.MemberID)
	if err != nil {
		return nil, err
	}

	today := domain.Today()
	var notice *domain.FineNotice
	var fineAmount float64
	if days := domain.DaysOverdue(loan.DueDate, today); days > 0 {
		fineAmount = domain.OverdueFine(loan.DueDate, today, s.policy.FinePerDay)
		_, err = tx.Exec(ctx,
			`INSERT INTO fines (member_id, loan_id, amount, reason, status, days_overdue)
			 VALUES ($1, $2, $3, 'Overdue', 'Pending', $4)`,
			loan.MemberID, loan.ID, fineAmount, days)
		if err != nil {
			return nil, fmt.Errorf("fine insert failed: %w", err)
		}
		newBalance := domain.RoundCents(member.FineBalance + fineAmount)
		_, err = tx.Exec(ctx,
			`UPDATE members SET fine_balance = $1, updated_at = now() WHERE id = $2`,
			newBalance, loan.MemberID)
		if err != nil {
			return nil, fmt.Errorf("balance update failed: %w", err)
		}
		notice = &domain.FineNotice{
			Amount:      fineAmount,
			DaysOverdue: days,
			Message:     fmt.Sprintf("Fine of $%.2f has been added to member's account", fineAmount),
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE loans SET status = 'Returned', return_date = $1, fine_amount = $2, updated_at = now()
		 WHERE id = $3 RETURNING updated_at`,
		today.Time, fineAmount, loan.ID,
	).Scan(&loan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("loan update failed: %w", err)
	}
	loan.Status = domain.LoanReturned
	loan.ReturnDate = &today
	loan.FineAmount = fineAmount

	// Promote the head of the hold queue now that a copy is back on the
	// shelf.
	var reservationID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM reservations WHERE book_id = $1 AND status = 'Pending'
		 ORDER BY reservation_date ASC, id ASC LIMIT 1 FOR UPDATE`, loan.BookID,
	).Scan(&reservationID)
	switch {
	case err == nil:
		_, err = tx.Exec(ctx,
			`UPDATE reservations SET status = 'Available', notification_sent = true, updated_at = now()
			 WHERE id = $1`, reservationID)
		if err != nil {
			return nil, fmt.Errorf("reservation promote failed: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// no queue, nothing to promote
	default:
		return nil, fmt.Errorf("reservation lookup failed: %w", err)
	}

	if err := settleBookStatus(ctx, tx, book, book.Quantity+1); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	return &ReturnResult{Loan: loan, Fine: notice}, nil
}

type RenewResult struct {
	Loan domain.Loan
}

// Renew pushes a loan's due date forward. Renewal never materializes a
// fine: fines are assessed once, at return.
func (s *CirculationService) Renew(ctx context.Context, loanID int64, newDueDate *domain.Date) (*RenewResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	loan := domain.Loan{ID: loanID}
	var loanDate, dueDate time.Time
	err = tx.QueryRow(ctx,
		`SELECT member_id, book_id, loan_date, due_date, status, renewal_count, fine_amount, created_at
		 FROM loans WHERE id = $1 FOR UPDATE`, loanID,
	).Scan(&loan.MemberID, &loan.BookID, &loanDate, &dueDate, &loan.Status,
		&loan.RenewalCount, &loan.FineAmount, &loan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	loan.LoanDate = domain.NewDate(loanDate)
	loan.DueDate = domain.NewDate(dueDate)
	if loan.Status == domain.LoanReturned {
		return nil, ErrLoanAlreadyClosed
	}
	if loan.RenewalCount >= s.policy.MaxRenewals {
		return nil, &RenewalLimitError{Max: s.policy.MaxRenewals}
	}

	var reservedByOther bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations
		 WHERE book_id = $1 AND status = 'Pending' AND member_id <> $2)`,
		loan.BookID, loan.MemberID,
	).Scan(&reservedByOther)
	if err != nil {
		return nil, fmt.Errorf("reservation check failed: %w", err)
	}
	if reservedByOther {
		return nil, ErrReservedByAnother
	}

	today := domain.Today()
	due := today.AddDays(s.policy.LoanPeriodDays)
	if newDueDate != nil && !newDueDate.IsZero() {
		due = *newDueDate
	}
	if !due.Time.After(today.Time) {
		return nil, ErrDueDateNotFuture
	}

	err = tx.QueryRow(ctx,
		`UPDATE loans SET due_date = $1, renewal_count = renewal_count + 1, updated_at = now()
		 WHERE id = $2 RETURNING renewal_count, updated_at`,
		due.Time, loan.ID,
	).Scan(&loan.RenewalCount, &loan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("loan update failed: %w", err)
	}
	loan.DueDate = due

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &RenewResult{Loan: loan}, nil
}
