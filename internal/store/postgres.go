package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/libraryops/internal/domain"
)

// ErrNotFound is returned when the addressed row does not exist. Handlers
// translate it to 404 with an entity-specific message.
var ErrNotFound = errors.New("not found")

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

func datePtr(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.NewDate(*t)
	return &d
}

const loanColumns = `l.id, l.member_id, l.book_id, l.loan_date, l.due_date, l.return_date, l.status, l.renewal_count, l.fine_amount, l.created_at, l.updated_at`

func scanLoan(scan func(dest ...any) error) (domain.Loan, error) {
	var ln domain.Loan
	var loanDate, dueDate time.Time
	var returnDate *time.Time
	err := scan(&ln.ID, &ln.MemberID, &ln.BookID, &loanDate, &dueDate, &returnDate,
		&ln.Status, &ln.RenewalCount, &ln.FineAmount, &ln.CreatedAt, &ln.UpdatedAt)
	if err != nil {
		return ln, err
	}
	ln.LoanDate = domain.NewDate(loanDate)
	ln.DueDate = domain.NewDate(dueDate)
	ln.ReturnDate = datePtr(returnDate)
	return ln, nil
}

// --- Books ---

// CreateBook inserts a new catalog title. Status defaults to Available when
// the caller leaves it blank.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	if b.Status == "" {
		b.Status = domain.BookAvailable
	}
	return s.Db.QueryRow(ctx,
		`INSERT INTO books (title, author, isbn, genre, quantity, status, publication_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		b.Title, b.Author, b.ISBN, b.Genre, b.Quantity, b.Status, b.PublicationDate,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, title, author, isbn, genre, quantity, status, publication_date, created_at, updated_at
		 FROM books ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre,
			&b.Quantity, &b.Status, &b.PublicationDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var b domain.Book
	err := s.Db.QueryRow(ctx,
		`SELECT id, title, author, isbn, genre, quantity, status, publication_date, created_at, updated_at
		 FROM books WHERE id = $1`, id,
	).Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre,
		&b.Quantity, &b.Status, &b.PublicationDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE books SET title = $1, author = $2, isbn = $3, genre = $4, quantity = $5,
		        status = $6, publication_date = $7, updated_at = now()
		 WHERE id = $8`,
		b.Title, b.Author, b.ISBN, b.Genre, b.Quantity, b.Status, b.PublicationDate, b.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Members ---

func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	if m.Status == "" {
		m.Status = domain.MemberActive
	}
	if m.MaxBooksLimit == 0 {
		m.MaxBooksLimit = 5
	}
	return s.Db.QueryRow(ctx,
		`INSERT INTO members (name, email, phone, membership_id, status, joined_date, fine_balance, max_books_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		m.Name, m.Email, m.Phone, m.MembershipID, m.Status, m.JoinedDate, m.FineBalance, m.MaxBooksLimit,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) ListMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, email, phone, membership_id, status, joined_date, fine_balance, max_books_limit, created_at, updated_at
		 FROM members ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.MembershipID,
			&m.Status, &m.JoinedDate, &m.FineBalance, &m.MaxBooksLimit, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	var m domain.Member
	err := s.Db.QueryRow(ctx,
		`SELECT id, name, email, phone, membership_id, status, joined_date, fine_balance, max_books_limit, created_at, updated_at
		 FROM members WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.MembershipID,
		&m.Status, &m.JoinedDate, &m.FineBalance, &m.MaxBooksLimit, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE members SET name = $1, email = $2, phone = $3, membership_id = $4, status = $5,
		        joined_date = $6, max_books_limit = $7, updated_at = now()
		 WHERE id = $8`,
		m.Name, m.Email, m.Phone, m.MembershipID, m.Status, m.JoinedDate, m.MaxBooksLimit, m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Loans (administrative) ---

// MemberLoans lists a member's loan history, newest first, with book
// summaries and live overdue annotation.
func (s *Store) MemberLoans(ctx context.Context, memberID int64) ([]domain.MemberLoan, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT `+loanColumns+`, b.id, b.title, b.author, b.isbn
		 FROM loans l JOIN books b ON b.id = l.book_id
		 WHERE l.member_id = $1
		 ORDER BY l.created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	today := domain.Today()
	loans := []domain.MemberLoan{}
	for rows.Next() {
		var ml domain.MemberLoan
		var book domain.BookSummary
		var loanDate, dueDate time.Time
		var returnDate *time.Time
		if err := rows.Scan(&ml.ID, &ml.MemberID, &ml.BookID, &loanDate, &dueDate, &returnDate,
			&ml.Status, &ml.RenewalCount, &ml.FineAmount, &ml.CreatedAt, &ml.UpdatedAt,
			&book.ID, &book.Title, &book.Author, &book.ISBN); err != nil {
			return nil, err
		}
		ml.LoanDate = domain.NewDate(loanDate)
		ml.DueDate = domain.NewDate(dueDate)
		ml.ReturnDate = datePtr(returnDate)
		ml.Book = &book
		if ml.Status == domain.LoanBorrowed {
			if days := domain.DaysOverdue(ml.DueDate, today); days > 0 {
				ml.IsOverdue = true
				ml.DaysOverdue = days
			}
		}
		loans = append(loans, ml)
	}
	return loans, rows.Err()
}

// DeleteLoan removes a loan record outright. This is the administrative
// delete; it does not adjust book quantities or fines.
func (s *Store) DeleteLoan(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
