package domain

import "time"

type BookStatus string

const (
	BookAvailable BookStatus = "Available"
	BookLoaned    BookStatus = "Loaned"
	BookReserved  BookStatus = "Reserved"
	BookLost      BookStatus = "Lost"
	BookDamaged   BookStatus = "Damaged"
)

type MemberStatus string

const (
	MemberActive    MemberStatus = "Active"
	MemberSuspended MemberStatus = "Suspended"
)

type LoanStatus string

const (
	LoanBorrowed LoanStatus = "Borrowed"
	LoanReturned LoanStatus = "Returned"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationAvailable ReservationStatus = "Available"
	ReservationCancelled ReservationStatus = "Cancelled"
	ReservationFulfilled ReservationStatus = "Fulfilled"
)

// Active reports whether the reservation still occupies a place in the
// queue, i.e. it has not reached a terminal state.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationAvailable
}

type FineStatus string

const (
	FinePending FineStatus = "Pending"
	FinePaid    FineStatus = "Paid"
	FineWaived  FineStatus = "Waived"
)

// Book is a catalog title with a count of physical copies on the shelf.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Genre           string     `json:"genre"`
	Quantity        int        `json:"quantity"`
	Status          BookStatus `json:"status"`
	PublicationDate string     `json:"publicationDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Member is a registered borrower. FineBalance is the denormalized sum of
// the member's Pending fines and is only ever written in the same
// transaction as the fine row it reflects.
type Member struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	MembershipID  string       `json:"membershipId"`
	Status        MemberStatus `json:"status"`
	JoinedDate    string       `json:"joinedDate"`
	FineBalance   float64      `json:"fineBalance"`
	MaxBooksLimit int          `json:"maxBooksLimit"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Loan records one member borrowing one copy of one book. FineAmount is the
// fine assessed when the loan closed; it stays zero until return.
type Loan struct {
	ID           int64      `json:"id"`
	MemberID     int64      `json:"memberId"`
	BookID       int64      `json:"bookId"`
	LoanDate     Date       `json:"loanDate"`
	DueDate      Date       `json:"dueDate"`
	ReturnDate   *Date      `json:"returnDate"`
	Status       LoanStatus `json:"status"`
	RenewalCount int        `json:"renewalCount"`
	FineAmount   float64    `json:"fineAmount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Reservation is a member's place in the hold queue for a book. Queue
// priority is earliest reservation date.
type Reservation struct {
	ID               int64             `json:"id"`
	MemberID         int64             `json:"memberId"`
	BookID           int64             `json:"bookId"`
	ReservationDate  Date              `json:"reservationDate"`
	Status           ReservationStatus `json:"status"`
	NotificationSent bool              `json:"notificationSent"`
	ExpiryDate       Date              `json:"expiryDate"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Fine is a monetary penalty. LoanID is nullable: the circulation workflow
// only issues overdue fines tied to a loan, but damage fees and similar can
// exist on their own.
type Fine struct {
	ID          int64      `json:"id"`
	MemberID    int64      `json:"memberId"`
	LoanID      *int64     `json:"loanId"`
	Amount      float64    `json:"amount"`
	Reason      string     `json:"reason"`
	Status      FineStatus `json:"status"`
	PaidDate    *Date      `json:"paidDate"`
	DaysOverdue int        `json:"daysOverdue"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BookSummary and MemberSummary are the join payloads embedded in
// circulation views.
type BookSummary struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type MemberSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Receipt summarizes a successful checkout for the circulation desk.
type Receipt struct {
	LoanID     int64  `json:"loanId"`
	MemberName string `json:"memberName"`
	BookTitle  string `json:"bookTitle"`
	LoanDate   Date   `json:"loanDate"`
	DueDate    Date   `json:"dueDate"`
}

// FineNotice reports the fine assessed by a return, if any.
type FineNotice struct {
	Amount      float64 `json:"amount"`
	DaysOverdue int     `json:"daysOverdue"`
	Message     string  `json:"message"`
}

// MemberLoan is a loan annotated for the member-centric views.
type MemberLoan struct {
	Loan
	Book        *BookSummary `json:"book"`
	IsOverdue   bool         `json:"isOverdue"`
	DaysOverdue int          `json:"daysOverdue"`
}

// BookLoan is a loan annotated for the book-centric view.
type BookLoan struct {
	Loan
	Member *MemberSummary `json:"member"`
}

// CirculationEntry is a loan joined with both sides for the flat listing.
type CirculationEntry struct {
	Loan
	Book        *BookSummary   `json:"book"`
	Member      *MemberSummary `json:"member"`
	IsOverdue   bool           `json:"isOverdue"`
	DaysOverdue int            `json:"daysOverdue"`
}

// OverdueLoan previews the fine an overdue loan would accrue if returned
// today. ProjectedFine shadows the loan's persisted fineAmount on the wire;
// nothing is written until the actual return.
type OverdueLoan struct {
	Loan
	Book          *BookSummary   `json:"book"`
	Member        *MemberSummary `json:"member"`
	DaysOverdue   int            `json:"daysOverdue"`
	ProjectedFine float64        `json:"fineAmount"`
}

// ReservationDetail is a reservation joined with book and/or member
// summaries, depending on the view it appears in.
type ReservationDetail struct {
	Reservation
	Book   *BookSummary   `json:"book,omitempty"`
	Member *MemberSummary `json:"member,omitempty"`
}

// MemberProfile heads the member circulation view.
type MemberProfile struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	FineBalance      float64 `json:"fineBalance"`
	MaxBooksLimit    int     `json:"maxBooksLimit"`
	ActiveLoansCount int     `json:"activeLoansCount"`
}

type MemberCirculation struct {
	Member           MemberProfile       `json:"member"`
	ActiveLoans      []MemberLoan        `json:"activeLoans"`
	ReturnedLoans    []MemberLoan        `json:"returnedLoans"`
	Reservations     []ReservationDetail `json:"reservations"`
	TotalLoans       int                 `json:"totalLoans"`
	ActiveLoansCount int                 `json:"activeLoansCount"`
}

// BookProfile heads the book circulation view.
type BookProfile struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Author   string     `json:"author"`
	ISBN     string     `json:"isbn"`
	Quantity int        `json:"quantity"`
	Status   BookStatus `json:"status"`
}

type BookCirculation struct {
	Book          BookProfile         `json:"book"`
	ActiveLoans   []BookLoan          `json:"activeLoans"`
	ReturnedLoans []BookLoan          `json:"returnedLoans"`
	Reservations  []ReservationDetail `json:"reservations"`
	TotalLoans    int                 `json:"totalLoans"`
	TimesBorrowed int                 `json:"timesBorrowed"`
}

// MemberFines aggregates a member's fine history.
type MemberFines struct {
	Fines         []Fine  `json:"fines"`
	TotalFines    int     `json:"totalFines"`
	TotalAmount   float64 `json:"totalAmount"`
	UnpaidAmount  float64 `json:"unpaidAmount"`
	MemberBalance float64 `json:"memberBalance"`
}
