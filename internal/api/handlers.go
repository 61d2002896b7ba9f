package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/libraryops/internal/domain"
	"github.com/punchamoorthee/libraryops/internal/service"
	"github.com/punchamoorthee/libraryops/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Circulation is the transactional side of the desk workflow.
type Circulation interface {
	Borrow(ctx context.Context, req service.BorrowRequest) (*service.BorrowResult, error)
	Return(ctx context.Context, loanID int64) (*service.ReturnResult, error)
	Renew(ctx context.Context, loanID int64, newDueDate *domain.Date) (*service.RenewResult, error)
	Reserve(ctx context.Context, memberID, bookID int64) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, reservationID int64) error
	PayFine(ctx context.Context, fineID int64, amount *float64) (*service.PaymentResult, error)
	WaiveFine(ctx context.Context, fineID int64) (*service.PaymentResult, error)
	Policy() domain.Policy
}

// Catalog is the CRUD and read-view side backed by the store.
type Catalog interface {
	CreateBook(ctx context.Context, b *domain.Book) error
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	UpdateBook(ctx context.Context, b *domain.Book) error
	DeleteBook(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, m *domain.Member) error
	ListMembers(ctx context.Context) ([]domain.Member, error)
	GetMember(ctx context.Context, id int64) (*domain.Member, error)
	UpdateMember(ctx context.Context, m *domain.Member) error
	DeleteMember(ctx context.Context, id int64) error

	MemberLoans(ctx context.Context, memberID int64) ([]domain.MemberLoan, error)
	DeleteLoan(ctx context.Context, id int64) error

	ListReservations(ctx context.Context, f store.ReservationFilter) ([]domain.ReservationDetail, error)
	MemberFines(ctx context.Context, memberID int64) (*domain.MemberFines, error)
	MemberCirculation(ctx context.Context, memberID int64) (*domain.MemberCirculation, error)
	BookCirculation(ctx context.Context, bookID int64) (*domain.BookCirculation, error)
	AllCirculation(ctx context.Context, f store.LoanFilter) ([]domain.CirculationEntry, error)
	OverdueLoans(ctx context.Context, finePerDay float64) ([]domain.OverdueLoan, error)
}

type Handler struct {
	store   Catalog
	service Circulation
}

func NewHandler(s Catalog, svc Circulation) *Handler {
	return &Handler{store: s, service: svc}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, r.Method, "/health")
}

// --- Circulation: borrowing and returning ---

type borrowRequest struct {
	MemberID int64        `json:"memberId"`
	BookID   int64        `json:"bookId"`
	DueDate  *domain.Date `json:"dueDate"`
}

func (h *Handler) BorrowBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/borrow"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	result, err := h.service.Borrow(r.Context(), service.BorrowRequest{
		MemberID: req.MemberID,
		BookID:   req.BookID,
		DueDate:  req.DueDate,
	})
	if err != nil {
		h.respondServiceError(w, err, "POST", endpoint)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Book borrowed successfully",
		"loan":    result.Loan,
		"receipt": result.Receipt,
	}, "POST", endpoint)
}

func (h *Handler) ReturnBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/return/{loanId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PUT", endpoint))
	defer timer.ObserveDuration()

	loanID, ok := h.pathID(w, r, "loanId", "PUT", endpoint)
	if !ok {
		return
	}

	result, err := h.service.Return(r.Context(), loanID)
	if err != nil {
		h.respondServiceError(w, err, "PUT", endpoint)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Book returned successfully",
		"loan":    result.Loan,
		"fine":    result.Fine,
	}, "PUT", endpoint)
}

type renewRequest struct {
	NewDueDate *domain.Date `json:"newDueDate"`
}

func (h *Handler) RenewLoanHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/renew/{loanId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PUT", endpoint))
	defer timer.ObserveDuration()

	loanID, ok := h.pathID(w, r, "loanId", "PUT", endpoint)
	if !ok {
		return
	}

	var req renewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
			return
		}
	}

	result, err := h.service.Renew(r.Context(), loanID, req.NewDueDate)
	if err != nil {
		h.respondServiceError(w, err, "PUT", endpoint)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":      "Loan renewed successfully",
		"loan":         result.Loan,
		"renewalCount": result.Loan.RenewalCount,
	}, "PUT", endpoint)
}

// --- Circulation: reservations ---

type reservationRequest struct {
	MemberID int64 `json:"memberId"`
	BookID   int64 `json:"bookId"`
}

func (h *Handler) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/reservations"

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	reservation, err := h.service.Reserve(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		h.respondServiceError(w, err, "POST", endpoint)
		return
	}

	message := "Reservation created successfully"
	if reservation.Status == domain.ReservationAvailable {
		message = "Book is available for pickup"
	}
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"message":     message,
		"reservation": reservation,
	}, "POST", endpoint)
}

func (h *Handler) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/reservations/{reservationId}"

	reservationID, ok := h.pathID(w, r, "reservationId", "DELETE", endpoint)
	if !ok {
		return
	}

	if err := h.service.CancelReservation(r.Context(), reservationID); err != nil {
		h.respondServiceError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Reservation cancelled successfully",
	}, "DELETE", endpoint)
}

func (h *Handler) GetReservationsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/reservations"

	filter := store.ReservationFilter{
		MemberID: queryID(r, "memberId"),
		BookID:   queryID(r, "bookId"),
		Status:   domain.ReservationStatus(r.URL.Query().Get("status")),
	}

	reservations, err := h.store.ListReservations(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"reservations": reservations,
		"total":        len(reservations),
	}, "GET", endpoint)
}

// --- Circulation: fines ---

type payFineRequest struct {
	Amount *float64 `json:"amount"`
}

func (h *Handler) PayFineHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/fines/{fineId}/pay"

	fineID, ok := h.pathID(w, r, "fineId", "PUT", endpoint)
	if !ok {
		return
	}

	var req payFineRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
			return
		}
	}

	result, err := h.service.PayFine(r.Context(), fineID, req.Amount)
	if err != nil {
		h.respondServiceError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":          "Fine paid successfully",
		"fine":             result.Fine,
		"remainingBalance": result.RemainingBalance,
	}, "PUT", endpoint)
}

func (h *Handler) WaiveFineHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/fines/{fineId}/waive"

	fineID, ok := h.pathID(w, r, "fineId", "PUT", endpoint)
	if !ok {
		return
	}

	result, err := h.service.WaiveFine(r.Context(), fineID)
	if err != nil {
		h.respondServiceError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message":          "Fine waived successfully",
		"fine":             result.Fine,
		"remainingBalance": result.RemainingBalance,
	}, "PUT", endpoint)
}

func (h *Handler) GetMemberFinesHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/fines/member/{memberId}"

	memberID, ok := h.pathID(w, r, "memberId", "GET", endpoint)
	if !ok {
		return
	}

	fines, err := h.store.MemberFines(r.Context(), memberID)
	if err != nil {
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, fines, "GET", endpoint)
}

// --- Circulation: reporting views ---

func (h *Handler) GetMemberCirculationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/member/{memberId}"

	memberID, ok := h.pathID(w, r, "memberId", "GET", endpoint)
	if !ok {
		return
	}

	view, err := h.store.MemberCirculation(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Member not found", "GET", endpoint)
			return
		}
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, view, "GET", endpoint)
}

func (h *Handler) GetBookCirculationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/book/{bookId}"

	bookID, ok := h.pathID(w, r, "bookId", "GET", endpoint)
	if !ok {
		return
	}

	view, err := h.store.BookCirculation(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Book not found", "GET", endpoint)
			return
		}
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, view, "GET", endpoint)
}

func (h *Handler) GetAllCirculationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation"

	q := r.URL.Query()
	filter := store.LoanFilter{
		MemberID: queryID(r, "memberId"),
		BookID:   queryID(r, "bookId"),
		Status:   domain.LoanStatus(q.Get("status")),
	}

	entries, err := h.store.AllCirculation(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"circulation": entries,
		"total":       len(entries),
		"filters": map[string]string{
			"status":   q.Get("status"),
			"memberId": q.Get("memberId"),
			"bookId":   q.Get("bookId"),
		},
	}, "GET", endpoint)
}

func (h *Handler) GetOverdueBooksHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/circulation/overdue"

	overdue, err := h.store.OverdueLoans(r.Context(), h.service.Policy().FinePerDay)
	if err != nil {
		h.respondServiceError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"overdueBooks": overdue,
		"total":        len(overdue),
		"date":         domain.Today(),
	}, "GET", endpoint)
}

// --- Helpers ---

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name, method, endpoint string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid "+name, method, endpoint)
		return 0, false
	}
	return id, true
}

func queryID(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	code, msg := mapServiceError(err)
	h.respondError(w, code, msg, method, endpoint)
}

func mapServiceError(err error) (int, string) {
	var unpaid *service.UnpaidFinesError
	var borrowLimit *service.BorrowLimitError
	var renewalLimit *service.RenewalLimitError
	var withdrawn *service.BookWithdrawnError

	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		return http.StatusNotFound, "Member not found"
	case errors.Is(err, service.ErrBookNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, service.ErrLoanNotFound):
		return http.StatusNotFound, "Loan not found"
	case errors.Is(err, service.ErrReservationNotFound):
		return http.StatusNotFound, "Reservation not found"
	case errors.Is(err, service.ErrFineNotFound):
		return http.StatusNotFound, "Fine not found"
	case errors.Is(err, service.ErrMemberSuspended):
		return http.StatusBadRequest, "Member account is suspended"
	case errors.As(err, &unpaid):
		return http.StatusBadRequest, fmt.Sprintf(
			"Member has unpaid fines of $%.2f. Please pay fines before borrowing.", unpaid.Balance)
	case errors.As(err, &borrowLimit):
		return http.StatusBadRequest, fmt.Sprintf(
			"Member has reached the maximum borrowing limit of %d books", borrowLimit.Limit)
	case errors.As(err, &renewalLimit):
		return http.StatusBadRequest, fmt.Sprintf(
			"Maximum renewal limit of %d has been reached", renewalLimit.Max)
	case errors.As(err, &withdrawn):
		return http.StatusBadRequest, fmt.Sprintf(
			"Book is %s and cannot be borrowed", strings.ToLower(string(withdrawn.Status)))
	case errors.Is(err, service.ErrBookUnavailable):
		return http.StatusBadRequest, "Book is not available for borrowing"
	case errors.Is(err, service.ErrAlreadyBorrowed):
		return http.StatusBadRequest, "Member has already borrowed this book"
	case errors.Is(err, service.ErrAlreadyReturned):
		return http.StatusBadRequest, "Book has already been returned"
	case errors.Is(err, service.ErrLoanAlreadyClosed):
		return http.StatusBadRequest, "Cannot renew a returned loan"
	case errors.Is(err, service.ErrReservedByAnother):
		return http.StatusBadRequest, "Cannot renew: Book is reserved by another member"
	case errors.Is(err, service.ErrDueDateNotFuture):
		return http.StatusBadRequest, "New due date must be in the future"
	case errors.Is(err, service.ErrHasBookOnLoan):
		return http.StatusBadRequest, "Member already has this book borrowed"
	case errors.Is(err, service.ErrDuplicateReservation):
		return http.StatusBadRequest, "Member already has a reservation for this book"
	case errors.Is(err, service.ErrReservationClosed):
		return http.StatusBadRequest, "Reservation cannot be cancelled"
	case errors.Is(err, service.ErrFineAlreadyPaid):
		return http.StatusBadRequest, "Fine has already been paid"
	case errors.Is(err, service.ErrFineWaived):
		return http.StatusBadRequest, "Fine has already been waived"
	case errors.Is(err, service.ErrCannotWaivePaid):
		return http.StatusBadRequest, "Cannot waive a paid fine"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"message": message}, method, endpoint)
}
