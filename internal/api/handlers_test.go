package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/libraryops/internal/domain"
	"github.com/punchamoorthee/libraryops/internal/service"
	"github.com/punchamoorthee/libraryops/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCirculation implements Circulation with per-method hooks so each test
// wires up only the call it exercises.
type fakeCirculation struct {
	borrowFn  func(ctx context.Context, req service.BorrowRequest) (*service.BorrowResult, error)
	returnFn  func(ctx context.Context, loanID int64) (*service.ReturnResult, error)
	renewFn   func(ctx context.Context, loanID int64, newDueDate *domain.Date) (*service.RenewResult, error)
	reserveFn func(ctx context.Context, memberID, bookID int64) (*domain.Reservation, error)
	cancelFn  func(ctx context.Context, reservationID int64) error
	payFn     func(ctx context.Context, fineID int64, amount *float64) (*service.PaymentResult, error)
	waiveFn   func(ctx context.Context, fineID int64) (*service.PaymentResult, error)
}

func (f *fakeCirculation) Borrow(ctx context.Context, req service.BorrowRequest) (*service.BorrowResult, error) {
	return f.borrowFn(ctx, req)
}
func (f *fakeCirculation) Return(ctx context.Context, loanID int64) (*service.ReturnResult, error) {
	return f.returnFn(ctx, loanID)
}
func (f *fakeCirculation) Renew(ctx context.Context, loanID int64, newDueDate *domain.Date) (*service.RenewResult, error) {
	return f.renewFn(ctx, loanID, newDueDate)
}
func (f *fakeCirculation) Reserve(ctx context.Context, memberID, bookID int64) (*domain.Reservation, error) {
	return f.reserveFn(ctx, memberID, bookID)
}
func (f *fakeCirculation) CancelReservation(ctx context.Context, reservationID int64) error {
	return f.cancelFn(ctx, reservationID)
}
func (f *fakeCirculation) PayFine(ctx context.Context, fineID int64, amount *float64) (*service.PaymentResult, error) {
	return f.payFn(ctx, fineID, amount)
}
func (f *fakeCirculation) WaiveFine(ctx context.Context, fineID int64) (*service.PaymentResult, error) {
	return f.waiveFn(ctx, fineID)
}
func (f *fakeCirculation) Policy() domain.Policy {
	return domain.DefaultPolicy()
}

// fakeCatalog implements Catalog the same way.
type fakeCatalog struct {
	createBookFn   func(ctx context.Context, b *domain.Book) error
	listBooksFn    func(ctx context.Context) ([]domain.Book, error)
	getBookFn      func(ctx context.Context, id int64) (*domain.Book, error)
	updateBookFn   func(ctx context.Context, b *domain.Book) error
	deleteBookFn   func(ctx context.Context, id int64) error
	createMemberFn func(ctx context.Context, m *domain.Member) error
	listMembersFn  func(ctx context.Context) ([]domain.Member, error)
	getMemberFn    func(ctx context.Context, id int64) (*domain.Member, error)
	updateMemberFn func(ctx context.Context, m *domain.Member) error
	deleteMemberFn func(ctx context.Context, id int64) error
	memberLoansFn  func(ctx context.Context, memberID int64) ([]domain.MemberLoan, error)
	deleteLoanFn   func(ctx context.Context, id int64) error
	reservationsFn func(ctx context.Context, f store.ReservationFilter) ([]domain.ReservationDetail, error)
	memberFinesFn  func(ctx context.Context, memberID int64) (*domain.MemberFines, error)
	memberCircFn   func(ctx context.Context, memberID int64) (*domain.MemberCirculation, error)
	bookCircFn     func(ctx context.Context, bookID int64) (*domain.BookCirculation, error)
	allCircFn      func(ctx context.Context, f store.LoanFilter) ([]domain.CirculationEntry, error)
	overdueFn      func(ctx context.Context, finePerDay float64) ([]domain.OverdueLoan, error)
}

func (f *fakeCatalog) CreateBook(ctx context.Context, b *domain.Book) error { return f.createBookFn(ctx, b) }
func (f *fakeCatalog) ListBooks(ctx context.Context) ([]domain.Book, error) { return f.listBooksFn(ctx) }
func (f *fakeCatalog) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	return f.getBookFn(ctx, id)
}
func (f *fakeCatalog) UpdateBook(ctx context.Context, b *domain.Book) error { return f.updateBookFn(ctx, b) }
func (f *fakeCatalog) DeleteBook(ctx context.Context, id int64) error       { return f.deleteBookFn(ctx, id) }
func (f *fakeCatalog) CreateMember(ctx context.Context, m *domain.Member) error {
	return f.createMemberFn(ctx, m)
}
func (f *fakeCatalog) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return f.listMembersFn(ctx)
}
func (f *fakeCatalog) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	return f.getMemberFn(ctx, id)
}
func (f *fakeCatalog) UpdateMember(ctx context.Context, m *domain.Member) error {
	return f.updateMemberFn(ctx, m)
}
func (f *fakeCatalog) DeleteMember(ctx context.Context, id int64) error { return f.deleteMemberFn(ctx, id) }
func (f *fakeCatalog) MemberLoans(ctx context.Context, memberID int64) ([]domain.MemberLoan, error) {
	return f.memberLoansFn(ctx, memberID)
}
func (f *fakeCatalog) DeleteLoan(ctx context.Context, id int64) error { return f.deleteLoanFn(ctx, id) }
func (f *fakeCatalog) ListReservations(ctx context.Context, fl store.ReservationFilter) ([]domain.ReservationDetail, error) {
	return f.reservationsFn(ctx, fl)
}
func (f *fakeCatalog) MemberFines(ctx context.Context, memberID int64) (*domain.MemberFines, error) {
	return f.memberFinesFn(ctx, memberID)
}
func (f *fakeCatalog) MemberCirculation(ctx context.Context, memberID int64) (*domain.MemberCirculation, error) {
	return f.memberCircFn(ctx, memberID)
}
func (f *fakeCatalog) BookCirculation(ctx context.Context, bookID int64) (*domain.BookCirculation, error) {
	return f.bookCircFn(ctx, bookID)
}
func (f *fakeCatalog) AllCirculation(ctx context.Context, fl store.LoanFilter) ([]domain.CirculationEntry, error) {
	return f.allCircFn(ctx, fl)
}
func (f *fakeCatalog) OverdueLoans(ctx context.Context, finePerDay float64) ([]domain.OverdueLoan, error) {
	return f.overdueFn(ctx, finePerDay)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBorrowBookHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		circ := &fakeCirculation{
			borrowFn: func(_ context.Context, req service.BorrowRequest) (*service.BorrowResult, error) {
				assert.Equal(t, int64(1), req.MemberID)
				assert.Equal(t, int64(2), req.BookID)
				return &service.BorrowResult{
					Loan:    domain.Loan{ID: 10, MemberID: 1, BookID: 2, Status: domain.LoanBorrowed},
					Receipt: domain.Receipt{LoanID: 10, MemberName: "Ada", BookTitle: "SICP"},
				}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/borrow",
			bytes.NewBufferString(`{"memberId": 1, "bookId": 2}`))

		h.BorrowBookHandler(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Book borrowed successfully", body["message"])
		assert.NotNil(t, body["loan"])
		assert.NotNil(t, body["receipt"])
	})

	t.Run("unpaid fines blocked with balance in message", func(t *testing.T) {
		circ := &fakeCirculation{
			borrowFn: func(context.Context, service.BorrowRequest) (*service.BorrowResult, error) {
				return nil, &service.UnpaidFinesError{Balance: 3.5}
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/borrow",
			bytes.NewBufferString(`{"memberId": 1, "bookId": 2}`))

		h.BorrowBookHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Member has unpaid fines of $3.50. Please pay fines before borrowing.", body["message"])
	})

	t.Run("member not found", func(t *testing.T) {
		circ := &fakeCirculation{
			borrowFn: func(context.Context, service.BorrowRequest) (*service.BorrowResult, error) {
				return nil, service.ErrMemberNotFound
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/borrow",
			bytes.NewBufferString(`{"memberId": 99, "bookId": 2}`))

		h.BorrowBookHandler(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Member not found", decodeBody(t, w)["message"])
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewHandler(&fakeCatalog{}, &fakeCirculation{})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/borrow",
			bytes.NewBufferString(`{not json`))

		h.BorrowBookHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReturnBookHandler(t *testing.T) {
	t.Run("overdue return carries fine notice", func(t *testing.T) {
		circ := &fakeCirculation{
			returnFn: func(_ context.Context, loanID int64) (*service.ReturnResult, error) {
				assert.Equal(t, int64(10), loanID)
				return &service.ReturnResult{
					Loan: domain.Loan{ID: 10, Status: domain.LoanReturned, FineAmount: 2.50},
					Fine: &domain.FineNotice{Amount: 2.50, DaysOverdue: 5,
						Message: "Fine of $2.50 has been added to member's account"},
				}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/return/10", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "10"})

		h.ReturnBookHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Book returned successfully", body["message"])
		fine := body["fine"].(map[string]any)
		assert.Equal(t, 2.50, fine["amount"])
		assert.Equal(t, float64(5), fine["daysOverdue"])
	})

	t.Run("on-time return has null fine", func(t *testing.T) {
		circ := &fakeCirculation{
			returnFn: func(context.Context, int64) (*service.ReturnResult, error) {
				return &service.ReturnResult{Loan: domain.Loan{ID: 10, Status: domain.LoanReturned}}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/return/10", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "10"})

		h.ReturnBookHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Nil(t, body["fine"])
	})

	t.Run("already returned", func(t *testing.T) {
		circ := &fakeCirculation{
			returnFn: func(context.Context, int64) (*service.ReturnResult, error) {
				return nil, service.ErrAlreadyReturned
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/return/10", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "10"})

		h.ReturnBookHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Book has already been returned", decodeBody(t, w)["message"])
	})

	t.Run("invalid loan id", func(t *testing.T) {
		h := NewHandler(&fakeCatalog{}, &fakeCirculation{})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/return/abc", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "abc"})

		h.ReturnBookHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRenewLoanHandler(t *testing.T) {
	t.Run("success echoes renewal count", func(t *testing.T) {
		circ := &fakeCirculation{
			renewFn: func(_ context.Context, loanID int64, newDueDate *domain.Date) (*service.RenewResult, error) {
				assert.Equal(t, int64(7), loanID)
				assert.Nil(t, newDueDate)
				return &service.RenewResult{Loan: domain.Loan{ID: 7, RenewalCount: 2}}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/renew/7", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "7"})

		h.RenewLoanHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Loan renewed successfully", body["message"])
		assert.Equal(t, float64(2), body["renewalCount"])
	})

	t.Run("explicit due date forwarded", func(t *testing.T) {
		want, _ := domain.ParseDate("2026-01-15")
		circ := &fakeCirculation{
			renewFn: func(_ context.Context, _ int64, newDueDate *domain.Date) (*service.RenewResult, error) {
				require.NotNil(t, newDueDate)
				assert.Equal(t, want.String(), newDueDate.String())
				return &service.RenewResult{Loan: domain.Loan{ID: 7, RenewalCount: 1}}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/renew/7",
			bytes.NewBufferString(`{"newDueDate": "2026-01-15"}`))
		r = mux.SetURLVars(r, map[string]string{"loanId": "7"})

		h.RenewLoanHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("renewal limit reached", func(t *testing.T) {
		circ := &fakeCirculation{
			renewFn: func(context.Context, int64, *domain.Date) (*service.RenewResult, error) {
				return nil, &service.RenewalLimitError{Max: 2}
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/renew/7", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "7"})

		h.RenewLoanHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Maximum renewal limit of 2 has been reached", decodeBody(t, w)["message"])
	})

	t.Run("reserved by another member", func(t *testing.T) {
		circ := &fakeCirculation{
			renewFn: func(context.Context, int64, *domain.Date) (*service.RenewResult, error) {
				return nil, service.ErrReservedByAnother
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/renew/7", nil)
		r = mux.SetURLVars(r, map[string]string{"loanId": "7"})

		h.RenewLoanHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot renew: Book is reserved by another member", decodeBody(t, w)["message"])
	})
}

func TestCreateReservationHandler(t *testing.T) {
	t.Run("queued hold", func(t *testing.T) {
		circ := &fakeCirculation{
			reserveFn: func(_ context.Context, memberID, bookID int64) (*domain.Reservation, error) {
				return &domain.Reservation{ID: 1, MemberID: memberID, BookID: bookID,
					Status: domain.ReservationPending}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/reservations",
			bytes.NewBufferString(`{"memberId": 1, "bookId": 2}`))

		h.CreateReservationHandler(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Reservation created successfully", decodeBody(t, w)["message"])
	})

	t.Run("immediately available hold", func(t *testing.T) {
		circ := &fakeCirculation{
			reserveFn: func(_ context.Context, memberID, bookID int64) (*domain.Reservation, error) {
				return &domain.Reservation{ID: 1, MemberID: memberID, BookID: bookID,
					Status: domain.ReservationAvailable}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/reservations",
			bytes.NewBufferString(`{"memberId": 1, "bookId": 2}`))

		h.CreateReservationHandler(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Book is available for pickup", decodeBody(t, w)["message"])
	})

	t.Run("duplicate hold", func(t *testing.T) {
		circ := &fakeCirculation{
			reserveFn: func(context.Context, int64, int64) (*domain.Reservation, error) {
				return nil, service.ErrDuplicateReservation
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/circulation/reservations",
			bytes.NewBufferString(`{"memberId": 1, "bookId": 2}`))

		h.CreateReservationHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Member already has a reservation for this book", decodeBody(t, w)["message"])
	})
}

func TestCancelReservationHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		circ := &fakeCirculation{
			cancelFn: func(_ context.Context, reservationID int64) error {
				assert.Equal(t, int64(4), reservationID)
				return nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/api/circulation/reservations/4", nil)
		r = mux.SetURLVars(r, map[string]string{"reservationId": "4"})

		h.CancelReservationHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Reservation cancelled successfully", decodeBody(t, w)["message"])
	})

	t.Run("already closed", func(t *testing.T) {
		circ := &fakeCirculation{
			cancelFn: func(context.Context, int64) error { return service.ErrReservationClosed },
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/api/circulation/reservations/4", nil)
		r = mux.SetURLVars(r, map[string]string{"reservationId": "4"})

		h.CancelReservationHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetReservationsHandler(t *testing.T) {
	cat := &fakeCatalog{
		reservationsFn: func(_ context.Context, f store.ReservationFilter) ([]domain.ReservationDetail, error) {
			require.NotNil(t, f.MemberID)
			assert.Equal(t, int64(3), *f.MemberID)
			assert.Equal(t, domain.ReservationPending, f.Status)
			return []domain.ReservationDetail{
				{Reservation: domain.Reservation{ID: 1, Status: domain.ReservationPending}},
			}, nil
		},
	}
	h := NewHandler(cat, &fakeCirculation{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/circulation/reservations?memberId=3&status=Pending", nil)

	h.GetReservationsHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
}

func TestPayFineHandler(t *testing.T) {
	t.Run("full payment by default", func(t *testing.T) {
		circ := &fakeCirculation{
			payFn: func(_ context.Context, fineID int64, amount *float64) (*service.PaymentResult, error) {
				assert.Equal(t, int64(5), fineID)
				assert.Nil(t, amount)
				return &service.PaymentResult{
					Fine:             domain.Fine{ID: 5, Status: domain.FinePaid, Amount: 2.50},
					RemainingBalance: 0,
				}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/pay", nil)
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.PayFineHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Fine paid successfully", body["message"])
		assert.Equal(t, float64(0), body["remainingBalance"])
	})

	t.Run("explicit amount forwarded", func(t *testing.T) {
		circ := &fakeCirculation{
			payFn: func(_ context.Context, _ int64, amount *float64) (*service.PaymentResult, error) {
				require.NotNil(t, amount)
				assert.Equal(t, 1.25, *amount)
				return &service.PaymentResult{
					Fine:             domain.Fine{ID: 5, Status: domain.FinePaid},
					RemainingBalance: 1.25,
				}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/pay",
			bytes.NewBufferString(`{"amount": 1.25}`))
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.PayFineHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("already paid", func(t *testing.T) {
		circ := &fakeCirculation{
			payFn: func(context.Context, int64, *float64) (*service.PaymentResult, error) {
				return nil, service.ErrFineAlreadyPaid
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/pay", nil)
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.PayFineHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Fine has already been paid", decodeBody(t, w)["message"])
	})
}

func TestWaiveFineHandler(t *testing.T) {
	t.Run("cannot waive paid fine", func(t *testing.T) {
		circ := &fakeCirculation{
			waiveFn: func(context.Context, int64) (*service.PaymentResult, error) {
				return nil, service.ErrCannotWaivePaid
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/waive", nil)
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.WaiveFineHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot waive a paid fine", decodeBody(t, w)["message"])
	})

	t.Run("already waived", func(t *testing.T) {
		circ := &fakeCirculation{
			waiveFn: func(context.Context, int64) (*service.PaymentResult, error) {
				return nil, service.ErrFineWaived
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/waive", nil)
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.WaiveFineHandler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Fine has already been waived", decodeBody(t, w)["message"])
	})

	t.Run("success", func(t *testing.T) {
		circ := &fakeCirculation{
			waiveFn: func(_ context.Context, fineID int64) (*service.PaymentResult, error) {
				return &service.PaymentResult{
					Fine:             domain.Fine{ID: fineID, Status: domain.FineWaived},
					RemainingBalance: 0,
				}, nil
			},
		}
		h := NewHandler(&fakeCatalog{}, circ)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/circulation/fines/5/waive", nil)
		r = mux.SetURLVars(r, map[string]string{"fineId": "5"})

		h.WaiveFineHandler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Fine waived successfully", decodeBody(t, w)["message"])
	})
}

func TestGetOverdueBooksHandler(t *testing.T) {
	cat := &fakeCatalog{
		overdueFn: func(_ context.Context, finePerDay float64) ([]domain.OverdueLoan, error) {
			assert.Equal(t, 0.50, finePerDay)
			return []domain.OverdueLoan{
				{Loan: domain.Loan{ID: 1}, DaysOverdue: 3, ProjectedFine: 1.50},
			}, nil
		},
	}
	h := NewHandler(cat, &fakeCirculation{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/circulation/overdue", nil)

	h.GetOverdueBooksHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.NotEmpty(t, body["date"])
	overdue := body["overdueBooks"].([]any)
	entry := overdue[0].(map[string]any)
	assert.Equal(t, 1.50, entry["fineAmount"])
}

func TestGetAllCirculationHandler(t *testing.T) {
	cat := &fakeCatalog{
		allCircFn: func(_ context.Context, f store.LoanFilter) ([]domain.CirculationEntry, error) {
			assert.Equal(t, domain.LoanBorrowed, f.Status)
			return []domain.CirculationEntry{{Loan: domain.Loan{ID: 1}}}, nil
		},
	}
	h := NewHandler(cat, &fakeCirculation{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/circulation?status=Borrowed", nil)

	h.GetAllCirculationHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
	filters := body["filters"].(map[string]any)
	assert.Equal(t, "Borrowed", filters["status"])
}

func TestGetMemberFinesHandler(t *testing.T) {
	cat := &fakeCatalog{
		memberFinesFn: func(_ context.Context, memberID int64) (*domain.MemberFines, error) {
			assert.Equal(t, int64(9), memberID)
			return &domain.MemberFines{
				Fines:         []domain.Fine{{ID: 1, Amount: 2.50, Status: domain.FinePending}},
				TotalFines:    1,
				TotalAmount:   2.50,
				UnpaidAmount:  2.50,
				MemberBalance: 2.50,
			}, nil
		},
	}
	h := NewHandler(cat, &fakeCirculation{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/circulation/fines/member/9", nil)
	r = mux.SetURLVars(r, map[string]string{"memberId": "9"})

	h.GetMemberFinesHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["totalFines"])
	assert.Equal(t, 2.50, body["unpaidAmount"])
}
