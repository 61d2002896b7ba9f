package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/punchamoorthee/libraryops/internal/domain"
	"github.com/punchamoorthee/libraryops/internal/store"
)

// --- Books ---

func (h *Handler) CreateBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/books"

	var book domain.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	if book.Title == "" || book.Author == "" {
		h.respondError(w, http.StatusBadRequest, "Title and author are required", "POST", endpoint)
		return
	}

	if err := h.store.CreateBook(r.Context(), &book); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to create book", "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Book created successfully",
		"book":    book,
	}, "POST", endpoint)
}

func (h *Handler) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/books"

	books, err := h.store.ListBooks(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch books", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, books, "GET", endpoint)
}

func (h *Handler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/books/{id}"

	id, ok := h.pathID(w, r, "id", "GET", endpoint)
	if !ok {
		return
	}
	book, err := h.store.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Book not found", "GET", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch book", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, book, "GET", endpoint)
}

// UpdateBookHandler applies a partial update: fields absent from the body
// keep their stored values.
func (h *Handler) UpdateBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/books/{id}"

	id, ok := h.pathID(w, r, "id", "PUT", endpoint)
	if !ok {
		return
	}
	book, err := h.store.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Book not found", "PUT", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch book", "PUT", endpoint)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(book); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}
	book.ID = id

	if err := h.store.UpdateBook(r.Context(), book); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to update book", "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Book updated successfully",
		"book":    book,
	}, "PUT", endpoint)
}

func (h *Handler) DeleteBookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/books/{id}"

	id, ok := h.pathID(w, r, "id", "DELETE", endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteBook(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Book not found", "DELETE", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to delete book", "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Book deleted successfully",
	}, "DELETE", endpoint)
}

// --- Members ---

func (h *Handler) CreateMemberHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members"

	var member domain.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	if member.Name == "" || member.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Name and email are required", "POST", endpoint)
		return
	}
	if member.MembershipID == "" {
		member.MembershipID = "LIB-" + uuid.NewString()[:8]
	}
	if member.JoinedDate == "" {
		member.JoinedDate = domain.Today().String()
	}

	if err := h.store.CreateMember(r.Context(), &member); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to create member", "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Member created successfully",
		"member":  member,
	}, "POST", endpoint)
}

func (h *Handler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members"

	members, err := h.store.ListMembers(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch members", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, members, "GET", endpoint)
}

func (h *Handler) GetMemberHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members/{id}"

	id, ok := h.pathID(w, r, "id", "GET", endpoint)
	if !ok {
		return
	}
	member, err := h.store.GetMember(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Member not found", "GET", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch member", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, member, "GET", endpoint)
}

// UpdateMemberHandler applies a partial update. The fine balance is not
// writable here; it only moves with fine transactions.
func (h *Handler) UpdateMemberHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members/{id}"

	id, ok := h.pathID(w, r, "id", "PUT", endpoint)
	if !ok {
		return
	}
	member, err := h.store.GetMember(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Member not found", "PUT", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch member", "PUT", endpoint)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(member); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}
	member.ID = id

	if err := h.store.UpdateMember(r.Context(), member); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to update member", "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Member updated successfully",
		"member":  member,
	}, "PUT", endpoint)
}

func (h *Handler) DeleteMemberHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members/{id}"

	id, ok := h.pathID(w, r, "id", "DELETE", endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteMember(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Member not found", "DELETE", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to delete member", "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Member deleted successfully",
	}, "DELETE", endpoint)
}

// --- Loans (administrative) ---

func (h *Handler) GetMemberLoansHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/members/{memberId}/loans"

	memberID, ok := h.pathID(w, r, "memberId", "GET", endpoint)
	if !ok {
		return
	}
	loans, err := h.store.MemberLoans(r.Context(), memberID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch loans", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, loans, "GET", endpoint)
}

func (h *Handler) DeleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans/{id}"

	id, ok := h.pathID(w, r, "id", "DELETE", endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteLoan(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Loan not found", "DELETE", endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to delete loan", "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Loan deleted successfully",
	}, "DELETE", endpoint)
}
