// Package restapitest runs an in-process fake of the library REST API for tests. Stock and
// loans are kept with the same bookkeeping rules the client applies, atomically under a mutex.
package restapitest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/identity"
	"github.com/bookverse/borrowledger/restapi"
)

const tokenSecret = "restapitest"

type failure struct {
	status  int
	code    string
	message string
}

// Server is the fake API. Tokens are read without signature check, like the client does.
type Server struct {
	mu       sync.Mutex
	books    map[core.BookIDString]core.Book
	loans    map[core.LoanIDString]core.Loan
	failures []failure
	requests map[string]int
	now      func() time.Time

	httpServer *httptest.Server
}

// NewServer starts the fake and stops it when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		books:    make(map[core.BookIDString]core.Book),
		loans:    make(map[core.LoanIDString]core.Loan),
		requests: make(map[string]int),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /books", s.handleListBooks)
	mux.HandleFunc("GET /books/mine", s.handleListOwnBooks)
	mux.HandleFunc("GET /books/{id}", s.handleGetBook)
	mux.HandleFunc("POST /books", s.handleCreateBook)
	mux.HandleFunc("PUT /books/{id}", s.handleUpdateBook)
	mux.HandleFunc("DELETE /books/{id}", s.handleDeleteBook)
	mux.HandleFunc("POST /borrow", s.handleBorrow)
	mux.HandleFunc("POST /return/{loanId}", s.handleReturn)
	mux.HandleFunc("GET /borrowed", s.handleBorrowed)

	s.httpServer = httptest.NewServer(s.intercept(mux))
	tb.Cleanup(s.httpServer.Close)

	return s
}

// SignToken issues a token for subject that the fake and the client both accept.
func SignToken(tb testing.TB, subject string) string {
	tb.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": subject + "@example.org",
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}).SignedString([]byte(tokenSecret))
	require.NoError(tb, err)

	return token
}

func (s *Server) URL() string {
	return s.httpServer.URL
}

// SetNow pins the server clock.
func (s *Server) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = func() time.Time { return now }
}

// PutBook creates or replaces a book, e.g. to simulate other users changing the stock.
func (s *Server) PutBook(book core.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.ID] = book
}

func (s *Server) Book(bookID core.BookIDString) (core.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]

	return book, ok
}

// PutLoan stores a loan as if it had been created by another client of the same user.
func (s *Server) PutLoan(loan core.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loans[loan.ID] = loan
}

func (s *Server) Loan(loanID core.LoanIDString) (core.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]

	return loan, ok
}

// FailNext makes the next request fail with status and message.
func (s *Server) FailNext(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, failure{status: status, code: code, message: message})
}

// Requests counts the requests received for a route pattern like "POST /borrow".
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[route]
}

func (s *Server) intercept(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := next.Handler(r)

		s.mu.Lock()
		s.requests[pattern]++

		var injected *failure
		if len(s.failures) > 0 {
			injected = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if injected != nil {
			writeError(w, injected.status, injected.code, injected.message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) borrower(w http.ResponseWriter, r *http.Request) (core.BorrowerIDString, bool) {
	id, err := identity.Verifier{Now: s.clock()}.Parse(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, restapi.CodeUnauthenticated, "authentication required")
		return "", false
	}

	return id.BorrowerID(), true
}

func (s *Server) clock() func() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, ok := s.Book(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "", "book not found")
		return
	}

	writeJSON(w, http.StatusOK, restapi.ToBookDTO(book))
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("q"))

	s.writeBooks(w, func(book core.Book) bool {
		return query == "" ||
			strings.Contains(strings.ToLower(book.Title), query) ||
			strings.Contains(strings.ToLower(book.Author), query)
	})
}

func (s *Server) handleListOwnBooks(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	s.writeBooks(w, func(book core.Book) bool { return book.Owner == borrower })
}

func (s *Server) writeBooks(w http.ResponseWriter, keep func(core.Book) bool) {
	s.mu.Lock()
	dtos := make([]restapi.BookDTO, 0, len(s.books))
	for _, book := range s.books {
		if keep(book) {
			dtos = append(dtos, restapi.ToBookDTO(book))
		}
	}
	s.mu.Unlock()

	slices.SortFunc(dtos, func(a, b restapi.BookDTO) int { return strings.Compare(a.ID, b.ID) })

	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	var dto restapi.BookDTO
	if !readJSON(w, r, &dto) {
		return
	}

	book := dto.ToBook()
	book.ID = uuid.NewString()
	book.Owner = borrower
	book.AvailableQuantity = book.TotalQuantity

	if err := book.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, restapi.CodeInvalidBook, lastLine(err))
		return
	}

	s.PutBook(book)
	writeJSON(w, http.StatusCreated, restapi.ToBookDTO(book))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	var dto restapi.BookDTO
	if !readJSON(w, r, &dto) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.books[r.PathValue("id")]
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "", "book not found")
		return
	case existing.Owner != borrower:
		writeError(w, http.StatusForbidden, "", "only the owner may change a book")
		return
	}

	updated := dto.ToBook()
	updated.ID = existing.ID
	updated.Owner = existing.Owner
	onLoan := existing.TotalQuantity - existing.AvailableQuantity
	updated.AvailableQuantity = updated.TotalQuantity - onLoan

	if err := updated.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, restapi.CodeInvalidBook, lastLine(err))
		return
	}

	s.books[updated.ID] = updated
	writeJSON(w, http.StatusOK, restapi.ToBookDTO(updated))
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.books[r.PathValue("id")]
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "", "book not found")
		return
	case existing.Owner != borrower:
		writeError(w, http.StatusForbidden, "", "only the owner may remove a book")
		return
	}

	delete(s.books, existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	var request restapi.BorrowRequest
	if !readJSON(w, r, &request) {
		return
	}

	returnDate, err := core.ParseReturnDate(request.ReturnDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, restapi.CodeInvalidDate, "returnDate must be YYYY-MM-DD")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, found := s.books[request.BookID]
	if !found {
		writeError(w, http.StatusNotFound, "", "book not found")
		return
	}

	updated, loan, err := core.Borrow(book, uuid.NewString(), borrower, returnDate, s.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.books[updated.ID] = updated
	s.loans[loan.ID] = loan
	writeJSON(w, http.StatusCreated, restapi.LoanResponse{Book: restapi.ToBookDTO(updated), Loan: restapi.ToLoanDTO(loan)})
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, found := s.loans[r.PathValue("loanId")]
	if !found || loan.Borrower != borrower {
		writeError(w, http.StatusNotFound, "", "loan not found")
		return
	}

	book, found := s.books[loan.BookID]
	if !found {
		writeError(w, http.StatusNotFound, "", "book not found")
		return
	}

	updated, returned, err := core.Return(book, loan, s.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.books[updated.ID] = updated
	s.loans[returned.ID] = returned
	writeJSON(w, http.StatusOK, restapi.LoanResponse{Book: restapi.ToBookDTO(updated), Loan: restapi.ToLoanDTO(returned)})
}

func (s *Server) handleBorrowed(w http.ResponseWriter, r *http.Request) {
	borrower, ok := s.borrower(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	dtos := make([]restapi.BorrowedLoanDTO, 0)
	for _, loan := range s.loans {
		if loan.Borrower == borrower && loan.IsActive() {
			dtos = append(dtos, restapi.BorrowedLoanDTO{LoanDTO: restapi.ToLoanDTO(loan), Book: restapi.ToBookDTO(s.books[loan.BookID])})
		}
	}
	s.mu.Unlock()

	slices.SortFunc(dtos, func(a, b restapi.BorrowedLoanDTO) int { return strings.Compare(a.ID, b.ID) })

	writeJSON(w, http.StatusOK, dtos)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrOutOfStock):
		writeError(w, http.StatusConflict, restapi.CodeOutOfStock, "no copies available")
	case errors.Is(err, core.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, restapi.CodeInvalidDate, "return date must not be in the past")
	case errors.Is(err, core.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, restapi.CodeUnauthenticated, "authentication required")
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, restapi.CodeNotFound, "loan is not active")
	default:
		writeError(w, http.StatusInternalServerError, "", err.Error())
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := jsoniter.ConfigFastest.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed JSON body")
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, restapi.ErrorResponse{Message: message, Code: code})
}

func lastLine(err error) string {
	lines := strings.Split(err.Error(), "\n")

	return lines[len(lines)-1]
}
