package restapi

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

// BookDTO is the wire representation of a book.
type BookDTO struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Author            string  `json:"author"`
	Category          string  `json:"category,omitempty"`
	Rating            float64 `json:"rating"`
	Quantity          int     `json:"quantity"`
	AvailableQuantity int     `json:"availableQuantity"`
	ImageURL          string  `json:"imageUrl,omitempty"`
	Description       string  `json:"description,omitempty"`
	Owner             string  `json:"owner,omitempty"`
}

// LoanDTO is the wire representation of a loan. Return dates travel as YYYY-MM-DD.
type LoanDTO struct {
	ID           string `json:"id"`
	BookID       string `json:"bookId"`
	Borrower     string `json:"borrower"`
	BorrowedDate string `json:"borrowedDate"`
	ReturnDate   string `json:"returnDate"`
	Status       string `json:"status"`
	ReturnedDate string `json:"returnedDate,omitempty"`
}

// BorrowRequest is the body of POST /borrow.
type BorrowRequest struct {
	BookID     string `json:"bookId"`
	ReturnDate string `json:"returnDate"`
}

// LoanResponse answers POST /borrow and POST /return/{loanId} with the updated book and loan.
type LoanResponse struct {
	Book BookDTO `json:"book"`
	Loan LoanDTO `json:"loan"`
}

// BorrowedLoanDTO is one element of GET /borrowed.
type BorrowedLoanDTO struct {
	LoanDTO
	Book BookDTO `json:"book"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// BorrowedLoan is a loan of the current user together with the loaned book.
type BorrowedLoan struct {
	Loan core.Loan
	Book core.Book
}

func ToBookDTO(book core.Book) BookDTO {
	return BookDTO{
		ID:                book.ID,
		Title:             book.Title,
		Author:            book.Author,
		Category:          book.Category,
		Rating:            book.Rating,
		Quantity:          book.TotalQuantity,
		AvailableQuantity: book.AvailableQuantity,
		ImageURL:          book.ImageURL,
		Description:       book.Description,
		Owner:             book.Owner,
	}
}

func (dto BookDTO) ToBook() core.Book {
	return core.Book{
		ID:                dto.ID,
		Title:             dto.Title,
		Author:            dto.Author,
		Category:          dto.Category,
		Rating:            dto.Rating,
		TotalQuantity:     dto.Quantity,
		AvailableQuantity: dto.AvailableQuantity,
		ImageURL:          dto.ImageURL,
		Description:       dto.Description,
		Owner:             dto.Owner,
	}
}

func ToLoanDTO(loan core.Loan) LoanDTO {
	dto := LoanDTO{
		ID:           loan.ID,
		BookID:       loan.BookID,
		Borrower:     loan.Borrower,
		BorrowedDate: loan.BorrowedAt.UTC().Format(time.RFC3339Nano),
		ReturnDate:   loan.ReturnDate.Format(core.DateLayout),
		Status:       string(loan.Status),
	}

	if !loan.ReturnedAt.IsZero() {
		dto.ReturnedDate = loan.ReturnedAt.UTC().Format(time.RFC3339Nano)
	}

	return dto
}

// ToLoan converts the wire loan. Unreadable timestamps become zero values, an unreadable return
// date is an error since due status depends on it.
func (dto LoanDTO) ToLoan() (core.Loan, error) {
	returnDate, err := time.Parse(core.DateLayout, dto.ReturnDate)
	if err != nil {
		return core.Loan{}, err
	}

	loan := core.Loan{
		ID:         dto.ID,
		BookID:     dto.BookID,
		Borrower:   dto.Borrower,
		ReturnDate: returnDate,
		Status:     core.LoanStatus(dto.Status),
	}

	if loan.Status == "" {
		loan.Status = core.LoanActive
	}

	loan.BorrowedAt, _ = time.Parse(time.RFC3339Nano, dto.BorrowedDate)

	if dto.ReturnedDate != "" {
		loan.ReturnedAt, _ = time.Parse(time.RFC3339Nano, dto.ReturnedDate)
	}

	return loan, nil
}
