package core

import (
	"errors"
	"strings"
)

var (
	// ErrOutOfStock means no copy is available. The affected book gets resynced.
	ErrOutOfStock = errors.New("book is out of stock")

	// ErrInvalidDate means the return date lies before today or could not be read.
	ErrInvalidDate = errors.New("return date must be today or later")

	// ErrNotFound means the book or the active loan does not exist (anymore).
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means there is no valid identity for the operation.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNetwork covers transport failures and unexpected server responses.
	ErrNetwork = errors.New("network error")

	// ErrInvalidBook means catalog input failed validation.
	ErrInvalidBook = errors.New("invalid book")
)

const (
	ErrorKindOutOfStock      = "out_of_stock"
	ErrorKindInvalidDate     = "invalid_date"
	ErrorKindNotFound        = "not_found"
	ErrorKindUnauthenticated = "unauthenticated"
	ErrorKindNetwork         = "network"
	ErrorKindInvalidBook     = "invalid_book"
	ErrorKindUnknown         = "unknown"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrOutOfStock, ErrorKindOutOfStock},
	{ErrInvalidDate, ErrorKindInvalidDate},
	{ErrNotFound, ErrorKindNotFound},
	{ErrUnauthenticated, ErrorKindUnauthenticated},
	{ErrInvalidBook, ErrorKindInvalidBook},
	{ErrNetwork, ErrorKindNetwork},
}

// ErrorKind maps err to a stable label of the error taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	for _, candidate := range errorKinds {
		if errors.Is(err, candidate.err) {
			return candidate.kind
		}
	}

	return ErrorKindUnknown
}

// UserMessage renders err as the one line notification shown to the user.
func UserMessage(err error) string {
	switch ErrorKind(err) {
	case "":
		return ""
	case ErrorKindOutOfStock:
		return "No copies of this book are available right now."
	case ErrorKindInvalidDate:
		return "Please choose a return date of today or later."
	case ErrorKindNotFound:
		return "This book or loan could not be found."
	case ErrorKindUnauthenticated:
		return "Please log in to continue."
	case ErrorKindInvalidBook:
		return "The book details are incomplete: " + lastLine(err)
	case ErrorKindNetwork:
		return "Something went wrong talking to the library: " + lastLine(err)
	default:
		return "Something went wrong: " + lastLine(err)
	}
}

// lastLine returns the innermost message of an errors.Join chain.
func lastLine(err error) string {
	lines := strings.Split(err.Error(), "\n")

	return lines[len(lines)-1]
}
