package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/bookverse/borrowledger/core"
)

func printBook(out io.Writer, book core.Book) {
	fmt.Fprintf(out, "%s  %s by %s\n", book.ID, book.Title, book.Author)
	fmt.Fprintf(out, "  category: %s, rating: %s\n", book.Category, humanize.FtoaWithDigits(book.Rating, 1))
	fmt.Fprintf(out, "  %s\n", availability(book))

	if book.Description != "" {
		fmt.Fprintf(out, "  %s\n", book.Description)
	}
}

func printBookLine(out io.Writer, book core.Book) {
	fmt.Fprintf(out, "%s  %s by %s (%s)\n", book.ID, book.Title, book.Author, availability(book))
}

func printLoan(out io.Writer, loan core.Loan, book core.Book, status core.DueStatus) {
	title := book.Title
	if title == "" {
		title = loan.BookID
	}

	borrowed := ""
	if !loan.BorrowedAt.IsZero() {
		borrowed = ", borrowed " + humanize.Time(loan.BorrowedAt)
	}

	fmt.Fprintf(out, "%s  %s  [%s] return by %s, %s%s\n",
		loan.ID, title, strings.ToUpper(string(status.Level)), loan.ReturnDate.Format(time.DateOnly), status, borrowed)
}

func availability(book core.Book) string {
	return fmt.Sprintf("%s of %s available",
		humanize.Comma(int64(book.AvailableQuantity)), plural(book.TotalQuantity, "copy", "copies"))
}

func summary(count, urgent, overdue int) string {
	return fmt.Sprintf("%s, %s due soon, %s overdue",
		plural(count, "loan", "loans"), humanize.Comma(int64(urgent)), humanize.Comma(int64(overdue)))
}

func plural(n int, singular, pluralForm string) string {
	return english.Plural(n, singular, pluralForm)
}
