package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bookverse/borrowledger/config"
	"github.com/bookverse/borrowledger/core"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type command struct {
	name     string
	args     string
	summary  string
	needsAPI bool
	run      func(ctx context.Context, a *app, out io.Writer, args []string) error
}

func commands() []command {
	return []command{
		{name: "book", args: "<book-id>", summary: "show a book, fetching it when unknown", needsAPI: true, run: runBook},
		{name: "can-borrow", args: "<book-id>", summary: "tell whether the book can be borrowed", needsAPI: true, run: runCanBorrow},
		{name: "borrow", args: "-return-date YYYY-MM-DD <book-id>", summary: "borrow one copy", needsAPI: true, run: runBorrow},
		{name: "return", args: "<loan-id>", summary: "return a borrowed copy", needsAPI: true, run: runReturn},
		{name: "borrowed", summary: "list your active loans with their due status", needsAPI: true, run: runBorrowed},
		{name: "sync", args: "[book-id]", summary: "resync a book, or all your loans", needsAPI: true, run: runSync},
		{name: "books", args: "[-q text] [-mine]", summary: "search the catalog", needsAPI: true, run: runBooks},
		{name: "add-book", args: "-title … -author … -category … -quantity n", summary: "add a book you lend out", needsAPI: true, run: runAddBook},
		{name: "remove-book", args: "<book-id>", summary: "remove one of your books", needsAPI: true, run: runRemoveBook},
		{name: "schema", summary: "create the journal table", run: runSchema},
	}
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)

		return exitUsage
	}

	var selected *command
	for _, c := range commands() {
		if c.name == args[0] {
			selected = &c

			break
		}
	}

	if selected == nil {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)

		return exitUsage
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate(selected.needsAPI)
	}

	if err != nil {
		fmt.Fprintln(stderr, err)

		return exitError
	}

	a, err := newApp(ctx, cfg, stderr, selected.needsAPI)
	if err != nil {
		fmt.Fprintln(stderr, core.UserMessage(err))

		return exitError
	}
	defer a.close()

	if err := selected.run(ctx, a, stdout, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: borrowledger %s %s\n", selected.name, selected.args)

			return exitUsage
		}

		fmt.Fprintln(stderr, core.UserMessage(err))

		return exitError
	}

	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: borrowledger <command> [arguments]")
	fmt.Fprintln(w)

	for _, c := range commands() {
		fmt.Fprintf(w, "  %-12s %-40s %s\n", c.name, c.args, c.summary)
	}
}

// parse parses flags of a subcommand and returns its positional arguments. want < 0 accepts
// any number of them.
func parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, errors.Join(errUsage, err)
	}

	if want >= 0 && fs.NArg() != want {
		return nil, errUsage
	}

	return fs.Args(), nil
}

func runBook(ctx context.Context, a *app, out io.Writer, args []string) error {
	positional, err := parse(flag.NewFlagSet("book", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	book, err := a.ledger.Book(ctx, positional[0])
	if err != nil {
		return err
	}

	printBook(out, book)

	return nil
}

func runCanBorrow(ctx context.Context, a *app, out io.Writer, args []string) error {
	positional, err := parse(flag.NewFlagSet("can-borrow", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	canBorrow, err := a.ledger.CanBorrow(ctx, positional[0])
	if err != nil {
		return err
	}

	if canBorrow {
		fmt.Fprintln(out, "yes")
	} else {
		fmt.Fprintln(out, "no")
	}

	return nil
}

func runBorrow(ctx context.Context, a *app, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("borrow", flag.ContinueOnError)
	rawReturnDate := fs.String("return-date", "", "return date, YYYY-MM-DD")

	positional, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	returnDate, err := core.ParseReturnDate(*rawReturnDate)
	if err != nil {
		return err
	}

	book, loan, err := a.ledger.RecordBorrow(ctx, positional[0], returnDate)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "borrowed %q, loan %s\n", book.Title, loan.ID)
	printLoan(out, loan, book, a.ledger.ClassifyDueStatus(loan, time.Now()))

	return nil
}

func runReturn(ctx context.Context, a *app, out io.Writer, args []string) error {
	positional, err := parse(flag.NewFlagSet("return", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	book, _, err := a.ledger.RecordReturn(ctx, positional[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "returned %q, %s\n", book.Title, availability(book))

	return nil
}

func runBorrowed(ctx context.Context, a *app, out io.Writer, args []string) error {
	if _, err := parse(flag.NewFlagSet("borrowed", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	borrowed, err := a.ledger.Borrowed(ctx)
	if err != nil {
		return err
	}

	if borrowed.Count == 0 {
		fmt.Fprintln(out, "no active loans")

		return nil
	}

	for _, entry := range borrowed.Books {
		printLoan(out, entry.Loan, entry.Book, entry.DueStatus)
	}

	fmt.Fprintln(out, summary(borrowed.Count, borrowed.Urgent, borrowed.Overdue))

	return nil
}

func runSync(ctx context.Context, a *app, out io.Writer, args []string) error {
	positional, err := parse(flag.NewFlagSet("sync", flag.ContinueOnError), args, -1)
	if err != nil {
		return err
	}

	switch len(positional) {
	case 0:
		changes, syncErr := a.ledger.SyncLoans(ctx)
		if syncErr != nil {
			return syncErr
		}

		fmt.Fprintf(out, "loans in sync, %s\n", plural(changes, "change", "changes"))

		return nil

	case 1:
		book, syncErr := a.ledger.Resync(ctx, positional[0])
		if syncErr != nil {
			return syncErr
		}

		printBook(out, book)

		return nil

	default:
		return errUsage
	}
}

func runBooks(ctx context.Context, a *app, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	query := fs.String("q", "", "title or author contains")
	mine := fs.Bool("mine", false, "only books you lend out")

	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	books, err := a.ledger.ListBooks(ctx, strings.TrimSpace(*query), *mine)
	if err != nil {
		return err
	}

	for _, book := range books {
		printBookLine(out, book)
	}

	fmt.Fprintln(out, plural(len(books), "book", "books"))

	return nil
}

func runAddBook(ctx context.Context, a *app, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("add-book", flag.ContinueOnError)
	book := core.Book{}
	fs.StringVar(&book.Title, "title", "", "title")
	fs.StringVar(&book.Author, "author", "", "author")
	fs.StringVar(&book.Category, "category", "", "category")
	fs.Float64Var(&book.Rating, "rating", 0, "rating, 0 to 5 in half steps")
	fs.IntVar(&book.TotalQuantity, "quantity", 1, "number of copies")
	fs.StringVar(&book.ImageURL, "image", "", "cover image URL")
	fs.StringVar(&book.Description, "description", "", "description")

	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	added, err := a.ledger.AddBook(ctx, book)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "added %s\n", added.ID)
	printBook(out, added)

	return nil
}

func runRemoveBook(ctx context.Context, a *app, out io.Writer, args []string) error {
	positional, err := parse(flag.NewFlagSet("remove-book", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	if err := a.ledger.RemoveBook(ctx, positional[0]); err != nil {
		return err
	}

	fmt.Fprintf(out, "removed %s\n", positional[0])

	return nil
}

func runSchema(ctx context.Context, a *app, out io.Writer, args []string) error {
	if _, err := parse(flag.NewFlagSet("schema", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	if err := a.engine.CreateSchema(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "journal table %s ready\n", a.cfg.JournalTable)

	return nil
}
