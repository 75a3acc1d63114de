// Package restapi is the client of the library's remote REST API, the authority on books and
// loans. Every failure is mapped onto the core error taxonomy.
package restapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/identity"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultBookCacheSize = 256
	DefaultBookCacheTTL  = 30 * time.Second

	maxErrorBodyBytes = 64 << 10
)

var (
	ErrInvalidBaseURL      = errors.New("invalid API base URL")
	ErrEncodingRequest     = errors.New("encoding request failed")
	ErrDecodingResponse    = errors.New("decoding response failed")
	ErrRequestFailed       = errors.New("request failed")
	ErrMalformedLoanInBody = errors.New("response contains a malformed loan")
)

// Client talks to the REST API. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	identity identity.Source
	books    *expirable.LRU[core.BookIDString, core.Book]
}

type Option func(*Client)

// WithHTTPClient replaces the default client which only carries DefaultTimeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithTimeout sets the timeout of the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithBookCache sizes the read cache of GetBook. A size of zero disables it.
func WithBookCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.books = nil
			return
		}

		c.books = expirable.NewLRU[core.BookIDString, core.Book](size, nil, ttl)
	}
}

func NewClient(baseURL string, source identity.Source, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.Join(ErrInvalidBaseURL, fmt.Errorf("%q is not an absolute http(s) URL", baseURL))
	}

	if source == nil {
		source = identity.Anonymous{}
	}

	client := &Client{
		baseURL:  parsed,
		http:     &http.Client{Timeout: DefaultTimeout},
		identity: source,
		books:    expirable.NewLRU[core.BookIDString, core.Book](DefaultBookCacheSize, nil, DefaultBookCacheTTL),
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

// GetBook returns the book, served from the cache while fresh.
func (c *Client) GetBook(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	if c.books != nil {
		if book, ok := c.books.Get(bookID); ok {
			return book, nil
		}
	}

	return c.FetchBook(ctx, bookID)
}

// FetchBook always asks the server. A 404 evicts the cached book.
func (c *Client) FetchBook(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	var dto BookDTO

	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "books", bookID), nil, false, &dto); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.forget(bookID)
		}

		return core.Book{}, err
	}

	book := dto.ToBook()
	c.remember(book)

	return book, nil
}

// ListBooks searches the catalog. An empty query lists everything.
func (c *Client) ListBooks(ctx context.Context, query string) ([]core.Book, error) {
	var params url.Values
	if query = strings.TrimSpace(query); query != "" {
		params = url.Values{"q": {query}}
	}

	return c.listBooks(ctx, c.endpoint(params, "books"), false)
}

// ListOwnBooks lists the catalog entries the current user created.
func (c *Client) ListOwnBooks(ctx context.Context) ([]core.Book, error) {
	return c.listBooks(ctx, c.endpoint(nil, "books", "mine"), true)
}

func (c *Client) CreateBook(ctx context.Context, book core.Book) (core.Book, error) {
	return c.writeBook(ctx, http.MethodPost, c.endpoint(nil, "books"), book)
}

func (c *Client) UpdateBook(ctx context.Context, book core.Book) (core.Book, error) {
	return c.writeBook(ctx, http.MethodPut, c.endpoint(nil, "books", book.ID), book)
}

func (c *Client) DeleteBook(ctx context.Context, bookID core.BookIDString) error {
	if err := c.do(ctx, http.MethodDelete, c.endpoint(nil, "books", bookID), nil, true, nil); err != nil {
		return err
	}

	c.forget(bookID)

	return nil
}

// Borrow asks the server to lend one copy until returnDate. The server answers with the
// authoritative book and the new loan.
func (c *Client) Borrow(ctx context.Context, bookID core.BookIDString, returnDate time.Time) (core.Book, core.Loan, error) {
	request := BorrowRequest{BookID: bookID, ReturnDate: returnDate.Format(core.DateLayout)}

	return c.loanRequest(ctx, c.endpoint(nil, "borrow"), request)
}

// Return gives the copy of an active loan back.
func (c *Client) Return(ctx context.Context, loanID core.LoanIDString) (core.Book, core.Loan, error) {
	return c.loanRequest(ctx, c.endpoint(nil, "return", loanID), nil)
}

// Borrowed lists the active loans of the current user.
func (c *Client) Borrowed(ctx context.Context) ([]BorrowedLoan, error) {
	var dtos []BorrowedLoanDTO

	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "borrowed"), nil, true, &dtos); err != nil {
		return nil, err
	}

	borrowed := make([]BorrowedLoan, 0, len(dtos))
	for _, dto := range dtos {
		loan, err := dto.LoanDTO.ToLoan()
		if err != nil {
			return nil, errors.Join(core.ErrNetwork, ErrMalformedLoanInBody, err)
		}

		borrowed = append(borrowed, BorrowedLoan{Loan: loan, Book: dto.Book.ToBook()})
	}

	return borrowed, nil
}

func (c *Client) listBooks(ctx context.Context, endpoint string, authenticated bool) ([]core.Book, error) {
	var dtos []BookDTO

	if err := c.do(ctx, http.MethodGet, endpoint, nil, authenticated, &dtos); err != nil {
		return nil, err
	}

	books := make([]core.Book, 0, len(dtos))
	for _, dto := range dtos {
		books = append(books, dto.ToBook())
	}

	return books, nil
}

func (c *Client) writeBook(ctx context.Context, method, endpoint string, book core.Book) (core.Book, error) {
	var dto BookDTO

	if err := c.do(ctx, method, endpoint, ToBookDTO(book), true, &dto); err != nil {
		return core.Book{}, err
	}

	written := dto.ToBook()
	c.remember(written)

	return written, nil
}

func (c *Client) loanRequest(ctx context.Context, endpoint string, body any) (core.Book, core.Loan, error) {
	var response LoanResponse

	if err := c.do(ctx, http.MethodPost, endpoint, body, true, &response); err != nil {
		return core.Book{}, core.Loan{}, err
	}

	loan, err := response.Loan.ToLoan()
	if err != nil {
		return core.Book{}, core.Loan{}, errors.Join(core.ErrNetwork, ErrMalformedLoanInBody, err)
	}

	book := response.Book.ToBook()
	c.remember(book)

	return book, loan, nil
}

func (c *Client) endpoint(params url.Values, elements ...string) string {
	escaped := make([]string, 0, len(elements))
	for _, element := range elements {
		escaped = append(escaped, url.PathEscape(element))
	}

	u := c.baseURL.JoinPath(escaped...)
	u.RawQuery = params.Encode()

	return u.String()
}

// do sends one request. With authenticated set a missing identity fails before anything is sent,
// otherwise the token is attached when there is one.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, authenticated bool, out any) error {
	var payload io.Reader

	if body != nil {
		encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(body)
		if err != nil {
			return errors.Join(core.ErrNetwork, ErrEncodingRequest, err)
		}

		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return errors.Join(core.ErrNetwork, ErrRequestFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	current, identityErr := c.identity.Current(ctx)
	switch {
	case identityErr == nil:
		req.Header.Set("Authorization", "Bearer "+current.Token)
	case authenticated:
		return identityErr
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(core.ErrNetwork, ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := jsoniter.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(core.ErrNetwork, ErrDecodingResponse, err)
	}

	return nil
}

func (c *Client) remember(book core.Book) {
	if c.books != nil && book.ID != "" {
		c.books.Add(book.ID, book)
	}
}

func (c *Client) forget(bookID core.BookIDString) {
	if c.books != nil {
		c.books.Remove(bookID)
	}
}
