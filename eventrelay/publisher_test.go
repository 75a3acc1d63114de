package eventrelay_test

import (
	"context"
	"errors"
	"testing"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/eventrelay"
	"github.com/bookverse/borrowledger/testutil/ledgertest"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if !durable || kind != amqp.ExchangeTopic {
		return errors.New("unexpected exchange settings")
	}

	c.declared = append(c.declared, name)

	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}

	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})

	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true

	return nil
}

func Test_AMQPPublisher_Publish(t *testing.T) {
	// arrange
	ch := &fakeChannel{}
	publisher, err := eventrelay.NewAMQPPublisher(ch, "")
	require.NoError(t, err)
	book := ledgertest.GivenBook("b1", 1, 2)
	loan := core.Loan{ID: "l1", BookID: "b1", Borrower: "alice", ReturnDate: ledgertest.Day(3), Status: core.LoanActive}

	// act
	err = publisher.Publish(t.Context(), core.DomainEvents{
		core.BuildBookSynced(book, ledgertest.Now),
		core.BuildBorrowingBookFailed("b1", "bob", core.ErrOutOfStock, ledgertest.Now),
		core.BuildBookBorrowed(book, loan, ledgertest.Now),
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{eventrelay.DefaultExchange}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, "ledger.book.synced", ch.published[0].key)
	assert.Equal(t, "ledger.book.borrowed", ch.published[1].key)
	assert.Equal(t, "application/json", ch.published[1].msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.published[1].msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, jsoniter.Unmarshal(ch.published[1].msg.Body, &body))
	assert.Equal(t, core.BookBorrowedEventType, body["type"])
	assert.Equal(t, "b1", body["bookId"])
	assert.Equal(t, "l1", body["payload"].(map[string]any)["LoanID"])
}

func Test_AMQPPublisher_Publish_Fails_When_The_Broker_Rejects(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	publisher, err := eventrelay.NewAMQPPublisher(ch, "custom")
	require.NoError(t, err)

	err = publisher.Publish(t.Context(), core.DomainEvents{core.BuildBookRemoved("b1", ledgertest.Now)})

	assert.ErrorIs(t, err, eventrelay.ErrPublishingMessage)
	assert.ErrorIs(t, err, amqp.ErrClosed)
	require.NoError(t, publisher.Close())
	assert.True(t, ch.closed)
}

func Test_RoutingKey(t *testing.T) {
	assert.Equal(t, "ledger.book.returned", eventrelay.RoutingKey(core.BookReturned{}))
	assert.Equal(t, "ledger.book.removed", eventrelay.RoutingKey(core.BookRemoved{}))
}
