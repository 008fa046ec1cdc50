package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
)

const topic = "events_to_forward"

// NewPostgresSubscriber reads outboxed messages back from Postgres so the
// forwarder can move them to Redis.
func NewPostgresSubscriber(db *sqlx.DB, logger watermill.LoggerAdapter) message.Subscriber {
	sub, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		panic(fmt.Errorf("failed to create postgres subscriber: %w", err))
	}
	return sub
}

// InitializeSchema creates the outbox table up front. The running service
// gets this for free when the forwarder subscribes; tests that publish
// through a bare transaction need it explicitly.
func InitializeSchema(db *sqlx.DB, logger watermill.LoggerAdapter) error {
	sub, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("could not create subscriber: %w", err)
	}
	defer sub.Close()

	return sub.SubscribeInitialize(topic)
}

// NewPublisherForDb returns a publisher that writes messages to the outbox
// table within tx. The message becomes visible to the forwarder only when
// the surrounding transaction commits.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx, logger watermill.LoggerAdapter) (message.Publisher, error) {
	sqlPublisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create sql publisher: %w", err)
	}

	return forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: topic,
	}), nil
}

// AddForwarderHandler attaches the outbox forwarder to the router: whatever
// lands in the outbox table is re-published to Redis.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) {
	_, err := forwarder.NewForwarder(postgresSubscriber, publisher, logger, forwarder.Config{
		ForwarderTopic: topic,
		Router:         router,
	})
	if err != nil {
		panic(fmt.Errorf("failed to create forwarder: %w", err))
	}
}
