package event

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetix/entity"
	"meetix/pubsub/bus"
)

type capturedMessage struct {
	topic   string
	payload []byte
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range messages {
		p.messages = append(p.messages, capturedMessage{topic: topic, payload: msg.Payload})
	}
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

type stubOrdersRepo struct {
	order entity.OrderWithItems
}

func (r stubOrdersRepo) GetWithItems(ctx context.Context, orderID string) (entity.OrderWithItems, error) {
	return r.order, nil
}

func (r stubOrdersRepo) SetItemTicketArtifacts(ctx context.Context, orderItemID string, urls, keys []string) error {
	return nil
}

type stubEventsRepo struct {
	allocated bool
}

func (r stubEventsRepo) Get(ctx context.Context, eventID string) (entity.Event, error) {
	return entity.Event{}, nil
}

func (r stubEventsRepo) AllocateSeats(ctx context.Context, eventID, orderID string, seatUnits int) (bool, error) {
	return r.allocated, nil
}

func newAllocateFixture(t *testing.T, allocated bool) (Handler, *capturingPublisher, entity.OrderWithItems) {
	t.Helper()

	publisher := &capturingPublisher{}
	eventBus, err := bus.NewEventBus(publisher)
	require.NoError(t, err)

	order := entity.OrderWithItems{
		Order: entity.Order{ID: uuid.NewString(), EventID: uuid.NewString()},
		Items: []entity.OrderItemDetail{{
			OrderItem:    entity.OrderItem{Quantity: 2},
			SeatsPerUnit: 2,
		}},
	}

	handler := Handler{
		eventBus:   eventBus,
		ordersRepo: stubOrdersRepo{order: order},
		eventsRepo: stubEventsRepo{allocated: allocated},
	}

	return handler, publisher, order
}

func announcedAllocation(t *testing.T, publisher *capturingPublisher) entity.OrderSeatsAllocated {
	t.Helper()

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "events."+cqrs.StructName(entity.OrderSeatsAllocated{}), publisher.messages[0].topic)

	var announced entity.OrderSeatsAllocated
	require.NoError(t, json.Unmarshal(publisher.messages[0].payload, &announced))
	return announced
}

func TestAllocateSeatsHandler_AnnouncesAllocation(t *testing.T) {
	handler, publisher, order := newAllocateFixture(t, true)

	err := handler.AllocateSeatsHandler().Handle(context.Background(), &entity.OrderConfirmed{
		Header:  entity.NewEventHeader(),
		OrderID: order.ID,
		EventID: order.EventID,
	})
	require.NoError(t, err)

	announced := announcedAllocation(t, publisher)
	assert.Equal(t, order.ID, announced.OrderID)
	assert.Equal(t, order.EventID, announced.EventID)
	assert.Equal(t, 4, announced.SeatUnits)
}

func TestAllocateSeatsHandler_ReannouncesAfterLostAnnouncement(t *testing.T) {
	// the allocation row committed on a previous delivery but its
	// announcement never reached the broker; the redelivery must announce
	// again or ticket issuance never runs for this order
	handler, publisher, order := newAllocateFixture(t, false)

	err := handler.AllocateSeatsHandler().Handle(context.Background(), &entity.OrderConfirmed{
		Header:  entity.NewEventHeader(),
		OrderID: order.ID,
		EventID: order.EventID,
	})
	require.NoError(t, err)

	announced := announcedAllocation(t, publisher)
	assert.Equal(t, order.ID, announced.OrderID)
	assert.Equal(t, 4, announced.SeatUnits)
}
