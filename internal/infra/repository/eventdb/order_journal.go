package eventdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	eventModel "github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model/event"
	"github.com/google/uuid"
)

var ErrEventFormat = errors.New("event format error")

type streamAppender interface {
	AppendToStream(ctx context.Context, streamID string, opts esdb.AppendToStreamOptions, events ...esdb.EventData) (*esdb.WriteResult, error)
}

// OrderJournal 將訂單生命週期事件寫入 EventStoreDB，每張訂單一條 stream
type OrderJournal struct {
	client streamAppender
}

func NewOrderJournal(client streamAppender) *OrderJournal {
	return &OrderJournal{client: client}
}

func GetClient(connection string) (*esdb.Client, error) {
	settings, err := esdb.ParseConnectionString(connection)
	if err != nil {
		return nil, err
	}
	return esdb.NewClient(settings)
}

func OrderStreamID(orderID uint) string {
	return fmt.Sprintf("order-%d", orderID)
}

func (j *OrderJournal) Publish(ctx context.Context, evt *eventModel.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEventFormat, err)
	}

	eventData := esdb.EventData{
		ContentType: esdb.ContentTypeJson,
		EventType:   string(evt.EventType),
		Data:        payload,
	}
	if id, err := uuid.Parse(evt.EventID); err == nil {
		eventData.EventID = id
	}

	_, err = j.client.AppendToStream(ctx, OrderStreamID(evt.OrderID), esdb.AppendToStreamOptions{}, eventData)
	return err
}
