package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const conditionNew = "attribute_not_exists(tracking_number)"

// OrderArchive implements tracking.Archive and checkout.Archive.
type OrderArchive struct {
	client API
	table  string
}

func NewOrderArchive(client API, table string) *OrderArchive {
	return &OrderArchive{client: client, table: table}
}

// AppendOrder writes o once. A second write for the same tracking number
// returns orders.ErrAlreadyExists.
func (a *OrderArchive) AppendOrder(ctx context.Context, o orders.OrderRecord) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", o.OrderReference, err)
	}
	_, err = a.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &a.table,
		Item:                item,
		ConditionExpression: awsString(conditionNew),
	})
	if err != nil {
		var api smithy.APIError
		if errors.As(err, &api) && api.ErrorCode() == "ConditionalCheckFailedException" {
			return fmt.Errorf("append order %s: %w", o.TrackingNumber, orders.ErrAlreadyExists)
		}
		return orders.Unavailable("append order "+o.TrackingNumber, err)
	}
	return nil
}

// FindByTrackingNumber returns (nil, nil) if no order has that number.
func (a *OrderArchive) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*orders.OrderRecord, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	out, err := a.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &a.table,
		Key: map[string]types.AttributeValue{
			"tracking_number": &types.AttributeValueMemberS{Value: trackingNumber},
		},
	})
	if err != nil {
		return nil, orders.Unavailable("get order "+trackingNumber, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o orders.OrderRecord
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order %s: %w", trackingNumber, err)
	}
	return &o, nil
}
