package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"restaurant-assistant/internal/domain"
)

const skPrefixItem = "ITEM#"

// restaurantPK returns the partition key holding a restaurant's menu.
func restaurantPK(restaurantID string) string {
	return "REST#" + restaurantID
}

// ListItems returns every menu item stored for the restaurant, following
// pagination. Unavailable items are returned too; filtering is the caller's
// concern.
func (c *Client) ListItems(ctx context.Context, restaurantID string) ([]domain.CatalogItem, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     sAttr(restaurantPK(restaurantID)),
			":prefix": sAttr(skPrefixItem),
		},
	}

	items := make([]domain.CatalogItem, 0)
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListItems query: %w", err)
		}
		for _, raw := range out.Items {
			it, err := itemToCatalogItem(raw)
			if err != nil {
				return nil, fmt.Errorf("repository: ListItems unmarshal: %w", err)
			}
			items = append(items, it)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func itemToCatalogItem(item map[string]types.AttributeValue) (domain.CatalogItem, error) {
	var (
		it  domain.CatalogItem
		err error
	)
	if it.ItemID, err = strAttr(item, "item_id"); err != nil {
		return it, err
	}
	if it.Name, err = strAttr(item, "name"); err != nil {
		return it, err
	}
	if it.Price, err = floatAttr(item, "price"); err != nil {
		return it, err
	}
	if _, ok := item["rating"]; ok {
		if it.Rating, err = floatAttr(item, "rating"); err != nil {
			return it, err
		}
	}
	if it.IsFeatured, err = boolAttr(item, "is_featured", false); err != nil {
		return it, err
	}
	// items predating the availability flag are on the menu
	if it.Available, err = boolAttr(item, "available", true); err != nil {
		return it, err
	}
	if it.Tags, err = stringsAttr(item, "tags"); err != nil {
		return it, err
	}
	return it, nil
}
