package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"restaurant-assistant/internal/domain"
)

// feedbackPK returns the partition key of a feedback record.
func feedbackPK(id string) string {
	return "FEEDBACK#" + id
}

// PutFeedback stores a new feedback record. Records are never overwritten.
func (c *Client) PutFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	if rec.ID == "" {
		return errors.New("repository: PutFeedback: id is required")
	}
	item := keyOf(feedbackPK(rec.ID), skMeta)
	item["id"] = sAttr(rec.ID)
	item["room_id"] = sAttr(rec.RoomID)
	item["restaurant_id"] = sAttr(rec.RestaurantID)
	item["feedback_type"] = sAttr(string(rec.FeedbackType))
	item["rating"] = nAttr(int64(rec.Rating))
	item["suggested_items"] = listAttr(rec.SuggestedItems)
	item["accepted_items"] = listAttr(rec.AcceptedItems)
	item["intent"] = sAttr(string(rec.Intent))
	item["user_comment"] = sAttr(rec.UserComment)
	item["created_at"] = sAttr(rec.CreatedAt.UTC().Format(time.RFC3339Nano))

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutFeedback: %w", err)
	}
	return nil
}

// GetFeedback loads a feedback record by id. It returns ErrNotFound when the
// record does not exist.
func (c *Client) GetFeedback(ctx context.Context, id string) (domain.FeedbackRecord, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            keyOf(feedbackPK(id), skMeta),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.FeedbackRecord{}, fmt.Errorf("repository: GetFeedback: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.FeedbackRecord{}, ErrNotFound
	}
	rec, err := itemToFeedback(out.Item)
	if err != nil {
		return domain.FeedbackRecord{}, fmt.Errorf("repository: GetFeedback decode: %w", err)
	}
	return rec, nil
}

func itemToFeedback(item map[string]types.AttributeValue) (domain.FeedbackRecord, error) {
	var (
		rec domain.FeedbackRecord
		err error
		s   string
	)
	if rec.ID, err = strAttr(item, "id"); err != nil {
		return rec, err
	}
	if rec.RoomID, err = strAttr(item, "room_id"); err != nil {
		return rec, err
	}
	if rec.RestaurantID, err = strAttr(item, "restaurant_id"); err != nil {
		return rec, err
	}
	if s, err = strAttr(item, "feedback_type"); err != nil {
		return rec, err
	}
	rec.FeedbackType = domain.FeedbackType(s)
	if rec.Rating, err = intAttr(item, "rating"); err != nil {
		return rec, err
	}
	if rec.SuggestedItems, err = stringsAttr(item, "suggested_items"); err != nil {
		return rec, err
	}
	if rec.AcceptedItems, err = stringsAttr(item, "accepted_items"); err != nil {
		return rec, err
	}
	if s, err = optStrAttr(item, "intent"); err != nil {
		return rec, err
	}
	rec.Intent = domain.Intent(s)
	if rec.UserComment, err = optStrAttr(item, "user_comment"); err != nil {
		return rec, err
	}
	if s, err = strAttr(item, "created_at"); err != nil {
		return rec, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, s); err != nil {
		return rec, fmt.Errorf("repository: parse created_at: %w", err)
	}
	return rec, nil
}
