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

const (
	skPrefixTurn    = "TURN#"
	defaultRoomType = "chatbot"

	metaUpdate = "SET room_status = :status, last_activity = :now, #ttl = :ttl, room_type = if_not_exists(room_type, :type), " +
		"low_confidence_streak = :streak ADD message_count :n"
)

// roomPK returns the DynamoDB partition key for a chat room.
func roomPK(roomID string) string {
	return "ROOM#" + roomID
}

// turnSK keys a turn by its position in the room. The fixed width keeps
// sort keys ordered lexically.
func turnSK(index int) string {
	return fmt.Sprintf("%s%012d", skPrefixTurn, index)
}

// GetContext returns room metadata and the most recent limit turns in
// chronological order. A room with no metadata yet is reported as a new,
// active chatbot room.
func (c *Client) GetContext(ctx context.Context, roomID string, limit int) (domain.ConversationContext, error) {
	if roomID == "" {
		return domain.ConversationContext{}, errors.New("repository: GetContext: room id is required")
	}
	conv := domain.ConversationContext{
		RoomID:     roomID,
		RoomStatus: domain.RoomStatusActive,
		RoomType:   defaultRoomType,
		Turns:      []domain.ConversationTurn{},
	}

	meta, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            keyOf(roomPK(roomID), skMeta),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationContext{}, fmt.Errorf("repository: GetContext get meta: %w", err)
	}
	if meta != nil && len(meta.Item) > 0 {
		if err := applyRoomMeta(&conv, meta.Item); err != nil {
			return domain.ConversationContext{}, fmt.Errorf("repository: GetContext decode meta: %w", err)
		}
	}

	if limit <= 0 {
		return conv, nil
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     sAttr(roomPK(roomID)),
			":prefix": sAttr(skPrefixTurn),
		},
		// Read newest first so LIMIT favors the most recent context.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationContext{}, fmt.Errorf("repository: GetContext query turns: %w", err)
	}
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return domain.ConversationContext{}, fmt.Errorf("repository: GetContext unmarshal: %w", err)
		}
		conv.Turns = append(conv.Turns, turn)
	}
	for i, j := 0, len(conv.Turns)-1; i < j; i, j = i+1, j-1 {
		conv.Turns[i], conv.Turns[j] = conv.Turns[j], conv.Turns[i]
	}
	return conv, nil
}

// AppendTurns commits an exchange to a room in one transaction: the turns,
// the room status and the low-confidence streak. The commit is conditional
// on the room still holding upd.ExpectedCount messages, so two writers that
// read the same context cannot both append; the loser gets ErrConflict.
// The room is created on first append.
func (c *Client) AppendTurns(ctx context.Context, roomID string, upd domain.RoomUpdate) error {
	if roomID == "" {
		return errors.New("repository: AppendTurns: room id is required")
	}
	if len(upd.Turns) == 0 {
		return errors.New("repository: AppendTurns: no turns to append")
	}
	if upd.ExpectedCount < 0 {
		return errors.New("repository: AppendTurns: expected count must not be negative")
	}
	now := c.now().UTC()
	ttl := ttlValue(now)

	items := make([]types.TransactWriteItem, 0, len(upd.Turns)+1)
	for i, t := range upd.Turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		item := keyOf(roomPK(roomID), turnSK(upd.ExpectedCount+i))
		item["role"] = sAttr(string(t.Role))
		item["content"] = sAttr(t.Content)
		item["created_at"] = sAttr(created.UTC().Format(time.RFC3339Nano))
		item["ttl"] = nAttr(ttl)
		if t.Intent != "" {
			item["intent"] = sAttr(string(t.Intent))
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(c.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
			},
		})
	}

	cond := "message_count = :expected"
	if upd.ExpectedCount == 0 {
		cond = "attribute_not_exists(message_count) OR message_count = :expected"
	}
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(c.tableName),
			Key:                 keyOf(roomPK(roomID), skMeta),
			ConditionExpression: aws.String(cond),
			UpdateExpression:    aws.String(metaUpdate),
			ExpressionAttributeNames: map[string]string{
				"#ttl": "ttl",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status":   sAttr(string(upd.Status)),
				":now":      sAttr(now.Format(time.RFC3339)),
				":ttl":      nAttr(ttl),
				":type":     sAttr(defaultRoomType),
				":streak":   nAttr(int64(upd.LowConfidenceStreak)),
				":expected": nAttr(int64(upd.ExpectedCount)),
				":n":        nAttr(int64(len(upd.Turns))),
			},
		},
	})

	if _, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("repository: AppendTurns: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("repository: AppendTurns: %w", err)
	}
	return nil
}

// isConditionFailure reports whether a transaction was cancelled because one
// of its conditions did not hold.
func isConditionFailure(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, r := range canceled.CancellationReasons {
		if aws.ToString(r.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func applyRoomMeta(conv *domain.ConversationContext, item map[string]types.AttributeValue) error {
	status, err := optStrAttr(item, "room_status")
	if err != nil {
		return err
	}
	if status != "" {
		conv.RoomStatus = domain.RoomStatus(status)
	}
	roomType, err := optStrAttr(item, "room_type")
	if err != nil {
		return err
	}
	if roomType != "" {
		conv.RoomType = roomType
	}
	if _, ok := item["message_count"]; ok {
		n, err := intAttr(item, "message_count")
		if err != nil {
			return err
		}
		conv.MessageCount = n
	}
	if _, ok := item["low_confidence_streak"]; ok {
		n, err := intAttr(item, "low_confidence_streak")
		if err != nil {
			return err
		}
		conv.LowConfidenceStreak = n
	}
	return nil
}

// itemToTurn converts a DynamoDB attribute map to a ConversationTurn.
func itemToTurn(item map[string]types.AttributeValue) (domain.ConversationTurn, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.ConversationTurn{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.ConversationTurn{}, err
	}
	intent, err := optStrAttr(item, "intent")
	if err != nil {
		return domain.ConversationTurn{}, err
	}
	createdRaw, err := strAttr(item, "created_at")
	if err != nil {
		return domain.ConversationTurn{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return domain.ConversationTurn{}, fmt.Errorf("repository: parse created_at: %w", err)
	}
	return domain.ConversationTurn{
		Role:      domain.Role(role),
		Content:   content,
		Intent:    domain.Intent(intent),
		CreatedAt: created,
	}, nil
}
