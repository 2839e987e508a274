package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skMeta      = "META#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict is returned when a conditional write lost to a concurrent one.
var ErrConflict = errors.New("repository: conflict")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps the single DynamoDB table holding rooms, menu items and
// feedback records.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// ttlValue returns a Unix timestamp 30 days after t.
func ttlValue(t time.Time) int64 {
	return t.Add(ttlDuration).Unix()
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func sAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func nAttr(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func listAttr(vals []string) types.AttributeValue {
	out := make([]types.AttributeValue, 0, len(vals))
	for _, v := range vals {
		out = append(out, sAttr(v))
	}
	return &types.AttributeValueMemberL{Value: out}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// optStrAttr returns "" when the attribute is absent.
func optStrAttr(item map[string]types.AttributeValue, key string) (string, error) {
	if _, ok := item[key]; !ok {
		return "", nil
	}
	return strAttr(item, key)
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	f, err := floatAttr(item, key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("repository: attribute %q is not an integer", key)
	}
	return int(f), nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func boolAttr(item map[string]types.AttributeValue, key string, def bool) (bool, error) {
	v, ok := item[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a bool", key)
	}
	return b.Value, nil
}

// stringsAttr accepts a string set or a list of strings; absent means empty.
func stringsAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return []string{}, nil
	}
	switch t := v.(type) {
	case *types.AttributeValueMemberSS:
		return append([]string{}, t.Value...), nil
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(t.Value))
		for _, e := range t.Value {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("repository: attribute %q has a non-string element", key)
			}
			out = append(out, s.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("repository: attribute %q is not a string set or list", key)
}
