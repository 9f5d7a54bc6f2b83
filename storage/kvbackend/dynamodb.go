package kvbackend

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDB.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Table attributes.
const (
	attrBucket = "Bucket"
	attrKey    = "Key"
	attrValue  = "Value"
)

// DynamoDB stores key-value pairs in a DynamoDB table.
//
// Keys are split like in Bolt. The table has the partition key Bucket and the
// sort key Key, both strings; see CreateTableInput.
type DynamoDB struct {
	Client    DynamoDBAPI
	TableName string
}

// NewDynamoDB creates a DynamoDB backend from an AWS config.
func NewDynamoDB(cfg aws.Config, tableName string) *DynamoDB {
	return &DynamoDB{
		Client:    dynamodb.NewFromConfig(cfg),
		TableName: tableName,
	}
}

// CreateTableInput returns the input for creating the table.
func (d *DynamoDB) CreateTableInput() *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(d.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrBucket), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrBucket), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrKey), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}

func itemKey(key string) (map[string]types.AttributeValue, error) {
	buc, k, err := boltBucketKey(key)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		attrBucket: &types.AttributeValueMemberS{Value: string(buc)},
		attrKey:    &types.AttributeValueMemberS{Value: string(k)},
	}, nil
}

// Put creates or updates a value.
func (d *DynamoDB) Put(ctx context.Context, key string, value []byte) error {
	item, err := itemKey(key)
	if err != nil {
		return errors.Wrap(err, "put")
	}
	item[attrValue] = &types.AttributeValueMemberB{Value: value}
	_, err = d.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.TableName),
		Item:      item,
	})
	return errors.Wrap(err, "dynamodb put")
}

// Get returns a single value.
func (d *DynamoDB) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := itemKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "get")
	}
	out, err := d.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.TableName),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "dynamodb get")
	}
	if out.Item == nil {
		return nil, errors.Wrap(storage.ErrNotFound, key)
	}
	return bytesValue(out.Item)
}

// Delete deletes a key.
func (d *DynamoDB) Delete(ctx context.Context, key string) error {
	k, err := itemKey(key)
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	_, err = d.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.TableName),
		Key:                      k,
		ConditionExpression:      aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": attrKey},
	})
	var cond *types.ConditionalCheckFailedException
	if errors.As(err, &cond) {
		return errors.Wrap(storage.ErrNotFound, key)
	}
	return errors.Wrap(err, "dynamodb delete")
}

// Scan returns the values in the bucket named by prefix.
func (d *DynamoDB) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	if strings.HasSuffix(prefix, "/") {
		return nil, errors.New("prefix should not contain trailing /")
	}
	p := dynamodb.NewQueryPaginator(d.Client, &dynamodb.QueryInput{
		TableName:                aws.String(d.TableName),
		KeyConditionExpression:   aws.String("#b = :b"),
		ExpressionAttributeNames: map[string]string{"#b": attrBucket},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	})
	ret := make(map[string][]byte)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "dynamodb query")
		}
		for _, item := range page.Items {
			k, ok := item[attrKey].(*types.AttributeValueMemberS)
			if !ok {
				return nil, errors.Errorf("item in %s has no key", prefix)
			}
			v, err := bytesValue(item)
			if err != nil {
				return nil, err
			}
			ret[prefix+"/"+k.Value] = v
		}
	}
	return ret, nil
}

func bytesValue(item map[string]types.AttributeValue) ([]byte, error) {
	switch v := item[attrValue].(type) {
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case nil:
		return []byte{}, nil
	default:
		return nil, errors.Errorf("unexpected value type %T", v)
	}
}
