package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo emulates a single table with conditional puts.
type fakeDynamo struct {
	mu          sync.Mutex
	tableExists bool
	items       map[string]map[string]types.AttributeValue
	created     int
	putErr      error
	getErr      error
	lastPut     *dynamodb.PutItemInput
}

func newFakeDynamo(tableExists bool) *fakeDynamo {
	return &fakeDynamo{tableExists: tableExists, items: map[string]map[string]types.AttributeValue{}}
}

func notFound() error {
	return &types.ResourceNotFoundException{Message: aws.String("table not found")}
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if !f.tableExists {
		return nil, notFound()
	}
	key := in.Key["username"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	if !f.tableExists {
		return nil, notFound()
	}
	key := in.Item["username"].(*types.AttributeValueMemberS).Value
	if _, ok := f.items[key]; ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tableExists {
		return nil, notFound()
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func dynAccount(name string) *models.UserAccount {
	return models.NewUserAccount(name, "$2a$10$digest", models.RoleUser, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
}

func TestDynamoDB_CreateAndGet(t *testing.T) {
	fake := newFakeDynamo(true)
	repo := NewDynamoDBRepository(fake, "user_accounts")
	ctx := context.Background()

	_, err := repo.Create(ctx, dynAccount("alice123"))
	require.NoError(t, err)

	require.NotNil(t, fake.lastPut.ConditionExpression)
	assert.Equal(t, "attribute_not_exists(#u)", *fake.lastPut.ConditionExpression)
	assert.Equal(t, "username", fake.lastPut.ExpressionAttributeNames["#u"])
	assert.Equal(t, "user_accounts", *fake.lastPut.TableName)

	got, err := repo.GetByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.Equal(t, "alice123", got.Username)
	assert.Equal(t, "$2a$10$digest", got.PasswordHash)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.True(t, got.CreatedAt.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDynamoDB_CreateDuplicate(t *testing.T) {
	repo := NewDynamoDBRepository(newFakeDynamo(true), "t")
	ctx := context.Background()

	_, err := repo.Create(ctx, dynAccount("bob"))
	require.NoError(t, err)

	dup := dynAccount("bob")
	dup.PasswordHash = "other"
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$digest", got.PasswordHash, "existing record must be untouched")
}

func TestDynamoDB_GetMissing(t *testing.T) {
	repo := NewDynamoDBRepository(newFakeDynamo(true), "t")

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDynamoDB_CreatesMissingTableOnWrite(t *testing.T) {
	fake := newFakeDynamo(false)
	repo := NewDynamoDBRepository(fake, "t")

	_, err := repo.Create(context.Background(), dynAccount("carol"))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.created)
	assert.Len(t, fake.items, 1)
}

func TestDynamoDB_CreatesMissingTableOnRead(t *testing.T) {
	fake := newFakeDynamo(false)
	repo := NewDynamoDBRepository(fake, "t")

	_, err := repo.GetByUsername(context.Background(), "dave")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 1, fake.created)
}

func TestDynamoDB_EnsureTableExisting(t *testing.T) {
	fake := newFakeDynamo(true)
	require.NoError(t, NewDynamoDBRepository(fake, "t").EnsureTable(context.Background()))
	assert.Equal(t, 0, fake.created)
}

func TestDynamoDB_BackendErrorsAreWrapped(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.putErr = errors.New("throttled")
	fake.getErr = errors.New("throttled")
	repo := NewDynamoDBRepository(fake, "t")

	_, err := repo.Create(context.Background(), dynAccount("erin"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Contains(t, err.Error(), "dynamodb error: throttled")

	_, err = repo.GetByUsername(context.Background(), "erin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
