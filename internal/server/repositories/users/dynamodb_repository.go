package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
)

const tableWaitTimeout = 2 * time.Minute

// DynamoDBAPI is the subset of *dynamodb.Client the repository uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoDBRepository stores one item per account in a table keyed by
// username. A missing table is created on first use.
type DynamoDBRepository struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoDBRepository(client DynamoDBAPI, table string) *DynamoDBRepository {
	return &DynamoDBRepository{client: client, table: table}
}

func (r *DynamoDBRepository) Create(ctx context.Context, account *models.UserAccount) (*models.UserAccount, error) {
	item, err := attributevalue.MarshalMap(account)
	if err != nil {
		return nil, fmt.Errorf("dynamodb marshal: %w", err)
	}

	in := &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{"#u": "username"},
	}

	_, err = r.client.PutItem(ctx, in)
	if isResourceNotFound(err) {
		if err := r.EnsureTable(ctx); err != nil {
			return nil, err
		}
		_, err = r.client.PutItem(ctx, in)
	}

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("dynamodb error: %w", err)
	}

	return account, nil
}

func (r *DynamoDBRepository) GetByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	in := &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
		ConsistentRead: aws.Bool(true),
	}

	out, err := r.client.GetItem(ctx, in)
	if isResourceNotFound(err) {
		if err := r.EnsureTable(ctx); err != nil {
			return nil, err
		}
		out, err = r.client.GetItem(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("dynamodb error: %w", err)
	}

	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	account := &models.UserAccount{}
	if err := attributevalue.UnmarshalMap(out.Item, account); err != nil {
		return nil, fmt.Errorf("dynamodb unmarshal: %w", err)
	}
	account.Role = models.ParseRole(account.Role.String())

	return account, nil
}

// EnsureTable creates the accounts table when it does not exist and waits
// for it to become active.
func (r *DynamoDBRepository) EnsureTable(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err == nil {
		return nil
	}
	if !isResourceNotFound(err) {
		return fmt.Errorf("dynamodb describe table: %w", err)
	}

	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("username"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("username"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		// another instance may be creating the same table
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("dynamodb create table: %w", err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 10 * time.Second
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("dynamodb wait for table: %w", err)
	}

	return nil
}

func isResourceNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return err != nil && errors.As(err, &rnf)
}
