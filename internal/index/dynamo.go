package index

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
)

type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

const maxBatch = 25

// Dynamo keeps records in a table keyed by objectID (S).
type Dynamo struct {
	ddb   DynamoDBAPI
	table string
	log   *zap.Logger
	sleep func(time.Duration)
}

func NewDynamo(ddb DynamoDBAPI, table string, lg *zap.Logger) *Dynamo {
	return &Dynamo{ddb: ddb, table: table, log: logging.OrNop(lg), sleep: time.Sleep}
}

// ConfigureSchema is a no-op: the table key is fixed and sorting happens
// client side.
func (d *Dynamo) ConfigureSchema(_ context.Context, s Schema) error {
	d.log.Debug("dynamodb ignores index settings", zap.String("table", d.table), zap.Int("replicas", len(s.Replicas)))
	return nil
}

func (d *Dynamo) Upsert(ctx context.Context, recs []Record) (int, error) {
	written := 0
	for i := 0; i < len(recs); i += maxBatch {
		end := min(i+maxBatch, len(recs))
		reqs := make([]types.WriteRequest, 0, end-i)
		for _, r := range recs[i:end] {
			item, err := attributevalue.MarshalMap(r)
			if err != nil {
				return written, fmt.Errorf("marshal %s: %w", r.ObjectID, err)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := d.batchWriteWithRetry(ctx, reqs); err != nil {
			return written, fmt.Errorf("batch write plays: %w", err)
		}
		written += len(reqs)
	}
	return written, nil
}

type keyRow struct {
	ObjectID string `dynamodbav:"objectID"`
	PlayID   int    `dynamodbav:"play_id"`
}

// DeleteNotIn scans the key attributes and batch deletes the rows whose
// play id is not kept.
func (d *Dynamo) DeleteNotIn(ctx context.Context, keep []int) error {
	if len(keep) == 0 {
		return ErrNoRecords
	}
	kept := make(map[int]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	var stale []types.WriteRequest
	in := &dynamodb.ScanInput{
		TableName:            aws.String(d.table),
		ProjectionExpression: aws.String("objectID, play_id"),
	}
	for {
		out, err := d.ddb.Scan(ctx, in)
		if err != nil {
			return fmt.Errorf("scan %s: %w", d.table, err)
		}
		var rows []keyRow
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return fmt.Errorf("decode scan page: %w", err)
		}
		for _, r := range rows {
			if kept[r.PlayID] {
				continue
			}
			stale = append(stale, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{"objectID": &types.AttributeValueMemberS{Value: r.ObjectID}},
			}})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	for i := 0; i < len(stale); i += maxBatch {
		end := min(i+maxBatch, len(stale))
		if err := d.batchWriteWithRetry(ctx, stale[i:end]); err != nil {
			return fmt.Errorf("batch delete stale plays: %w", err)
		}
	}
	d.log.Info("pruned stale plays", zap.String("table", d.table), zap.Int("deleted", len(stale)))
	return nil
}

func (d *Dynamo) batchWriteWithRetry(ctx context.Context, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{d.table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := d.ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		d.sleep(backoff)
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return fmt.Errorf("unprocessed items remained after retries for table %s", d.table)
}
