/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// queryPrefix returns every item of partition pk whose sort key starts with
// prefix, in sort key order, following LastEvaluatedKey across pages.
func (c *Conn) queryPrefix(ctx context.Context, pk, prefix string, forward bool, limit int32) ([]item, error) {
	input := c.prefixInput(pk, prefix)
	input.ScanIndexForward = aws.Bool(forward)
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var out []item
	paginator := sdk.NewQueryPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		items, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if limit > 0 && len(out) >= int(limit) {
			return out[:limit], nil
		}
	}
	return out, nil
}

// countPrefix counts the items of partition pk whose sort key starts with prefix.
func (c *Conn) countPrefix(ctx context.Context, pk, prefix string) (int64, error) {
	input := c.prefixInput(pk, prefix)
	input.Select = types.SelectCount

	var n int64
	paginator := sdk.NewQueryPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("query error: %w", err)
		}
		n += int64(page.Count)
	}
	return n, nil
}

func (c *Conn) prefixInput(pk, prefix string) *sdk.QueryInput {
	cond := "PK = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pk},
	}
	if prefix != "" {
		cond += " AND begins_with(SK, :prefix)"
		values[":prefix"] = &types.AttributeValueMemberS{Value: prefix}
	}
	return &sdk.QueryInput{
		TableName:                 &c.table,
		KeyConditionExpression:    &cond,
		ExpressionAttributeValues: values,
	}
}

// writeBatch sends write requests in chunks, resending unprocessed items with backoff.
func (c *Conn) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	for len(requests) > 0 {
		n := min(len(requests), maxBatch)
		pending := requests[:n]
		requests = requests[n:]

		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
				}
			}
			out, err := c.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{c.table: pending},
			})
			if err != nil {
				return fmt.Errorf("BatchWriteItem failed: %w", err)
			}
			pending = out.UnprocessedItems[c.table]
		}
	}
	return nil
}

func putRequest(it map[string]types.AttributeValue) types.WriteRequest {
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: it}}
}

func deleteRequest(pk, sk string) types.WriteRequest {
	return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: keyOf(pk, sk)}}
}
