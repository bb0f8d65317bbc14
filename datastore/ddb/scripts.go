/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/recordstore/datastore"
)

// LoadScript accepts the scripts this backend implements. Nothing has to be
// loaded: all of them are realised with conditional writes.
func (c *Conn) LoadScript(ctx context.Context, name string) error {
	switch name {
	case datastore.ScriptPrimaryKeyClaim, datastore.ScriptUniquenessClaim, datastore.ScriptUniquenessRelease:
		return nil
	}
	return fmt.Errorf("ddb: no implementation for script %q", name)
}

// Eval runs a script as a single conditional write or write transaction.
func (c *Conn) Eval(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	switch name {
	case datastore.ScriptPrimaryKeyClaim:
		return c.claimPrimaryKey(ctx, keys, args)
	case datastore.ScriptUniquenessClaim:
		return c.claimUnique(ctx, keys, args)
	case datastore.ScriptUniquenessRelease:
		return c.releaseUnique(ctx, keys, args)
	}
	return nil, fmt.Errorf("ddb: no implementation for script %q", name)
}

// claimPrimaryKey puts the index member only if it is absent.
func (c *Conn) claimPrimaryKey(ctx context.Context, keys []string, args []any) (any, error) {
	if len(keys) != 1 || len(args) != 2 {
		return nil, fmt.Errorf("%s: expects 1 key and 2 arguments", datastore.ScriptPrimaryKeyClaim)
	}
	score, err := strconv.ParseFloat(datastore.Arg(args[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad score: %w", datastore.ScriptPrimaryKeyClaim, err)
	}
	_, err = c.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           &c.table,
		Item:                scoreItem(keys[0], datastore.Arg(args[1]), score),
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err == nil {
		return int64(1), nil
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return int64(0), nil
	}
	return nil, fmt.Errorf("PutItem failed: %w", err)
}

// claimUnique writes every reverse lookup entry in one transaction. Each put
// requires the entry to be absent or already owned by the claiming record,
// so either all entries are claimed or none.
func (c *Conn) claimUnique(ctx context.Context, keys []string, args []any) (any, error) {
	pk, values, err := uniqueArgs(datastore.ScriptUniquenessClaim, keys, args)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return int64(0), nil
	}
	if len(keys) > maxTransact {
		return nil, fmt.Errorf("%s: at most %d values per claim", datastore.ScriptUniquenessClaim, maxTransact)
	}

	owner := &types.AttributeValueMemberB{Value: []byte(pk)}
	items := make([]types.TransactWriteItem, len(keys))
	for i, key := range keys {
		items[i] = types.TransactWriteItem{Put: &types.Put{
			TableName:           &c.table,
			Item:                valueItem(key, prefixHash+values[i], pk),
			ConditionExpression: aws.String("attribute_not_exists(SK) OR #v = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#v": attrValue,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": owner},
		}}
	}

	_, err = c.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return int64(0), nil
	}
	if pos := conflictPosition(err); pos > 0 {
		return int64(pos), nil
	}
	return nil, fmt.Errorf("TransactWriteItems failed: %w", err)
}

// releaseUnique deletes each reverse lookup entry on the condition that it
// still names pk as its owner. Entries are independent, so no transaction is
// needed.
func (c *Conn) releaseUnique(ctx context.Context, keys []string, args []any) (any, error) {
	pk, values, err := uniqueArgs(datastore.ScriptUniquenessRelease, keys, args)
	if err != nil {
		return nil, err
	}
	owner := &types.AttributeValueMemberB{Value: []byte(pk)}
	var released int64
	for i, key := range keys {
		_, err := c.client.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName:                 &c.table,
			Key:                       keyOf(key, prefixHash+values[i]),
			ConditionExpression:       aws.String("#v = :pk"),
			ExpressionAttributeNames:  map[string]string{"#v": attrValue},
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": owner},
		})
		if err == nil {
			released++
			continue
		}
		var cfe *types.ConditionalCheckFailedException
		if !errors.As(err, &cfe) {
			return nil, fmt.Errorf("DeleteItem failed: %w", err)
		}
	}
	return released, nil
}

func uniqueArgs(script string, keys []string, args []any) (string, []string, error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("%s: expects 2 arguments", script)
	}
	var values []string
	if err := json.Unmarshal([]byte(datastore.Arg(args[1])), &values); err != nil {
		return "", nil, fmt.Errorf("%s: bad values: %w", script, err)
	}
	if len(values) != len(keys) {
		return "", nil, fmt.Errorf("%s: %d keys but %d values", script, len(keys), len(values))
	}
	return datastore.Arg(args[0]), values, nil
}

// conflictPosition returns the 1-based position of the first transaction
// item whose condition failed, or 0.
func conflictPosition(err error) int {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return 0
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return i + 1
		}
	}
	return 0
}
