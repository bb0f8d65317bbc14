/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Every store key is one partition. The sort key says what an item holds:
//
//	v            string value (V) or counter (N)
//	h#<field>    hash field, value in V
//	s#<member>   set member
//	l#<pos>      list element at a signed position, value in V
//	z#<member>   ordered set member, score in S
const (
	skValue      = "v"
	prefixHash   = "h#"
	prefixSet    = "s#"
	prefixList   = "l#"
	prefixZSet   = "z#"
	attrPK       = "PK"
	attrSK       = "SK"
	attrValue    = "V"
	attrCounter  = "N"
	attrScore    = "S"
	maxBatch     = 25
	maxTransact  = 100
	incrAttempts = 5
)

// item is the decoded form of any stored item.
type item struct {
	PK string   `dynamodbav:"PK"`
	SK string   `dynamodbav:"SK"`
	V  []byte   `dynamodbav:"V"`
	N  *int64   `dynamodbav:"N"`
	S  *float64 `dynamodbav:"S"`
}

func decodeItems(raw []map[string]types.AttributeValue) ([]item, error) {
	var out []item
	if err := attributevalue.UnmarshalListOfMaps(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return out, nil
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

func valueItem(pk, sk, v string) map[string]types.AttributeValue {
	it := keyOf(pk, sk)
	it[attrValue] = &types.AttributeValueMemberB{Value: []byte(v)}
	return it
}

func scoreItem(pk, member string, score float64) map[string]types.AttributeValue {
	it := keyOf(pk, prefixZSet+member)
	it[attrScore] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(score, 'g', -1, 64)}
	return it
}

// listSK renders a list position so that sort keys order like positions.
func listSK(pos int64) string {
	return fmt.Sprintf("%s%016x", prefixList, uint64(pos)^(1<<63))
}

func listPos(sk string) (int64, error) {
	u, err := strconv.ParseUint(strings.TrimPrefix(sk, prefixList), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad list sort key %q: %w", sk, err)
	}
	return int64(u ^ (1 << 63)), nil
}

func member(sk, prefix string) string {
	return strings.TrimPrefix(sk, prefix)
}
