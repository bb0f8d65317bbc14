/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/suparena/recordstore/datastore"
)

// stubAPI answers the calls a test sets up and fails every other call.
type stubAPI struct {
	API
	put      func(*sdk.PutItemInput) (*sdk.PutItemOutput, error)
	del      func(*sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error)
	transact func(*sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error)
}

func (s *stubAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	return s.del(in)
}

func (s *stubAPI) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	return s.put(in)
}

func (s *stubAPI) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	return s.transact(in)
}

func TestListSortKeys(t *testing.T) {
	positions := []int64{math.MinInt64, -1000, -1, 0, 1, 42, math.MaxInt64}
	keys := make([]string, len(positions))
	for i, p := range positions {
		keys[i] = listSK(p)
		back, err := listPos(keys[i])
		if err != nil || back != p {
			t.Fatalf("listPos(listSK(%d)) = %d, %v", p, back, err)
		}
	}
	if !sort.StringsAreSorted(keys) {
		t.Fatalf("sort keys out of position order: %v", keys)
	}
	if _, err := listPos("l#zz"); err == nil {
		t.Fatal("expected an error for a malformed sort key")
	}
}

func TestPrimaryKeyClaim(t *testing.T) {
	ctx := context.Background()
	claimed := map[string]bool{}
	stub := &stubAPI{put: func(in *sdk.PutItemInput) (*sdk.PutItemOutput, error) {
		if aws.ToString(in.ConditionExpression) != "attribute_not_exists(SK)" {
			t.Fatalf("unexpected condition %q", aws.ToString(in.ConditionExpression))
		}
		sk := in.Item[attrSK].(*types.AttributeValueMemberS).Value
		if claimed[sk] {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
		claimed[sk] = true
		return &sdk.PutItemOutput{}, nil
	}}
	conn := Wrap(stub, "records", nil)

	res, err := conn.Eval(ctx, datastore.ScriptPrimaryKeyClaim, []string{"User:_records"}, 1.5, "42")
	if n, _ := datastore.Int64(res); err != nil || n != 1 {
		t.Fatalf("first claim = %v, %v", res, err)
	}
	res, err = conn.Eval(ctx, datastore.ScriptPrimaryKeyClaim, []string{"User:_records"}, 2.5, "42")
	if n, _ := datastore.Int64(res); err != nil || n != 0 {
		t.Fatalf("second claim = %v, %v", res, err)
	}
	if !claimed["z#42"] {
		t.Fatalf("claims = %v", claimed)
	}

	stub.put = func(*sdk.PutItemInput) (*sdk.PutItemOutput, error) {
		return nil, errors.New("throttled")
	}
	if _, err := conn.Eval(ctx, datastore.ScriptPrimaryKeyClaim, []string{"User:_records"}, 1.0, "43"); err == nil {
		t.Fatal("transport errors must be returned")
	}
}

func TestUniquenessClaim(t *testing.T) {
	ctx := context.Background()
	cancelled := func(codes ...string) error {
		reasons := make([]types.CancellationReason, len(codes))
		for i, c := range codes {
			reasons[i] = types.CancellationReason{Code: aws.String(c)}
		}
		return &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	tests := []struct {
		name string
		err  error
		want int64
	}{
		{"Success", nil, 0},
		{"SecondConflicts", cancelled("None", "ConditionalCheckFailed", "None"), 2},
		{"FirstConflicts", cancelled("ConditionalCheckFailed", "ConditionalCheckFailed", "None"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *sdk.TransactWriteItemsInput
			conn := Wrap(&stubAPI{transact: func(in *sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error) {
				got = in
				return &sdk.TransactWriteItemsOutput{}, tt.err
			}}, "records", nil)

			res, err := conn.Eval(ctx, datastore.ScriptUniquenessClaim,
				[]string{"User:email", "User:login", "User:phone"}, "42", `["a@x","a","555"]`)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if n, _ := datastore.Int64(res); n != tt.want {
				t.Fatalf("claim = %d, want %d", n, tt.want)
			}
			if len(got.TransactItems) != 3 {
				t.Fatalf("expected one put per value, got %d", len(got.TransactItems))
			}
			put := got.TransactItems[1].Put
			if sk := put.Item[attrSK].(*types.AttributeValueMemberS).Value; sk != "h#a" {
				t.Fatalf("second put SK = %q", sk)
			}
		})
	}

	t.Run("OtherCancellation", func(t *testing.T) {
		conn := Wrap(&stubAPI{transact: func(*sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error) {
			return nil, cancelled("TransactionConflict")
		}}, "records", nil)
		if _, err := conn.Eval(ctx, datastore.ScriptUniquenessClaim, []string{"User:email"}, "42", `["a@x"]`); err == nil {
			t.Fatal("a cancellation without a failed condition is an error")
		}
	})

	t.Run("MismatchedArguments", func(t *testing.T) {
		conn := Wrap(&stubAPI{}, "records", nil)
		if _, err := conn.Eval(ctx, datastore.ScriptUniquenessClaim, []string{"User:email"}, "42", `[]`); err == nil {
			t.Fatal("expected an error for a value count mismatch")
		}
	})
}

func TestUniquenessRelease(t *testing.T) {
	ctx := context.Background()
	owners := map[string]string{"h#a@x": "42", "h#bob": "7"}
	stub := &stubAPI{del: func(in *sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error) {
		if aws.ToString(in.ConditionExpression) != "#v = :pk" {
			t.Fatalf("unexpected condition %q", aws.ToString(in.ConditionExpression))
		}
		sk := in.Key[attrSK].(*types.AttributeValueMemberS).Value
		want := string(in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberB).Value)
		if owners[sk] != want {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("owned elsewhere")}
		}
		delete(owners, sk)
		return &sdk.DeleteItemOutput{}, nil
	}}
	conn := Wrap(stub, "records", nil)

	res, err := conn.Eval(ctx, datastore.ScriptUniquenessRelease, []string{"{User}:email", "{User}:login"}, "42", `["a@x","bob"]`)
	if n, _ := datastore.Int64(res); err != nil || n != 1 {
		t.Fatalf("release = %v, %v", res, err)
	}
	if _, ok := owners["h#a@x"]; ok {
		t.Fatal("own entry should be released")
	}
	if owners["h#bob"] != "7" {
		t.Fatal("entry of another record was released")
	}

	stub.del = func(*sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error) {
		return nil, errors.New("throttled")
	}
	if _, err := conn.Eval(ctx, datastore.ScriptUniquenessRelease, []string{"{User}:email"}, "42", `["a@x"]`); err == nil {
		t.Fatal("transport errors must be returned")
	}
}

func TestScripts(t *testing.T) {
	conn := Wrap(&stubAPI{}, "records", nil)
	for _, name := range []string{datastore.ScriptPrimaryKeyClaim, datastore.ScriptUniquenessClaim, datastore.ScriptUniquenessRelease} {
		if err := conn.LoadScript(context.Background(), name); err != nil {
			t.Errorf("LoadScript(%s) failed: %v", name, err)
		}
	}
	if err := conn.LoadScript(context.Background(), "other"); err == nil {
		t.Fatal("expected an error for an unknown script")
	}
}

// getLiveConn connects to DDB_TEST_TABLE_NAME, skipping when it is unset.
func getLiveConn(t *testing.T) *Conn {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		t.Log("No .env file found, proceeding with environment variables")
	}
	table := os.Getenv("DDB_TEST_TABLE_NAME")
	if table == "" {
		t.Skip("DDB_TEST_TABLE_NAME not set, skipping live test")
	}
	conn, err := New(context.Background(), Options{
		Region:    os.Getenv("AWS_REGION"),
		Table:     table,
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:  os.Getenv("DDB_ENDPOINT"),
	})
	if err != nil {
		t.Fatalf("Failed to create datastore: %v", err)
	}
	return conn
}

func TestLiveCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping live test in short mode")
	}
	conn := getLiveConn(t)
	ctx := context.Background()
	p := fmt.Sprintf("T%s", uuid.NewString())
	var keys []string
	key := func(name string) string {
		k := p + ":" + name
		keys = append(keys, k)
		return k
	}
	t.Cleanup(func() { conn.Del(context.Background(), keys...) })

	t.Run("Counter", func(t *testing.T) {
		k := key("n")
		if err := conn.Set(ctx, k, "10"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if n, err := conn.Incr(ctx, k, 5); err != nil || n != 15 {
			t.Fatalf("Incr = %d, %v", n, err)
		}
		if v, ok, _ := conn.Get(ctx, k); !ok || v != "15" {
			t.Fatalf("Get = %q, %v", v, ok)
		}
	})

	t.Run("List", func(t *testing.T) {
		k := key("l")
		conn.RPush(ctx, k, "b", "c")
		conn.LPush(ctx, k, "a", "z")
		conn.RPush(ctx, k, "c")
		conn.LRem(ctx, k, -1, "c")
		conn.LPop(ctx, k)
		got, err := conn.LRange(ctx, k, 0, -1)
		if err != nil || !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("LRange = %v, %v", got, err)
		}
	})

	t.Run("Hash", func(t *testing.T) {
		k := key("h")
		conn.HSet(ctx, k, map[string]string{"a": "1", "b": "2"})
		conn.HDel(ctx, k, "a")
		got, err := conn.HGetAll(ctx, k)
		if err != nil || !reflect.DeepEqual(got, map[string]string{"b": "2"}) {
			t.Fatalf("HGetAll = %v, %v", got, err)
		}
	})

	t.Run("OrderedSet", func(t *testing.T) {
		k := key("z")
		for i, m := range []string{"a", "b", "c"} {
			conn.Eval(ctx, datastore.ScriptPrimaryKeyClaim, []string{k}, float64(i), m)
		}
		got, _ := conn.ZRangeByScore(ctx, k, datastore.ScoreRange{Min: 1, Max: math.Inf(1), Reverse: true})
		if !reflect.DeepEqual(got, []string{"c", "b"}) {
			t.Fatalf("ZRangeByScore = %v", got)
		}
		if n, _ := conn.ZCard(ctx, k); n != 3 {
			t.Fatalf("ZCard = %d", n)
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		k1, k2 := key("u1"), key("u2")
		conn.HSet(ctx, k2, map[string]string{"taken": "other"})
		res, err := conn.Eval(ctx, datastore.ScriptUniquenessClaim, []string{k1, k2}, "me", `["free","taken"]`)
		if n, _ := datastore.Int64(res); err != nil || n != 2 {
			t.Fatalf("claim = %v, %v", res, err)
		}
		if _, ok, _ := conn.HGet(ctx, k1, "free"); ok {
			t.Fatal("a failed claim must not write")
		}
	})

	t.Run("Pipeline", func(t *testing.T) {
		k := key("s")
		pipe := conn.Pipeline()
		pipe.SAdd(ctx, k, "x", "y", "x")
		pipe.SRem(ctx, k, "y")
		if err := pipe.Exec(ctx); err != nil {
			t.Fatalf("Exec failed: %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for {
			got, _ := conn.SMembers(ctx, k)
			if reflect.DeepEqual(got, []string{"x"}) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("SMembers = %v", got)
			}
			time.Sleep(100 * time.Millisecond)
		}
	})
}
