/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/datastore"
)

// API is the part of the DynamoDB client the store uses. *dynamodb.Client implements it.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
}

var _ API = (*sdk.Client)(nil)

// Options configures New.
type Options struct {
	Region    string
	Table     string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
	Logger   *slog.Logger
}

// Conn implements datastore.Conn on one DynamoDB table with a string
// partition key PK and a string sort key SK.
type Conn struct {
	client API
	table  string
	log    *slog.Logger
}

var _ datastore.Conn = (*Conn)(nil)

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are
// used when given, the default credential chain otherwise.
func NewDynamoDBClient(ctx context.Context, opts Options) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// New creates a DynamoDB client and a Conn on opts.Table.
func New(ctx context.Context, opts Options) (*Conn, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("ddb: no table configured")
	}
	client, err := NewDynamoDBClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	c := Wrap(client, opts.Table, opts.Logger)
	c.log.Debug("dynamodb client initialized",
		slog.String("table", opts.Table),
		slog.String("region", opts.Region))
	return c, nil
}

// Wrap builds a Conn on an existing client.
func Wrap(client API, table string, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Conn{client: client, table: table, log: log}
}

// Encoding implements datastore.Conn. Values are stored as binary attributes,
// keys and members as strings, which DynamoDB requires to be UTF-8.
func (c *Conn) Encoding() string {
	return "utf-8"
}

// Do runs a command through the generic dispatcher.
func (c *Conn) Do(ctx context.Context, args ...any) (any, error) {
	return datastore.Dispatch(ctx, c, args...)
}

// Pipeline implements datastore.Conn.
func (c *Conn) Pipeline() datastore.Pipeline {
	return &pipeline{conn: c}
}
