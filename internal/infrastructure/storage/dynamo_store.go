// Package storage persists processed-release and run-metadata records in one
// DynamoDB table, distinguished by a type attribute.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"PressMonitor/internal/domain"
	"PressMonitor/internal/ports"
)

const (
	typeProcessed = "processed-release"
	typeRun       = "run-metadata"

	processedTTL = 365 * 24 * time.Hour
	runTTL       = 30 * 24 * time.Hour
)

// DynamoAPI is the subset of the DynamoDB client the store depends on.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore implements ports.StateStore on a single DynamoDB table.
type DynamoStore struct {
	client DynamoAPI
	table  string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.StateStore = (*DynamoStore)(nil)

// NewDynamoStore wires a DynamoDB client implementation.
func NewDynamoStore(client DynamoAPI, table string, logger *slog.Logger) *DynamoStore {
	return &DynamoStore{client: client, table: table, logger: logger, now: time.Now}
}

// NewClient builds a regional DynamoDB client from the ambient AWS
// credential chain.
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

type processedItem struct {
	ID            string `dynamodbav:"id"`
	RecordType    string `dynamodbav:"type"`
	Title         string `dynamodbav:"title"`
	Company       string `dynamodbav:"company"`
	Date          string `dynamodbav:"date"`
	DateText      string `dynamodbav:"dateText"`
	Link          string `dynamodbav:"link"`
	ProcessedAt   string `dynamodbav:"processedAt"`
	OutcomeStatus string `dynamodbav:"outcomeStatus"`
	OutcomeItemID string `dynamodbav:"outcomeItemId,omitempty"`
	OutcomeError  string `dynamodbav:"outcomeError,omitempty"`
	TTL           int64  `dynamodbav:"ttl"`
}

type runItem struct {
	ID           string `dynamodbav:"id"`
	RecordType   string `dynamodbav:"type"`
	Timestamp    string `dynamodbav:"timestamp"`
	StartTime    string `dynamodbav:"startTime"`
	EndTime      string `dynamodbav:"endTime"`
	WithinWindow bool   `dynamodbav:"withinWindow"`
	Skipped      bool   `dynamodbav:"skipped"`
	SkipReason   string `dynamodbav:"skipReason,omitempty"`
	Success      bool   `dynamodbav:"success"`
	Error        string `dynamodbav:"error,omitempty"`
	Found        int    `dynamodbav:"found"`
	Processed    int    `dynamodbav:"processed"`
	Created      int    `dynamodbav:"created"`
	Skips        int    `dynamodbav:"skips"`
	Failed       int    `dynamodbav:"failed"`
	TTL          int64  `dynamodbav:"ttl"`
}

// Exists reports whether the fingerprint already has a processed record.
func (s *DynamoStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       fingerprintKey(fingerprint),
	})
	if err != nil {
		return false, fmt.Errorf("get item: %w", err)
	}
	return len(out.Item) > 0, nil
}

// FilterUnprocessed returns the candidates absent from the store. Each
// fingerprint costs one round trip, a known ceiling at large batch sizes.
// A lookup failure fails open: the candidate is kept, trading a possible
// duplicate publish attempt (caught downstream) against dropping a new item.
func (s *DynamoStore) FilterUnprocessed(ctx context.Context, releases []domain.PressRelease) ([]domain.PressRelease, error) {
	unprocessed := make([]domain.PressRelease, 0, len(releases))
	for _, release := range releases {
		exists, err := s.Exists(ctx, release.Fingerprint)
		if err != nil {
			s.warn("exists lookup failed, treating as unprocessed", "fingerprint", release.Fingerprint, "error", err)
			unprocessed = append(unprocessed, release)
			continue
		}
		if !exists {
			unprocessed = append(unprocessed, release)
		}
	}
	return unprocessed, nil
}

// MarkProcessed upserts the processed snapshot keyed by fingerprint. Retried
// writes are safe.
func (s *DynamoStore) MarkProcessed(ctx context.Context, release domain.ProcessedRelease) error {
	item := processedItem{
		ID:            release.Fingerprint,
		RecordType:    typeProcessed,
		Title:         release.Title,
		Company:       release.Company,
		Date:          release.Date.UTC().Format(time.RFC3339),
		DateText:      release.DateText,
		Link:          release.Link,
		ProcessedAt:   release.ProcessedAt.UTC().Format(time.RFC3339),
		OutcomeStatus: string(release.Outcome.Status),
		OutcomeItemID: release.Outcome.ItemID,
		OutcomeError:  release.Outcome.Error,
		TTL:           s.now().Add(processedTTL).Unix(),
	}
	return s.putItem(ctx, item)
}

// SaveRunMetadata writes one immutable run record with a time-derived key.
func (s *DynamoStore) SaveRunMetadata(ctx context.Context, meta domain.RunMetadata) error {
	item := runItem{
		ID:           fmt.Sprintf("run-%d", meta.StartTime.UnixMilli()),
		RecordType:   typeRun,
		Timestamp:    meta.StartTime.UTC().Format(time.RFC3339),
		StartTime:    meta.StartTime.UTC().Format(time.RFC3339),
		EndTime:      meta.EndTime.UTC().Format(time.RFC3339),
		WithinWindow: meta.WithinWindow,
		Skipped:      meta.Skipped,
		SkipReason:   meta.SkipReason,
		Success:      meta.Success,
		Error:        meta.Error,
		TTL:          s.now().Add(runTTL).Unix(),
	}
	if meta.Results != nil {
		item.Found = meta.Results.Found
		item.Processed = meta.Results.Processed
		item.Created = meta.Results.Created
		item.Skips = meta.Results.Skipped
		item.Failed = meta.Results.Failed
	}
	return s.putItem(ctx, item)
}

// GetStats scans processed records newer than the window and tallies them by
// outcome.
func (s *DynamoStore) GetStats(ctx context.Context, windowDays int) (domain.ProcessingStats, error) {
	stats := domain.ProcessingStats{WindowDays: windowDays}
	cutoff := s.now().AddDate(0, 0, -windowDays).UTC().Format(time.RFC3339)

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("#t = :t AND processedAt > :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#t": "type",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t":      &types.AttributeValueMemberS{Value: typeProcessed},
				":cutoff": &types.AttributeValueMemberS{Value: cutoff},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return stats, fmt.Errorf("scan processed: %w", err)
		}

		for _, raw := range out.Items {
			var item processedItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.warn("skip unreadable processed record", "error", err)
				continue
			}
			stats.Total++
			switch domain.PublishStatus(item.OutcomeStatus) {
			case domain.StatusCreated:
				stats.Created++
			case domain.StatusSkipped:
				stats.Skipped++
			case domain.StatusFailed:
				stats.Failed++
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return stats, nil
}

// GetLastRunTime returns the most recent run-metadata timestamp.
func (s *DynamoStore) GetLastRunTime(ctx context.Context) (time.Time, bool, error) {
	var latest time.Time
	found := false

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("#t = :t"),
			ExpressionAttributeNames: map[string]string{
				"#t": "type",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: typeRun},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return time.Time{}, false, fmt.Errorf("scan runs: %w", err)
		}

		for _, raw := range out.Items {
			var item runItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339, item.Timestamp)
			if err != nil {
				continue
			}
			if !found || ts.After(latest) {
				latest = ts
				found = true
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return latest, found, nil
}

// Ping verifies the table is reachable and active.
func (s *DynamoStore) Ping(ctx context.Context) error {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
		return fmt.Errorf("table %s is not active", s.table)
	}
	return nil
}

func (s *DynamoStore) putItem(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func fingerprintKey(fingerprint string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: fingerprint},
	}
}

func (s *DynamoStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
