package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/deploy-board/internal/application/port"
)

type fakeLogsClient struct {
	puts        []*cloudwatchlogs.PutLogEventsInput
	putErrs     []error
	groupErr    error
	streamErr   error
	nextToken   string
	groupCalls  int
	streamCalls int
}

func (f *fakeLogsClient) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.puts = append(f.puts, in)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String(f.nextToken)}, nil
}

func (f *fakeLogsClient) CreateLogGroup(_ context.Context, _ *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	f.groupCalls++
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogsClient) CreateLogStream(_ context.Context, _ *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.streamCalls++
	return &cloudwatchlogs.CreateLogStreamOutput{}, f.streamErr
}

func testLogsConfig() LogsPublisherConfig {
	return LogsPublisherConfig{LogGroupName: "/deploy-board/test", LogStreamName: "test-stream", BufferSize: 10}
}

func TestConvertToLogEvent(t *testing.T) {
	timestamp := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	entry := port.LogEntry{
		Timestamp: timestamp,
		Level:     port.LogLevelWarn,
		Message:   "No usable metric series",
		Fields: map[string]interface{}{
			"title":  "qps",
			"status": "no_data",
			"count":  3,
		},
	}

	event, err := convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}
	if event.Timestamp == nil || *event.Timestamp != timestamp.UnixMilli() {
		t.Errorf("Expected Timestamp=%d, got %v", timestamp.UnixMilli(), event.Timestamp)
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(aws.ToString(event.Message)), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}
	if logData["level"] != "WARN" {
		t.Errorf("Expected level=WARN, got %v", logData["level"])
	}
	if logData["message"] != "No usable metric series" {
		t.Errorf("Unexpected message %v", logData["message"])
	}

	fields, ok := logData["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected fields to be a map")
	}
	if fields["title"] != "qps" || fields["status"] != "no_data" {
		t.Errorf("Unexpected fields %v", fields)
	}
	if count, ok := fields["count"].(float64); !ok || count != 3 {
		t.Errorf("Expected count=3, got %v", fields["count"])
	}
}

func TestConvertToLogEvent_NoFields(t *testing.T) {
	event, err := convertToLogEvent(port.LogEntry{Timestamp: time.Now(), Level: port.LogLevelError, Message: "boom"})
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}
	if strings.Contains(aws.ToString(event.Message), `"fields"`) {
		t.Errorf("fields key present in %s", aws.ToString(event.Message))
	}
}

func TestConvertToLogEvent_Truncation(t *testing.T) {
	entry := port.LogEntry{
		Timestamp: time.Now(),
		Level:     port.LogLevelInfo,
		Message:   strings.Repeat("x", maxLogEventSize+1000),
	}

	event, err := convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	msg := aws.ToString(event.Message)
	if len(msg) != maxLogEventSize {
		t.Errorf("Expected message truncated to %d bytes, got %d", maxLogEventSize, len(msg))
	}
	if !strings.HasSuffix(msg, "...") {
		t.Error("Expected truncation marker '...' at end of message")
	}
}

func TestLogsPublisher_FlushSortsAndTracksToken(t *testing.T) {
	client := &fakeLogsClient{nextToken: "token-1"}
	p := newLogsPublisher(client, testLogsConfig())

	now := time.Now()
	err := p.PublishBatch(context.Background(), []port.LogEntry{
		{Timestamp: now.Add(5 * time.Second), Level: port.LogLevelInfo, Message: "third"},
		{Timestamp: now, Level: port.LogLevelInfo, Message: "first"},
		{Timestamp: now.Add(2 * time.Second), Level: port.LogLevelInfo, Message: "second"},
	})
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if len(client.puts) != 0 {
		t.Fatal("flushed before the buffer was full")
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(client.puts) != 1 {
		t.Fatalf("PutLogEvents called %d times, want 1", len(client.puts))
	}

	events := client.puts[0].LogEvents
	for i, want := range []string{"first", "second", "third"} {
		if !strings.Contains(aws.ToString(events[i].Message), `"message":"`+want+`"`) {
			t.Errorf("event %d = %s, want %s", i, aws.ToString(events[i].Message), want)
		}
	}
	if aws.ToString(p.sequenceToken) != "token-1" {
		t.Errorf("sequence token = %v", p.sequenceToken)
	}
}

func TestLogsPublisher_AutoFlushWhenFull(t *testing.T) {
	client := &fakeLogsClient{}
	cfg := testLogsConfig()
	cfg.BufferSize = 2
	p := newLogsPublisher(client, cfg)

	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), port.LogEntry{Timestamp: time.Now(), Message: "m"}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if len(client.puts) != 1 || len(client.puts[0].LogEvents) != 2 {
		t.Fatalf("puts = %d, want one put with 2 events", len(client.puts))
	}
}

func TestLogsPublisher_InvalidSequenceTokenCorrected(t *testing.T) {
	client := &fakeLogsClient{
		putErrs: []error{&types.InvalidSequenceTokenException{ExpectedSequenceToken: aws.String("expected")}},
	}
	p := newLogsPublisher(client, testLogsConfig())

	_ = p.Publish(context.Background(), port.LogEntry{Timestamp: time.Now(), Message: "m"})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(client.puts) != 2 {
		t.Fatalf("PutLogEvents called %d times, want 2", len(client.puts))
	}
	if aws.ToString(client.puts[1].SequenceToken) != "expected" {
		t.Errorf("second put token = %v", client.puts[1].SequenceToken)
	}
}

func TestLogsPublisher_FailedFlushDropsBuffer(t *testing.T) {
	client := &fakeLogsClient{putErrs: []error{errors.New("throttled")}}
	p := newLogsPublisher(client, testLogsConfig())

	_ = p.Publish(context.Background(), port.LogEntry{Timestamp: time.Now(), Message: "m"})
	if err := p.Flush(context.Background()); err == nil {
		t.Fatal("Flush() error = nil, want put error")
	}
	if len(p.buffer) != 0 {
		t.Fatalf("buffer len = %d after failed flush", len(p.buffer))
	}
}

func TestLogsPublisher_EnsureIgnoresExisting(t *testing.T) {
	client := &fakeLogsClient{
		groupErr:  &types.ResourceAlreadyExistsException{},
		streamErr: &types.ResourceAlreadyExistsException{},
	}
	p := newLogsPublisher(client, testLogsConfig())

	if err := p.ensureLogGroupAndStream(context.Background()); err != nil {
		t.Fatalf("ensureLogGroupAndStream() error = %v", err)
	}
	if client.groupCalls != 1 || client.streamCalls != 1 {
		t.Fatalf("calls = %d/%d", client.groupCalls, client.streamCalls)
	}

	client.streamErr = errors.New("access denied")
	if err := p.ensureLogGroupAndStream(context.Background()); err == nil {
		t.Fatal("expected stream error")
	}
}

func TestNewLogsPublisher_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  LogsPublisherConfig
	}{
		{name: "missing log group", cfg: LogsPublisherConfig{LogStreamName: "s", AWS: AWSConfig{Region: "us-east-1"}}},
		{name: "missing log stream", cfg: LogsPublisherConfig{LogGroupName: "g", AWS: AWSConfig{Region: "us-east-1"}}},
		{name: "missing region", cfg: LogsPublisherConfig{LogGroupName: "g", LogStreamName: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLogsPublisher(context.Background(), tt.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
