package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const (
	maxMetricsPerRequest = 1000
	fetchMetricName      = "MetricSourceFetches"
)

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// FetchMetricsConfig holds configuration for the fetch outcome publisher.
type FetchMetricsConfig struct {
	AWS               AWSConfig
	Namespace         string
	DefaultDimensions map[string]string
	FlushInterval     time.Duration
}

type fetchKey struct {
	kind   string
	status series.Status
}

// FetchMetricsPublisher counts metric source fetches by kind and outcome
// and ships the counts to CloudWatch on every flush.
type FetchMetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	logger            *logger.Logger
	now               func() time.Time

	mu     sync.Mutex
	counts map[fetchKey]int

	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewFetchMetricsPublisher creates the publisher and starts its flush loop.
func NewFetchMetricsPublisher(ctx context.Context, cfg FetchMetricsConfig, log *logger.Logger) (*FetchMetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.AWS.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newFetchMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log)
	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func newFetchMetricsPublisher(client putMetricDataAPI, cfg FetchMetricsConfig, log *logger.Logger) *FetchMetricsPublisher {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	return &FetchMetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		logger:            log,
		now:               time.Now,
		counts:            make(map[fetchKey]int),
		flushInterval:     cfg.FlushInterval,
		stopCh:            make(chan struct{}),
	}
}

// RecordFetch counts one fetch outcome. It never blocks on the network.
func (p *FetchMetricsPublisher) RecordFetch(kind string, status series.Status) {
	p.mu.Lock()
	p.counts[fetchKey{kind: kind, status: status}]++
	p.mu.Unlock()
}

// Flush publishes the counts gathered since the previous flush. Counts of a
// failed flush are dropped.
func (p *FetchMetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	counts := p.counts
	p.counts = make(map[fetchKey]int)
	p.mu.Unlock()

	if len(counts) == 0 {
		return nil
	}

	data := p.buildData(counts, p.now())
	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := min(i+maxMetricsPerRequest, len(data))
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// Close stops the flush loop and publishes what is left.
func (p *FetchMetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()
	return p.Flush(ctx)
}

func (p *FetchMetricsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("CloudWatch fetch metrics flush failed", "error", err.Error())
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

func (p *FetchMetricsPublisher) buildData(counts map[fetchKey]int, at time.Time) []types.MetricDatum {
	keys := make([]fetchKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].status < keys[j].status
	})

	data := make([]types.MetricDatum, 0, len(keys))
	for _, k := range keys {
		dimensions := make([]types.Dimension, 0, len(p.defaultDimensions)+2)
		for name, value := range p.defaultDimensions {
			dimensions = append(dimensions, types.Dimension{Name: aws.String(name), Value: aws.String(value)})
		}
		dimensions = append(dimensions,
			types.Dimension{Name: aws.String("Kind"), Value: aws.String(k.kind)},
			types.Dimension{Name: aws.String("Status"), Value: aws.String(string(k.status))},
		)

		data = append(data, types.MetricDatum{
			MetricName: aws.String(fetchMetricName),
			Value:      aws.Float64(float64(counts[k])),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(at),
			Dimensions: dimensions,
		})
	}
	return data
}
