package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

func TestGetServiceMetricsUseCase_MixedResults(t *testing.T) {
	catalog := &mockCatalog{metrics: []entity.MetricConfig{
		{Title: "qps", URL: "http://tsdb/qps"},
		{Title: "errors", URL: "http://tsdb/errors"},
		{Title: "latency", URL: "http://tsdb/latency"},
	}}
	source := &mockSource{
		bodies: map[string]string{
			"http://tsdb/qps":    `{"data":[{"datapoints":[[100,3],[200,5]]}]}`,
			"http://tsdb/errors": `[]`,
		},
		errs: map[string]error{"http://tsdb/latency": errBackendDown},
	}
	recorder := &mockRecorder{}

	uc := NewGetServiceMetricsUseCase(catalog, source, recorder, nil, logger.New("error"))
	got, err := uc.Execute(context.Background(), "web", "prod")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	body, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"html":{"errors":0,"latency":0,"qps":[[100,3],[200,5]]}}`
	if string(body) != want {
		t.Fatalf("body = %s, want %s", body, want)
	}

	if got.HTML["latency"].Status != series.StatusFailed {
		t.Fatalf("latency status = %s, want failed", got.HTML["latency"].Status)
	}
	if len(recorder.records) != 3 {
		t.Fatalf("recorded %d fetches, want 3", len(recorder.records))
	}
	for _, r := range recorder.records {
		if r.kind != fetchKindServiceMetric {
			t.Fatalf("kind = %q, want %q", r.kind, fetchKindServiceMetric)
		}
	}
}

func TestGetServiceMetricsUseCase_ConfigErrorPropagates(t *testing.T) {
	catalog := &mockCatalog{configErr: errBackendDown}
	uc := NewGetServiceMetricsUseCase(catalog, &mockSource{}, nil, nil, logger.New("error"))

	_, err := uc.Execute(context.Background(), "web", "prod")
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v, want wrapped errBackendDown", err)
	}
}

func TestGetServiceMetricsUseCase_EmptyConfig(t *testing.T) {
	uc := NewGetServiceMetricsUseCase(&mockCatalog{}, &mockSource{}, nil, nil, logger.New("error"))

	got, err := uc.Execute(context.Background(), "web", "prod")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	body, _ := json.Marshal(got)
	if string(body) != `{"html":{}}` {
		t.Fatalf("body = %s", body)
	}
}

func TestGetServiceMetricsUseCase_Site(t *testing.T) {
	site := []entity.MetricConfig{{Title: "site qps", URL: "http://tsdb/site"}}
	source := &mockSource{bodies: map[string]string{
		"http://tsdb/site": `[{"dps":{"20":1,"10":2}}]`,
	}}
	recorder := &mockRecorder{}

	uc := NewGetServiceMetricsUseCase(&mockCatalog{}, source, recorder, site, logger.New("error"))
	got := uc.ExecuteSite(context.Background())

	res := got.HTML["site qps"]
	if !res.Usable() || len(res.Points) != 2 || res.Points[0].Timestamp != 10 {
		t.Fatalf("site result = %+v", res)
	}
	if len(recorder.records) != 1 || recorder.records[0].kind != fetchKindSiteMetric {
		t.Fatalf("records = %+v", recorder.records)
	}
}
