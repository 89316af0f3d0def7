// Package sitemetrics loads the fixed list of site-wide health charts.
package sitemetrics

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
)

// ObjectReader reads a remote object addressed as s3://bucket/key.
type ObjectReader interface {
	ReadObject(ctx context.Context, location string) ([]byte, error)
}

// Load reads the site metric list from a local YAML file or, for s3://
// locations, through objects. An empty location yields an empty list.
//
// The file is a YAML sequence:
//
//	- title: Site QPS
//	  url: https://statsboard.example.com/api/v1/query?...
func Load(ctx context.Context, location string, objects ObjectReader) ([]entity.MetricConfig, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "s3://") {
		if objects == nil {
			return nil, fmt.Errorf("site metrics location %s needs object storage", location)
		}
		data, err = objects.ReadObject(ctx, location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("read site metrics: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a site metric list.
func Parse(data []byte) ([]entity.MetricConfig, error) {
	var metrics []entity.MetricConfig
	if err := yaml.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("sitemetrics: unmarshal yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(metrics))
	for i, m := range metrics {
		if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.URL) == "" {
			return nil, fmt.Errorf("sitemetrics: entry %d needs a title and a url", i)
		}
		if _, dup := seen[m.Title]; dup {
			return nil, fmt.Errorf("sitemetrics: duplicate title %q", m.Title)
		}
		seen[m.Title] = struct{}{}
	}
	return metrics, nil
}
