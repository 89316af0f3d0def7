package port

import (
	"context"

	"github.com/dreschagin/deploy-board/internal/domain/series"
)

// MetricSource fetches raw bodies from metrics and alerting URLs taken from
// stage configuration.
type MetricSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchRecorder observes the outcome of every metric source fetch.
type FetchRecorder interface {
	RecordFetch(kind string, status series.Status)
}

// FetchRecorders fans one observation out to several recorders.
type FetchRecorders []FetchRecorder

func (rs FetchRecorders) RecordFetch(kind string, status series.Status) {
	for _, r := range rs {
		if r != nil {
			r.RecordFetch(kind, status)
		}
	}
}

// SessionStore resolves a browser session id into the backend token issued
// for it.
type SessionStore interface {
	LookupToken(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}
