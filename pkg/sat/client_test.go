package sat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeParams(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		params     QueryParams
		wantEnd    time.Time
		wantFilter StatusFilter
	}{
		"end before start is pushed forward": {
			params: QueryParams{
				Start:     base,
				End:       base.Add(-time.Hour),
				Direction: DirectionIssued,
			},
			wantEnd:    base.Add(2 * time.Second),
			wantFilter: StatusFilterAll,
		},
		"end equal to start is pushed forward": {
			params: QueryParams{
				Start:     base,
				End:       base,
				Direction: DirectionIssued,
			},
			wantEnd:    base.Add(2 * time.Second),
			wantFilter: StatusFilterAll,
		},
		"end within two seconds is pushed forward": {
			params: QueryParams{
				Start:     base,
				End:       base.Add(time.Second),
				Direction: DirectionIssued,
			},
			wantEnd:    base.Add(2 * time.Second),
			wantFilter: StatusFilterAll,
		},
		"valid window is untouched": {
			params: QueryParams{
				Start:     base,
				End:       base.Add(time.Hour),
				Direction: DirectionIssued,
			},
			wantEnd:    base.Add(time.Hour),
			wantFilter: StatusFilterAll,
		},
		"received CFDI query without filter is narrowed to active": {
			params: QueryParams{
				Start:       base,
				End:         base.Add(time.Hour),
				Direction:   DirectionReceived,
				RequestType: RequestTypeCFDI,
			},
			wantEnd:    base.Add(time.Hour),
			wantFilter: StatusFilterActive,
		},
		"received metadata query keeps its filter": {
			params: QueryParams{
				Start:       base,
				End:         base.Add(time.Hour),
				Direction:   DirectionReceived,
				RequestType: RequestTypeMetadata,
			},
			wantEnd:    base.Add(time.Hour),
			wantFilter: StatusFilterAll,
		},
		"received CFDI query with explicit filter is untouched": {
			params: QueryParams{
				Start:        base,
				End:          base.Add(time.Hour),
				Direction:    DirectionReceived,
				RequestType:  RequestTypeCFDI,
				StatusFilter: StatusFilterCancelled,
			},
			wantEnd:    base.Add(time.Hour),
			wantFilter: StatusFilterCancelled,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeParams(tc.params, zap.NewNop())
			require.Equal(t, tc.wantEnd, got.End)
			require.Equal(t, tc.wantFilter, got.StatusFilter)
			require.Equal(t, tc.params.Start, got.Start)
		})
	}
}

// scriptedClient returns the queued errors in order, then succeeds.
type scriptedClient struct {
	errs     []error
	calls    int
	remoteID string
}

func (s *scriptedClient) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedClient) CreateQuery(context.Context, QueryParams) (string, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return s.remoteID, nil
}

func (s *scriptedClient) VerifyQuery(context.Context, string) (*VerifyResult, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &VerifyResult{Status: QueryStatusFinished}, nil
}

func (s *scriptedClient) DownloadPackage(context.Context, string, string) ([]byte, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []byte("pkg"), nil
}

func newTestRetryingClient(inner Client, retries int) (*RetryingClient, *[]time.Duration) {
	c := NewRetryingClient(inner, retries, zap.NewNop())
	slept := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return c, slept
}

func transientErr() error {
	return &RemoteError{Op: "VerifyQuery", Message: "backend unavailable", Code: 502, Transient: true}
}

func TestRetryingClientTransientThenSuccess(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{errs: []error{transientErr(), transientErr()}}
	client, slept := newTestRetryingClient(inner, 2)

	result, err := client.VerifyQuery(context.Background(), "remote-1")
	require.NoError(t, err)
	require.Equal(t, QueryStatusFinished, result.Status)

	require.Equal(t, 3, inner.calls)
	require.Equal(t, []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}, *slept)
}

func TestRetryingClientExhaustsRetries(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{errs: []error{transientErr(), transientErr(), transientErr(), transientErr()}}
	client, slept := newTestRetryingClient(inner, 2)

	_, err := client.VerifyQuery(context.Background(), "remote-1")
	require.Error(t, err)
	require.True(t, IsRetryable(err))

	// retries + 1 total attempts
	require.Equal(t, 3, inner.calls)
	require.Len(t, *slept, 2)
}

func TestRetryingClientDoesNotRetryRejections(t *testing.T) {
	t.Parallel()

	inner := &scriptedClient{errs: []error{&RejectedError{Op: "CreateQuery", Message: "bad window"}}}
	client, slept := newTestRetryingClient(inner, 2)

	_, err := client.CreateQuery(context.Background(), QueryParams{
		Start: time.Now().Add(-time.Hour),
		End:   time.Now(),
	})
	require.Error(t, err)
	require.True(t, IsRejected(err))

	require.Equal(t, 1, inner.calls)
	require.Empty(t, *slept)
}

func TestRetryingClientNormalizesCreateParams(t *testing.T) {
	t.Parallel()

	var seen QueryParams
	inner := &captureClient{onCreate: func(p QueryParams) { seen = p }}
	client, _ := newTestRetryingClient(inner, 2)

	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.CreateQuery(context.Background(), QueryParams{
		RFC:         "AAA010101AAA",
		Start:       start,
		End:         start,
		Direction:   DirectionReceived,
		RequestType: RequestTypeCFDI,
	})
	require.NoError(t, err)

	require.Equal(t, start.Add(2*time.Second), seen.End)
	require.Equal(t, StatusFilterActive, seen.StatusFilter)
}

type captureClient struct {
	onCreate func(QueryParams)
}

func (c *captureClient) CreateQuery(_ context.Context, p QueryParams) (string, error) {
	c.onCreate(p)
	return "remote-1", nil
}

func (c *captureClient) VerifyQuery(context.Context, string) (*VerifyResult, error) {
	return &VerifyResult{Status: QueryStatusFinished}, nil
}

func (c *captureClient) DownloadPackage(context.Context, string, string) ([]byte, error) {
	return nil, nil
}
