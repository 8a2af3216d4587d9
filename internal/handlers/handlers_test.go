package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/crypto"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/ingest"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/metrics"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/store"
)

// fakeStore fails every call with err when set.
type fakeStore struct {
	err      error
	inserted []*models.Message
}

func (f *fakeStore) Close() {}

func (f *fakeStore) Ping(context.Context) error { return f.err }

func (f *fakeStore) InsertIfAbsent(_ context.Context, msg *models.Message) (store.InsertOutcome, error) {
	if f.err != nil {
		return 0, f.err
	}
	for _, m := range f.inserted {
		if m.MessageID == msg.MessageID {
			return store.Duplicate, nil
		}
	}
	f.inserted = append(f.inserted, msg)
	return store.Inserted, nil
}

func (f *fakeStore) Query(context.Context, models.MessageFilter, int, int) ([]models.Message, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.Message{}, 0, nil
}

func (f *fakeStore) Aggregate(context.Context) (*models.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Stats{MessagesPerSender: []models.SenderCount{}}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestHandler(t *testing.T, s store.MessageStore, secret string) *Handler {
	t.Helper()
	var v *crypto.Verifier
	if secret != "" {
		var err error
		v, err = crypto.NewVerifier(secret)
		require.NoError(t, err)
	}
	return NewHandler(s, ingest.NewPipeline(v, s), zerolog.Nop(), PageLimits{Default: 50, Max: 100})
}

func signedRequest(secret, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(crypto.SignatureHeader, crypto.Sign(secret, []byte(body)))
	return req
}

func TestWebhookResults(t *testing.T) {
	const secret = "s3cret"
	valid := `{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":"hi"}`

	tests := []struct {
		name       string
		storeErr   error
		req        *http.Request
		wantStatus int
		wantResult ingest.Result
	}{
		{"created", nil, signedRequest(secret, valid), http.StatusOK, ingest.ResultCreated},
		{"bad signature", nil, signedRequest("other", valid), http.StatusUnauthorized, ingest.ResultInvalidSignature},
		{"invalid payload", nil, signedRequest(secret, `{"message_id":""}`), http.StatusUnprocessableEntity, ingest.ResultValidationError},
		{"store down", fmt.Errorf("%w: insert: disk I/O error", store.ErrUnavailable), signedRequest(secret, valid), http.StatusServiceUnavailable, ingest.ResultStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeStore{err: tt.storeErr}, secret)
			counter := metrics.WebhookRequestsTotal.WithLabelValues(string(tt.wantResult))
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			h.Webhook(rec, tt.req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestWebhookDuplicateAnswersOK(t *testing.T) {
	const secret = "s3cret"
	body := `{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":"hi"}`
	fs := &fakeStore{}
	h := newTestHandler(t, fs, secret)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.Webhook(rec, signedRequest(secret, body))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
	assert.Len(t, fs.inserted, 1)
}

func TestWebhookNotConfigured(t *testing.T) {
	fs := &fakeStore{}
	h := newTestHandler(t, fs, "")

	rec := httptest.NewRecorder()
	h.Webhook(rec, signedRequest("", `{"message_id":"m1"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"webhook secret not configured"}`, rec.Body.String())
	assert.Empty(t, fs.inserted)
}

func TestReadStoreUnavailable(t *testing.T) {
	h := newTestHandler(t, &fakeStore{err: fmt.Errorf("%w: query: closed", store.ErrUnavailable)}, "s3cret")

	rec := httptest.NewRecorder()
	h.ListMessages(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"storage unavailable"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadUnexpectedError(t *testing.T) {
	h := newTestHandler(t, &fakeStore{err: errors.New("boom")}, "s3cret")

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestReadyReportsOptionalDependencies(t *testing.T) {
	h := newTestHandler(t, &fakeStore{}, "s3cret")
	h.Report("redis", fakePinger{err: errors.New("connection refused")})
	h.Report("nats", fakePinger{})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "warn", resp.Checks["redis"].Status)
	assert.Equal(t, "pass", resp.Checks["nats"].Status)
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	h := newTestHandler(t, &fakeStore{err: store.ErrUnavailable}, "s3cret")

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseListParams(t *testing.T) {
	limits := PageLimits{Default: 50, Max: 100}
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantFilter models.MessageFilter
		wantFields []string
	}{
		{name: "defaults", query: "", wantLimit: 50},
		{name: "explicit", query: "limit=10&offset=20", wantLimit: 10, wantOffset: 20},
		{name: "limit above max", query: "limit=500", wantLimit: 100},
		{name: "negative values", query: "limit=-1&offset=-9", wantLimit: 0},
		{name: "filters", query: "from=u1&q=Hello&since=2024-01-01T00:00:00Z", wantLimit: 50,
			wantFilter: models.MessageFilter{From: "u1", Query: "Hello", Since: &since}},
		{name: "offset-less since is utc", query: "since=2024-01-01T00:00:00", wantLimit: 50,
			wantFilter: models.MessageFilter{Since: &since}},
		{name: "all bad", query: "limit=x&offset=y&since=yesterday",
			wantFields: []string{"limit", "offset", "since"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			p, err := parseListParams(q, limits)
			if tt.wantFields != nil {
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				var got []string
				for _, f := range verr.Fields {
					got = append(got, f.Field)
				}
				assert.Equal(t, tt.wantFields, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, p.limit)
			assert.Equal(t, tt.wantOffset, p.offset)
			assert.Equal(t, tt.wantFilter.From, p.filter.From)
			assert.Equal(t, tt.wantFilter.Query, p.filter.Query)
			if tt.wantFilter.Since == nil {
				assert.Nil(t, p.filter.Since)
			} else {
				require.NotNil(t, p.filter.Since)
				assert.True(t, tt.wantFilter.Since.Equal(*p.filter.Since))
			}
		})
	}
}
