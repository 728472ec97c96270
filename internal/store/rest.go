package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
)

// REST talks to a PostgREST (Supabase) endpoint with the user's access token.
type REST struct {
	BaseURL string
	APIKey  string
	Token   string
	Client  *http.Client
	Log     logrus.FieldLogger
}

// NewREST creates a REST store. A nil client gets a 30s timeout client.
func NewREST(baseURL, apiKey, token string, client *http.Client, log logrus.FieldLogger) *REST {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &REST{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Token:   token,
		Client:  client,
		Log:     log,
	}
}

func (s *REST) endpoint(table string, q url.Values) string {
	u := s.BaseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (s *REST) do(ctx context.Context, method, u, prefer string, body any) ([]byte, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", model.ErrBackingStore, method, u, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", model.ErrBackingStore, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d, body: %s", model.ErrBackingStore, resp.StatusCode, string(data))
	}
	return data, nil
}

// LatestCriteria fetches the most recently created filter row of the user.
func (s *REST) LatestCriteria(ctx context.Context, userID string) (*model.FilterCriteria, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")
	data, err := s.do(ctx, http.MethodGet, s.endpoint(TableCriteria, q), "", nil)
	if err != nil {
		return nil, err
	}
	var rows []criteriaRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoCriteria
	}
	return rows[0].criteria(userID, s.Log), nil
}

// InsertPurchases writes all records in one request.
func (s *REST) InsertPurchases(ctx context.Context, userID string, recs []model.PurchaseRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]purchaseRow, len(recs))
	for i, r := range recs {
		rows[i] = purchaseRow{UserID: userID, PurchaseRecord: r}
	}
	_, err := s.do(ctx, http.MethodPost, s.endpoint(TablePurchases, nil), "return=minimal", rows)
	return err
}

// UpsertAverage merges one average keyed by (user, date, class, exemption).
func (s *REST) UpsertAverage(ctx context.Context, userID string, avg model.AverageRate) error {
	q := url.Values{}
	q.Set("on_conflict", "user_id,data_referencia,indexador,isento_imposto")
	_, err := s.do(ctx, http.MethodPost, s.endpoint(TableAverages, q), "resolution=merge-duplicates",
		averageRow{UserID: userID, AverageRate: avg})
	return err
}

func (s *REST) Close() error { return nil }
