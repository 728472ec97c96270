package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"RendaBot/internal/model"
	"RendaBot/internal/secret"
)

type captured struct {
	method, path, query string
	header              http.Header
	body                []byte
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		reqs = append(reqs, captured{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), b})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newStore(url string) *REST {
	log, _ := test.NewNullLogger()
	return NewREST(url+"/", "anon-key", "tok", nil, log)
}

func TestLatestCriteria(t *testing.T) {
	sig, err := secret.Encrypt("2468", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	reply, _ := json.Marshal([]map[string]any{{
		"selecionados":  map[string][]string{"indexador": {"cdi", "ipca"}, "vencimento": {"ate_1_ano"}},
		"assinatura":    sig,
		"limite_compra": 5000,
		"ordem_classe":  []string{"ipca", "cdi", "bogus"},
		"taxa_minima":   map[string]float64{"cdi": 105, "ipca": 7},
	}})
	srv, reqs := newServer(t, http.StatusOK, string(reply))

	c, err := newStore(srv.URL).LatestCriteria(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Signature != "2468" {
		t.Errorf("signature = %q", c.Signature)
	}
	if len(c.ClassOrder) != 2 || c.ClassOrder[0] != model.ClassIPCA {
		t.Errorf("order = %v", c.ClassOrder)
	}
	if c.MinRate(model.ClassCDI) != 105 || c.PurchaseLimit != 5000 {
		t.Errorf("criteria = %+v", c)
	}
	if got := c.EnabledClasses(); len(got) != 2 {
		t.Errorf("enabled = %v", got)
	}

	r := (*reqs)[0]
	if r.method != http.MethodGet || r.path != "/rest/v1/filtros" {
		t.Errorf("request = %s %s", r.method, r.path)
	}
	if r.header.Get("apikey") != "anon-key" || r.header.Get("Authorization") != "Bearer tok" {
		t.Errorf("auth headers = %v", r.header)
	}
	if r.query != "limit=1&order=created_at.desc&select=%2A&user_id=eq.user-1" {
		t.Errorf("query = %s", r.query)
	}
}

func TestLatestCriteriaBadSignatureLeftEmpty(t *testing.T) {
	sig, _ := secret.Encrypt("2468", "someone-else")
	reply, _ := json.Marshal([]map[string]any{{"assinatura": sig + "x"}})
	srv, _ := newServer(t, http.StatusOK, string(reply))
	c, err := newStore(srv.URL).LatestCriteria(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Signature != "" {
		t.Errorf("signature = %q, want empty", c.Signature)
	}
}

func TestLatestCriteriaNone(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "[]")
	if _, err := newStore(srv.URL).LatestCriteria(context.Background(), "u"); !errors.Is(err, ErrNoCriteria) {
		t.Fatalf("err = %v, want ErrNoCriteria", err)
	}
}

func TestInsertPurchasesSingleBatch(t *testing.T) {
	srv, reqs := newServer(t, http.StatusCreated, "")
	recs := []model.PurchaseRecord{
		{AssetName: "LCA X", Class: "cdi", ContractedRate: "12.00%", EffectiveRate: "15.00% (isento IR)",
			MinInvestment: 1000, AppliedAmount: 5000, Maturity: "2026-09-26", PurchasedAt: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{AssetName: "CDB Y", Class: "ipca"},
	}
	if err := newStore(srv.URL).InsertPurchases(context.Background(), "u1", recs); err != nil {
		t.Fatal(err)
	}
	if len(*reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(*reqs))
	}
	r := (*reqs)[0]
	if r.path != "/rest/v1/ativos_comprados" || r.header.Get("Prefer") != "return=minimal" {
		t.Errorf("request = %s prefer=%q", r.path, r.header.Get("Prefer"))
	}
	var rows []map[string]any
	if err := json.Unmarshal(r.body, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := map[string]any{
		"user_id": "u1", "nome_ativo": "LCA X", "indexador": "cdi",
		"taxa_contratada": "12.00%", "taxa_grossup": "15.00% (isento IR)",
		"valor_minimo": 1000.0, "valor_aplicado": 5000.0, "vencimento": "2026-09-26",
		"data_hora_compra": "2026-03-10T10:00:00Z",
	}
	for k, v := range want {
		if rows[0][k] != v {
			t.Errorf("%s = %v, want %v", k, rows[0][k], v)
		}
	}
}

func TestUpsertAverage(t *testing.T) {
	srv, reqs := newServer(t, http.StatusCreated, "")
	avg := model.AverageRate{Date: "2026-03-10", Class: "CDI", Formatted: "110.00% do CDI", TaxExempt: true, Mean: 110, Count: 3}
	if err := newStore(srv.URL).UpsertAverage(context.Background(), "u1", avg); err != nil {
		t.Fatal(err)
	}
	r := (*reqs)[0]
	if r.header.Get("Prefer") != "resolution=merge-duplicates" {
		t.Errorf("prefer = %q", r.header.Get("Prefer"))
	}
	var row map[string]any
	if err := json.Unmarshal(r.body, &row); err != nil {
		t.Fatal(err)
	}
	if row["taxa_media"] != "110.00% do CDI" || row["isento_imposto"] != true || row["user_id"] != "u1" {
		t.Errorf("row = %v", row)
	}
	if _, ok := row["Mean"]; ok {
		t.Error("internal fields must not be sent")
	}
}

func TestRESTErrorStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"message":"JWT expired"}`)
	err := newStore(srv.URL).UpsertAverage(context.Background(), "u1", model.AverageRate{})
	if !errors.Is(err, model.ErrBackingStore) {
		t.Fatalf("err = %v, want ErrBackingStore", err)
	}
}
