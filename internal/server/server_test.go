package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glowmart/promogen/internal/analysis"
	"github.com/glowmart/promogen/internal/imagegen"
	"github.com/glowmart/promogen/internal/pipeline"
	"github.com/glowmart/promogen/internal/promotion"
)

type fakeRunner struct {
	outcome pipeline.Outcome
	called  bool
	country string
}

func (f *fakeRunner) Run(ctx context.Context, countryCode, categoryID string) pipeline.Outcome {
	f.called = true
	f.country = countryCode
	return f.outcome
}

type fakeTrends struct {
	keywords []string
}

func (f *fakeTrends) Extract(ctx context.Context, countryCode, categoryID string) []string {
	return f.keywords
}

type fakeStore struct {
	records map[string]*promotion.Record
}

func (f *fakeStore) Save(ctx context.Context, rec *promotion.Record) (*promotion.Record, error) {
	return rec, nil
}

func (f *fakeStore) ByCountry(ctx context.Context, countryCode string) ([]*promotion.Record, error) {
	var out []*promotion.Record
	for _, r := range f.records {
		if r.CountryCode == countryCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestByCountry(ctx context.Context, countryCode string) (*promotion.Record, error) {
	return nil, promotion.ErrNotFound
}

func (f *fakeStore) ByPlanNo(ctx context.Context, planNo string) (*promotion.Record, error) {
	if r, ok := f.records[planNo]; ok {
		return r, nil
	}
	return nil, promotion.ErrNotFound
}

func (f *fakeStore) Close() error { return nil }

type fakeBanners struct {
	set      imagegen.ImageSet
	lastRefs []string
}

func (f *fakeBanners) SynthesizeWithReferences(ctx context.Context, res analysis.Result, refURLs []string) imagegen.ImageSet {
	f.lastRefs = refURLs
	return f.set
}

func newTestServer(runner Runner) *Server {
	return New(runner, &fakeTrends{}, &fakeStore{}, &fakeBanners{})
}

func postGenerate(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/promotions/generate", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestGenerate_OutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    pipeline.Outcome
		wantStatus int
	}{
		{
			name: "complete is 201",
			outcome: pipeline.Outcome{
				Status: pipeline.StatusComplete,
				Record: &promotion.Record{PlanNo: "PLNDP-KR-1"},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "partial is 200",
			outcome: pipeline.Outcome{
				Status:       pipeline.StatusPartial,
				Record:       &promotion.Record{Title: "T"},
				PersistError: "row too large",
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "incomplete is 502",
			outcome: pipeline.Outcome{
				Status: pipeline.StatusIncomplete,
				Reason: "generation did not complete: missing banner image",
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{outcome: tt.outcome}
			w := postGenerate(t, newTestServer(runner), `{"country_code":"KR","category":"20"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !runner.called {
				t.Fatal("pipeline was not run")
			}

			var got pipeline.Outcome
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("response not an outcome: %v", err)
			}
			if got.Status != tt.outcome.Status {
				t.Errorf("body status = %q, want %q", got.Status, tt.outcome.Status)
			}
		})
	}
}

func TestGenerate_ValidationRejectsBeforePipeline(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"lowercase country", `{"country_code":"kr","category":"20"}`},
		{"long country", `{"country_code":"KOR","category":"20"}`},
		{"empty country", `{"category":"20"}`},
		{"alphabetic category", `{"country_code":"KR","category":"beauty"}`},
		{"oversized category", `{"country_code":"KR","category":"1234567"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			w := postGenerate(t, newTestServer(runner), tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if runner.called {
				t.Error("invalid input must not reach the pipeline")
			}
		})
	}
}

func TestByPlanNo(t *testing.T) {
	store := &fakeStore{records: map[string]*promotion.Record{
		"PLNDP-KR-1700000000000": {PlanNo: "PLNDP-KR-1700000000000", CountryCode: "KR", Title: "Glow Week"},
	}}
	srv := New(&fakeRunner{}, &fakeTrends{}, store, &fakeBanners{})

	req := httptest.NewRequest(http.MethodGet, "/api/promotions/PLNDP-KR-1700000000000", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var rec promotion.Record
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if rec.Title != "Glow Week" {
		t.Errorf("Title = %q", rec.Title)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/promotions/PLNDP-KR-0", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown plan number: status = %d, want 404", w.Code)
	}
}

func TestImages_ForwardsProductReferences(t *testing.T) {
	banners := &fakeBanners{set: imagegen.ImageSet{
		Primary:   imagegen.Image{MIMEType: "image/png", Data: []byte("hero")},
		Secondary: []imagegen.Image{{MIMEType: "image/png", Data: []byte("d1")}},
	}}
	srv := New(&fakeRunner{}, &fakeTrends{}, &fakeStore{}, banners)

	body := `{
		"analysis": {"productIds":["G1"],"targetNation":"KR","promotionTitle":"Glow Week","promotionDescription":"Top picks.","promotionBuzzwords":["glow"]},
		"products": [
			{"id":"G1","image_url":"https://cdn.example.com/g1.jpg"},
			{"id":"G2"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/promotions/images", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(banners.lastRefs) != 1 || banners.lastRefs[0] != "https://cdn.example.com/g1.jpg" {
		t.Errorf("references = %v, want only products with image urls", banners.lastRefs)
	}

	var resp struct {
		Hero    string   `json:"hero_banner_image_url"`
		Details []string `json:"detail_image_urls"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !strings.HasPrefix(resp.Hero, "data:image/png;base64,") {
		t.Errorf("hero = %q, want a data URL", resp.Hero)
	}
	if len(resp.Details) != 1 {
		t.Errorf("details = %v, want one secondary image", resp.Details)
	}
}

func TestImages_EmptySetIs502(t *testing.T) {
	srv := New(&fakeRunner{}, &fakeTrends{}, &fakeStore{}, &fakeBanners{})

	body := `{"analysis": {"productIds":[],"targetNation":"KR","promotionTitle":"T","promotionDescription":"D"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/promotions/images", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestImages_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"bad nation", `{"analysis":{"targetNation":"Korea","promotionTitle":"T"}}`},
		{"missing title", `{"analysis":{"targetNation":"KR"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeRunner{})
			req := httptest.NewRequest(http.MethodPost, "/api/promotions/images", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestList_RequiresCountry(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/promotions?country=KR", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty listing = %q, want []", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/promotions", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing country: status = %d, want 400", w.Code)
	}
}

func TestTrendsEndpoint(t *testing.T) {
	srv := New(&fakeRunner{}, &fakeTrends{keywords: []string{"glow", "serum"}}, &fakeStore{}, &fakeBanners{})

	req := httptest.NewRequest(http.MethodGet, "/api/trends?geo=KR&category=20", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		CountryCode string   `json:"country_code"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.CountryCode != "KR" || len(body.Keywords) != 2 {
		t.Errorf("body = %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/trends?geo=Korea", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid geo: status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestValidCountryCode(t *testing.T) {
	for code, want := range map[string]bool{
		"KR": true, "US": true, "kr": false, "K1": false, "KOR": false, "": false,
	} {
		if got := validCountryCode(code); got != want {
			t.Errorf("validCountryCode(%q) = %v, want %v", code, got, want)
		}
	}
}
