// Package server is the HTTP surface over the generation pipeline and the
// promotion store. It validates input, runs the pipeline, and maps the three
// outcome kinds onto distinguishable responses.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/glowmart/promogen/internal/analysis"
	"github.com/glowmart/promogen/internal/imagegen"
	"github.com/glowmart/promogen/internal/pipeline"
	"github.com/glowmart/promogen/internal/promotion"
)

// Runner runs one generation pipeline invocation.
type Runner interface {
	Run(ctx context.Context, countryCode, categoryID string) pipeline.Outcome
}

// TrendSource extracts trend keywords without running the full pipeline.
type TrendSource interface {
	Extract(ctx context.Context, countryCode, categoryID string) []string
}

// BannerSynthesizer regenerates promotion imagery from an existing curation,
// with product images attached as generation references.
type BannerSynthesizer interface {
	SynthesizeWithReferences(ctx context.Context, res analysis.Result, refURLs []string) imagegen.ImageSet
}

// Server holds the route handlers.
type Server struct {
	router  *mux.Router
	runner  Runner
	trends  TrendSource
	store   promotion.Store
	banners BannerSynthesizer
	log     *logrus.Entry
}

// New wires the routes.
func New(runner Runner, trends TrendSource, store promotion.Store, banners BannerSynthesizer) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		runner:  runner,
		trends:  trends,
		store:   store,
		banners: banners,
		log:     logrus.WithField("component", "server"),
	}

	s.router.HandleFunc("/api/promotions/generate", s.handleGenerate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/promotions/images", s.handleImages).Methods(http.MethodPost)
	s.router.HandleFunc("/api/promotions", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/promotions/{plndpNo}", s.handleByPlanNo).Methods(http.MethodGet)
	s.router.HandleFunc("/api/trends", s.handleTrends).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type generateRequest struct {
	CountryCode string `json:"country_code"`
	Category    string `json:"category"`
}

// handleGenerate runs the full pipeline. Malformed country/category input is
// the one failure rejected before the pipeline starts; everything after that
// point resolves to one of the three outcome kinds.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()
	log := s.log.WithField("request_id", reqID)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validCountryCode(req.CountryCode) {
		writeError(w, http.StatusBadRequest, "country_code must be an ISO 3166-1 alpha-2 code")
		return
	}
	if !validCategoryID(req.Category) {
		writeError(w, http.StatusBadRequest, "category must be a numeric category id")
		return
	}

	log.WithFields(logrus.Fields{
		"country":  req.CountryCode,
		"category": req.Category,
	}).Info("generation requested")

	started := time.Now()
	outcome := s.runner.Run(r.Context(), req.CountryCode, req.Category)
	log.WithFields(logrus.Fields{
		"outcome":  outcome.Status,
		"duration": time.Since(started).String(),
	}).Info("generation finished")

	switch outcome.Status {
	case pipeline.StatusComplete:
		writeJSON(w, http.StatusCreated, outcome)
	case pipeline.StatusPartial:
		// Generated content is usable; the caller gets it all, minus a
		// persisted identifier. Not an error status.
		writeJSON(w, http.StatusOK, outcome)
	default:
		// Structured failure, distinct from a transport-level 500: the UI
		// renders "generation did not complete" from this.
		writeJSON(w, http.StatusBadGateway, outcome)
	}
}

type imageRequest struct {
	Analysis analysis.Result     `json:"analysis"`
	Products []promotion.Product `json:"products,omitempty"`
}

// handleImages regenerates banner imagery for a curation the caller already
// holds. Product image URLs ride along as generation references so the model
// can echo the actual merchandise.
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validCountryCode(req.Analysis.TargetNation) {
		writeError(w, http.StatusBadRequest, "analysis.targetNation must be an ISO 3166-1 alpha-2 code")
		return
	}
	if req.Analysis.Title == "" {
		writeError(w, http.StatusBadRequest, "analysis.promotionTitle is required")
		return
	}

	refURLs := make([]string, 0, len(req.Products))
	for _, p := range req.Products {
		if p.ImageURL != "" {
			refURLs = append(refURLs, p.ImageURL)
		}
	}

	s.log.WithFields(logrus.Fields{
		"country":    req.Analysis.TargetNation,
		"references": len(refURLs),
	}).Info("banner regeneration requested")

	set := s.banners.SynthesizeWithReferences(r.Context(), req.Analysis, refURLs)
	if set.Empty() {
		writeError(w, http.StatusBadGateway, "image generation did not produce a banner")
		return
	}

	details := make([]string, 0, len(set.Secondary))
	for _, img := range set.Secondary {
		details = append(details, img.DataURL())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hero_banner_image_url": set.Primary.DataURL(),
		"detail_image_urls":     details,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("geo")
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "0"
	}

	if !validCountryCode(country) {
		writeError(w, http.StatusBadRequest, "geo must be an ISO 3166-1 alpha-2 code")
		return
	}
	if !validCategoryID(category) {
		writeError(w, http.StatusBadRequest, "category must be a numeric category id")
		return
	}

	keywords := s.trends.Extract(r.Context(), country, category)
	writeJSON(w, http.StatusOK, map[string]any{
		"country_code": country,
		"category":     category,
		"keywords":     keywords,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if !validCountryCode(country) {
		writeError(w, http.StatusBadRequest, "country must be an ISO 3166-1 alpha-2 code")
		return
	}

	records, err := s.store.ByCountry(r.Context(), country)
	if err != nil {
		s.log.WithError(err).Error("failed to list promotions")
		writeError(w, http.StatusInternalServerError, "failed to list promotions")
		return
	}
	if records == nil {
		records = []*promotion.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleByPlanNo(w http.ResponseWriter, r *http.Request) {
	planNo := mux.Vars(r)["plndpNo"]

	rec, err := s.store.ByPlanNo(r.Context(), planNo)
	if err == promotion.ErrNotFound {
		writeError(w, http.StatusNotFound, "promotion not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to fetch promotion")
		writeError(w, http.StatusInternalServerError, "failed to fetch promotion")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validCountryCode accepts exactly two ASCII uppercase letters. Semantic
// validation beyond the shape is deliberately not done here; the pipeline
// passes the code through.
func validCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// validCategoryID accepts a non-empty decimal id.
func validCategoryID(s string) bool {
	if s == "" || len(s) > 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
