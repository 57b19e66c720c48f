package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/almazgeobur/sales-analyzer/internal/model"
	"github.com/almazgeobur/sales-analyzer/internal/storage"
)

// Store is the read side of the analysis storage.
type Store interface {
	ListAnalyses(ctx context.Context, date string) ([]model.AnalysisReport, error)
	GetAnalysis(ctx context.Context, id int64) (*model.AnalysisReport, error)
	ListProducts(ctx context.Context, f storage.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// ResponseCache stores rendered responses keyed by request URI.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// Server exposes the read-only listing and detail endpoints.
type Server struct {
	store Store
	cache ResponseCache // nil disables caching
	log   *logrus.Logger
}

// NewServer builds the API server. cache may be nil.
func NewServer(store Store, cache ResponseCache, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{store: store, cache: cache, log: log}
}

// Router assembles the chi routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.cached)
		r.Get("/sales_analyses", s.handleListAnalyses)
		r.Get("/sales_analyses/{id}", s.handleGetAnalysis)
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	analysis, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ProductFilter{
		SalesDate: q.Get("sales_date"),
		Name:      q.Get("name"),
		Category:  q.Get("category"),
	}

	var bad []string
	filter.MinQuantity = parseIntParam(q.Get("min_quantity"), &bad)
	filter.MaxQuantity = parseIntParam(q.Get("max_quantity"), &bad)
	filter.MinPrice = parseDecimalParam(q.Get("min_price"), &bad)
	filter.MaxPrice = parseDecimalParam(q.Get("max_price"), &bad)
	if len(bad) > 0 {
		http.Error(w, "invalid query parameter: "+bad[0], http.StatusBadRequest)
		return
	}

	products, err := s.store.ListProducts(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, product)
}

func parseIntParam(raw string, bad *[]string) *int {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*bad = append(*bad, raw)
		return nil
	}
	return &v
}

func parseDecimalParam(raw string, bad *[]string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		*bad = append(*bad, raw)
		return nil
	}
	return &v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.log.Errorf("request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// cached serves successful GET responses from the response cache, keyed by
// the full request URI.
func (s *Server) cached(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "api:" + r.URL.RequestURI()
		if payload, err := s.cache.Get(r.Context(), key); err != nil {
			s.log.Warnf("cache get failed: %v", err)
		} else if payload != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			if err := s.cache.Set(r.Context(), key, rec.body.Bytes()); err != nil {
				s.log.Warnf("cache set failed: %v", err)
			}
		}
	})
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
