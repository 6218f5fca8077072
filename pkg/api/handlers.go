package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"prestige-scraper/pkg/models"

	scalargo "github.com/bdpiprava/scalar-go"
	log "github.com/sirupsen/logrus"
)

// Reader is the read side of the store the API serves from.
type Reader interface {
	ListProducts(ctx context.Context) ([]models.ProductRecord, error)
	GetDetail(ctx context.Context, url string) (*models.ProductDetail, error)
	ListErrors(ctx context.Context, limit int) ([]models.ScrapeError, error)
	Stats(ctx context.Context, since time.Time) (*models.Stats, error)
}

const (
	defaultErrorLimit = 50
	defaultStatsSince = 24 * time.Hour

	// DefaultSpecDir holds api.yml, the OpenAPI document rendered on "/".
	DefaultSpecDir = "docs"
)

// Handler serves the scraped data read-only.
type Handler struct {
	SpecDir string

	store Reader
	log   *log.Entry
	now   func() time.Time
}

func NewHandler(store Reader, entry *log.Entry) *Handler {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Handler{
		SpecDir: DefaultSpecDir,
		store:   store,
		log:     entry.WithField("component", "api"),
		now:     time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", h.get(h.listProducts))
	mux.HandleFunc("/products/detail", h.get(h.productDetail))
	mux.HandleFunc("/stats", h.get(h.stats))
	mux.HandleFunc("/errors", h.get(h.listErrors))
	mux.HandleFunc("/", h.get(h.docs))
	return mux
}

// docs renders the API reference on "/". Every other unmatched path is a 404.
func (h *Handler) docs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteNotFound(w, fmt.Sprintf("No route for %s. Available: /, /products, /products/detail?url=, /stats, /errors", r.URL.Path), r.URL.Path)
		return
	}

	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(h.SpecDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Prestige Scraper API"),
		),
	)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteMethodNotAllowed(w, r.URL.Path, http.MethodGet)
			return
		}
		next(w, r)
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if products == nil {
		products = []models.ProductRecord{}
	}
	h.writeJSON(w, r, products)
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		WriteInvalidQuery(w, "Missing query parameter: url", r.URL.Path)
		return
	}

	detail, err := h.store.GetDetail(r.Context(), url)
	if errors.Is(err, models.ErrProductNotFound) {
		WriteNotScraped(w, url, r.URL.Path)
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.writeJSON(w, r, detail)
}

// stats counts activity in the last ?since= duration (default 24h).
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsSince
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			WriteInvalidQuery(w, fmt.Sprintf("Invalid since: %q. Expected a positive duration like 24h.", raw), r.URL.Path)
			return
		}
		window = d
	}

	stats, err := h.store.Stats(r.Context(), h.now().Add(-window))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.writeJSON(w, r, stats)
}

func (h *Handler) listErrors(w http.ResponseWriter, r *http.Request) {
	limit := defaultErrorLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteInvalidQuery(w, fmt.Sprintf("Invalid limit: %q. Must be a positive integer.", raw), r.URL.Path)
			return
		}
		limit = n
	}

	scrapeErrors, err := h.store.ListErrors(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if scrapeErrors == nil {
		scrapeErrors = []models.ScrapeError{}
	}
	h.writeJSON(w, r, scrapeErrors)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	WriteInternalServerError(w, err, r.URL.Path)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("Error encoding response")
	}
}
