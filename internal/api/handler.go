package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"meddispense/m/domain"
	"meddispense/m/internal/inventory"
	"meddispense/m/internal/logger"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store  *inventory.Store
	logger *zap.Logger
}

// New constructs a Handler.
func New(store *inventory.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, logger: log}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/medicines", h.listMedicines)
		r.Get("/categories", h.listCategories)
		r.Post("/dispense", h.dispense)

		r.Route("/stock", func(r chi.Router) {
			r.Post("/update", h.updateStock)
			r.Get("/{id}", h.stockByID)
		})

		// Polled by the dispensing hardware.
		r.Route("/esp", func(r chi.Router) {
			r.Get("/next", h.dequeue(inventory.DispenseQueue))
			r.Get("/peek", h.peek(inventory.DispenseQueue))
			r.Post("/flush", h.flush(inventory.DispenseQueue))
			r.Get("/store", h.dequeue(inventory.RestockQueue))
			r.Get("/store/peek", h.peek(inventory.RestockQueue))
			r.Post("/store/flush", h.flush(inventory.RestockQueue))
			r.Get("/status", h.queueStatus)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Catalog handlers

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.List())
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Categories())
}

type stockResponse struct {
	ID    string `json:"id"`
	Stock int64  `json:"stock"`
}

func (h *Handler) stockByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stock, err := h.store.Stock(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	respondJSON(w, http.StatusOK, stockResponse{ID: id, Stock: stock})
}

// Dispense

type dispenseResponse struct {
	Status    string                `json:"status"`
	Dispensed []domain.DispenseItem `json:"dispensed"`
}

func (h *Handler) dispense(w http.ResponseWriter, r *http.Request) {
	var items []domain.DispenseItem
	if err := decodeJSON(r, &items); err != nil {
		respondError(w, http.StatusBadRequest, "body must be an array of {id, quantity}")
		return
	}

	entry, err := h.store.Dispense(r.Context(), items)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dispenseResponse{Status: "success", Dispensed: entry.Order})
}

// Stock update

type stockUpdateRequest struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    *float64 `json:"price"`
	Quantity *int64   `json:"quantity"`
	Image    string   `json:"image"`
}

type stockUpdateResponse struct {
	Status   inventory.UpsertStatus `json:"status"`
	Medicine domain.Medicine        `json:"medicine"`
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	var req stockUpdateRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == "" || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "ID and quantity are required.")
		return
	}

	res, err := h.store.Upsert(r.Context(), inventory.UpsertRequest{
		ID:       req.ID,
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Image:    req.Image,
		Quantity: *req.Quantity,
	})
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stockUpdateResponse{Status: res.Status, Medicine: res.Medicine})
}

// Hardware queue handlers

func (h *Handler) dequeue(name inventory.QueueName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := h.store.Dequeue(name)
		if errors.Is(err, inventory.ErrEmpty) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			h.respondStoreError(w, err)
			return
		}
		h.logger.Info("queue entry handed to device",
			zap.String("queue", string(name)),
			zap.String("entry_id", entry.ID.String()),
		)
		respondJSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) peek(name inventory.QueueName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := h.store.Peek(name)
		if errors.Is(err, inventory.ErrEmpty) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			h.respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entry)
	}
}

func (h *Handler) flush(name inventory.QueueName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.store.Flush(name)
		respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
	}
}

type queueStatusResponse struct {
	Dispense int `json:"dispense"`
	Restock  int `json:"restock"`
}

func (h *Handler) queueStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, queueStatusResponse{
		Dispense: h.store.QueueLen(inventory.DispenseQueue),
		Restock:  h.store.QueueLen(inventory.RestockQueue),
	})
}

// Helpers

// respondStoreError maps inventory errors onto the status codes and messages
// the hardware and admin clients expect.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	var (
		notFound *inventory.NotFoundError
		short    *inventory.InsufficientStockError
	)
	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, fmt.Sprintf("Item %s not found", notFound.ID))
	case errors.As(err, &short):
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Not enough stock for %s", short.ID))
	case errors.Is(err, inventory.ErrInvalidNewItem):
		respondError(w, http.StatusBadRequest, "Missing data for new item (name, category, price, image required).")
	case errors.Is(err, inventory.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrPersistence):
		respondError(w, http.StatusInternalServerError, "change applied but could not be saved: "+err.Error())
	default:
		h.logger.Error("unexpected store error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON ignores unknown fields, so cart lines may carry extra display data.
func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
