package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventfeed/internal/infrastructure/postgres"
	"eventfeed/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	createOrderUC *usecase.CreateOrder
	cancelOrderUC *usecase.CancelOrder
	getOrderUC    *usecase.GetOrder
	consumers     *postgres.ConsumerRepository
}

func NewHandlers(
	createOrderUC *usecase.CreateOrder,
	cancelOrderUC *usecase.CancelOrder,
	getOrderUC *usecase.GetOrder,
	consumers *postgres.ConsumerRepository,
) *Handlers {
	return &Handlers{
		createOrderUC: createOrderUC,
		cancelOrderUC: cancelOrderUC,
		getOrderUC:    getOrderUC,
		consumers:     consumers,
	}
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.createOrderUC.Execute(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "CREATED",
		"order_id": id,
	})
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a missing reason is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)

	err := h.cancelOrderUC.Execute(r.Context(), usecase.CancelOrderParams{
		OrderID: id,
		Reason:  req.Reason,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "CANCELLED"})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	o, err := h.getOrderUC.Execute(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

// ListConsumers exposes the checkpoint table for operators: each consumer's
// cursor, topics and freshness, from which the truncation watermark follows.
func (h *Handlers) ListConsumers(w http.ResponseWriter, r *http.Request) {
	consumers, err := h.consumers.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(consumers)
}
