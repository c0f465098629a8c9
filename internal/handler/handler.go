package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/ledger"
	"github.com/ines-sys/real-bank-api-retfull/internal/money"
	"github.com/ines-sys/real-bank-api-retfull/internal/repository"
	"github.com/ines-sys/real-bank-api-retfull/internal/service"
)

// Handler exposes the certificate ledger operations over HTTP.
type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the API routes on a router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/clients", h.CreateClient).Methods("POST")
	r.HandleFunc("/clients", h.ListClients).Methods("GET")
	r.HandleFunc("/clients/{id}", h.UpdateClient).Methods("PUT")
	r.HandleFunc("/clients/{id}/balances", h.GetBalancesForClient).Methods("GET")
	r.HandleFunc("/certificates", h.CreateCertificate).Methods("POST")
	r.HandleFunc("/certificates", h.ListCertificates).Methods("GET")
	r.HandleFunc("/certificates/{id}/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/certificates/{id}/projection", h.GetProjection).Methods("GET")
	r.HandleFunc("/certificates/{id}/deposit", h.Deposit).Methods("POST")
	r.HandleFunc("/certificates/{id}/withdraw", h.Withdraw).Methods("POST")
}

type createClientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// CreateClient handles client creation
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	client, err := h.svc.CreateClient(r.Context(), req.FirstName, req.LastName, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, client)
}

// ListClients handles listing all clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, clients)
}

type updateClientRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// UpdateClient handles partial client updates
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	client, err := h.svc.UpdateClient(r.Context(), id, req.FirstName, req.LastName, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, client)
}

type createCertificateRequest struct {
	ClientID       int64  `json:"client_id"`
	Principal      any    `json:"principal"`
	IssueDate      string `json:"issue_date"`
	ExpirationDate string `json:"expiration_date"`
}

// CreateCertificate handles certificate creation
func (h *Handler) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req createCertificateRequest
	if !h.decode(w, r, &req) {
		return
	}
	cert, err := h.svc.CreateCertificate(r.Context(), req.ClientID, req.Principal, req.IssueDate, req.ExpirationDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, cert)
}

// ListCertificates handles listing all certificates
func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.ListCertificates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, certs)
}

// GetBalance handles the balance view of a single certificate
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	balance, err := h.svc.GetBalance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"balance": balance})
}

// GetBalancesForClient handles the per-client balance listing
func (h *Handler) GetBalancesForClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	balances, err := h.svc.GetBalancesForClient(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balances)
}

// GetProjection handles the monthly gain schedule of a certificate
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	projection, err := h.svc.GetProjection(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, projection)
}

type amountRequest struct {
	Amount any `json:"amount"`
}

// Deposit handles certificate deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Deposit(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Withdraw handles certificate withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Withdraw(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// decode parses a JSON request body. UseNumber keeps monetary amounts as
// json.Number so nothing passes through binary floats on the way in.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP status codes. Validation errors
// are 400, missing records 404, refused transitions and lost races 409,
// everything else an opaque 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidDateOrder):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, repository.ErrConcurrentModification):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Errorf("Internal error: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
