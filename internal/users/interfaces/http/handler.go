package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"safedrive/internal/users/application"
	users "safedrive/internal/users/domain"
)

// Handler serves registration, login, refresh and profile endpoints.
type Handler struct {
	service *application.Service
	logger  *log.Logger
}

func NewHandler(service *application.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("users http: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register handles POST /api/v1/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in application.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			respondError(w, http.StatusConflict, "Email already registered")
		case errors.Is(err, users.ErrNotFound):
			respondError(w, http.StatusBadRequest, "Linked driver not found")
		default:
			h.logger.Printf("register failed: email=%s error=%v", in.Email, err)
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondData(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	result, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Printf("login failed: email=%s error=%v", in.Email, err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	respondData(w, http.StatusOK, result)
}

// Refresh handles POST /api/v1/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := h.service.Refresh(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondData(w, http.StatusOK, result)
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, err := h.service.Me(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondData(w, http.StatusOK, user)
}

func respondData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	})
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
