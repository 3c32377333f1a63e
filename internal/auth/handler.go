package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/docmind/backend/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, hashedPw string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions stores login sessions.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// LogoutHook releases per-user state when a session ends.
type LogoutHook func(ctx context.Context, userID string)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users    UserStore
	sessions Sessions
	validate *validator.Validate
	logger   *zap.Logger
	onLogout []LogoutHook
}

func NewHandler(users UserStore, sessions Sessions, logger *zap.Logger, onLogout ...LogoutHook) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
		onLogout: onLogout,
	}
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"username, email, and password (8+ characters) are required"}`, http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Email, string(hashed))
	if err != nil {
		h.logger.Warn("create user", zap.String("email", req.Email), zap.Error(err))
		http.Error(w, `{"error":"user already exists or database error"}`, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("create session", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL() / time.Second),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Logout destroys the current session and everything held for its user.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		userID, _ := h.sessions.Get(r.Context(), cookie.Value)
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("delete session", zap.Error(err))
		}
		if userID != "" {
			for _, hook := range h.onLogout {
				hook(r.Context(), userID)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"logged out"}`))
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}
