package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/models"
	"mediconnect/internal/services"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UserIDHeader carries the authenticated caller, set by the auth proxy in
// front of this service.
const UserIDHeader = "X-User-ID"

// MedicineService is the owner-scoped write surface the routes need.
type MedicineService interface {
	Create(ctx context.Context, m *models.TrackedMedicine) error
	List(ctx context.Context, ownerID uuid.UUID) ([]models.TrackedMedicine, error)
	SetReminder(ctx context.Context, ownerID, medicineID uuid.UUID, cfg services.ReminderConfig) (*models.TrackedMedicine, error)
	Delete(ctx context.Context, ownerID, medicineID uuid.UUID) error
}

func NewRouter(medicines MedicineService, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.CleanPath,
		requestLogger(logger),
		middleware.Timeout(30*time.Second),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &medicineHandler{medicines: medicines, logger: logger}
	r.Route("/api/user-medicines", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{medicineID}/reminder", h.setReminder)
		r.Delete("/{medicineID}", h.delete)
	})
	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"status":  ww.Status(),
				"method":  r.Method,
				"path":    r.URL.Path,
				"ip":      r.RemoteAddr,
				"size":    ww.BytesWritten(),
				"latency": time.Since(start).String(),
			}).Info("Handled request")
		})
	}
}

type ctxKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+UserIDHeader)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxKey{}).(uuid.UUID)
	return id
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
