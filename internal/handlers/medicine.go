package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/models"
	"mediconnect/internal/services"
)

const maxBodyBytes = 64 << 10

type medicineHandler struct {
	medicines MedicineService
	logger    *logrus.Logger
}

type createMedicineRequest struct {
	Name              string   `json:"name"`
	Brand             string   `json:"brand"`
	Quantity          string   `json:"quantity"`
	ExpiryDate        string   `json:"expiry_date"`
	PurchaseDate      string   `json:"purchase_date"`
	DosageTimes       []string `json:"dosage_times"`
	DosageCount       int      `json:"dosage_count"`
	StockDurationDays int      `json:"stock_duration_days"`
	IsActive          bool     `json:"is_active"`
}

func (req createMedicineRequest) toModel(owner uuid.UUID) (*models.TrackedMedicine, error) {
	expiry, err := time.ParseInLocation(time.DateOnly, req.ExpiryDate, time.Local)
	if err != nil {
		return nil, errors.New("expiry_date must be YYYY-MM-DD")
	}
	m := &models.TrackedMedicine{
		OwnerID:           owner,
		Name:              req.Name,
		Brand:             req.Brand,
		Quantity:          req.Quantity,
		ExpiryDate:        expiry,
		DosageTimes:       req.DosageTimes,
		DosageCount:       req.DosageCount,
		StockDurationDays: req.StockDurationDays,
		IsActive:          req.IsActive,
	}
	if req.PurchaseDate != "" {
		if m.PurchaseDate, err = time.ParseInLocation(time.DateOnly, req.PurchaseDate, time.Local); err != nil {
			return nil, errors.New("purchase_date must be YYYY-MM-DD")
		}
	}
	return m, nil
}

func (h *medicineHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createMedicineRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := req.toModel(userID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.medicines.Create(r.Context(), m); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *medicineHandler) list(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.medicines.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, medicines)
}

func (h *medicineHandler) setReminder(w http.ResponseWriter, r *http.Request) {
	medicineID, err := uuid.Parse(chi.URLParam(r, "medicineID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}

	var cfg services.ReminderConfig
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	m, err := h.medicines.SetReminder(r.Context(), userID(r), medicineID, cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message  string                  `json:"message"`
		Medicine *models.TrackedMedicine `json:"medicine"`
	}{"Reminder set successfully", m})
}

func (h *medicineHandler) delete(w http.ResponseWriter, r *http.Request) {
	medicineID, err := uuid.Parse(chi.URLParam(r, "medicineID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	if err := h.medicines.Delete(r.Context(), userID(r), medicineID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors onto HTTP statuses.
func (h *medicineHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidReminder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
