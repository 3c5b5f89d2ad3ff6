package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/cmd/utils"
	"github.com/carelinkhq/carelink-server/service/realtime"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const applicationsTable = "job_applications"

// maxSubmissionSize bounds the whole multipart form, files included.
const maxSubmissionSize = 32 << 20

type ApplicationHandler struct {
	db     *gorm.DB
	store  *utils.DocumentStore
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewApplicationHandler(db *gorm.DB, store *utils.DocumentStore, hub *realtime.Hub) *ApplicationHandler {
	return &ApplicationHandler{
		db:     db,
		store:  store,
		hub:    hub,
		logger: utils.GetLogger(),
	}
}

func (h *ApplicationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/jobs/{jobId:[0-9]+}/applications", h.SubmitApplication).Methods("POST")
	router.HandleFunc("/applications", h.GetAllApplications).Methods("GET")
	router.HandleFunc("/applications/{id:[0-9]+}", h.GetApplication).Methods("GET")
	router.HandleFunc("/applications/{id:[0-9]+}/status", h.UpdateStatus).Methods("PATCH")
	router.HandleFunc("/applications/{id:[0-9]+}/notes", h.UpdateNotes).Methods("PATCH")
	router.HandleFunc("/applications/{id:[0-9]+}", h.DeleteApplication).Methods("DELETE")
}

// SubmitApplication accepts a multipart submission against the job's dynamic
// form. Custom text responses arrive as form values named field_{id}; files
// arrive as multipart files named file_{id}.
func (h *ApplicationHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseUint(mux.Vars(r)["jobId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	var job models.JobPost
	if err := h.db.Where("id = ? AND is_active = ?", jobID, true).First(&job).Error; err != nil {
		http.Error(w, "Job not found or no longer accepting applications", http.StatusNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxSubmissionSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("applicant_name"))
	email := strings.TrimSpace(r.FormValue("applicant_email"))
	phone := strings.TrimSpace(r.FormValue("applicant_phone"))
	if name == "" || email == "" || phone == "" {
		http.Error(w, "Name, email and phone are required", http.StatusBadRequest)
		return
	}

	fields, err := job.Fields()
	if err != nil {
		h.logger.Error("job has malformed application fields", zap.Uint("job_id", job.ID), zap.Error(err))
		http.Error(w, "Error reading application form", http.StatusInternalServerError)
		return
	}

	responses := map[string]string{}
	var fileURLs []string

	for _, field := range fields {
		if field.Type == "file" {
			urls, err := h.saveFieldFiles(r, job.ID, field)
			if err != nil {
				h.failUpload(w, fileURLs, field, err)
				return
			}
			if field.Required && len(urls) == 0 {
				h.cleanupFiles(fileURLs)
				http.Error(w, fmt.Sprintf("%s is required", field.Label), http.StatusBadRequest)
				return
			}
			fileURLs = append(fileURLs, urls...)
			continue
		}

		value := strings.TrimSpace(r.FormValue("field_" + field.ID))
		if field.Required && value == "" {
			h.cleanupFiles(fileURLs)
			http.Error(w, fmt.Sprintf("%s is required", field.Label), http.StatusBadRequest)
			return
		}
		if value != "" {
			responses[field.ID] = value
		}
	}

	var customResponses datatypes.JSON
	if len(responses) > 0 {
		raw, err := json.Marshal(responses)
		if err != nil {
			h.cleanupFiles(fileURLs)
			http.Error(w, "Error encoding responses", http.StatusInternalServerError)
			return
		}
		customResponses = datatypes.JSON(raw)
	}

	app := models.JobApplication{
		JobID:           job.ID,
		ApplicantName:   name,
		ApplicantEmail:  email,
		ApplicantPhone:  phone,
		CoverLetter:     r.FormValue("cover_letter"),
		Files:           pq.StringArray(fileURLs),
		CustomResponses: customResponses,
		Status:          models.ApplicationPending,
	}
	if err := h.db.Create(&app).Error; err != nil {
		h.cleanupFiles(fileURLs)
		h.logger.Error("application create failed", zap.Uint("job_id", job.ID), zap.Error(err))
		http.Error(w, "Error submitting application", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(applicationsTable, realtime.ActionInsert, &app)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(app)
}

func (h *ApplicationHandler) saveFieldFiles(r *http.Request, jobID uint, field models.ApplicationField) ([]string, error) {
	headers := r.MultipartForm.File["file_"+field.ID]

	maxFiles := field.MaxFiles
	if maxFiles == 0 {
		maxFiles = 1
	}
	if len(headers) > maxFiles {
		return nil, fmt.Errorf("%s accepts at most %d file(s)", field.Label, maxFiles)
	}

	var urls []string
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return urls, fmt.Errorf("could not read uploaded file: %v", err)
		}
		url, err := h.store.SaveDocument(file, header, jobID, field.ID)
		file.Close()
		if err != nil {
			return urls, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// failUpload maps storage errors to responses. A misconfigured store gets
// distinct operator guidance instead of a generic upload failure.
func (h *ApplicationHandler) failUpload(w http.ResponseWriter, saved []string, field models.ApplicationField, err error) {
	h.cleanupFiles(saved)

	if errors.Is(err, utils.ErrStorageNotConfigured) {
		h.logger.Error("document storage not configured", zap.Error(err))
		http.Error(w, "File uploads are temporarily unavailable. Please contact support or try again later.",
			http.StatusServiceUnavailable)
		return
	}
	http.Error(w, fmt.Sprintf("Could not upload %s: %v", field.Label, err), http.StatusBadRequest)
}

func (h *ApplicationHandler) cleanupFiles(urls []string) {
	for _, url := range urls {
		if err := h.store.DeleteDocument(url); err != nil {
			h.logger.Warn("orphaned application document", zap.String("url", url), zap.Error(err))
		}
	}
}

func (h *ApplicationHandler) GetAllApplications(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.JobApplication{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		id, err := strconv.ParseUint(jobID, 10, 64)
		if err != nil {
			http.Error(w, "Invalid job_id filter", http.StatusBadRequest)
			return
		}
		query = query.Where("job_id = ?", id)
	}

	var total int64
	query.Count(&total)

	var applications []models.JobApplication
	if err := query.Preload("Job").Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&applications).Error; err != nil {
		http.Error(w, "Error retrieving applications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"applications": applications,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var app models.JobApplication
	if err := h.db.Preload("Job").First(&app, applicationID).Error; err != nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

// UpdateStatus applies a review transition. Re-issuing the current status is
// an idempotent no-op.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	applicationID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidApplicationStatus(statusUpdate.Status) {
		http.Error(w, "Unknown application status", http.StatusBadRequest)
		return
	}

	var app models.JobApplication
	if err := h.db.First(&app, applicationID).Error; err != nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	if !app.CanTransitionTo(statusUpdate.Status) {
		http.Error(w, fmt.Sprintf("Cannot move application from %s to %s", app.Status, statusUpdate.Status), http.StatusConflict)
		return
	}

	if err := h.db.Model(&app).Update("status", statusUpdate.Status).Error; err != nil {
		http.Error(w, "Error updating application status", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(applicationsTable, realtime.ActionUpdate, &app)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

func (h *ApplicationHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	applicationID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var notesUpdate struct {
		AdminNotes string `json:"admin_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&notesUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var app models.JobApplication
	if err := h.db.First(&app, applicationID).Error; err != nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&app).Update("admin_notes", notesUpdate.AdminNotes).Error; err != nil {
		http.Error(w, "Error updating notes", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(applicationsTable, realtime.ActionUpdate, &app)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app)
}

// DeleteApplication removes the record and its uploaded documents.
func (h *ApplicationHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var app models.JobApplication
	if err := h.db.First(&app, applicationID).Error; err != nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	if err := h.db.Delete(&app).Error; err != nil {
		http.Error(w, "Error deleting application", http.StatusInternalServerError)
		return
	}

	h.cleanupFiles(app.Files)

	h.hub.Broadcast(applicationsTable, realtime.ActionDelete, map[string]interface{}{"id": applicationID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Application deleted successfully",
	})
}
