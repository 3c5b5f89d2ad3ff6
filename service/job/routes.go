package job

import (
	"encoding/json"
	"errors"
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

const jobsTable = "jobs"

type JobHandler struct {
	db     *gorm.DB
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewJobHandler(db *gorm.DB, hub *realtime.Hub) *JobHandler {
	return &JobHandler{
		db:     db,
		hub:    hub,
		logger: utils.GetLogger(),
	}
}

func (h *JobHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/jobs", h.ListActiveJobs).Methods("GET")
	router.HandleFunc("/jobs/all", h.ListAllJobs).Methods("GET")
	router.HandleFunc("/jobs", h.CreateJob).Methods("POST")
	router.HandleFunc("/jobs/slug/{slug}", h.GetJobBySlug).Methods("GET")
	router.HandleFunc("/jobs/{id:[0-9]+}", h.GetJob).Methods("GET")
	router.HandleFunc("/jobs/{id:[0-9]+}", h.UpdateJob).Methods("PUT")
	router.HandleFunc("/jobs/{id:[0-9]+}/active", h.ToggleActive).Methods("PATCH")
	router.HandleFunc("/jobs/{id:[0-9]+}", h.DeleteJob).Methods("DELETE")
}

type jobRequest struct {
	Title             string                    `json:"title"`
	Department        string                    `json:"department"`
	Location          string                    `json:"location"`
	Type              string                    `json:"type"`
	Description       string                    `json:"description"`
	Requirements      []string                  `json:"requirements"`
	Responsibilities  []string                  `json:"responsibilities"`
	ApplicationLink   string                    `json:"application_link"`
	SalaryRange       string                    `json:"salary_range"`
	ApplicationFields []models.ApplicationField `json:"application_fields"`
}

func (jr *jobRequest) validate() string {
	if strings.TrimSpace(jr.Title) == "" {
		return "Title is required"
	}
	if strings.TrimSpace(jr.Department) == "" || strings.TrimSpace(jr.Location) == "" {
		return "Department and location are required"
	}
	if jr.Type != "" && !models.ValidJobType(jr.Type) {
		return "Unknown job type"
	}
	for _, field := range jr.ApplicationFields {
		if strings.TrimSpace(field.ID) == "" || strings.TrimSpace(field.Label) == "" {
			return "Application fields need an id and a label"
		}
	}
	return ""
}

func (jr *jobRequest) encodedFields() (datatypes.JSON, error) {
	if len(jr.ApplicationFields) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(jr.ApplicationFields)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ListActiveJobs is the public careers listing.
func (h *JobHandler) ListActiveJobs(w http.ResponseWriter, r *http.Request) {
	var jobs []models.JobPost
	if err := h.db.Where("is_active = ?", true).
		Order("created_at DESC").Find(&jobs).Error; err != nil {
		http.Error(w, "Error retrieving jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// ListAllJobs is the admin listing, inactive posts included.
func (h *JobHandler) ListAllJobs(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.JobPost{})

	if department := r.URL.Query().Get("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if active := r.URL.Query().Get("active"); active != "" {
		isActive, err := strconv.ParseBool(active)
		if err != nil {
			http.Error(w, "Invalid active filter, expected true or false", http.StatusBadRequest)
			return
		}
		query = query.Where("is_active = ?", isActive)
	}

	var jobs []models.JobPost
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		http.Error(w, "Error retrieving jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	var job models.JobPost
	if err := h.db.First(&job, jobID).Error; err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// GetJobBySlug serves the public job detail page. Inactive jobs are hidden
// from it.
func (h *JobHandler) GetJobBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	var job models.JobPost
	if err := h.db.Where("slug = ? AND is_active = ?", slug, true).First(&job).Error; err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var createRequest jobRequest
	if err := json.NewDecoder(r.Body).Decode(&createRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := createRequest.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	fields, err := createRequest.encodedFields()
	if err != nil {
		http.Error(w, "Invalid application fields", http.StatusBadRequest)
		return
	}

	jobType := createRequest.Type
	if jobType == "" {
		jobType = models.JobFullTime
	}

	job := models.JobPost{
		Title:             strings.TrimSpace(createRequest.Title),
		Slug:              models.GenerateSlug(createRequest.Title),
		Department:        createRequest.Department,
		Location:          createRequest.Location,
		Type:              jobType,
		Description:       createRequest.Description,
		Requirements:      pq.StringArray(createRequest.Requirements),
		Responsibilities:  pq.StringArray(createRequest.Responsibilities),
		ApplicationLink:   createRequest.ApplicationLink,
		SalaryRange:       createRequest.SalaryRange,
		ApplicationFields: fields,
		IsActive:          true,
	}

	var existing models.JobPost
	err = h.db.Where("slug = ?", job.Slug).First(&existing).Error
	if err == nil {
		http.Error(w, "A job with this title already exists", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Error checking job slug", http.StatusInternalServerError)
		return
	}

	if err := h.db.Create(&job).Error; err != nil {
		h.logger.Error("job create failed", zap.String("slug", job.Slug), zap.Error(err))
		http.Error(w, "Error creating job", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(jobsTable, realtime.ActionInsert, &job)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// UpdateJob replaces the editable fields. The slug follows the title so the
// public URL always matches the posting.
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	var updateRequest jobRequest
	if err := json.NewDecoder(r.Body).Decode(&updateRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := updateRequest.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var job models.JobPost
	if err := h.db.First(&job, jobID).Error; err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	slug := models.GenerateSlug(updateRequest.Title)
	if slug != job.Slug {
		var existing models.JobPost
		err := h.db.Where("slug = ? AND id != ?", slug, job.ID).First(&existing).Error
		if err == nil {
			http.Error(w, "A job with this title already exists", http.StatusConflict)
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Error checking job slug", http.StatusInternalServerError)
			return
		}
	}

	fields, err := updateRequest.encodedFields()
	if err != nil {
		http.Error(w, "Invalid application fields", http.StatusBadRequest)
		return
	}

	job.Title = strings.TrimSpace(updateRequest.Title)
	job.Slug = slug
	job.Department = updateRequest.Department
	job.Location = updateRequest.Location
	if updateRequest.Type != "" {
		job.Type = updateRequest.Type
	}
	job.Description = updateRequest.Description
	job.Requirements = pq.StringArray(updateRequest.Requirements)
	job.Responsibilities = pq.StringArray(updateRequest.Responsibilities)
	job.ApplicationLink = updateRequest.ApplicationLink
	job.SalaryRange = updateRequest.SalaryRange
	job.ApplicationFields = fields

	if err := h.db.Save(&job).Error; err != nil {
		http.Error(w, "Error updating job", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(jobsTable, realtime.ActionUpdate, &job)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *JobHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	var toggleRequest struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&toggleRequest); err != nil || toggleRequest.IsActive == nil {
		http.Error(w, "is_active is required", http.StatusBadRequest)
		return
	}

	var job models.JobPost
	if err := h.db.First(&job, jobID).Error; err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&job).Update("is_active", *toggleRequest.IsActive).Error; err != nil {
		http.Error(w, "Error updating job", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(jobsTable, realtime.ActionUpdate, &job)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.JobPost{}, jobID)
	if result.Error != nil {
		http.Error(w, "Error deleting job", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	h.hub.Broadcast(jobsTable, realtime.ActionDelete, map[string]interface{}{"id": jobID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Job deleted successfully",
	})
}
