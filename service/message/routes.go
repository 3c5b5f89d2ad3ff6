package message

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/cmd/utils"
	"github.com/carelinkhq/carelink-server/service/realtime"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const messagesTable = "messages"

type MessageHandler struct {
	db     *gorm.DB
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewMessageHandler(db *gorm.DB, hub *realtime.Hub) *MessageHandler {
	return &MessageHandler{
		db:     db,
		hub:    hub,
		logger: utils.GetLogger(),
	}
}

func (h *MessageHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/messages", h.CreateMessage).Methods("POST")
	router.HandleFunc("/messages", h.GetAllMessages).Methods("GET")
	router.HandleFunc("/messages/{id:[0-9]+}", h.GetMessage).Methods("GET")
	router.HandleFunc("/messages/{id:[0-9]+}/status", h.UpdateStatus).Methods("PATCH")
	router.HandleFunc("/messages/{id:[0-9]+}/reply", h.Reply).Methods("POST")
	router.HandleFunc("/messages/{id:[0-9]+}", h.DeleteMessage).Methods("DELETE")
}

// CreateMessage is the public contact form endpoint.
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var createRequest struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&createRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(createRequest.Name)
	email := strings.TrimSpace(createRequest.Email)
	content := strings.TrimSpace(createRequest.Message)
	if name == "" || email == "" || content == "" {
		http.Error(w, "Name, email and message are required", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		http.Error(w, "Email address is not valid", http.StatusBadRequest)
		return
	}

	msg := models.Message{
		Name:    name,
		Email:   email,
		Content: content,
		Status:  models.MessageNew,
	}
	if err := h.db.Create(&msg).Error; err != nil {
		h.logger.Error("message create failed", zap.Error(err))
		http.Error(w, "Error sending message", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(messagesTable, realtime.ActionInsert, &msg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *MessageHandler) GetAllMessages(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Message{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var messages []models.Message
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&messages).Error; err != nil {
		http.Error(w, "Error retrieving messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages":    messages,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	var msg models.Message
	if err := h.db.First(&msg, messageID).Error; err != nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

// UpdateStatus moves a message along new -> read -> replied -> archived.
// Re-issuing the current status is an idempotent no-op.
func (h *MessageHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidMessageStatus(statusUpdate.Status) {
		http.Error(w, "Unknown message status", http.StatusBadRequest)
		return
	}

	var msg models.Message
	if err := h.db.First(&msg, messageID).Error; err != nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	if !msg.CanTransitionTo(statusUpdate.Status) {
		http.Error(w, fmt.Sprintf("Cannot move message from %s to %s", msg.Status, statusUpdate.Status), http.StatusConflict)
		return
	}

	if err := h.db.Model(&msg).Update("status", statusUpdate.Status).Error; err != nil {
		http.Error(w, "Error updating message status", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(messagesTable, realtime.ActionUpdate, &msg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

// Reply records the staff response and marks the message replied. Sending the
// response to the client happens outside this service.
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	var replyRequest struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&replyRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(replyRequest.Response) == "" {
		http.Error(w, "Response text is required", http.StatusBadRequest)
		return
	}

	var msg models.Message
	if err := h.db.First(&msg, messageID).Error; err != nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	if !msg.CanTransitionTo(models.MessageReplied) {
		http.Error(w, fmt.Sprintf("Cannot reply to a %s message", msg.Status), http.StatusConflict)
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"response":     replyRequest.Response,
		"responded_at": now,
		"status":       models.MessageReplied,
	}
	if err := h.db.Model(&msg).Updates(updates).Error; err != nil {
		http.Error(w, "Error saving reply", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(messagesTable, realtime.ActionUpdate, &msg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Message{}, messageID)
	if result.Error != nil {
		http.Error(w, "Error deleting message", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	h.hub.Broadcast(messagesTable, realtime.ActionDelete, map[string]interface{}{"id": messageID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Message deleted successfully",
	})
}
