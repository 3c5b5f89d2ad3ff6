package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxDocumentSize = 10 << 20 // 10 MB
	uploadsURLBase  = "/uploads/applications"
)

// ErrStorageNotConfigured is returned when the document store has no usable
// root directory. Callers surface different operator guidance for this than
// for a generic upload failure.
var ErrStorageNotConfigured = errors.New("document storage is not configured")

// DocumentStore saves application documents under
// {job-id}/{field-id}/{timestamp}_{random}.{ext} and hands back public URLs.
type DocumentStore struct {
	root       string
	publicBase string
}

func NewDocumentStore(root, publicBase string) *DocumentStore {
	return &DocumentStore{root: root, publicBase: publicBase}
}

func NewDocumentStoreFromEnv() *DocumentStore {
	root := os.Getenv("UPLOADS_DIR")
	if root == "" {
		root = "uploads/applications"
	}
	return NewDocumentStore(root, os.Getenv("PUBLIC_BASE_URL"))
}

// Root is the directory documents are written to, for static file serving.
func (s *DocumentStore) Root() string {
	return s.root
}

// SaveDocument stores an uploaded file and returns its public URL.
func (s *DocumentStore) SaveDocument(file multipart.File, header *multipart.FileHeader, jobID uint, fieldID string) (string, error) {
	if s == nil || s.root == "" {
		return "", ErrStorageNotConfigured
	}

	if header.Size > MaxDocumentSize {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", MaxDocumentSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isValidDocumentType(ext) {
		return "", fmt.Errorf("invalid file type: %s", ext)
	}

	key := path.Join(fmt.Sprint(jobID), sanitizeSegment(fieldID))
	dir := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageNotConfigured, err)
	}

	filename := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String()[:8], ext)
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	return s.publicBase + path.Join(uploadsURLBase, key, filename), nil
}

// DeleteDocument removes a previously saved document by its public URL.
// Missing files are not an error.
func (s *DocumentStore) DeleteDocument(url string) error {
	if s == nil || s.root == "" {
		return ErrStorageNotConfigured
	}

	trimmed := strings.TrimPrefix(url, s.publicBase)
	key := strings.TrimPrefix(trimmed, uploadsURLBase+"/")
	if key == trimmed || strings.Contains(key, "..") {
		return fmt.Errorf("not a managed document URL: %s", url)
	}

	filePath := filepath.Join(s.root, filepath.FromSlash(key))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(filePath)
}

func isValidDocumentType(ext string) bool {
	validTypes := map[string]bool{
		".pdf":  true,
		".doc":  true,
		".docx": true,
		".txt":  true,
		".rtf":  true,
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
	return validTypes[ext]
}

// sanitizeSegment keeps field IDs path-safe.
func sanitizeSegment(segment string) string {
	segment = strings.ReplaceAll(segment, "/", "-")
	segment = strings.ReplaceAll(segment, "\\", "-")
	segment = strings.ReplaceAll(segment, "..", "-")
	if segment == "" {
		segment = "field"
	}
	return segment
}
