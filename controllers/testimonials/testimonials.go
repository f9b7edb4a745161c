package testimonials

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"akkani-backend/models/testimonials"
)

const maxUploadSize = 64 << 20

// Controller serves testimonial CRUD with image/video attachments stored on
// local disk under UploadDir/images and UploadDir/videos.
type Controller struct {
	DB        *gorm.DB
	UploadDir string
}

// Create accepts a multipart form with the testimonial fields plus optional
// image and video files.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	t := testimonials.Testimonial{
		Name:    r.FormValue("name"),
		Role:    r.FormValue("role"),
		Company: r.FormValue("company"),
		Content: r.FormValue("content"),
	}
	if t.Name == "" || t.Content == "" {
		http.Error(w, "name and content are required", http.StatusBadRequest)
		return
	}
	if raw := r.FormValue("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
			return
		}
		t.Rating = rating
	}
	t.IsFeatured = r.FormValue("is_featured") == "true"

	if path, ok := c.storeUpload(w, r, "image", "images"); !ok {
		return
	} else if path != "" {
		t.ImagePath = path
	}
	if path, ok := c.storeUpload(w, r, "video", "videos"); !ok {
		return
	} else if path != "" {
		t.VideoPath = path
	}

	if err := c.DB.Create(&t).Error; err != nil {
		c.removeFiles(t.ImagePath, t.VideoPath)
		http.Error(w, "Failed to save testimonial", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

// List returns testimonials, newest first. Query parameters: featured,
// limit, offset.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := c.DB.Model(&testimonials.Testimonial{}).Order("created_at desc")
	if r.URL.Query().Get("featured") == "true" {
		query = query.Where("is_featured = ?", true)
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	var items []testimonials.Testimonial
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		http.Error(w, "Failed to list testimonials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// Get returns one testimonial by the id query parameter.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := c.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// Update applies a partial multipart update; new files replace and delete
// the old ones.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	t, ok := c.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	if v := r.FormValue("name"); v != "" {
		t.Name = v
	}
	if v := r.FormValue("role"); v != "" {
		t.Role = v
	}
	if v := r.FormValue("company"); v != "" {
		t.Company = v
	}
	if v := r.FormValue("content"); v != "" {
		t.Content = v
	}
	if raw := r.FormValue("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
			return
		}
		t.Rating = rating
	}
	if raw := r.FormValue("is_featured"); raw != "" {
		t.IsFeatured = raw == "true"
	}

	if path, ok := c.storeUpload(w, r, "image", "images"); !ok {
		return
	} else if path != "" {
		c.removeFiles(t.ImagePath)
		t.ImagePath = path
	}
	if path, ok := c.storeUpload(w, r, "video", "videos"); !ok {
		return
	} else if path != "" {
		c.removeFiles(t.VideoPath)
		t.VideoPath = path
	}

	if err := c.DB.Save(t).Error; err != nil {
		http.Error(w, "Failed to update testimonial", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// Delete removes the row and its stored files.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	t, ok := c.load(w, r)
	if !ok {
		return
	}

	if err := c.DB.Delete(t).Error; err != nil {
		http.Error(w, "Failed to delete testimonial", http.StatusInternalServerError)
		return
	}
	c.removeFiles(t.ImagePath, t.VideoPath)

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) load(w http.ResponseWriter, r *http.Request) (*testimonials.Testimonial, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid testimonial ID", http.StatusBadRequest)
		return nil, false
	}

	var t testimonials.Testimonial
	if err := c.DB.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Testimonial not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return &t, true
}

// storeUpload saves the named form file under subdir with a generated name
// and returns its path relative to UploadDir. A missing file is not an
// error; the second return reports whether the caller should continue.
func (c *Controller) storeUpload(w http.ResponseWriter, r *http.Request, field, subdir string) (string, bool) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", true
	}
	if err != nil {
		http.Error(w, "Failed to read "+field+" file", http.StatusBadRequest)
		return "", false
	}
	defer file.Close()

	path, err := c.saveFile(file, header, subdir)
	if err != nil {
		http.Error(w, "Failed to store "+field+" file", http.StatusInternalServerError)
		return "", false
	}
	return path, true
}

func (c *Controller) saveFile(file multipart.File, header *multipart.FileHeader, subdir string) (string, error) {
	dir := filepath.Join(c.UploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return filepath.Join(subdir, name), nil
}

func (c *Controller) removeFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(filepath.Join(c.UploadDir, p)); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove upload %s: %v", p, err)
		}
	}
}
