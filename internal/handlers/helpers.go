package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type sessionPayload struct {
	ID                string            `json:"id"`
	Step              int               `json:"step"`
	Revision          int64             `json:"revision"`
	Fields            fieldsPayload     `json:"fields"`
	Photo             *photoPayload     `json:"photo,omitempty"`
	ProcessedImageURL string            `json:"processed_image_url,omitempty"`
	CompositionPath   string            `json:"composition_path,omitempty"`
	FieldErrors       map[string]string `json:"field_errors,omitempty"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
}

type fieldsPayload struct {
	CustomerName   string `json:"customer_name"`
	BestieName     string `json:"bestie_name"`
	HairConcern    string `json:"hair_concern,omitempty"`
	ContactName    string `json:"contact_name,omitempty"`
	ContactEmail   string `json:"contact_email,omitempty"`
	ContactPhone   string `json:"contact_phone,omitempty"`
	ContactAddress string `json:"contact_address,omitempty"`
}

type photoPayload struct {
	Source      string       `json:"source"`
	ContentType string       `json:"content_type"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	SizeBytes   int64        `json:"size_bytes"`
	Cropped     bool         `json:"cropped"`
	Crop        *cropPayload `json:"crop,omitempty"`
	UploadedAt  string       `json:"uploaded_at"`
}

type cropPayload struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixel_ratio"`
}

func buildSessionPayload(session domain.WizardSession) sessionPayload {
	payload := sessionPayload{
		ID:       session.ID,
		Step:     int(session.Step),
		Revision: session.Revision,
		Fields: fieldsPayload{
			CustomerName:   session.Fields.CustomerName,
			BestieName:     session.Fields.BestieName,
			HairConcern:    string(session.Fields.HairConcern),
			ContactName:    session.Fields.ContactName,
			ContactEmail:   session.Fields.ContactEmail,
			ContactPhone:   session.Fields.ContactPhone,
			ContactAddress: session.Fields.ContactAddress,
		},
		ProcessedImageURL: session.ProcessedImageURL,
		CompositionPath:   session.CompositionPath,
		FieldErrors:       session.FieldErrors,
		CreatedAt:         formatTime(session.CreatedAt),
		UpdatedAt:         formatTime(session.UpdatedAt),
	}
	if session.Photo != nil {
		photo := &photoPayload{
			Source:      string(session.Photo.Source),
			ContentType: session.Photo.ContentType,
			Width:       session.Photo.Width,
			Height:      session.Photo.Height,
			SizeBytes:   session.Photo.SizeBytes,
			Cropped:     session.Photo.CroppedPath != "",
			UploadedAt:  formatTime(session.Photo.UploadedAt),
		}
		if session.Photo.Crop != nil {
			photo.Crop = &cropPayload{
				X:          session.Photo.Crop.X,
				Y:          session.Photo.Crop.Y,
				Width:      session.Photo.Crop.Width,
				Height:     session.Photo.Crop.Height,
				PixelRatio: session.Photo.Crop.PixelRatio,
			}
		}
		payload.Photo = photo
	}
	return payload
}

type customerPayload struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BestieName  string `json:"bestie_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	HairConcern string `json:"hair_concern"`
	ImageURL    string `json:"image_url,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func buildCustomerPayload(customer domain.Customer) customerPayload {
	return customerPayload{
		ID:          customer.ID,
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		BestieName:  customer.BestieName,
		Email:       customer.Email,
		PhoneNumber: customer.PhoneNumber,
		Address:     customer.Address,
		HairConcern: string(customer.HairConcern),
		ImageURL:    customer.ImageURL,
		Status:      string(customer.Status),
		CreatedAt:   formatTime(customer.CreatedAt),
		UpdatedAt:   formatTime(customer.UpdatedAt),
	}
}
