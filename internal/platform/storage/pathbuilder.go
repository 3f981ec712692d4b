package storage

import (
	"fmt"
	"strings"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	SessionID string
	UploadID  string
	RenderID  string
	FileName  string
}

// BuildPhotoPath composes the object key for an original uploaded photo.
func BuildPhotoPath(params PathParams) (string, error) {
	sessionID, err := validateSegment("sessionID", params.SessionID)
	if err != nil {
		return "", err
	}
	uploadID, err := validateSegment("uploadID", params.UploadID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sessions/%s/photos/%s/%s", sessionID, uploadID, fileName), nil
}

// BuildCroppedPhotoPath composes the object key for the cropped variant of an upload.
func BuildCroppedPhotoPath(params PathParams) (string, error) {
	sessionID, err := validateSegment("sessionID", params.SessionID)
	if err != nil {
		return "", err
	}
	uploadID, err := validateSegment("uploadID", params.UploadID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sessions/%s/photos/%s/cropped/%s", sessionID, uploadID, fileName), nil
}

// BuildCompositionPath composes the object key for a rendered bottle composition.
func BuildCompositionPath(params PathParams) (string, error) {
	sessionID, err := validateSegment("sessionID", params.SessionID)
	if err != nil {
		return "", err
	}
	renderID, err := validateSegment("renderID", params.RenderID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sessions/%s/compositions/%s/%s", sessionID, renderID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
