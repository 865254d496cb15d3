package validation

import (
	"testing"

	apperrors "github.com/anime-shed/image-descaler/internal/errors"
)

func expectValidationMessage(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %q error, got none", message)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeValidation || appErr.Message != message {
		t.Errorf("Expected validation error %q, got %s: %s", message, appErr.Type, appErr.Message)
	}
}

func TestValidateImageURL_ValidURLs(t *testing.T) {
	validator := NewURLValidator()

	validURLs := []string{
		"http://example.com/image.jpg",
		"https://example.com/image.png",
		"HTTPS://example.com/upscaled.webp",
		"https://subdomain.example.com/path/to/image.gif",
		"http://192.168.1.1:8080/image.jpg",
	}

	for _, url := range validURLs {
		if err := validator.ValidateImageURL(url); err != nil {
			t.Errorf("Expected valid URL %s to pass validation, got error: %v", url, err)
		}
	}
}

func TestValidateImageURL_Rejections(t *testing.T) {
	validator := NewURLValidator()

	testCases := []struct {
		url     string
		message string
	}{
		{"", "URL cannot be empty"},
		{"   ", "URL cannot be empty"},
		{"\t\n", "URL cannot be empty"},
		{"not-a-url", "URL scheme not allowed"},
		{"ftp://example.com/image.jpg", "URL scheme not allowed"},
		{"file://local/path/image.jpg", "URL scheme not allowed"},
		{"data:image/png;base64,iVBORw0KGgo=", "URL scheme not allowed"},
		{"http://", "URL must have a valid host"},
		{"https://", "URL must have a valid host"},
		{"http:///path", "URL must have a valid host"},
		{"https://:8080/x.png", "URL must have a valid host"},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			expectValidationMessage(t, validator.ValidateImageURL(tc.url), tc.message)
		})
	}

	if err := validator.ValidateImageURL("://missing-scheme"); err == nil {
		t.Error("Expected unparsable URL to fail validation")
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"Example.com", "trusted.com"})

	for _, url := range []string{
		"http://example.com/image.jpg",
		"https://EXAMPLE.com:8443/image.jpg",
		"https://trusted.com/image.png",
	} {
		if err := validator.ValidateImageURL(url); err != nil {
			t.Errorf("Expected allowed host URL '%s' to pass validation, got error: %v", url, err)
		}
	}

	for _, url := range []string{
		"http://malicious.com/image.jpg",
		"https://untrusted.com/image.png",
	} {
		err := validator.ValidateImageURL(url)
		expectValidationMessage(t, err, "URL host not allowed")
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Details == "" {
			t.Error("Expected rejected host in details")
		}
	}
}
