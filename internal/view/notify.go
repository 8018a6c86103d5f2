package view

import (
	"errors"
	"fmt"

	"github.com/five82/vininsight/internal/autodev"
)

// Level grades a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notification is a one-shot blocking message.
type Notification struct {
	Title   string
	Message string
	Level   Level
}

func (n Notification) String() string {
	return fmt.Sprintf("%s: %s", n.Title, n.Message)
}

// DecodeFailed describes a failed decode attempt.
func DecodeFailed(err error) Notification {
	var verr *autodev.ValidationError
	if errors.As(err, &verr) {
		if verr.Field == autodev.FieldAPIKey {
			return Notification{Title: "API Key Required", Message: verr.Message, Level: LevelWarn}
		}
		return Notification{Title: "Error", Message: verr.Message, Level: LevelWarn}
	}
	return Notification{Title: "Decode Error", Message: err.Error(), Level: LevelError}
}

// ConnectionTested describes a connection test outcome.
func ConnectionTested(report autodev.ConnectionReport, err error) Notification {
	if err == nil {
		brand, model := report.Make, report.Model
		if brand == "" {
			brand = "Unknown"
		}
		if model == "" {
			model = "Unknown"
		}
		return Notification{
			Title: "API Test Successful",
			Message: "API connection successful!\n\n" +
				"Sample VIN decoded successfully.\n" +
				"Vehicle: " + brand + " " + model,
			Level: LevelSuccess,
		}
	}

	var (
		verr *autodev.ValidationError
		perr *autodev.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return Notification{
			Title:   "API Key Required",
			Message: "Please enter your auto.dev API key first.",
			Level:   LevelWarn,
		}
	case errors.As(err, &perr):
		return Notification{
			Title:   "API Test Failed",
			Message: "Failed to parse API response. Check your API key.",
			Level:   LevelError,
		}
	default:
		return Notification{
			Title: "API Test Failed",
			Message: "API request failed. Please check:\n" +
				"1. Your API key is valid\n" +
				"2. You have access to VIN decode API\n" +
				"3. Network connectivity",
			Level: LevelError,
		}
	}
}

// KeySaved confirms a credential write.
func KeySaved() Notification {
	return Notification{Title: "Success", Message: "API key saved", Level: LevelSuccess}
}

// KeyCleared confirms a credential removal.
func KeyCleared() Notification {
	return Notification{Title: "Cleared", Message: "API key removed", Level: LevelInfo}
}

// StoreFailed reports a credential store error.
func StoreFailed(action string, err error) Notification {
	return Notification{
		Title:   "Credential Error",
		Message: fmt.Sprintf("Could not %s the API key: %v", action, err),
		Level:   LevelError,
	}
}
