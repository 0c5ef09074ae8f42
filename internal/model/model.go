package model

import "time"

// EventDateTime is the start or end of a provider event. Timed events carry
// DateTime (RFC 3339); all-day events carry only Date (YYYY-MM-DD).
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// RawEvent is a calendar event as delivered by a provider (Google Calendar
// or an expanded ICS occurrence). Only the fields below are read.
type RawEvent struct {
	ID          string         `json:"id"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Start       *EventDateTime `json:"start,omitempty"`
	End         *EventDateTime `json:"end,omitempty"`
	Location    string         `json:"location,omitempty"`
	HangoutLink string         `json:"hangoutLink,omitempty"`
}

// Interview is the normalized record shown on the dashboard.
type Interview struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Description string `json:"description"`
	Location    string `json:"location"`
	MeetingLink string `json:"meetingLink"`
}

// User is the signed-in Google account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Settings are the per-user toggles from the settings page.
type Settings struct {
	EmailNotifications bool      `json:"emailNotifications"`
	PracticeReminders  bool      `json:"practiceReminders"`
	CalendarSync       bool      `json:"calendarSync"`
	DataSharing        bool      `json:"dataSharing"`
	UpdatedAt          time.Time `json:"updatedAt,omitzero"`
}

// DefaultSettings is what a user sees before saving anything.
func DefaultSettings() Settings {
	return Settings{EmailNotifications: true}
}

// MockInterview is a practice session started from the mock-interview page.
type MockInterview struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Type       string    `json:"type"`
	Difficulty string    `json:"difficulty"`
	Status     string    `json:"status"`
	Score      *int      `json:"score"`
	Minutes    int       `json:"minutes"`
	CreatedAt  time.Time `json:"createdAt"`
}
