package handlers

import (
	"time"

	"github.com/google/uuid"

	"sentimeter/internal/models"
	"sentimeter/internal/services"
)

// UserDTO is the wire shape for a user profile, with plaintext email.
type UserDTO struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name,omitempty"`
	CreatedAt string  `json:"created_at"`
	IsAdmin   bool    `json:"is_admin"`
}

// ToUserDTO converts a decrypted User to its wire shape.
func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		IsAdmin:   u.IsAdmin,
	}
}

// EntryDTO is the wire shape for a journal entry, with plaintext body.
// Enrichment fields stay null while the entry is still processing.
type EntryDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Body               string           `json:"body"`
	CreatedAt          time.Time        `json:"created_at"`
	Processing         bool             `json:"processing"`
	Sentiment          *string          `json:"sentiment,omitempty"`
	SentimentScore     *float64         `json:"sentiment_score,omitempty"`
	Keywords           []string         `json:"keywords,omitempty"`
	Location           *models.Location `json:"location,omitempty"`
	Weather            *models.Weather  `json:"weather,omitempty"`
	WeatherDescription *string          `json:"weather_description,omitempty"`
	LastEnrichedAt     *time.Time       `json:"last_enriched_at,omitempty"`
}

// ToEntryDTO decrypts the body and converts an entry to its wire shape.
func ToEntryDTO(e models.JournalEntry, encSvc *services.EncryptionService) (EntryDTO, error) {
	body, err := encSvc.DecryptEntryBody(e.Body)
	if err != nil {
		return EntryDTO{}, err
	}
	return EntryDTO{
		ID:                 e.ID,
		Body:               body,
		CreatedAt:          e.CreatedAt,
		Processing:         e.Processing,
		Sentiment:          e.Sentiment,
		SentimentScore:     e.SentimentScore,
		Keywords:           e.Keywords,
		Location:           e.Location,
		Weather:            e.Weather,
		WeatherDescription: e.WeatherDescription,
		LastEnrichedAt:     e.LastEnrichedAt,
	}, nil
}
