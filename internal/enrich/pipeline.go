package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentimeter/internal/models"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
	"sentimeter/internal/textanalysis"
)

// JobTypeEnrichEntry names the deferred job the pipeline handles.
const JobTypeEnrichEntry = "enrich_entry"

// Payload is the message enqueued by the create-entry path.
type Payload struct {
	EntryID uuid.UUID `json:"entry_id"`
}

// EntryStore is the slice of persistence the pipeline needs.
type EntryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error)
	CompleteEnrichment(ctx context.Context, id uuid.UUID, enr store.Enrichment) (bool, error)
}

// LocationResolver resolves a coarse location; implementations never fail,
// they return the Unknown sentinel instead.
type LocationResolver interface {
	ByCoordinates(ctx context.Context, lat, lon float64) *models.Location
	ByIP(ctx context.Context, ip string) *models.Location
}

// WeatherProvider returns conditions for a location, sentinel on failure.
type WeatherProvider interface {
	Current(ctx context.Context, loc *models.Location) *models.Weather
}

// TextAnalyzer derives sentiment, keywords, and an embedding from text, and
// renders weather descriptions.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) textanalysis.Result
	DescribeWeather(ctx context.Context, w *models.Weather) string
}

// Pipeline transforms a pending entry into a complete one. It is safe to
// re-invoke: re-delivery of an already-complete entry is a no-op.
type Pipeline struct {
	entries  EntryStore
	location LocationResolver
	weather  WeatherProvider
	analyzer TextAnalyzer
	enc      *services.EncryptionService
	logger   *zap.Logger
	now      func() time.Time
}

func NewPipeline(
	entries EntryStore,
	location LocationResolver,
	weather WeatherProvider,
	analyzer TextAnalyzer,
	enc *services.EncryptionService,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		entries:  entries,
		location: location,
		weather:  weather,
		analyzer: analyzer,
		enc:      enc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handler adapts the pipeline to the job runner.
func (p *Pipeline) Handler(ctx context.Context, payload json.RawMessage) error {
	var pl Payload
	if err := json.Unmarshal(payload, &pl); err != nil {
		return fmt.Errorf("decode enrich payload: %w", err)
	}
	return p.Enrich(ctx, pl.EntryID)
}

// Enrich runs the full enrichment sequence for one entry. Errors before the
// final write propagate to the job runner, which retries with backoff; the
// entry stays pending in the interim.
func (p *Pipeline) Enrich(ctx context.Context, entryID uuid.UUID) error {
	log := p.logger.With(zap.String("entry_id", entryID.String()))

	entry, err := p.entries.GetByID(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("entry gone, skipping enrichment")
		return nil
	}
	if err != nil {
		return err
	}
	if !entry.Processing {
		// Duplicate delivery of a finished job.
		log.Debug("entry already enriched, skipping")
		return nil
	}

	body, err := p.enc.DecryptEntryBody(entry.Body)
	if err != nil {
		return fmt.Errorf("decrypt entry body: %w", err)
	}

	// Explicit coordinates always win over IP-based lookup.
	var loc *models.Location
	switch {
	case entry.Latitude != nil && entry.Longitude != nil:
		loc = p.location.ByCoordinates(ctx, *entry.Latitude, *entry.Longitude)
	case entry.IPAddress != nil && *entry.IPAddress != "":
		loc = p.location.ByIP(ctx, *entry.IPAddress)
	default:
		loc = models.UnknownLocation()
	}

	weather := p.weather.Current(ctx, loc)
	description := p.analyzer.DescribeWeather(ctx, weather)
	res := p.analyzer.Analyze(ctx, body)

	enr := store.Enrichment{
		Sentiment:          res.Sentiment,
		SentimentScore:     res.SentimentScore,
		Keywords:           res.Keywords,
		Location:           loc,
		Weather:            weather,
		WeatherDescription: description,
		Embedding:          res.Embedding,
		EnrichedAt:         p.now(),
	}

	applied, err := p.entries.CompleteEnrichment(ctx, entryID, enr)
	if err != nil {
		return err
	}
	if !applied {
		// A concurrent delivery finished first; the conditional write makes
		// this loser a no-op.
		log.Info("enrichment lost completion race, skipping")
		return nil
	}

	log.Info("entry enriched",
		zap.String("sentiment", res.Sentiment),
		zap.Float64("score", res.SentimentScore),
		zap.String("city", loc.City),
	)
	return nil
}
