package enrich

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentimeter/internal/models"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
	"sentimeter/internal/textanalysis"
)

type fakeEntryStore struct {
	entry     *models.JournalEntry
	getErr    error
	completed *store.Enrichment
	applied   bool
	compErr   error
}

func (f *fakeEntryStore) GetByID(context.Context, uuid.UUID) (*models.JournalEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entry, nil
}

func (f *fakeEntryStore) CompleteEnrichment(_ context.Context, _ uuid.UUID, enr store.Enrichment) (bool, error) {
	f.completed = &enr
	return f.applied, f.compErr
}

type fakeResolver struct {
	byCoords *models.Location
	byIP     *models.Location

	coordsCalled bool
	ipCalled     bool
}

func (f *fakeResolver) ByCoordinates(context.Context, float64, float64) *models.Location {
	f.coordsCalled = true
	return f.byCoords
}

func (f *fakeResolver) ByIP(context.Context, string) *models.Location {
	f.ipCalled = true
	return f.byIP
}

type fakeWeather struct {
	weather *models.Weather
}

func (f *fakeWeather) Current(context.Context, *models.Location) *models.Weather {
	return f.weather
}

type fakeAnalyzer struct {
	result      textanalysis.Result
	description string
}

func (f *fakeAnalyzer) Analyze(context.Context, string) textanalysis.Result {
	return f.result
}

func (f *fakeAnalyzer) DescribeWeather(context.Context, *models.Weather) string {
	return f.description
}

func testEncryption(t *testing.T) *services.EncryptionService {
	t.Helper()
	enc, err := services.NewEncryptionService(
		bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	require.NoError(t, err)
	return enc
}

func pendingEntry(t *testing.T, enc *services.EncryptionService) *models.JournalEntry {
	t.Helper()
	body, err := enc.EncryptEntryBody("walked to the lake, felt calm")
	require.NoError(t, err)
	return &models.JournalEntry{
		ID:         uuid.New(),
		UserID:     1,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
		Processing: true,
	}
}

func newTestPipeline(entries *fakeEntryStore, resolver *fakeResolver, weather *fakeWeather, analyzer *fakeAnalyzer, enc *services.EncryptionService) *Pipeline {
	return NewPipeline(entries, resolver, weather, analyzer, enc, zap.NewNop())
}

func TestEnrichCompletesEntry(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)

	lat, lon := 52.52, 13.40
	entry.Latitude, entry.Longitude = &lat, &lon

	entries := &fakeEntryStore{entry: entry, applied: true}
	resolver := &fakeResolver{byCoords: &models.Location{City: "Berlin", Country: "Germany"}}
	weather := &fakeWeather{weather: &models.Weather{Description: "clear sky", Temperature: 21}}
	analyzer := &fakeAnalyzer{
		result: textanalysis.Result{
			Sentiment:      "positive",
			SentimentScore: 0.9,
			Keywords:       []string{"lake", "calm"},
			Embedding:      []float64{0.1, 0.2},
		},
		description: "Clear sky, 21.0°C.",
	}

	p := newTestPipeline(entries, resolver, weather, analyzer, enc)
	require.NoError(t, p.Enrich(context.Background(), entry.ID))

	require.NotNil(t, entries.completed)
	enr := entries.completed
	assert.Equal(t, "positive", enr.Sentiment)
	assert.InDelta(t, 0.9, enr.SentimentScore, 1e-9)
	assert.Equal(t, models.StringList{"lake", "calm"}, enr.Keywords)
	assert.Equal(t, "Berlin", enr.Location.City)
	assert.Equal(t, "clear sky", enr.Weather.Description)
	assert.Equal(t, "Clear sky, 21.0°C.", enr.WeatherDescription)
	assert.Equal(t, models.Vector{0.1, 0.2}, enr.Embedding)
	assert.False(t, enr.EnrichedAt.IsZero())
}

func TestEnrichCoordinatesBeatIP(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)

	lat, lon := 48.85, 2.35
	ip := "203.0.113.9"
	entry.Latitude, entry.Longitude = &lat, &lon
	entry.IPAddress = &ip

	entries := &fakeEntryStore{entry: entry, applied: true}
	resolver := &fakeResolver{
		byCoords: &models.Location{City: "Paris"},
		byIP:     &models.Location{City: "Elsewhere"},
	}
	p := newTestPipeline(entries, resolver, &fakeWeather{weather: models.UnknownWeather()}, &fakeAnalyzer{}, enc)

	require.NoError(t, p.Enrich(context.Background(), entry.ID))
	assert.True(t, resolver.coordsCalled)
	assert.False(t, resolver.ipCalled)
	assert.Equal(t, "Paris", entries.completed.Location.City)
}

func TestEnrichFallsBackToIP(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)
	ip := "203.0.113.9"
	entry.IPAddress = &ip

	entries := &fakeEntryStore{entry: entry, applied: true}
	resolver := &fakeResolver{byIP: &models.Location{City: "Lisbon"}}
	p := newTestPipeline(entries, resolver, &fakeWeather{weather: models.UnknownWeather()}, &fakeAnalyzer{}, enc)

	require.NoError(t, p.Enrich(context.Background(), entry.ID))
	assert.True(t, resolver.ipCalled)
	assert.Equal(t, "Lisbon", entries.completed.Location.City)
}

func TestEnrichNoLocationInputs(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)

	entries := &fakeEntryStore{entry: entry, applied: true}
	resolver := &fakeResolver{}
	p := newTestPipeline(entries, resolver, &fakeWeather{weather: models.UnknownWeather()}, &fakeAnalyzer{}, enc)

	require.NoError(t, p.Enrich(context.Background(), entry.ID))
	assert.False(t, resolver.coordsCalled)
	assert.False(t, resolver.ipCalled)
	assert.Equal(t, models.UnknownLocation().City, entries.completed.Location.City)
}

func TestEnrichSkipsMissingEntry(t *testing.T) {
	entries := &fakeEntryStore{getErr: store.ErrNotFound}
	p := newTestPipeline(entries, &fakeResolver{}, &fakeWeather{}, &fakeAnalyzer{}, testEncryption(t))

	require.NoError(t, p.Enrich(context.Background(), uuid.New()))
	assert.Nil(t, entries.completed)
}

func TestEnrichSkipsAlreadyComplete(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)
	entry.Processing = false

	entries := &fakeEntryStore{entry: entry}
	p := newTestPipeline(entries, &fakeResolver{}, &fakeWeather{}, &fakeAnalyzer{}, enc)

	require.NoError(t, p.Enrich(context.Background(), entry.ID))
	assert.Nil(t, entries.completed)
}

func TestEnrichLostRaceIsNoError(t *testing.T) {
	enc := testEncryption(t)
	entry := pendingEntry(t, enc)

	entries := &fakeEntryStore{entry: entry, applied: false}
	p := newTestPipeline(entries, &fakeResolver{}, &fakeWeather{weather: models.UnknownWeather()}, &fakeAnalyzer{}, enc)

	require.NoError(t, p.Enrich(context.Background(), entry.ID))
}

func TestEnrichPropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	entries := &fakeEntryStore{getErr: boom}
	p := newTestPipeline(entries, &fakeResolver{}, &fakeWeather{}, &fakeAnalyzer{}, testEncryption(t))

	err := p.Enrich(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}
