package buoy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/ndbc"
)

// Pipeline runs one import: fetch both feeds, merge, fill and score.
type Pipeline struct {
	buoyID  string
	client  ndbc.FeedClient
	loc     *time.Location
	cadence time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewPipeline returns a Pipeline reading buoyID through client. Timestamps are
// shown in loc; a nil loc means America/New_York.
func NewPipeline(buoyID string, client ndbc.FeedClient, loc *time.Location, cadence time.Duration, logger *zap.Logger) (*Pipeline, error) {
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(EasternZone)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", EasternZone, err)
		}
	}
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		buoyID:  buoyID,
		client:  client,
		loc:     loc,
		cadence: cadence,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Run fetches the meteorological feed then the solar feed and builds a snapshot.
// Fetch and schema errors are returned unchanged for the caller to categorize.
func (p *Pipeline) Run(ctx context.Context) (models.Snapshot, error) {
	met, err := p.client.FetchFeed(ctx, ndbc.FeedMeteorological)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch %s feed: %w", ndbc.FeedMeteorological, err)
	}
	solar, err := p.client.FetchFeed(ctx, ndbc.FeedSolar)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch %s feed: %w", ndbc.FeedSolar, err)
	}
	return p.Build(met, solar)
}

// Build turns two already downloaded feeds into a snapshot.
func (p *Pipeline) Build(met, solar ndbc.Feed) (models.Snapshot, error) {
	raw, err := Normalize(met, solar, p.loc)
	if err != nil {
		return models.Snapshot{}, err
	}
	series, err := Fill(raw, p.cadence)
	if err != nil {
		return models.Snapshot{}, err
	}
	chop, err := Chopiness(series.Values[ColWaveHeight], series.Values[ColDominantPeriod], series.Values[ColGust])
	if err != nil {
		return models.Snapshot{}, err
	}

	now := p.now()
	obs := series.Observations()
	fresh := CheckFreshness(obs, now)
	snap := models.Snapshot{
		Buoy:         p.buoyID,
		Observations: obs,
		Chopiness:    chop,
		Freshness:    fresh,
		Status:       StatusText(fresh),
		GeneratedAt:  now,
	}
	snap.Tier = string(Classify(snap.LatestChopiness()))

	p.logger.Debug("import built",
		zap.String("buoy", p.buoyID),
		zap.Int("merged_rows", raw.Len()),
		zap.Int("slots", len(obs)),
		zap.String("tier", snap.Tier),
		zap.Time("newest", fresh.Newest),
	)
	return snap, nil
}
