// Package calendar syncs county school district calendars. Each county
// has one district website; the sync probes a short list of common ICS
// paths, parses the first document that looks like a calendar and
// upserts its events keyed by UID.
package calendar

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/ics"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

//go:embed districts.yaml
var districtsYAML []byte

// icsPaths are the candidate calendar locations, tried in order.
var icsPaths = []string{
	"/calendar.ics",
	"/ical.ics",
	"/events.ics",
	"/calendar/calendar.ics",
	"/common/pages/DisplayCalendar.aspx?format=ics",
}

const (
	icsAccept  = "text/calendar, */*"
	icsTimeout = 10 * time.Second

	// maxEventAge drops events already long past.
	maxEventAge = 90 * 24 * time.Hour

	// districtPace is the polite delay between district sites.
	districtPace = 200 * time.Millisecond
)

type districtsFile struct {
	Districts map[string]string `yaml:"districts"`
}

// Service syncs district calendars into the school_events table.
type Service struct {
	events    repository.SchoolEventRepository
	client    *fetcher.Client
	districts map[string]string // county -> district site
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a calendar sync Service over the embedded district
// list.
func NewService(events repository.SchoolEventRepository, client *fetcher.Client, logger *slog.Logger) (*Service, error) {
	var file districtsFile
	if err := yaml.Unmarshal(districtsYAML, &file); err != nil {
		return nil, fmt.Errorf("NewService: parse districts: %w", err)
	}
	if len(file.Districts) == 0 {
		return nil, fmt.Errorf("NewService: district list is empty")
	}

	return &Service{
		events:    events,
		client:    client,
		districts: file.Districts,
		limiter:   rate.NewLimiter(rate.Every(districtPace), 1),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SyncStats summarizes one calendar sync.
type SyncStats struct {
	Districts int
	Found     int
	Events    int
}

// Run walks every district, paced at one site per 200ms. A district
// without a reachable calendar is skipped silently; most districts do
// not publish ICS.
func (s *Service) Run(ctx context.Context) (*SyncStats, error) {
	stats := &SyncStats{Districts: len(s.districts)}

	counties := make([]string, 0, len(s.districts))
	for county := range s.districts {
		counties = append(counties, county)
	}
	sort.Strings(counties)

	for _, county := range counties {
		if err := s.limiter.Wait(ctx); err != nil {
			return stats, fmt.Errorf("Run: %w", err)
		}

		upserted, err := s.syncDistrict(ctx, county, s.districts[county])
		if err != nil {
			s.logger.Debug("district calendar unavailable",
				slog.String("county", county),
				slog.Any("error", err))
			continue
		}
		stats.Found++
		stats.Events += upserted
	}

	metrics.RecordSchoolEventsUpserted(stats.Events)
	s.logger.Info("school calendar sync completed",
		slog.Int("districts", stats.Districts),
		slog.Int("with_calendar", stats.Found),
		slog.Int("events", stats.Events))
	return stats, nil
}

// syncDistrict probes the candidate paths for one district and upserts
// the events of the first calendar found.
func (s *Service) syncDistrict(ctx context.Context, county, site string) (int, error) {
	site = strings.TrimRight(site, "/")

	var events []ics.Event
	var lastErr error
	for _, path := range icsPaths {
		result, err := s.client.Fetch(ctx, site+path, fetcher.Options{
			Force:   true,
			Accept:  icsAccept,
			Timeout: icsTimeout,
		})
		if err != nil {
			lastErr = err
			continue
		}
		parsed, err := ics.Parse(result.Body)
		if err != nil {
			lastErr = err
			continue
		}
		events = parsed
		break
	}
	if events == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no calendar at any candidate path")
		}
		return 0, fmt.Errorf("syncDistrict: %w", lastErr)
	}

	cutoff := s.now().UTC().Add(-maxEventAge)
	upserted := 0
	for _, ev := range events {
		if ev.Start.Before(cutoff) {
			continue
		}

		uid := ev.UID
		if uid == "" {
			// UIDのないイベントは複合キーで識別する
			uid = county + "|" + ev.Start.UTC().Format(time.RFC3339) + "|" + ev.Summary
		}

		record := &entity.SchoolEvent{
			UID:      uid,
			County:   county,
			Title:    ev.Summary,
			StartAt:  ev.Start.UTC(),
			Location: ev.Location,
			URL:      ev.URL,
		}
		if ev.End != nil {
			end := ev.End.UTC()
			record.EndAt = &end
		}

		if err := s.events.Upsert(ctx, record); err != nil {
			return upserted, fmt.Errorf("syncDistrict: upsert %q: %w", uid, err)
		}
		upserted++
	}
	return upserted, nil
}
