package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/pkg/logger"
	"github.com/robfig/cron/v3"
)

type PendingReviewer struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

// Digest is a point-in-time snapshot of who still owes ratings.
type Digest struct {
	Date       string            `json:"date"`
	NotStarted []string          `json:"not_started"`
	Pending    []PendingReviewer `json:"pending"`
	Completed  int               `json:"completed"`
}

func (d *Digest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d completed", d.Date, d.Completed)
	if len(d.Pending) > 0 {
		parts := make([]string, 0, len(d.Pending))
		for _, p := range d.Pending {
			parts = append(parts, fmt.Sprintf("%s (%d left)", p.Name, p.Remaining))
		}
		fmt.Fprintf(&b, "; pending: %s", strings.Join(parts, ", "))
	}
	if len(d.NotStarted) > 0 {
		fmt.Fprintf(&b, "; not started: %s", strings.Join(d.NotStarted, ", "))
	}
	return b.String()
}

// DigestService logs the completion summary on a cron schedule, skipping
// holidays of the configured country.
type DigestService struct {
	cfg      config.DigestConfig
	tracker  *CompletionTracker
	holidays *HolidayService
	now      func() time.Time

	scheduler *cron.Cron
}

func NewDigestService(cfg config.DigestConfig, tracker *CompletionTracker, holidays *HolidayService) *DigestService {
	return &DigestService{
		cfg:      cfg,
		tracker:  tracker,
		holidays: holidays,
		now:      time.Now,
	}
}

func (s *DigestService) StartScheduler() error {
	if !s.cfg.Enabled {
		logger.Infof("[Digest] Disabled")
		return nil
	}
	if !s.holidays.Supports(s.cfg.Country) {
		logger.Warnf("[Digest] Unknown country %q, falling back to weekdays", s.cfg.Country)
	}

	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.cfg.Cron, func() {
		digest, ran, err := s.Run(context.Background())
		if err != nil {
			logger.Errorf("[Digest] Failed: %v", err)
			return
		}
		if ran {
			log := logger.With("digest")
			log.Info().
				Int("completed", digest.Completed).
				Int("pending", len(digest.Pending)).
				Int("not_started", len(digest.NotStarted)).
				Msg(digest.String())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid digest cron %q: %w", s.cfg.Cron, err)
	}
	s.scheduler.Start()
	logger.Infof("[Digest] Scheduled (cron: %s, country: %s)", s.cfg.Cron, s.cfg.Country)
	return nil
}

func (s *DigestService) StopScheduler() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
}

// Run builds the digest for today. It reports false without querying the
// store when today is not a workday.
func (s *DigestService) Run(ctx context.Context) (*Digest, bool, error) {
	today := s.now()
	if !s.holidays.IsWorkday(today, s.cfg.Country) {
		return nil, false, nil
	}

	summary, err := s.tracker.Summary(ctx)
	if err != nil {
		return nil, false, err
	}

	digest := &Digest{
		Date:       today.Format("2006-01-02"),
		NotStarted: make([]string, 0, len(summary.NotStarted)),
		Pending:    make([]PendingReviewer, 0, len(summary.Pending)),
		Completed:  len(summary.Completed),
	}
	for _, p := range summary.NotStarted {
		digest.NotStarted = append(digest.NotStarted, p.Reviewer.Name)
	}
	for _, p := range summary.Pending {
		digest.Pending = append(digest.Pending, PendingReviewer{Name: p.Reviewer.Name, Remaining: p.Remaining})
	}
	return digest, true, nil
}
