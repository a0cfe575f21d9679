// ABOUTME: Coalescing, rate-limited scheduler for channel topic refreshes
// ABOUTME: Marks guilds dirty and flushes them through a per-guild token bucket

package roster

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/2389/modclock/internal/status"
)

// Topic scheduling defaults. Discord allows two topic edits per channel every
// ten minutes.
const (
	DefaultTopicFlushInterval = time.Minute
	DefaultTopicMinInterval   = 5 * time.Minute
	DefaultTopicBurst         = 2
)

// TopicRefresher re-renders a guild's topic. Engine implements it.
type TopicRefresher interface {
	RefreshTopic(ctx context.Context, guild status.GuildID) error
}

// TopicSchedulerConfig tunes a TopicScheduler. Zero fields take the defaults.
type TopicSchedulerConfig struct {
	// FlushInterval is how often dirty guilds are retried.
	FlushInterval time.Duration

	// MinInterval is the steady-state gap between topic edits per guild.
	MinInterval time.Duration

	// Burst is how many edits a guild may make back to back.
	Burst int
}

// TopicScheduler coalesces topic refreshes per guild.
type TopicScheduler struct {
	refresher TopicRefresher
	cfg       TopicSchedulerConfig
	now       func() time.Time

	mu       sync.Mutex
	dirty    map[status.GuildID]struct{}
	limiters map[status.GuildID]*rate.Limiter

	logger *slog.Logger
}

// NewTopicScheduler creates a scheduler. Pass nil logger for default.
func NewTopicScheduler(refresher TopicRefresher, cfg TopicSchedulerConfig, logger *slog.Logger) *TopicScheduler {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultTopicFlushInterval
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultTopicMinInterval
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultTopicBurst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicScheduler{
		refresher: refresher,
		cfg:       cfg,
		now:       time.Now,
		dirty:     make(map[status.GuildID]struct{}),
		limiters:  make(map[status.GuildID]*rate.Limiter),
		logger:    logger.With("component", "topic_scheduler"),
	}
}

// MarkDirty queues the guild for the next flush.
func (s *TopicScheduler) MarkDirty(guild status.GuildID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[guild] = struct{}{}
}

// FlushNow refreshes the guild immediately if its bucket has a token, and
// otherwise leaves it queued for the ticker.
func (s *TopicScheduler) FlushNow(ctx context.Context, guild status.GuildID) {
	s.mu.Lock()
	allowed := s.limiterLocked(guild).AllowN(s.now(), 1)
	if !allowed {
		s.dirty[guild] = struct{}{}
	} else {
		delete(s.dirty, guild)
	}
	s.mu.Unlock()

	if !allowed {
		s.logger.Debug("topic refresh deferred by rate limit", "guild", guild)
		return
	}
	s.refresh(ctx, guild)
}

// Flush refreshes every dirty guild that has a token available.
func (s *TopicScheduler) Flush(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var ready []status.GuildID
	for guild := range s.dirty {
		if s.limiterLocked(guild).AllowN(now, 1) {
			ready = append(ready, guild)
			delete(s.dirty, guild)
		}
	}
	s.mu.Unlock()

	for _, guild := range ready {
		if ctx.Err() != nil {
			s.MarkDirty(guild)
			continue
		}
		s.refresh(ctx, guild)
	}
}

// Pending returns the dirty guilds, sorted.
func (s *TopicScheduler) Pending() []status.GuildID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]status.GuildID, 0, len(s.dirty))
	for guild := range s.dirty {
		out = append(out, guild)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run flushes on every tick until ctx is cancelled.
func (s *TopicScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	s.logger.Info("topic scheduler running",
		"flush_interval", s.cfg.FlushInterval,
		"min_interval", s.cfg.MinInterval,
		"burst", s.cfg.Burst)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// refresh runs one topic refresh. Failures other than missing permission
// re-queue the guild.
func (s *TopicScheduler) refresh(ctx context.Context, guild status.GuildID) {
	err := s.refresher.RefreshTopic(ctx, guild)
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotAuthorized) {
		s.logger.Warn("topic refresh not permitted, dropping", "guild", guild, "error", err)
		return
	}
	s.logger.Warn("topic refresh failed, will retry", "guild", guild, "error", err)
	s.MarkDirty(guild)
}

// limiterLocked returns the guild's bucket. Must be called with mu held.
func (s *TopicScheduler) limiterLocked(guild status.GuildID) *rate.Limiter {
	l, ok := s.limiters[guild]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.cfg.MinInterval), s.cfg.Burst)
		s.limiters[guild] = l
	}
	return l
}
