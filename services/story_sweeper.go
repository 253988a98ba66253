package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type storyExpirer interface {
	ExpireStories(ctx context.Context, now time.Time) (int64, error)
}

// StorySweeper periodically deactivates expired stories.
type StorySweeper struct {
	stories storyExpirer
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
	log     *logrus.Entry
}

func NewStorySweeper(stories storyExpirer, spec string, log *logrus.Logger) (*StorySweeper, error) {
	sw := &StorySweeper{
		stories: stories,
		cron:    cron.New(),
		timeout: 30 * time.Second,
		now:     time.Now,
		log:     log.WithField("component", "story_sweeper"),
	}
	if _, err := sw.cron.AddFunc(spec, sw.Sweep); err != nil {
		return nil, invalidf("story sweep schedule %q: %v", spec, err)
	}
	return sw, nil
}

func (sw *StorySweeper) Start() {
	sw.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to expire.
func (sw *StorySweeper) Stop(ctx context.Context) {
	select {
	case <-sw.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (sw *StorySweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.timeout)
	defer cancel()

	n, err := sw.stories.ExpireStories(ctx, sw.now())
	if err != nil {
		sw.log.WithError(err).Warn("story sweep failed")
		return
	}
	if n > 0 {
		sw.log.WithField("expired", n).Info("expired stories")
	}
}
