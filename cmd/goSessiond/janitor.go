package main

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// janitor deletes expired session rows for stores without TTL eviction.
// Rows are kept grace past expiry, matching the token verifier's leeway.
type janitor struct {
	purger  session.Purger
	log     logrus.FieldLogger
	now     func() time.Time
	grace   time.Duration
	timeout time.Duration
}

func (j *janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := j.now()
	n, err := j.purger.PurgeExpired(ctx, start.Add(-j.grace))
	if err != nil {
		j.log.WithError(err).Error("session purge failed")
		return
	}
	j.log.WithFields(logrus.Fields{
		"purged":   n,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("expired sessions purged")
}

// schedule registers the janitor on a new cron scheduler. The caller starts
// and stops it.
func (j *janitor) schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, j.run); err != nil {
		return nil, err
	}
	return c, nil
}
