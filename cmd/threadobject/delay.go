package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-threadobject/core"
	"github.com/Swind/go-threadobject/cryptowork"
	"github.com/urfave/cli"
)

var (
	delayCount int
	delayStep  time.Duration
)

var delayFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "count, n",
		Usage:       "number of timers",
		Value:       5,
		Destination: &delayCount,
	},
	cli.DurationFlag{
		Name:        "step, s",
		Usage:       "timer i fires after i*step",
		Value:       200 * time.Millisecond,
		Destination: &delayStep,
	},
}

func delay(c *cli.Context) error {
	if delayCount <= 0 || delayStep < 0 {
		return errors.New("count must be positive and step non-negative")
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	th, err := s.app.NewThread("timer")
	if err != nil {
		return err
	}
	svc := cryptowork.New(th, s.main, cryptowork.WithLogger(s.app.Logger()))

	start := time.Now()
	fired := 0
	// posted in reverse so the delayed queue, not posting order, decides
	for i := delayCount; i >= 1; i-- {
		want := time.Duration(i) * delayStep
		if err := svc.DelayBy(want, func(err error) {
			fired++
			fmt.Fprintf(s.out, "timer %d (%s) fired after %s\n", i, want, time.Since(start).Round(time.Millisecond))
			if fired == delayCount {
				_ = s.main.Quit()
			}
		}); err != nil {
			return err
		}
	}
	s.app.Logger().Debug("timers scheduled", core.F("count", delayCount), core.F("pending", svc.Pending()))

	return s.main.Run(s.ctx)
}
