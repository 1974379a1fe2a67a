package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-threadobject/core"
	"github.com/Swind/go-threadobject/cryptowork"
	"github.com/urfave/cli"
)

var (
	pressureThreads int
	pressureJobs    int
	pressureReport  int
)

var pressureFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "threads, t",
		Usage:       "number of worker threads",
		Value:       4,
		Destination: &pressureThreads,
	},
	cli.IntFlag{
		Name:        "jobs, n",
		Usage:       "number of hash/keypair/sign/verify jobs",
		Value:       10000,
		Destination: &pressureJobs,
	},
	cli.IntFlag{
		Name:        "report, r",
		Usage:       "print progress every N completed jobs (0 disables)",
		Value:       1000,
		Destination: &pressureReport,
	},
}

var errVerifyFailed = errors.New("signature did not verify")

func pressure(c *cli.Context) error {
	if pressureThreads <= 0 || pressureJobs <= 0 {
		return errors.New("threads and jobs must be positive")
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	services := make([]*cryptowork.Service, pressureThreads)
	for i := range services {
		th, err := s.app.NewThread(fmt.Sprintf("crypto-%d", i))
		if err != nil {
			return err
		}
		services[i] = cryptowork.New(th, s.main, cryptowork.WithLogger(s.app.Logger()))
	}

	var done, failed int
	finish := func(err error) {
		if err != nil {
			failed++
			s.app.Logger().Warn("job failed", core.F("error", err))
		}
		done++
		if pressureReport > 0 && done%pressureReport == 0 {
			fmt.Fprintf(s.out, "%d/%d\n", done, pressureJobs)
		}
		if done == pressureJobs {
			_ = s.main.Quit()
		}
	}

	start := time.Now()
	for i := 0; i < pressureJobs; i++ {
		runJob(services[i%len(services)], finish)
	}
	if err := s.main.Run(s.ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(s.out, "completed %d jobs (%d failed) in %s, %.0f jobs/s\n",
		done, failed, elapsed.Round(time.Millisecond), float64(done)/elapsed.Seconds())
	for _, st := range s.app.ThreadStats() {
		fmt.Fprintf(s.out, "  %-10s executed=%d in_flight=%d\n", st.Name, st.Loop.Executed, st.InFlight)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, done)
	}
	return nil
}

// runJob derives a keypair from a random seed hash, signs a random message
// and verifies the signature, hopping back to the main loop between steps.
func runJob(svc *cryptowork.Service, finish func(error)) {
	input := randomBytes(64)
	msg := randomBytes(120)

	err := svc.SHA2(256, input, func(seed []byte, err error) {
		if err != nil {
			finish(err)
			return
		}
		kp, err := cryptowork.MakeKeypair(seed)
		if err != nil {
			finish(err)
			return
		}
		err = svc.Sign(msg, kp.PrivateKey, func(sig []byte, err error) {
			if err != nil {
				finish(err)
				return
			}
			err = svc.Verify(msg, sig, kp.PublicKey, func(ok bool, err error) {
				if err == nil && !ok {
					err = errVerifyFailed
				}
				finish(err)
			})
			if err != nil {
				finish(err)
			}
		})
		if err != nil {
			finish(err)
		}
	})
	if err != nil {
		finish(err)
	}
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
