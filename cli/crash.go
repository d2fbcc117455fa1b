package main

import (
	"context"
	"time"

	"yacl/capture"
	"yacl/capture/cfg"
	"yacl/capture/watchdog"
	"yacl/common/emitter"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

func CrashCommand() cli.Command {
	return cli.Command{
		Name:   "crash",
		Usage:  "deliberately trigger a native fault to validate the capture path",
		Action: crash,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  DIR,
				Value: ".",
			},
		},
	}
}

// crash sets the subsystem up, fires the test trigger and waits for the
// re-raised signal to terminate the process. Run `report` on the next
// start to see the captured record.
func crash(c *cli.Context) error {
	conf := cfg.Defaults(c.String(DIR))
	sub := capture.New(conf, &emitter.LogEmitter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	looper := watchdog.NewLooper()
	go looper.Run(ctx)

	_, err := sub.Setup(looper, nil, nil)
	if err != nil {
		return err
	}

	log.Warning("Triggering test crash")
	err = sub.TriggerTestCrash()
	if err != nil {
		return err
	}

	time.Sleep(5 * time.Second)
	log.Error("Process survived the test crash")
	return nil
}
