package main

import (
	"yacl/capture/reporter"
	"yacl/common/emitter"
	"yacl/common/session"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

func ReportCommand() cli.Command {
	return cli.Command{
		Name:   "report",
		Usage:  "report and remove pending crash files",
		Action: report,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  DIR,
				Value: ".",
			},
			cli.StringFlag{
				Name:  RABBIT,
				Usage: "amqp server url; events go to the log when unset",
			},
			cli.StringFlag{
				Name:  QUEUE,
				Value: "yacl-events",
			},
		},
	}
}

func report(c *cli.Context) error {
	var sink emitter.Emitter = &emitter.LogEmitter{}

	if server := c.String(RABBIT); server != "" {
		amqpSink, err := emitter.NewAmqp(server, c.String(QUEUE))
		if err != nil {
			return err
		}
		defer amqpSink.Close()
		sink = amqpSink
	}

	rep := reporter.New(c.String(DIR), sink, session.New().Attrs())
	reported := rep.ReportPending()

	log.WithField("reported", reported).Info("Done")
	return nil
}
