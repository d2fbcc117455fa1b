package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

var Build string
var Version string

const (
	DIR    = `dir`
	RABBIT = `rabbit`
	QUEUE  = `queue`
)

func init() {
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stdout)
}

func main() {
	app := cli.NewApp()
	app.Name = "yacl-cli: command line utils for YACL"
	app.Version = Version

	app.Commands = []cli.Command{
		ShowCommand(),
		ReportCommand(),
		CrashCommand(),
	}
	app.Run(os.Args)
}
