package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"yacl/common/record"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

var showTargets = map[string]record.Kind{
	"native": record.Native,
	"fault":  record.ManagedFault,
	"task":   record.AsyncTaskFault,
}

func ShowCommand() cli.Command {
	return cli.Command{
		Name:    "show",
		Aliases: []string{"ls"},
		Usage:   "print pending crash files without reporting them",
		Action:  show,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  DIR,
				Value: ".",
			},
		},
	}
}

func show(c *cli.Context) error {
	kinds := record.Kinds

	if c.NArg() > 0 {
		target := c.Args().Get(0)
		kind, ok := showTargets[target]
		if !ok {
			message := `Unknown kind, available values:
	native
	fault
	task`
			fmt.Println(message)
			return fmt.Errorf("Unknown kind %s", target)
		}
		kinds = []record.Kind{kind}
	}

	for _, kind := range kinds {
		showOne(c.String(DIR), kind)
	}

	return nil
}

func showOne(dir string, kind record.Kind) {
	path := filepath.Join(dir, kind.FileName())

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).
				Error("Can't read crash file")
		}
		return
	}

	rec, err := record.Parse(kind, data)
	if err != nil {
		log.WithError(err).WithField("path", path).
			Warning("Crash file is not parsable")
		return
	}

	log.WithFields(log.Fields(rec.Attributes())).
		WithField("kind", kind.String()).
		Info("Pending crash")
}
