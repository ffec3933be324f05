package main

import (
	"os"

	"github.com/kvesta/imagescan/cli"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
