package main

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// findings are already in the report
		if !errors.Is(err, errFindings) {
			log.Error(err)
		}
		os.Exit(1)
	}
}
