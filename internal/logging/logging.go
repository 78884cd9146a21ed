// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Init sets the level and formatter. Unknown levels fall back to info;
// any format other than "json" uses the text formatter.
func Init(level, format string) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output, e.g. to stderr for CLIs that print results
// on stdout.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
