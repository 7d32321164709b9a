package mdns

import (
	"os"
	"strings"
)

func defaultHost() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "netbridge"
	}
	// keep the first label; ".local." is appended on registration
	h, _, _ = strings.Cut(h, ".")
	return h
}
