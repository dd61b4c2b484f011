package middleware

import "strings"

// ProbePaths are hit by orchestrators and scrapers rather than shoppers
var ProbePaths = []string{"/health", "/ready", "/metrics"}

// EventStreamPrefix covers long-lived SSE connections
const EventStreamPrefix = "/api/v1/collections/events"

// pathSet matches exact paths and path prefixes
type pathSet struct {
	exact    map[string]struct{}
	prefixes []string
}

func newPathSet(paths, prefixes []string) pathSet {
	ps := pathSet{exact: make(map[string]struct{}, len(paths)), prefixes: prefixes}
	for _, p := range paths {
		ps.exact[p] = struct{}{}
	}
	return ps
}

func (ps pathSet) empty() bool {
	return len(ps.exact) == 0 && len(ps.prefixes) == 0
}

func (ps pathSet) match(path string) bool {
	if _, ok := ps.exact[path]; ok {
		return true
	}
	for _, prefix := range ps.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
