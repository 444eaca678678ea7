package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/tagcat/catalog"
)

// handleParse parses raw catalog text from the request body and returns
// the groups without storing anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := s.parseText(string(data))
	if err != nil {
		s.writeParseError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"groups": groups,
	})
}

// parseText runs the core parser and records the outcome in the stats
// window.
func (s *Server) parseText(text string) ([]catalog.Group, error) {
	start := time.Now()
	p, err := catalog.FromText(text)
	elapsed := time.Since(start)
	if err != nil {
		s.stats.RecordFailure(elapsed)
		return nil, err
	}

	groups := p.Groups()
	tags := 0
	for _, g := range groups {
		tags += len(g.Tags)
	}
	s.stats.RecordSuccess(elapsed, len(groups), tags)
	return normalizeGroups(groups), nil
}

func (s *Server) writeParseError(w http.ResponseWriter, err error) {
	var mh *catalog.MalformedHeaderError
	if errors.As(err, &mh) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": mh.Error(),
			"line":  mh.Line,
		})
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

// normalizeGroups replaces nil tag slices so empty groups serialize as
// [] rather than null.
func normalizeGroups(groups []catalog.Group) []catalog.Group {
	out := make([]catalog.Group, len(groups))
	for i, g := range groups {
		if g.Tags == nil {
			g.Tags = []string{}
		}
		out[i] = g
	}
	return out
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
