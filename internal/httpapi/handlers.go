package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/journal"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

var errNoJournal = fmt.Errorf("%w: reading journal is not configured", faults.ErrUnavailable)

// #region types
type castRequest struct {
	Method   string `json:"method" validate:"max=32"`
	Question string `json:"question" validate:"max=2000"`
	Source   string `json:"source" validate:"max=128"`
	Seed     string `json:"seed" validate:"max=512"`
	Fallback bool   `json:"fallback"`
}

type castResponse struct {
	*engine.Reading
	SourceUsed  string           `json:"source_used"`
	FellBack    bool             `json:"fell_back"`
	Moving      []int            `json:"moving"`
	Substituted []casting.Method `json:"substituted,omitempty"`
}

type hexagramResponse struct {
	Hexagram  reference.Hexagram `json:"hexagram"`
	Symbol    string             `json:"symbol"`
	Bundle    loader.Bundle      `json:"bundle"`
	Requested string             `json:"requested"`
	Used      string             `json:"used"`
	FellBack  bool               `json:"fell_back"`
}

type sourceResponse struct {
	ID   string            `json:"id"`
	Info loader.SourceInfo `json:"info"`
}

// #endregion types

// #region system
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sources, err := s.engine.Resolver().DefaultOrder()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"canonical": s.engine.Resolver().Loader().Canonical(),
		"sources":   len(sources),
		"journal":   s.journal != nil,
	})
}

func (s *Server) listMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Registry().Status(r.Context()))
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	order, err := s.engine.Resolver().DefaultOrder()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]sourceResponse, 0, len(order))
	for _, id := range order {
		info, _ := s.engine.Resolver().Loader().SourceInfo(id)
		out = append(out, sourceResponse{ID: id, Info: info})
	}
	writeJSON(w, http.StatusOK, out)
}

// #endregion system

// #region readings
func (s *Server) castReading(w http.ResponseWriter, r *http.Request) {
	var body castRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	method := s.defaultMethod
	if body.Method != "" {
		m, err := casting.ParseMethod(body.Method)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		method = m
	}
	req := engine.Request{Method: method, Question: body.Question, Source: body.Source, Seed: body.Seed}
	if req.Source == "" {
		req.Source = s.defaultSource
	}

	var (
		reading *engine.Reading
		failed  []casting.Method
		err     error
	)
	if body.Fallback {
		reading, failed, err = s.engine.CastReadingWithFallback(r.Context(), req)
	} else {
		reading, err = s.engine.CastReading(r.Context(), req)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.journal != nil {
		w.Header().Set("Location", "/api/v1/readings/"+reading.ID)
	}
	writeJSON(w, http.StatusCreated, castResponse{
		Reading:     reading,
		SourceUsed:  reading.SourceUsed(),
		FellBack:    reading.FellBack(),
		Moving:      reading.MovingPositions(),
		Substituted: failed,
	})
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, r, errNoJournal)
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.writeError(w, r, fmt.Errorf("%w: limit must be 1-%d", faults.ErrInvalidArgument, maxListLimit))
			return
		}
		limit = n
	}
	rows, err := s.journal.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []journal.Summary{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getReading(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, r, errNoJournal)
		return
	}
	reading, err := s.journal.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, castResponse{
		Reading:    reading,
		SourceUsed: reading.SourceUsed(),
		FellBack:   reading.FellBack(),
		Moving:     reading.MovingPositions(),
	})
}

func (s *Server) readingEntropy(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, r, errNoJournal)
		return
	}
	entries, err := s.journal.Entropy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// #endregion readings

// #region hexagrams
func (s *Server) findHexagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := loader.Query{
		Binary: q.Get("binary"),
		Lines:  q.Get("lines"),
		Name:   q.Get("name"),
		Upper:  q.Get("upper"),
		Lower:  q.Get("lower"),
	}
	if v := q.Get("number"); v != "" {
		n, err := parseNumber(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if n < 1 || n > 64 {
			s.writeError(w, r, fmt.Errorf("%w: got %d", reference.ErrNumberOutOfRange, n))
			return
		}
		query.Number = n
	}

	l := s.engine.Resolver().Loader()
	if query == (loader.Query{}) {
		t, err := l.Table()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Hexagrams())
		return
	}
	rec, err := l.Find(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.hexagramResponse(rec, q.Get("source")))
}

func (s *Server) resolveHexagram(w http.ResponseWriter, r *http.Request) {
	n, err := parseNumber(chi.URLParam(r, "number"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.engine.Resolver().Loader().GetByNumber(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.hexagramResponse(rec, r.URL.Query().Get("source")))
}

func (s *Server) compareSources(w http.ResponseWriter, r *http.Request) {
	n, err := parseNumber(chi.URLParam(r, "number"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var sources []string
	if v := r.URL.Query().Get("sources"); v != "" {
		for _, src := range strings.Split(v, ",") {
			if src = strings.TrimSpace(src); src != "" {
				sources = append(sources, src)
			}
		}
	}
	out, err := s.engine.Resolver().CompareSources(r.Context(), n, sources, r.URL.Query().Get("field"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) completeness(w http.ResponseWriter, r *http.Request) {
	n, err := parseNumber(chi.URLParam(r, "number"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.Resolver().ValidateSourceCompleteness(r.Context(), n, r.URL.Query().Get("source"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number":   c.Number,
		"source":   c.Source,
		"present":  c.Present,
		"used":     c.Used,
		"complete": c.Complete(),
		"fields":   c.Fields,
		"missing":  c.Missing(),
	})
}

func (s *Server) hexagramResponse(rec loader.Record, source string) hexagramResponse {
	if source == "" {
		source = s.defaultSource
	}
	res := s.engine.Resolver().ResolveSet(rec.Set, source)
	return hexagramResponse{
		Hexagram:  rec.Hexagram,
		Symbol:    rec.Hexagram.Symbol(),
		Bundle:    res.Bundle,
		Requested: res.Requested,
		Used:      res.Used,
		FellBack:  res.FellBack(),
	}
}

func parseNumber(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: hexagram number %q", faults.ErrInvalidArgument, v)
	}
	return n, nil
}

// #endregion hexagrams
