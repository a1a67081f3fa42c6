package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/expr"
	"github.com/prereqgraph/prereqgraph/pkg/graph"
	"github.com/prereqgraph/prereqgraph/pkg/lexer"
	"github.com/prereqgraph/prereqgraph/pkg/parser"
	"github.com/prereqgraph/prereqgraph/pkg/storage"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Errorf("Failed to write response: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []storage.SubjectStats{}
	}
	writeJSON(w, stats)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Subjects: catalog.ParseSubjectList(r.URL.Query().Get("subject")),
	}

	courses, err := s.DB.ListCourses(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	writeJSON(w, courses)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	// Every course is needed even when only some subjects are drawn: the
	// tokenizer must know all subject codes.
	courses, err := s.DB.ListCourses(r.Context(), storage.ListOptions{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	included := catalog.ParseSubjectList(r.URL.Query().Get("subjects"))
	if len(included) == 0 {
		included = catalog.SubjectIDs(courses)
	}

	b := s.Builder
	if b == nil {
		b = &graph.Builder{}
	}
	writeJSON(w, b.Construct(courses, included))
}

type ParseRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type ParseResponse struct {
	expr.Clauses
	PrereqText string   `json:"prereqText"`
	ConcurText string   `json:"concurText"`
	Errors     []string `json:"errors"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Subject = strings.ToUpper(strings.TrimSpace(req.Subject))
	if req.Subject == "" {
		http.Error(w, "subject is required", http.StatusBadRequest)
		return
	}

	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	subjects := lexer.NewSubjects(req.Subject)
	for _, st := range stats {
		subjects[strings.ToLower(st.SubjectID)] = struct{}{}
	}

	clauses := parser.ParseDescription(req.Description, req.Subject, subjects)
	writeJSON(w, ParseResponse{
		Clauses:    clauses,
		PrereqText: expr.String(clauses.Prereq),
		ConcurText: expr.String(clauses.Concur),
		Errors:     append(append([]string{}, expr.Errors(clauses.Prereq)...), expr.Errors(clauses.Concur)...),
	})
}
