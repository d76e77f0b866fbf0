package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/markitup/internal/rendering"
	"github.com/jonathan/markitup/internal/types"
)

// StrategySummary is one entry of the history list
type StrategySummary struct {
	ID           string `json:"id"`
	CompanyName  string `json:"company_name"`
	Brand        string `json:"brand"`
	StrategyType string `json:"strategy_type"`
	Source       string `json:"source"`
	GeneratedAt  string `json:"generated_at"`
	Sections     int    `json:"sections"`
}

func summarize(doc *types.StrategyDocument) StrategySummary {
	return StrategySummary{
		ID:           doc.ID.String(),
		CompanyName:  doc.Metadata.Context.CompanyName,
		Brand:        doc.Metadata.Brand,
		StrategyType: doc.Metadata.StrategyType,
		Source:       string(doc.Metadata.Source),
		GeneratedAt:  doc.Metadata.GeneratedAt.Format(time.RFC3339),
		Sections:     len(doc.Sections),
	}
}

// decodeStrategyRequest reads and validates a generation request body
func (s *Server) decodeStrategyRequest(w http.ResponseWriter, r *http.Request) (types.StrategyRequest, bool) {
	var req types.StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return req, false
	}
	return req, true
}

// generateAndSave runs one generation and records it in history. A storage
// failure is logged and the document is still returned.
func (s *Server) generateAndSave(ctx context.Context, req types.StrategyRequest) *types.StrategyDocument {
	doc := s.generator.Generate(ctx, req)
	if err := s.store.SaveDocument(context.WithoutCancel(ctx), doc); err != nil {
		log.Printf("[store] Failed to save strategy %s: %v", doc.ID, err)
	}
	return doc
}

// handleGenerate generates a strategy and returns the document
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStrategyRequest(w, r)
	if !ok {
		return
	}

	doc := s.generateAndSave(r.Context(), req)
	log.Printf("[generate] %s for %s (%s)", doc.ID, req.CompanyName, doc.Metadata.Source)
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleGenerateStream generates a strategy while streaming simulated progress
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeStrategyRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	result := make(chan *types.StrategyDocument, 1)
	go func() {
		result <- s.generateAndSave(ctx, req)
	}()

	updates := s.progress.Start(ctx)
	for {
		select {
		case u, open := <-updates:
			if !open {
				updates = nil
				continue
			}
			// The final 100% is only sent once the document exists
			if u.Done {
				continue
			}
			if err := sse.WriteEvent("progress", u); err != nil {
				log.Printf("Error writing SSE event: %v", err)
				return
			}
		case doc := <-result:
			sse.WriteEvent("progress", s.progress.Complete()) //nolint:errcheck
			sse.WriteComplete(doc)
			log.Printf("[generate] Streamed %s for %s (%s)", doc.ID, req.CompanyName, doc.Metadata.Source)
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleListStrategies returns the most recent documents
func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	docs, err := s.store.ListDocuments(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	summaries := make([]StrategySummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"strategies": summaries,
		"count":      len(summaries),
	})
}

// loadDocument resolves the {id} path value to a stored document,
// writing the error response when it cannot.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*types.StrategyDocument, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid strategy ID format")
		return nil, false
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return nil, false
	}
	if doc == nil {
		notFound := &ErrDocumentNotFound{ID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return nil, false
	}
	return doc, true
}

// handleGetStrategy returns one document
func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleUpdateStrategy replaces a document's sections with the user's edit
func (s *Server) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	var req types.UpdateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sections := req.Sections
	if req.Markdown != "" {
		parsed, err := rendering.ParseMarkdown(req.Markdown)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		sections = parsed
	}

	edited, err := doc.Customize(sections, s.now())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if err := s.store.SaveDocument(r.Context(), edited); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("[store] Strategy %s customized (%d sections)", edited.ID, len(edited.Sections))
	s.jsonResponse(w, http.StatusOK, edited)
}

// handleDeleteStrategy removes a document from history
func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid strategy ID format")
		return
	}

	deleted, err := s.store.DeleteDocument(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if !deleted {
		notFound := &ErrDocumentNotFound{ID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRegenerateStrategy replaces a generated document with a fresh one
// for the same business context. Customized documents are refused.
func (s *Server) handleRegenerateStrategy(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if !doc.CanRegenerate() {
		s.errorResponse(w, HTTPStatus(types.ErrCustomized), types.ErrCustomized.Error())
		return
	}

	fresh := s.generator.Generate(r.Context(), doc.Metadata.Context)
	fresh.ID = doc.ID
	if err := s.store.SaveDocument(r.Context(), fresh); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("[generate] Regenerated %s (%s)", fresh.ID, fresh.Metadata.Source)
	s.jsonResponse(w, http.StatusOK, fresh)
}

// handleExportStrategy renders a document in the requested format
func (s *Server) handleExportStrategy(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(rendering.FormatMarkdown)
	}
	format, err := rendering.ParseFormat(name)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	data, err := s.exporter.Export(r.Context(), doc, format)
	if err != nil {
		log.Printf("[export] Failed to export %s as %s: %v", doc.ID, format, err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("strategy-%s.%s", doc.ID, format.Extension())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing export response: %v", err)
	}
}
