package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/storage"
	"github.com/c360studio/flowplan/workspace"
)

// maxRequestBodySize limits request body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// ----------------------------------------------------------------------------
// GET /health
// ----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----------------------------------------------------------------------------
// GET /api/workspaces
// ----------------------------------------------------------------------------

// WorkspaceInfo describes one dialect's catalog for API consumers.
type WorkspaceInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Blocks []string `json:"blocks"`
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := make([]WorkspaceInfo, 0)
	for _, ws := range workspace.Builtin() {
		if _, ok := s.registry.Get(ws.ID); !ok {
			continue
		}
		blocks := make([]string, 0, len(ws.Blocks))
		for _, b := range ws.Blocks {
			blocks = append(blocks, b.Name)
		}
		infos = append(infos, WorkspaceInfo{
			ID:     ws.ID,
			Name:   ws.Name,
			Blocks: blocks,
		})
	}

	writeJSON(w, http.StatusOK, infos)
}

// ----------------------------------------------------------------------------
// GET|POST /api/flows
// ----------------------------------------------------------------------------

// FlowRequest is the request body for creating or updating a flow.
type FlowRequest struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Workspace  string `json:"workspace,omitempty"`
	FlowYAML   string `json:"flow_yaml"`
}

func (s *Server) handleFlowCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listFlows(w, r)
	case http.MethodPost:
		s.createFlow(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list flows", "error", err)
		http.Error(w, "Failed to list flows", http.StatusInternalServerError)
		return
	}

	s.metrics.FlowsStored.Set(float64(len(flows)))
	writeJSON(w, http.StatusOK, flows)
}

func (s *Server) createFlow(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req FlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Workspace == "" {
		req.Workspace = workspace.IDProtocols
	}

	planYAML, err := s.compile(req.Workspace, req.FlowYAML)
	if err != nil {
		s.writeCompileError(w, err)
		return
	}

	f := &storage.Flow{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Workspace:  req.Workspace,
		FlowYAML:   req.FlowYAML,
		PlanYAML:   planYAML,
	}

	if _, err := s.store.Create(r.Context(), f); err != nil {
		s.logger.Error("Failed to create flow", "name", req.Name, "error", err)
		http.Error(w, "Failed to create flow", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Flow created",
		"id", f.ID,
		"name", f.Name,
		"workspace", f.Workspace)

	writeJSON(w, http.StatusCreated, f)
}

// ----------------------------------------------------------------------------
// /api/flows/{id}, /api/flows/{id}/flow.yaml, /api/flows/{id}/planspace.yaml
// /api/flows/external/{externalID} (+ artifact variants)
// ----------------------------------------------------------------------------

func (s *Server) handleFlowPath(w http.ResponseWriter, r *http.Request) {
	remainder := strings.TrimPrefix(r.URL.Path, "/api/flows/")
	remainder = strings.TrimSuffix(remainder, "/")
	if remainder == "" {
		s.handleFlowCollection(w, r)
		return
	}

	if rest, ok := strings.CutPrefix(remainder, "external/"); ok {
		externalID, artifact := splitArtifact(rest)
		if externalID == "" {
			http.Error(w, "external ID required", http.StatusBadRequest)
			return
		}
		f, err := s.store.GetByExternalID(r.Context(), externalID)
		if err != nil {
			s.writeLookupError(w, externalID, err)
			return
		}
		s.serveFlow(w, r, f, artifact)
		return
	}

	id, artifact := splitArtifact(remainder)

	f, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.serveFlow(w, r, f, artifact)
	case http.MethodPut:
		if artifact != "" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.updateFlow(w, r, f)
	case http.MethodDelete:
		if artifact != "" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.deleteFlow(w, r, f)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// splitArtifact separates a flow identifier from an optional trailing
// artifact name ("flow.yaml" or "planspace.yaml").
func splitArtifact(remainder string) (id, artifact string) {
	id = remainder
	if idx := strings.LastIndex(remainder, "/"); idx != -1 {
		id, artifact = remainder[:idx], remainder[idx+1:]
	}
	return id, artifact
}

func (s *Server) serveFlow(w http.ResponseWriter, r *http.Request, f *storage.Flow, artifact string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch artifact {
	case "":
		writeJSON(w, http.StatusOK, f)
	case "flow.yaml":
		writeYAML(w, f.FlowYAML)
	case "planspace.yaml":
		writeYAML(w, f.PlanYAML)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) updateFlow(w http.ResponseWriter, r *http.Request, f *storage.Flow) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req FlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name != "" {
		f.Name = req.Name
	}
	if req.ExternalID != "" {
		f.ExternalID = req.ExternalID
	}
	if req.Workspace != "" {
		f.Workspace = req.Workspace
	}
	if req.FlowYAML != "" {
		f.FlowYAML = req.FlowYAML
	}

	planYAML, err := s.compile(f.Workspace, f.FlowYAML)
	if err != nil {
		s.writeCompileError(w, err)
		return
	}
	f.PlanYAML = planYAML

	if err := s.store.Update(r.Context(), f); err != nil {
		s.logger.Error("Failed to update flow", "id", f.ID, "error", err)
		http.Error(w, "Failed to update flow", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Flow updated", "id", f.ID, "name", f.Name)
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) deleteFlow(w http.ResponseWriter, r *http.Request, f *storage.Flow) {
	if err := s.store.Delete(r.Context(), f.ID); err != nil {
		s.logger.Error("Failed to delete flow", "id", f.ID, "error", err)
		http.Error(w, "Failed to delete flow", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Flow deleted", "id", f.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// POST /api/transform
// ----------------------------------------------------------------------------

// TransformRequest is the request body for POST /api/transform.
type TransformRequest struct {
	Workspace string `json:"workspace,omitempty"`
	FlowYAML  string `json:"flow_yaml"`
}

// TransformResponse is the response body for POST /api/transform.
type TransformResponse struct {
	Workspace string `json:"workspace"`
	PlanYAML  string `json:"plan_yaml"`
}

// handleTransform compiles a flow document without storing it.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Workspace == "" {
		req.Workspace = workspace.IDProtocols
	}

	planYAML, err := s.compile(req.Workspace, req.FlowYAML)
	if err != nil {
		s.writeCompileError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransformResponse{
		Workspace: req.Workspace,
		PlanYAML:  planYAML,
	})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// errUnknownWorkspace marks a compile request for a workspace the
// registry has no transformer for.
var errUnknownWorkspace = errors.New("unknown workspace")

// compile transforms a flow document into its PlanSpace rendering.
func (s *Server) compile(workspaceID, flowYAML string) (string, error) {
	t, ok := s.registry.Get(workspaceID)
	if !ok {
		return "", errUnknownWorkspace
	}

	doc, err := t.Transform([]byte(flowYAML))
	s.metrics.observeTransform(workspaceID, err)
	if err != nil {
		return "", err
	}

	out, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Server) writeCompileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownWorkspace):
		http.Error(w, "unknown workspace", http.StatusBadRequest)
	case errors.Is(err, flow.ErrMissingDiagram),
		errors.Is(err, flow.ErrEmptyDiagram),
		errors.Is(err, flow.ErrInvalidStructure),
		errors.Is(err, flow.ErrUnknownBlock):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("Transformation failed", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
}

func (s *Server) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "flow not found", http.StatusNotFound)
		return
	}
	s.logger.Error("Failed to load flow", "id", id, "error", err)
	http.Error(w, "Failed to load flow", http.StatusInternalServerError)
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing useful to do.
		_ = err
	}
}

func writeYAML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
