package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/mtlxgen/pkg/buildinfo"
	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Document       string `json:"document"`
	Name           string `json:"name,omitempty"`
	Target         string `json:"target,omitempty"`
	Element        string `json:"element,omitempty"`
	All            bool   `json:"all,omitempty"`
	UDIM           bool   `json:"udim,omitempty"`
	ColorSpace     string `json:"color_space,omitempty"`
	DistanceUnit   string `json:"distance_unit,omitempty"`
	NoVerticalFlip bool   `json:"no_vertical_flip,omitempty"`
}

// GenerateResponse is the body of a successful POST /v1/generate.
type GenerateResponse struct {
	ID       string              `json:"id"`
	Valid    bool                `json:"valid"`
	Warnings string              `json:"warnings,omitempty"`
	Shaders  []pipeline.Artifact `json:"shaders"`
	Cached   bool                `json:"cached"`
}

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Document string `json:"document"`
	Name     string `json:"name,omitempty"`
}

// ValidateResponse is the body of a successful POST /v1/validate.
type ValidateResponse struct {
	ID       string `json:"id"`
	Valid    bool   `json:"valid"`
	Warnings string `json:"warnings,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ID    string    `json:"id"`
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"library": stdlib.Digest()[:12],
	})
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"targets": pipeline.Targets(),
		"default": pipeline.DefaultTarget,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	opts := s.options(req.Document, req.Name)
	opts.Target = req.Target
	opts.Element = req.Element
	opts.AllElements = req.All
	opts.ExpandUDIM = req.UDIM
	opts.NoVerticalFlip = req.NoVerticalFlip
	if req.ColorSpace != "" {
		opts.TargetColorSpace = req.ColorSpace
	}
	if req.DistanceUnit != "" {
		opts.TargetDistanceUnit = req.DistanceUnit
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		ID:       RequestID(r.Context()),
		Valid:    res.Valid,
		Warnings: res.Warnings,
		Shaders:  res.Shaders,
		Cached:   res.CacheInfo.GenerateHit,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, &req) {
		return
	}
	loaded, err := s.runner.Load(r.Context(), s.options(req.Document, req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	valid, msg := s.runner.Validate(r.Context(), loaded)
	writeJSON(w, http.StatusOK, ValidateResponse{
		ID:       RequestID(r.Context()),
		Valid:    valid,
		Warnings: msg,
	})
}

// options returns pipeline options for an inline document.
func (s *Server) options(document, name string) pipeline.Options {
	if name == "" {
		name = "document.mtlx"
	}
	return pipeline.Options{
		Document:           []byte(document),
		DocumentName:       name,
		LibrarySearchPath:  s.cfg.LibrarySearchPath,
		LibraryFolders:     s.cfg.LibraryFolders,
		TargetColorSpace:   s.cfg.TargetColorSpace,
		TargetDistanceUnit: s.cfg.TargetDistanceUnit,
		Logger:             s.cfg.Logger,
	}
}

// decode reads a JSON body into v, writing the error response on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxDocumentBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, errors.New(errors.ErrCodeTooLarge,
				"request body exceeds %d bytes", s.cfg.MaxDocumentBytes))
			return false
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return false
	}
	var doc string
	switch req := v.(type) {
	case *GenerateRequest:
		doc = req.Document
	case *ValidateRequest:
		doc = req.Document
	}
	if doc == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "document is required"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	id := RequestID(r.Context())
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := StatusCode(code)
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "id", id, "err", err)
	}
	observability.HTTP().OnError(r.Context(), id, r.Method, r.URL.Path, err)
	writeJSON(w, status, ErrorResponse{
		ID:    id,
		Error: ErrorBody{Code: code, Message: errors.UserMessage(err)},
	})
}

// StatusCode maps an error code to an HTTP status.
func StatusCode(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDocument, errors.ErrCodeInvalidTarget,
		errors.ErrCodeInvalidPath, errors.ErrCodeInvalidElement:
		return http.StatusBadRequest
	case errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNoRenderable, errors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
