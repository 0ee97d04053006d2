package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/matzehuels/tapesched/pkg/buildinfo"
	"github.com/matzehuels/tapesched/pkg/dataset"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/pipeline"
	"github.com/matzehuels/tapesched/pkg/tape"
)

type scheduleRequest struct {
	Dataset json.RawMessage `json:"dataset"`
	Options json.RawMessage `json:"options,omitempty"`
}

type scheduleResponse struct {
	*pipeline.Result
	RequestID string            `json:"request_id"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

type errorBody struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id := RequestIDFromContext(r.Context())
	ds, opts, err := s.decodeSchedule(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Logger = s.logger.With("request_id", id)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.runner.Execute(ctx, ds, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errs.Wrap(errs.ErrCodeTimeout, err, "scheduling exceeded %s", s.cfg.RequestTimeout)
		}
		s.writeError(w, r, err)
		return
	}

	resp := scheduleResponse{Result: res, RequestID: id}
	if len(res.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(res.Artifacts))
		for format, data := range res.Artifacts {
			resp.Artifacts[format] = string(data)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeSchedule reads the request body. Request options are layered over
// the server defaults.
func (s *Server) decodeSchedule(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, pipeline.Options, error) {
	opts := s.cfg.Defaults
	opts.Formats = slices.Clone(opts.Formats)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req scheduleRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, opts, errs.New(errs.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, opts, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode request")
	}
	if len(req.Dataset) == 0 || string(req.Dataset) == "null" {
		return nil, opts, errs.New(errs.ErrCodeInvalidInput, "dataset is required")
	}

	ds, err := dataset.ReadJSON(bytes.NewReader(req.Dataset))
	if err != nil {
		return nil, opts, err
	}
	if len(req.Options) > 0 {
		dec := json.NewDecoder(bytes.NewReader(req.Options))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, opts, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode options")
		}
	}
	opts.MaxBatchSize = s.batchLimit(opts.MaxBatchSize)
	return ds, opts, nil
}

// batchLimit caps a client-requested batch bound at the server's bound.
// Clients may lower it but never raise it.
func (s *Server) batchLimit(requested int) int {
	limit := s.cfg.Defaults.MaxBatchSize
	if limit <= 0 {
		limit = tape.DefaultMaxBatchSize
	}
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestIDFromContext(r.Context()), "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error:     errorBody{Code: code, Message: errs.UserMessage(err)},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
