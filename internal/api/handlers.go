package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/store"
)

// insertRequest is the body of POST /insert/leads.
type insertRequest struct {
	Source   string   `json:"source" validate:"required"`
	Location string   `json:"location" validate:"required"`
	JobTitle []string `json:"job_title" validate:"required,min=1,dive,required"`
}

// profileRequest is the body of POST /profile/upsert.
type profileRequest struct {
	JobTitle       string                  `json:"job_title" validate:"required"`
	Location       string                  `json:"location"`
	Bio            string                  `json:"bio"`
	WorkExperience []workExperienceRequest `json:"work_experience" validate:"dive"`
}

type workExperienceRequest struct {
	Position    string `json:"position" validate:"required"`
	Company     string `json:"company" validate:"required"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

func (p profileRequest) toModel() model.Profile {
	out := model.Profile{
		JobTitle: strings.TrimSpace(p.JobTitle),
		Location: strings.TrimSpace(p.Location),
		Bio:      strings.TrimSpace(p.Bio),
	}
	for _, w := range p.WorkExperience {
		out.WorkExperience = append(out.WorkExperience, model.WorkExperience(w))
	}
	return out
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// insertLeads handles POST /insert/leads. The run continues after the
// response is written.
func (s *Server) insertLeads(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if !s.decode(w, r, &req) {
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Source))
	location := strings.ToLower(strings.TrimSpace(req.Location))
	titles := make([]string, 0, len(req.JobTitle))
	for _, t := range req.JobTitle {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			titles = append(titles, t)
		}
	}

	adapter, err := s.sources.Get(name)
	if err != nil {
		if errors.Is(err, source.ErrUnknownSource) {
			writeError(w, http.StatusBadRequest, "unknown source: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	taskID := s.newID()
	t, err := s.runner.Submit(r.Context(), taskID)
	if err != nil {
		zap.L().Error("api: submit task", zap.String("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to submit task")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.runner.Run(ctx, taskID, adapter, location, titles); err != nil {
			zap.L().Warn("api: background insertion failed", zap.String("task_id", taskID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, t)
}

// taskStatus handles GET /task/{taskID}.
func (s *Server) taskStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.runner.GetTaskStatus(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// listLeads handles GET /leads/{type}/{offset}.
func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(chi.URLParam(r, "offset"))
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	ctx := r.Context()
	var out model.Batch
	switch kind := chi.URLParam(r, "type"); kind {
	case "companies":
		err = s.listOrganizations(ctx, &out, offset)
	case "jobs":
		err = s.listPostings(ctx, &out, offset)
	case "contacts":
		err = s.listContacts(ctx, &out, offset)
	case "leads":
		err = s.listAll(ctx, &out, offset)
	default:
		writeError(w, http.StatusBadRequest, "unknown lead type: "+kind)
		return
	}
	if err != nil {
		zap.L().Error("api: list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listOrganizations(ctx context.Context, out *model.Batch, offset int) error {
	orgs, total, err := s.store.ListOrganizations(ctx, offset, store.OrganizationPageSize)
	if err != nil {
		return err
	}
	out.Organizations = orgs
	out.Pages = max(out.Pages, store.Pages(total, store.OrganizationPageSize))
	return nil
}

func (s *Server) listPostings(ctx context.Context, out *model.Batch, offset int) error {
	postings, total, err := s.store.ListPostings(ctx, offset, store.PostingPageSize)
	if err != nil {
		return err
	}
	out.Postings = postings
	out.Pages = max(out.Pages, store.Pages(total, store.PostingPageSize))
	return nil
}

func (s *Server) listContacts(ctx context.Context, out *model.Batch, offset int) error {
	contacts, total, err := s.store.ListContacts(ctx, offset, store.ContactPageSize)
	if err != nil {
		return err
	}
	out.Contacts = contacts
	out.Pages = max(out.Pages, store.Pages(total, store.ContactPageSize))
	return nil
}

// listAll fills all three kinds; Pages is the largest page count.
func (s *Server) listAll(ctx context.Context, out *model.Batch, offset int) error {
	if err := s.listOrganizations(ctx, out, offset); err != nil {
		return err
	}
	if err := s.listPostings(ctx, out, offset); err != nil {
		return err
	}
	return s.listContacts(ctx, out, offset)
}

// getProfile handles GET /profile.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.Context())
	if err != nil {
		zap.L().Error("api: get profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// upsertProfile handles POST /profile/upsert.
func (s *Server) upsertProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !s.decode(w, r, &req) {
		return
	}
	p := req.toModel()
	if err := s.store.UpsertProfile(r.Context(), p); err != nil {
		zap.L().Error("api: upsert profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
