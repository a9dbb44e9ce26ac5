package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/task"
)

var errBadRequest = eris.New("api: bad request")

// decodeFunc reads and validates a request body into a task input.
type decodeFunc func(w http.ResponseWriter, r *http.Request) (any, error)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return eris.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func decodeProfileInput(w http.ResponseWriter, r *http.Request) (any, error) {
	var in task.ProfileInput
	if err := decodeBody(w, r, &in); err != nil {
		return nil, err
	}
	return in, nil
}

func decodeDiscoverInput(w http.ResponseWriter, r *http.Request) (any, error) {
	var in task.DiscoverInput
	if err := decodeBody(w, r, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, eris.Wrap(errBadRequest, "query is required")
	}
	if in.Limit < 0 {
		return nil, eris.Wrap(errBadRequest, "limit must be >= 0")
	}
	return in, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"kinds":  s.registry.Kinds(),
	})
}

type submitResponse struct {
	TaskID string          `json:"task_id"`
	Status model.TaskState `json:"status"`
}

// submit queues kind on the task manager and answers 202 with the task id.
func (s *Server) submit(kind string, decode decodeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decode(w, r)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		id, err := s.manager.Submit(r.Context(), kind, in)
		if err != nil {
			zap.L().Warn("api: submit failed", zap.String("kind", kind), zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, submitResponse{TaskID: id, Status: model.TaskPending})
	}
}

// run executes kind inline and answers with the handler's result.
func (s *Server) run(kind string, decode decodeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decode(w, r)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		out, err := s.registry.Run(r.Context(), kind, in)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				zap.L().Error("api: sync run failed", zap.String("kind", kind), zap.Error(err))
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type taskResponse struct {
	TaskID    string          `json:"task_id"`
	Kind      string          `json:"kind,omitempty"`
	Status    model.TaskState `json:"status"`
	Result    json.RawMessage `json:"result"`
	Error     *string         `json:"error"`
	Progress  int             `json:"progress"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		TaskID:   t.ID,
		Kind:     t.Kind,
		Status:   t.State,
		Result:   t.Result,
		Progress: t.Progress,
	}
	if len(resp.Result) == 0 {
		resp.Result = json.RawMessage("null")
	}
	if t.Error != "" {
		msg := t.Error
		resp.Error = &msg
	}
	if !t.CreatedAt.IsZero() {
		resp.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		resp.UpdatedAt = t.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(t))
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	p, err := s.store.LoadProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")
	n, err := s.cache.InvalidateNamespace(r.Context(), ns)
	if err != nil {
		zap.L().Error("api: cache invalidation failed", zap.String("namespace", ns), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	zap.L().Info("api: cache namespace cleared", zap.String("namespace", ns), zap.Int("deleted", n))
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
