package users

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/hemaweb/featmock/pkg/mock"
)

// Feature is the namespace name of the built-in users mock.
const Feature = "feat-users"

var (
	userPattern       = regexp.MustCompile(`^/api/users/(\d+)$`)
	statusPattern     = regexp.MustCompile(`^/api/users/(\d+)/status$`)
	activitiesPattern = regexp.MustCompile(`^/api/users/(\d+)/activities$`)
)

// Registrar receives the built-in namespace and the named handlers.
// *registry.Collector satisfies it.
type Registrar interface {
	AddBuiltin(ns *mock.Namespace)
	RegisterHandler(name string, h mock.Handler) error
}

// Install registers the feat-users namespace backed by s and its handlers
// under the users.* names.
func Install(r Registrar, s *Store) error {
	h := &handlers{store: s}
	for name, fn := range h.named() {
		if err := r.RegisterHandler(name, fn); err != nil {
			return err
		}
	}
	r.AddBuiltin(Namespace(s))
	return nil
}

// Namespace returns the feat-users routes backed by s.
func Namespace(s *Store) *mock.Namespace {
	h := &handlers{store: s}
	return mock.Define(Feature,
		mock.Route{Method: http.MethodGet, Path: "/api/users", DelayMs: 300, Handler: h.list},
		mock.Route{Method: http.MethodGet, Pattern: userPattern, DelayMs: 200, Handler: h.get},
		mock.Route{Method: http.MethodPost, Path: "/api/users", DelayMs: 500, Handler: h.create},
		mock.Route{Method: http.MethodPut, Pattern: userPattern, DelayMs: 400, Handler: h.update},
		mock.Route{Method: http.MethodDelete, Pattern: userPattern, DelayMs: 300, Handler: h.delete},
		mock.Route{Method: http.MethodDelete, Path: "/api/users/batch", DelayMs: 600, Handler: h.batchDelete},
		mock.Route{Method: http.MethodPost, Path: "/api/users/batch-delete", DelayMs: 600, Handler: h.batchDelete},
		mock.Route{Method: http.MethodPatch, Pattern: statusPattern, DelayMs: 300, Handler: h.updateStatus},
		mock.Route{Method: http.MethodGet, Pattern: activitiesPattern, DelayMs: 200, Handler: h.activities},
	)
}

type handlers struct {
	store *Store
}

func (h *handlers) named() map[string]mock.Handler {
	return map[string]mock.Handler{
		"users.list":         h.list,
		"users.get":          h.get,
		"users.create":       h.create,
		"users.update":       h.update,
		"users.delete":       h.delete,
		"users.batchDelete":  h.batchDelete,
		"users.updateStatus": h.updateStatus,
		"users.activities":   h.activities,
	}
}

func (h *handlers) list(ctx *mock.Context) (any, error) {
	page := h.store.List(ctx.Query["keyword"], ctx.QueryInt("page", 1), ctx.QueryInt("size", mock.DefaultPageSize))
	return mock.OK(page, "user list fetched"), nil
}

func (h *handlers) get(ctx *mock.Context) (any, error) {
	id := ctx.Param(1)
	if id == "" {
		return mock.Fail(http.StatusBadRequest, "user id is required"), nil
	}
	u, err := h.store.Get(id)
	if err != nil {
		return failure(err), nil
	}
	return mock.OK(u, "user fetched"), nil
}

func (h *handlers) create(ctx *mock.Context) (any, error) {
	var in Input
	if err := ctx.BindBody(&in); err != nil {
		return mock.Fail(http.StatusBadRequest, ErrInvalid.Error()), nil
	}
	u, err := h.store.Create(in)
	if err != nil {
		return failure(err), nil
	}
	return mock.OK(u, "user created"), nil
}

func (h *handlers) update(ctx *mock.Context) (any, error) {
	id := ctx.Param(1)
	if id == "" {
		return mock.Fail(http.StatusBadRequest, "user id is required"), nil
	}
	var p Patch
	if ctx.Body != nil {
		if err := ctx.BindBody(&p); err != nil {
			return mock.Fail(http.StatusBadRequest, "invalid request body"), nil
		}
	}
	u, err := h.store.Update(id, p)
	if err != nil {
		return failure(err), nil
	}
	return mock.OK(u, "user updated"), nil
}

func (h *handlers) delete(ctx *mock.Context) (any, error) {
	id := ctx.Param(1)
	if id == "" {
		return mock.Fail(http.StatusBadRequest, "user id is required"), nil
	}
	if err := h.store.Delete(id); err != nil {
		return failure(err), nil
	}
	return mock.OK(nil, "user deleted"), nil
}

func (h *handlers) batchDelete(ctx *mock.Context) (any, error) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := ctx.BindBody(&body); err != nil || len(body.IDs) == 0 {
		return mock.Fail(http.StatusBadRequest, "ids are required"), nil
	}
	h.store.BatchDelete(body.IDs)
	return mock.OK(nil, "users deleted"), nil
}

func (h *handlers) updateStatus(ctx *mock.Context) (any, error) {
	id := ctx.Param(1)
	if id == "" {
		return mock.Fail(http.StatusBadRequest, "user id is required"), nil
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := ctx.BindBody(&body); err != nil {
		return mock.Fail(http.StatusBadRequest, ErrInvalidStatus.Error()), nil
	}
	u, err := h.store.SetStatus(id, body.Status)
	if err != nil {
		return failure(err), nil
	}
	return mock.OK(u, "user status updated"), nil
}

func (h *handlers) activities(ctx *mock.Context) (any, error) {
	return mock.OK(h.store.Activities(ctx.Param(1)), "user activities fetched"), nil
}

// failure maps store errors onto envelope codes.
func failure(err error) mock.Envelope {
	switch {
	case errors.Is(err, ErrNotFound):
		return mock.Fail(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrConflict):
		return mock.Fail(http.StatusConflict, ErrConflict.Error())
	case errors.Is(err, ErrInvalidStatus):
		return mock.Fail(http.StatusBadRequest, ErrInvalidStatus.Error())
	case errors.Is(err, ErrInvalid):
		return mock.Fail(http.StatusBadRequest, ErrInvalid.Error())
	default:
		return mock.Fail(http.StatusInternalServerError, err.Error())
	}
}
