package items

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cobalthq/cobalt/internal/platform/middleware"
	requestutil "github.com/cobalthq/cobalt/internal/platform/request"
	"github.com/cobalthq/cobalt/internal/platform/respond"
	"github.com/cobalthq/cobalt/internal/platform/sec"
	"github.com/cobalthq/cobalt/internal/platform/validate"
	"github.com/cobalthq/cobalt/pkg/pagination"
)

type Handler struct {
	service *Service
	gate    *middleware.Gate
}

func NewHandler(service *Service, gate *middleware.Gate) *Handler {
	return &Handler{service: service, gate: gate}
}

// Routes mounts the item endpoints. Reads are public (with optional
// identity); writes require an access token plus the matching permission.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(public chi.Router) {
		public.Use(handler.gate.AuthenticateOptional())
		public.Get("/", handler.list)
		public.Get("/search", handler.search)
		public.Get("/{id}", handler.get)
	})

	router.Group(func(protected chi.Router) {
		protected.Use(handler.gate.Authenticate())
		protected.With(middleware.RequirePermission(sec.PermItemsWrite)).Post("/", handler.create)
		protected.With(middleware.RequirePermission(sec.PermItemsWrite)).Patch("/{id}", handler.update)
		protected.With(middleware.RequirePermission(sec.PermItemsWrite)).Post("/{id}/activate", handler.activate)
		protected.With(middleware.RequirePermission(sec.PermItemsWrite)).Post("/{id}/archive", handler.archive)
		// No route-level permission on delete: owners may remove their own
		// items, and the service grants admins the items:delete override.
		protected.Delete("/{id}", handler.delete)
		protected.Get("/mine", handler.listMine)
	})

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	status := Status(request.URL.Query().Get("status"))
	if status != "" {
		v := &validate.Validator{}
		v.OneOf("status", string(status), StatusValues()...)
		if err := v.Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	items, total, err := handler.service.List(request.Context(), status, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, items, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get("q")

	v := &validate.Validator{}
	v.Required("q", query).MaxLen("q", query, 200)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	limit, _ := strconv.Atoi(request.URL.Query().Get("limit"))
	items, err := handler.service.Search(request.Context(), query, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, items)
}

func (handler *Handler) listMine(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	items, total, err := handler.service.ListMine(request.Context(), userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, items, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	item, err := handler.service.Get(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

type createItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createItemRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required("title", input.Title).MaxLen("title", input.Title, 200)
	v.MaxLen("description", input.Description, 2000)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	item, err := handler.service.Create(request.Context(), userID, CreateInput{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, item)
}

type updateItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	var input updateItemRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if input.Title != nil {
		v.Required("title", *input.Title).MaxLen("title", *input.Title, 200)
	}
	if input.Description != nil {
		v.MaxLen("description", *input.Description, 2000)
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	item, err := handler.service.Update(request.Context(), requestutil.Claims(request), requestutil.Param(request, "id"), UpdateInput{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

func (handler *Handler) activate(writer http.ResponseWriter, request *http.Request) {
	item, err := handler.service.Activate(request.Context(), requestutil.Claims(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

func (handler *Handler) archive(writer http.ResponseWriter, request *http.Request) {
	item, err := handler.service.Archive(request.Context(), requestutil.Claims(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	err := handler.service.Delete(request.Context(), requestutil.Claims(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
