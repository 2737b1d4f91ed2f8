package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/contacthub/internal/access"
	"github.com/geocoder89/contacthub/internal/domain/contact"
	"github.com/geocoder89/contacthub/internal/http/middlewares"
	"github.com/geocoder89/contacthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ContactsStore interface {
	Create(ctx context.Context, c contact.Contact) (contact.Contact, error)
	GetByID(ctx context.Context, id string) (contact.Contact, error)
	List(ctx context.Context, filter contact.ListFilter) ([]contact.Contact, int, error)
	Update(ctx context.Context, scope contact.Scope, req contact.UpdateContactRequest) (contact.Contact, error)
	SetFavorite(ctx context.Context, scope contact.Scope, favorite bool) (contact.Contact, error)
	Delete(ctx context.Context, scope contact.Scope) (contact.Contact, error)
}

type ContactsHandler struct {
	repo ContactsStore
	log  *slog.Logger
}

func NewContactsHandler(repo ContactsStore, log *slog.Logger) *ContactsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContactsHandler{repo: repo, log: log}
}

func (h *ContactsHandler) List(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	params, err := utils.ParsePageParams(ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid pagination parameters", gin.H{"reason": err.Error()})
		return
	}

	filter := contact.ListFilter{
		OwnerID: ownerID,
		Limit:   params.Limit,
		Offset:  params.Offset(),
	}

	if raw, present := ctx.GetQuery("favorite"); present {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "favorite must be true or false", gin.H{"field": "favorite"})
			return
		}
		filter.Favorite = &fav
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)
	if err != nil {
		h.log.ErrorContext(cctx, "contacts_list_failed", "err", err)
		RespondInternal(ctx, "Could not list contacts")
		return
	}

	if items == nil {
		items = []contact.Contact{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"contacts":    items,
		"totalPages":  utils.TotalPages(total, params.Limit),
		"currentPage": params.Page,
	})
}

func (h *ContactsHandler) Get(ctx *gin.Context) {
	c, ok := h.authorize(ctx)
	if !ok {
		return
	}

	RespondContact(ctx, c)
}

func (h *ContactsHandler) Create(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return
	}

	var req contact.CreateContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	c, err := h.repo.Create(cctx, contact.NewFromCreateRequest(ownerID, req))
	if err != nil {
		h.respondWriteError(ctx, err, "Could not create contact")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

// Update replaces every editable field.
func (h *ContactsHandler) Update(ctx *gin.Context) {
	existing, ok := h.authorize(ctx)
	if !ok {
		return
	}

	var req contact.UpdateContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	c, err := h.repo.Update(cctx, scopeOf(existing), req)
	if err != nil {
		h.respondWriteError(ctx, err, "Could not update contact")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *ContactsHandler) UpdateFavorite(ctx *gin.Context) {
	existing, ok := h.authorize(ctx)
	if !ok {
		return
	}

	var req contact.UpdateFavoriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	c, err := h.repo.SetFavorite(cctx, scopeOf(existing), *req.Favorite)
	if err != nil {
		h.respondWriteError(ctx, err, "Could not update contact")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *ContactsHandler) Delete(ctx *gin.Context) {
	existing, ok := h.authorize(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	if _, err := h.repo.Delete(cctx, scopeOf(existing)); err != nil {
		h.respondWriteError(ctx, err, "Could not delete contact")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Contact deleted")
}

// authorize resolves :id to a contact owned by the caller, writing the error
// response itself when it returns false.
func (h *ContactsHandler) authorize(ctx *gin.Context) (contact.Contact, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid contact ID", gin.H{"field": "id"})
		return contact.Contact{}, false
	}

	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "Not authorized")
		return contact.Contact{}, false
	}

	cctx, cancel := requestContext(ctx, storeTimeout)
	defer cancel()

	c, err := access.Authorize(cctx, ownerID,
		func(ctx context.Context) (contact.Contact, error) { return h.repo.GetByID(ctx, id) },
		func(err error) bool { return errors.Is(err, contact.ErrNotFound) },
	)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrNotFound):
			RespondNotFound(ctx, "Contact not found")
		case errors.Is(err, access.ErrNoActor):
			RespondUnAuthorized(ctx, "Not authorized")
		default:
			h.log.ErrorContext(cctx, "contact_lookup_failed", "contact_id", id, "err", err)
			RespondInternal(ctx, "Could not fetch contact")
		}
		return contact.Contact{}, false
	}

	return c, true
}

func (h *ContactsHandler) respondWriteError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, contact.ErrDuplicate):
		RespondConflict(ctx, "contact_exists", "Contact with this email already exists")
	case errors.Is(err, contact.ErrNotFound):
		// removed by a concurrent request after the ownership check
		RespondNotFound(ctx, "Contact not found")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "contact_write_failed", "err", err)
		RespondInternal(ctx, message)
	}
}

func scopeOf(c contact.Contact) contact.Scope {
	return contact.Scope{ID: c.ID, OwnerID: c.OwnerID}
}
