package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"menu-service/models"
	"menu-service/services"
)

const maxBodyBytes = 1 << 20

// MenuStore is the persistence the handlers need; *services.MenuStore implements it.
type MenuStore interface {
	FindRootForest(ctx context.Context) ([]*models.MenuTree, error)
	FindWithParent(ctx context.Context, id string) (*models.MenuView, error)
	FindWithDerived(ctx context.Context, id string) (*models.MenuDetail, error)
	Create(ctx context.Context, name string, parentID *string) (*models.MenuNode, error)
	Update(ctx context.Context, id string, patch services.MenuPatch) (*models.MenuNode, error)
	Delete(ctx context.Context, id string) (*models.MenuNode, error)
}

type MenuHandler struct {
	store  MenuStore
	logger *zap.Logger
}

func NewMenuHandler(store MenuStore, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, logger: logger}
}

// ListMenus handles GET /menus
func (h *MenuHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	forest, err := h.store.FindRootForest(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, forest)
}

// GetMenu handles GET /menus/{id}
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.FindWithParent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// GetMenuDetail handles GET /menus/{id}/specific
func (h *MenuHandler) GetMenuDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.store.FindWithDerived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, detail)
}

// CreateMenu handles POST /menus
func (h *MenuHandler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	var req CreateMenuRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := ValidateStruct(req); err != nil {
		respondError(w, r, h.logger, badRequest(err.Error()))
		return
	}

	node, err := h.store.Create(r.Context(), req.Name, normalizeParent(req.ParentID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, node)
}

// UpdateMenu handles PUT /menus/{id}
func (h *MenuHandler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateMenuRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	patch, err := resolveUpdate(id, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	node, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, node)
}

// DeleteMenu handles DELETE /menus/{id}
func (h *MenuHandler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, node)
}

// resolveUpdate turns either payload shape into a patch. The editor's aliases are checked
// against the canonical fields and the stored state; a disagreement is a 400, never a no-op.
func resolveUpdate(id string, req UpdateMenuRequest) (services.MenuPatch, error) {
	var patch services.MenuPatch

	if req.Name.Set {
		if req.Name.Value == nil {
			return patch, badRequest("name must be a string")
		}
		patch.Name = req.Name.Value
	}
	if req.SelectedMenuName.Set {
		alias := req.SelectedMenuName.Value
		if alias == nil {
			return patch, badRequest("selectedMenuName must be a string")
		}
		if patch.Name != nil && *patch.Name != *alias {
			return patch, badRequest("name and selectedMenuName disagree")
		}
		patch.Name = alias
	}
	if patch.Name != nil && *patch.Name == "" {
		return patch, badRequest("name must not be empty")
	}

	if req.SelectedMenuID.Set {
		if !req.SelectedMenuID.Present() || *req.SelectedMenuID.Value != id {
			return patch, badRequest(fmt.Sprintf("selectedMenuId does not match menu %q", id))
		}
	}

	if req.ParentID.Set {
		parent := normalizeParent(req.ParentID.Value)
		if err := validateParentID(parent); err != nil {
			return patch, badRequest(err.Error())
		}
		patch.Parent = services.ParentChange{Set: true, ID: parent}
	}

	// checked against the stored parent inside the update transaction
	if req.ParentMenuName.Set {
		want := ""
		if req.ParentMenuName.Value != nil {
			want = *req.ParentMenuName.Value
		}
		patch.ExpectParentName = &want
	}

	if patch.Name == nil && !patch.Parent.Set {
		return patch, badRequest("request has no name or parentId to update")
	}
	return patch, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
