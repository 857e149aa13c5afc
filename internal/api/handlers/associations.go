package handlers

import (
	"net/http"
	"time"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// AssociationsHandler exposes the learned associations.
type AssociationsHandler struct {
	*Base
}

// NewAssociationsHandler creates a new associations handler.
func NewAssociationsHandler(repo storage.Repository) *AssociationsHandler {
	return &AssociationsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/associations.
func (h *AssociationsHandler) List(w http.ResponseWriter, r *http.Request) {
	associations, err := h.repo.ListAssociations(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AssociationListResponse{
		Associations: make([]dto.AssociationResponse, 0, len(associations)),
		Count:        len(associations),
	}
	for _, a := range associations {
		response.Associations = append(response.Associations, dto.AssociationResponse{
			NormalizedDescription: a.NormalizedDescription,
			ChurchID:              a.ChurchID,
			ContributorName:       a.ContributorName,
			TimesConfirmed:        a.TimesConfirmed,
			UpdatedAt:             a.UpdatedAt.Format(time.RFC3339),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
