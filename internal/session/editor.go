package session

import (
	"github.com/go-playground/validator"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
)

var validate = validator.New()

// EntityDraft is the in-progress entity edit form. Name is the only required
// field; an empty merge name is fine, an empty entity name is not.
type EntityDraft struct {
	EntityID    common.ID `json:"entity_id"`
	Name        string    `json:"name" validate:"required"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	GraphID     common.ID `json:"graph_id"`
}

// EdgeDraft is the in-progress relationship edit form.
type EdgeDraft struct {
	RelationID   common.ID `json:"relation_id"`
	RelationType string    `json:"relation_type" validate:"required"`
	Description  string    `json:"description"`
	GraphID      common.ID `json:"graph_id"`
}

// invalidField returns the name of the first failing field, or "" when the
// draft validates. Validation failures never reach the network.
func invalidField(draft any) string {
	err := validate.Struct(draft)
	if err == nil {
		return ""
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return errs[0].Field()
	}
	return "form"
}
