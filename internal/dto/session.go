package dto

import "github.com/presentia-id/presentia-api/internal/models"

// DaySheetResponse bundles the resolved session with its raw record rows.
type DaySheetResponse struct {
	Session models.EffectiveSession `json:"session"`
	Rows    []models.DaySheetRow    `json:"rows"`
}
