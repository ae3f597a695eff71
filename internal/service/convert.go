package service

import (
	"time"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:       u.UserID,
		Name:     u.Name,
		Username: u.Username,
		Role:     string(u.Role),
	}
	if u.Unit != nil {
		resp.Unit = &dto.UnitResponse{ID: u.Unit.UnitID, Name: u.Unit.Name}
	}
	return resp
}

func toVehicleResponse(v *model.Vehicle) *dto.VehicleResponse {
	if v == nil {
		return nil
	}
	return &dto.VehicleResponse{
		ID:     v.VehicleID,
		Prefix: v.Prefix,
		Model:  v.Model,
		Plate:  v.Plate,
		Type:   v.Type,
	}
}

func toAutomationRuleResponse(r *model.AutomationRule) *dto.AutomationRuleResponse {
	weekdays := []int(r.Weekdays)
	if weekdays == nil {
		weekdays = []int{}
	}
	return &dto.AutomationRuleResponse{
		ID:              r.RuleID,
		Name:            r.Name,
		IsActive:        r.IsActive,
		Complete:        r.Complete(),
		VehicleID:       r.VehicleID,
		Vehicle:         toVehicleResponse(r.Vehicle),
		TemplateID:      r.TemplateID,
		TimeOfDay:       r.TimeOfDay,
		Weekdays:        weekdays,
		Shift:           string(r.Shift),
		ChecklistType:   string(r.ChecklistType),
		LastGeneratedAt: formatTimePtr(r.LastGeneratedAt),
		Version:         r.Version,
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

func toSolicitationResponse(s *model.Solicitation) *dto.SolicitationResponse {
	return &dto.SolicitationResponse{
		ID:               s.SolicitationID,
		VehicleID:        s.VehicleID,
		Vehicle:          toVehicleResponse(s.Vehicle),
		TemplateID:       s.TemplateID,
		ChecklistType:    string(s.ChecklistType),
		Shift:            string(s.Shift),
		ExpectedAt:       formatTime(s.ExpectedAt),
		OccurrenceDate:   s.OccurrenceDate,
		AutomationRuleID: s.AutomationRuleID,
		Status:           string(s.Status),
		Started:          s.Status == model.SolicitationPending && s.StartedAt != nil,
		StartedAt:        formatTimePtr(s.StartedAt),
		StartedBy:        s.StartedBy,
		FulfilledAt:      formatTimePtr(s.FulfilledAt),
		ChecklistID:      s.ChecklistID,
		CancelReason:     s.CancelReason,
		CancelledAt:      formatTimePtr(s.CancelledAt),
		CancelledBy:      s.CancelledBy,
		Notes:            s.Notes,
		CreatedAt:        formatTime(s.CreatedAt),
	}
}

func toPhotoDTOs(photos []model.PhotoAttachment) []dto.PhotoAttachment {
	out := make([]dto.PhotoAttachment, 0, len(photos))
	for _, p := range photos {
		out = append(out, dto.PhotoAttachment{
			URL:          p.URL,
			OriginalName: p.OriginalName,
			Size:         p.Size,
			Filename:     p.Filename,
		})
	}
	return out
}

func toPhotoModels(photos []dto.PhotoAttachment) []model.PhotoAttachment {
	out := make([]model.PhotoAttachment, 0, len(photos))
	for _, p := range photos {
		out = append(out, model.PhotoAttachment{
			URL:          p.URL,
			OriginalName: p.OriginalName,
			Size:         p.Size,
			Filename:     p.Filename,
		})
	}
	return out
}

func toChecklistResponse(c *model.Checklist) *dto.ChecklistResponse {
	resp := &dto.ChecklistResponse{
		ID:              c.ChecklistID,
		VehicleID:       c.VehicleID,
		Vehicle:         toVehicleResponse(c.Vehicle),
		TemplateID:      c.TemplateID,
		SolicitationID:  c.SolicitationID,
		ChecklistType:   string(c.ChecklistType),
		Shift:           string(c.Shift),
		PerformedAt:     formatTime(c.PerformedAt),
		KmInicial:       c.OdometerStart,
		Combustivel:     c.FuelPercent,
		Observations:    c.Observations,
		Status:          string(c.Status),
		AuthenticatedBy: c.AuthenticatedBy,
		FinalizedAt:     formatTimePtr(c.FinalizedAt),
		CancelReason:    c.CancelReason,
		CancelledAt:     formatTimePtr(c.CancelledAt),
		CreatedAt:       formatTime(c.CreatedAt),
	}
	for _, it := range c.Items {
		resp.Items = append(resp.Items, dto.ChecklistItemResponse{
			ID:           it.ChecklistItemID,
			ItemName:     it.ItemName,
			CategoryName: it.CategoryName,
			ItemType:     string(it.ItemType),
			Required:     it.Required,
			Status:       string(it.Status),
			Note:         it.Note,
			Value:        it.Value,
			Photos:       toPhotoDTOs(it.Photos),
			Position:     it.Position,
		})
	}
	return resp
}

func toAuditLogResponse(a *model.AuditLog) dto.AuditLogResponse {
	resp := dto.AuditLogResponse{
		ID:        a.AuditLogID,
		Entity:    a.Entity,
		EntityID:  a.EntityID,
		Action:    a.Action,
		Reason:    a.Reason,
		CreatedAt: formatTime(a.CreatedAt),
	}
	if a.OperatorID != nil {
		resp.OperatorID = *a.OperatorID
	}
	return resp
}
