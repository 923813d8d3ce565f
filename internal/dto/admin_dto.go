package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AdminStudentListRequest defines filters for listing students.
type AdminStudentListRequest struct {
	Page     int
	PageSize int
	Search   string
	Class    string
	Status   string `validate:"omitempty,oneof=active inactive archived"`
}

// AdminStudentCreateRequest registers a student for the portal.
type AdminStudentCreateRequest struct {
	Code      string `json:"code" validate:"required,min=2,max=64"`
	Name      string `json:"name" validate:"required,min=1,max=255"`
	ClassID   *uint  `json:"class_id"`
	ClassName string `json:"class_name" validate:"omitempty,max=128"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
}

// AdminStudentUpdateRequest captures partial update payloads for students.
type AdminStudentUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	ClassID   *uint   `json:"class_id"`
	ClassName *string `json:"class_name" validate:"omitempty,max=128"`
	Status    *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Password  *string `json:"password" validate:"omitempty,min=6,max=128"`
}

// AdminStudentResponse serializes student data for admin endpoints.
type AdminStudentResponse struct {
	ID        uint       `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	ClassID   *uint      `json:"class_id,omitempty"`
	ClassName string     `json:"class_name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AdminStudentListResponse wraps a paginated student response.
type AdminStudentListResponse struct {
	Items      []AdminStudentResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewAdminStudentResponse converts a student model into a DTO.
func NewAdminStudentResponse(student models.Student) AdminStudentResponse {
	var deletedAt *time.Time
	if student.DeletedAt.Valid {
		t := student.DeletedAt.Time
		deletedAt = &t
	}

	return AdminStudentResponse{
		ID:        student.ID,
		Code:      student.Code,
		Name:      student.Name,
		ClassID:   student.ClassID,
		ClassName: student.ClassName,
		Status:    student.Status,
		CreatedAt: student.CreatedAt,
		UpdatedAt: student.UpdatedAt,
		DeletedAt: deletedAt,
	}
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page          int
	PageSize      int
	ActorID       uint
	Action        string
	EntityType    string
	EntityID      uint
	CorrelationID string
	Since         *time.Time
	Until         *time.Time
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		CorrelationID: entry.CorrelationID,
		Metadata:      metadataFromJSON(entry.Metadata),
		CreatedAt:     entry.CreatedAt,
	}
}

// NewPaginationMeta derives page counts from a total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: totalPages}
}
