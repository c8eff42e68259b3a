package dto

import (
	"time"

	"github.com/noah-isme/recordsync/internal/models"
)

// ExportRequest captures the POST /exports payload.
type ExportRequest struct {
	Format models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse describes an export job and, once finished, where to
// download it.
type ExportJobResponse struct {
	ID         string              `json:"id"`
	Format     models.ReportFormat `json:"format"`
	Status     models.ReportStatus `json:"status"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NewExportJobResponse maps a job to its response payload.
func NewExportJobResponse(job *models.ReportJob) *ExportJobResponse {
	return &ExportJobResponse{
		ID:         job.ID,
		Format:     job.Format,
		Status:     job.Status,
		ResultURL:  job.ResultURL,
		Error:      job.ErrorMessage,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
}
