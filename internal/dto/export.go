package dto

// CreateExportRequest enqueues an asynchronous schedule export.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	From   string `json:"from" validate:"required,datetime=2006-01-02"`
	Until  string `json:"until" validate:"required,datetime=2006-01-02"`
}

// ExportJobResponse reports the state of an export job.
type ExportJobResponse struct {
	JobID       string `json:"jobId"`
	TimetableID string `json:"timetableId"`
	Format      string `json:"format"`
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	Error       string `json:"error,omitempty"`
}
