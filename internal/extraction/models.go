// internal/extraction/models.go
package extraction

// JobStatus represents the lifecycle stage of an extraction job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// JobHandle identifies a submitted extraction job on the backend.
type JobHandle struct {
	JobID string `json:"job_id"`
}

// RawItem is one loosely-typed extracted menu item. The extraction service
// may omit any optional field, and numeric fields may arrive as strings, so
// items are kept as raw maps until reconciliation.
type RawItem map[string]interface{}

// Job is a snapshot of an extraction job as reported by one poll request.
// Results is populated only when Status is completed.
type Job struct {
	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Results  []RawItem `json:"results,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// IsTerminal reports whether the job reached a state from which no further
// transition occurs.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Upload carries the binary image being submitted for extraction.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// acceptedImageTypes is the client-side MIME allowlist checked before any
// network call.
var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// IsAcceptedImageType reports whether the MIME type may be submitted.
func IsAcceptedImageType(contentType string) bool {
	return acceptedImageTypes[contentType]
}
