package recapapi

import "time"

// Status is the ordered phase enum of a server-side render job.
type Status string

const (
	StatusPending              Status = "pending"
	StatusExtractingTranscript Status = "extracting_transcript"
	StatusGeneratingScript     Status = "generating_script"
	StatusGeneratingAudio      Status = "generating_audio"
	StatusRenderingVideo       Status = "rendering_video"
	StatusUploading            Status = "uploading"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusCancelled            Status = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// phaseOrder ranks the non-terminal phases for progress display.
var phaseOrder = map[Status]int{
	StatusPending:              0,
	StatusExtractingTranscript: 1,
	StatusGeneratingScript:     2,
	StatusGeneratingAudio:      3,
	StatusRenderingVideo:       4,
	StatusUploading:            5,
}

// Phase returns the ordinal of a non-terminal status, -1 for terminal
// or unknown statuses.
func (s Status) Phase() int {
	if rank, ok := phaseOrder[s]; ok {
		return rank
	}
	return -1
}

// Job is one in-flight server-side render, handed around as a
// read-only snapshot after each successful check.
type Job struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	StatusMessage   string    `json:"status_message,omitempty"`
	ResultURL       string    `json:"result_url,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// RegionPayload is one redaction or crop rectangle on the wire, in
// percentage coordinates.
type RegionPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Submission is the aggregate payload the wizard builds for the
// rendering service.
type Submission struct {
	SourceURL        string          `json:"source_url"`
	Voice            string          `json:"voice"`
	SubtitlesEnabled bool            `json:"subtitles_enabled"`
	SubtitleLanguage string          `json:"subtitle_language,omitempty"`
	LogoURL          string          `json:"logo_url,omitempty"`
	LogoPosition     string          `json:"logo_position,omitempty"`
	FlipHorizontal   bool            `json:"flip_horizontal"`
	Zoom             float64         `json:"zoom"`
	Brightness       float64         `json:"brightness"`
	Contrast         float64         `json:"contrast"`
	Saturation       float64         `json:"saturation"`
	AspectRatio      string          `json:"aspect_ratio"`
	Regions          []RegionPayload `json:"regions"`
	CropBox          *RegionPayload  `json:"crop_box,omitempty"`
}
