package domain

// Phase is the lifecycle step of the analysis session.
type Phase string

const (
	PhaseNoImage    Phase = "no-image"
	PhaseImageReady Phase = "image-ready"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseAnalyzed   Phase = "analyzed"
	PhaseFailed     Phase = "failed"
)

// EncodedImage is an ingested photo. Data and the bytes behind PreviewHandle
// come from the same read.
type EncodedImage struct {
	MediaType     string
	Data          []byte
	PreviewHandle string
}

// AnalysisRequest is one inference attempt: the image plus the fixed prompt.
// Backends must not modify Image.Data.
type AnalysisRequest struct {
	Image  EncodedImage
	Prompt string
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
)

// AnalysisResult is a tagged variant; only the field matching Outcome is set.
type AnalysisResult struct {
	Outcome         Outcome
	Text            string
	FallbackMessage string
	Reason          ErrorKind
}

func Success(text string) AnalysisResult {
	return AnalysisResult{Outcome: OutcomeSuccess, Text: text}
}

func Empty(fallback string) AnalysisResult {
	return AnalysisResult{Outcome: OutcomeEmpty, FallbackMessage: fallback}
}

func Failure(reason ErrorKind) AnalysisResult {
	return AnalysisResult{Outcome: OutcomeFailure, Reason: reason}
}

// Failed reports whether the result should move the session to PhaseFailed.
func (r AnalysisResult) Failed() bool {
	return r.Outcome == OutcomeFailure
}
