package core

import "fmt"

// BatchSummary is the batch-level view of a set of classifications.
type BatchSummary struct {
	Case   BatchCase             `json:"case"`
	Total  int                   `json:"total"`
	Counts map[ImageCategory]int `json:"counts"`
}

// Remediation tells the caller what to do next for a batch case.
type Remediation struct {
	NextAction   string            `json:"nextAction"`
	Instructions string            `json:"instructions"`
	Breakdown    map[string]string `json:"breakdown,omitempty"`
}

// DetermineCase derives the batch case from category counts alone, so the
// result does not depend on row order. An empty batch has no images.
func DetermineCase(classifications []ImageClassification) BatchSummary {
	counts := make(map[ImageCategory]int, 5)
	for _, c := range classifications {
		counts[c.Category]++
	}
	n := len(classifications)
	s := BatchSummary{Total: n, Counts: counts}

	switch {
	case n == 0:
		s.Case = CaseNoImages
	case counts[CategoryCallable] == n:
		s.Case = CaseAllCallable
	case counts[CategoryPlatformNative] == n:
		s.Case = CaseAllPlatformNative
	case counts[CategoryEmpty]+counts[CategoryNotCallable] == n:
		s.Case = CaseNoImages
	case counts[CategoryLocalFile] == n:
		s.Case = CaseAllLocal
	case counts[CategoryCallable] == 0:
		s.Case = CaseNoCallable
	default:
		s.Case = CaseMixed
	}
	return s
}

// Remediation returns the follow-up action for the summary's case.
func (s BatchSummary) Remediation() Remediation {
	switch s.Case {
	case CaseAllCallable:
		return Remediation{
			NextAction:   "processCallableUrls",
			Instructions: "All images are external URLs ready for processing",
		}
	case CaseAllPlatformNative:
		return Remediation{
			NextAction:   "requiresPlatformConverter",
			Instructions: "All images already live in the store media library and need conversion before import",
		}
	case CaseNoImages:
		return Remediation{
			NextAction:   "addImages",
			Instructions: "No usable images found. Add image URLs or upload files",
		}
	case CaseAllLocal:
		return Remediation{
			NextAction:   "uploadLocalFiles",
			Instructions: "All images are local files ready for upload",
		}
	case CaseNoCallable:
		return Remediation{
			NextAction:   "handleMixedNonCallable",
			Instructions: "Mix of media-library references, local files and missing images. No callable URLs detected",
			Breakdown:    s.breakdown(),
		}
	default:
		return Remediation{
			NextAction:   "handleMixedTypes",
			Instructions: "Multiple image types detected. See breakdown for details",
			Breakdown:    s.breakdown(),
		}
	}
}

func (s BatchSummary) breakdown() map[string]string {
	return map[string]string{
		"callable":        fmt.Sprintf("%d external URLs ready for processing", s.Counts[CategoryCallable]),
		"platform_native": fmt.Sprintf("%d media-library references need conversion", s.Counts[CategoryPlatformNative]),
		"local":           fmt.Sprintf("%d local files ready for upload", s.Counts[CategoryLocalFile]),
		"missing":         fmt.Sprintf("%d products missing usable images", s.Counts[CategoryEmpty]+s.Counts[CategoryNotCallable]),
	}
}
