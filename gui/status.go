package gui

import "dictate/pipeline"

// label is the overlay caption for s; "" hides the overlay.
func label(s pipeline.State) string {
	switch s {
	case pipeline.Recording:
		return "Listening"
	case pipeline.Processing:
		return "Transcribing"
	case pipeline.Done:
		return "Done"
	}
	return ""
}
