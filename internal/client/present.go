package client

import "fmt"

// Variant selects which modal the UI renders for a submission result.
type Variant string

const (
	VariantSuccess          Variant = "success"
	VariantAlreadySubmitted Variant = "already_submitted"
	VariantDeviceReused     Variant = "device_reused"
	VariantError            Variant = "error"
)

// Display is the user-facing rendering of a submission result.
type Display struct {
	Variant Variant
	Title   string
	Detail  string
	Receipt string
}

// Present maps a result to its modal. Pure function, no side effects.
func Present(r Result) Display {
	switch r.Kind {
	case ResultSuccess:
		d := Display{Variant: VariantSuccess, Title: "Attendance Recorded"}
		if r.Record != nil {
			d.Detail = fmt.Sprintf("%s marked present for %s.", r.Record.StudentName, r.Record.Course)
			d.Receipt = r.Record.Receipt
		}
		return d
	case ResultAlreadySubmitted:
		d := Display{Variant: VariantAlreadySubmitted, Title: "Already Submitted"}
		if r.Existing != nil {
			d.Detail = fmt.Sprintf("Attendance was already recorded at %s.", r.Existing.SubmittedAt.Format("15:04"))
		}
		return d
	case ResultDeviceReused:
		return Display{
			Variant: VariantDeviceReused,
			Title:   "Device Already Used",
			Detail:  "This device has already submitted attendance for another student.",
		}
	default:
		return Display{Variant: VariantError, Title: "Submission Failed", Detail: r.Message}
	}
}
