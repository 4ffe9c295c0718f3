package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rollcall/internal/device"
	"rollcall/internal/geo"
)

var validate = validator.New()

// Form holds the student's input exactly as typed. On a successful submission
// the fields reset to empty; location and device info are left intact.
type Form struct {
	MatricNo    string
	SessionCode string
	Level       string
}

// Reset clears the input fields.
func (f *Form) Reset() {
	f.MatricNo, f.SessionCode, f.Level = "", "", ""
}

// ResultKind tags the submission outcome.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultAlreadySubmitted
	ResultDeviceReused
	ResultError
)

// SubmissionRecord is the server's proof of a successful submission.
type SubmissionRecord struct {
	Course      string    `json:"course"`
	MatricNo    string    `json:"matric_no"`
	Receipt     string    `json:"receipt"`
	SessionCode string    `json:"session_code"`
	Status      string    `json:"status"`
	StudentName string    `json:"student_name"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExistingRecord describes a submission that already exists for this student.
type ExistingRecord struct {
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Result is the tagged outcome of one submission attempt.
type Result struct {
	Kind     ResultKind
	Record   *SubmissionRecord // set for ResultSuccess
	Existing *ExistingRecord   // set for ResultAlreadySubmitted when known
	Message  string            // set for ResultError
}

const (
	msgMissingFields = "Please fill in all required fields."
	msgNoLocation    = "Location is required. Please allow location access and try again."
	msgNoDevice      = "Device information is missing. Please reload and try again."
	msgNetworkError  = "Network error. Please check your connection and try again."
	msgBadResponse   = "Unexpected response from the server. Please try again."
)

// Error codes the server may attach to a rejection. Older payloads carry only
// free text, so classification falls back to substring matching.
const (
	codeDuplicateSubmission = "duplicate_submission"
	codeDeviceReused        = "device_reused"
)

type submitPayload struct {
	MatricNo    string      `json:"matric_no" validate:"required"`
	SessionCode string      `json:"session_code" validate:"required,len=4"`
	Level       int         `json:"level" validate:"oneof=100 200 300 400 500 600"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Accuracy    float64     `json:"accuracy" validate:"gte=0,lte=10000"`
	DeviceInfo  device.Info `json:"device_info"`
}

type submitEnvelope struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	Record         *SubmissionRecord `json:"record"`
	Error          string            `json:"error"`
	Code           string            `json:"code"`
	ExistingRecord *ExistingRecord   `json:"existing_record"`
}

// Submit performs exactly one submission attempt: preflight locally, one POST,
// interpret the verdict. There are no automatic retries; every failure is
// terminal for the attempt and the student resubmits by hand.
func (c *Client) Submit(ctx context.Context, form *Form, loc *geo.Sample, dev *device.Info) Result {
	if strings.TrimSpace(form.MatricNo) == "" ||
		strings.TrimSpace(form.SessionCode) == "" ||
		strings.TrimSpace(form.Level) == "" {
		return errResult(msgMissingFields)
	}
	if loc == nil {
		return errResult(msgNoLocation)
	}
	if dev == nil {
		return errResult(msgNoDevice)
	}
	level, err := strconv.Atoi(strings.TrimSpace(form.Level))
	if err != nil {
		return errResult(msgMissingFields)
	}

	payload := submitPayload{
		MatricNo:    strings.ToUpper(strings.TrimSpace(form.MatricNo)),
		SessionCode: strings.TrimSpace(form.SessionCode),
		Level:       level,
		Lat:         loc.Lat,
		Lng:         loc.Lng,
		Accuracy:    geo.ClampAccuracy(loc.Accuracy),
		DeviceInfo:  *dev,
	}
	if err := validate.Struct(payload); err != nil {
		return errResult("Invalid submission: " + err.Error())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errResult(msgBadResponse)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/attendance/submit", bytes.NewReader(body))
	if err != nil {
		return errResult(msgBadResponse)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errResult(msgNetworkError)
	}
	defer resp.Body.Close()

	var env submitEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errResult(msgBadResponse)
	}

	if resp.StatusCode < 300 && env.Success {
		form.Reset()
		return Result{Kind: ResultSuccess, Record: env.Record}
	}
	return classify(env)
}

// classify maps a rejection payload to a result variant. The structured code
// wins when present; the substring match over the error text exists for
// payloads that predate error codes and is wording-sensitive.
func classify(env submitEnvelope) Result {
	errText := env.Error
	if errText == "" {
		errText = env.Message
	}
	lower := strings.ToLower(errText)

	switch {
	case env.Code == codeDuplicateSubmission, strings.Contains(lower, "already submitted"):
		return Result{Kind: ResultAlreadySubmitted, Existing: env.ExistingRecord}
	case env.Code == codeDeviceReused, strings.Contains(lower, "device has already been used"):
		return Result{Kind: ResultDeviceReused}
	}
	if errText == "" {
		errText = msgBadResponse
	}
	return errResult(errText)
}

func errResult(msg string) Result {
	return Result{Kind: ResultError, Message: msg}
}
