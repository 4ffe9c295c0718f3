package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rollcall/internal/device"
	"rollcall/internal/geo"
)

func testDevice() *device.Info {
	info := device.NewInfo(device.Profile{
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36",
		Language:          "en-US",
		ScreenWidth:       1920,
		ScreenHeight:      1080,
		Timezone:          "Africa/Lagos",
		TimezoneOffsetMin: -60,
	})
	return &info
}

func testForm() *Form {
	return &Form{MatricNo: "csc/2021/001", SessionCode: "4821", Level: "300"}
}

func TestSubmitPreflight(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	loc := &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}
	tests := []struct {
		name string
		form *Form
		loc  *geo.Sample
		dev  *device.Info
	}{
		{"empty matric", &Form{SessionCode: "4821", Level: "300"}, loc, testDevice()},
		{"empty code", &Form{MatricNo: "csc/2021/001", Level: "300"}, loc, testDevice()},
		{"empty level", &Form{MatricNo: "csc/2021/001", SessionCode: "4821"}, loc, testDevice()},
		{"missing location", testForm(), nil, testDevice()},
		{"missing device", testForm(), loc, nil},
		{"non-numeric level", &Form{MatricNo: "csc/2021/001", SessionCode: "4821", Level: "abc"}, loc, testDevice()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Submit(context.Background(), tt.form, tt.loc, tt.dev)
			if res.Kind != ResultError {
				t.Errorf("Kind = %v, want ResultError", res.Kind)
			}
			if res.Message == "" {
				t.Error("preflight failure carries no message")
			}
		})
	}
	if hits != 0 {
		t.Errorf("server contacted %d times during preflight failures, want 0", hits)
	}
}

func TestSubmitSuccess(t *testing.T) {
	var seen submitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/attendance/submit" {
			t.Errorf("path = %q, want /api/attendance/submit", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Attendance recorded",
			"record": map[string]any{
				"course":       "CSC301",
				"matric_no":    "CSC/2021/001",
				"receipt":      "7F3A9B2C11D4E5F6",
				"session_code": "4821",
				"status":       "present",
				"student_name": "Ngozi Okafor",
			},
		})
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	form := testForm()
	loc := &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}
	dev := testDevice()
	fingerprintBefore := dev.Fingerprint

	res := c.Submit(context.Background(), form, loc, dev)
	if res.Kind != ResultSuccess {
		t.Fatalf("Kind = %v (message %q), want ResultSuccess", res.Kind, res.Message)
	}
	if res.Record == nil || res.Record.Receipt != "7F3A9B2C11D4E5F6" {
		t.Errorf("Record = %+v, want receipt 7F3A9B2C11D4E5F6", res.Record)
	}

	// What went over the wire.
	if seen.MatricNo != "CSC/2021/001" {
		t.Errorf("transmitted matric_no = %q, want uppercased CSC/2021/001", seen.MatricNo)
	}
	if seen.Accuracy != 42 {
		t.Errorf("transmitted accuracy = %g, want 42 unchanged", seen.Accuracy)
	}
	if seen.Level != 300 {
		t.Errorf("transmitted level = %d, want 300", seen.Level)
	}
	if seen.DeviceInfo.Fingerprint != fingerprintBefore {
		t.Error("transmitted fingerprint differs from computed one")
	}

	// Success resets the form but leaves location and device intact.
	if form.MatricNo != "" || form.SessionCode != "" || form.Level != "" {
		t.Errorf("form = %+v, want all fields reset", form)
	}
	if loc.Accuracy != 42 {
		t.Error("location mutated by submission")
	}
	if dev.Fingerprint != fingerprintBefore {
		t.Error("device info mutated by submission")
	}
}

func TestSubmitAccuracyClampedOnWire(t *testing.T) {
	var seen submitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&seen)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{"negative", -5, 0},
		{"above cap", 15000, 10000},
		{"in range", 42, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: tt.raw}
			res := c.Submit(context.Background(), testForm(), loc, testDevice())
			if res.Kind != ResultSuccess {
				t.Fatalf("Kind = %v, want ResultSuccess", res.Kind)
			}
			if seen.Accuracy != tt.want {
				t.Errorf("transmitted accuracy = %g, want %g", seen.Accuracy, tt.want)
			}
		})
	}
}

func TestSubmitClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         map[string]any
		want         ResultKind
		wantMessage  string
		wantExisting bool
	}{
		{
			name:   "already submitted by message",
			status: http.StatusConflict,
			body: map[string]any{
				"success":         false,
				"error":           "Student has already submitted attendance for this session",
				"existing_record": map[string]any{"status": "present", "submitted_at": "2026-03-14T09:00:00Z"},
			},
			want:         ResultAlreadySubmitted,
			wantExisting: true,
		},
		{
			name:   "device reused by message",
			status: http.StatusConflict,
			body:   map[string]any{"success": false, "error": "This device has already been used for attendance"},
			want:   ResultDeviceReused,
		},
		{
			name:   "already submitted by code",
			status: http.StatusConflict,
			body:   map[string]any{"success": false, "error": "duplicate entry", "code": "duplicate_submission"},
			want:   ResultAlreadySubmitted,
		},
		{
			name:   "device reused by code",
			status: http.StatusConflict,
			body:   map[string]any{"success": false, "error": "conflict", "code": "device_reused"},
			want:   ResultDeviceReused,
		},
		{
			name:        "generic error passes message through",
			status:      http.StatusForbidden,
			body:        map[string]any{"success": false, "error": "You are 840m from the session point, allowed 100m"},
			want:        ResultError,
			wantMessage: "You are 840m from the session point, allowed 100m",
		},
		{
			name:        "failure without error text",
			status:      http.StatusInternalServerError,
			body:        map[string]any{"success": false},
			want:        ResultError,
			wantMessage: msgBadResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			res := c.Submit(context.Background(), testForm(), &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}, testDevice())
			if res.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.want)
			}
			if tt.wantMessage != "" && res.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantMessage)
			}
			if tt.wantExisting && res.Existing == nil {
				t.Error("Existing record missing")
			}
		})
	}
}

func TestSubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := New(srv.URL, nil)

	res := c.Submit(context.Background(), testForm(), &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}, testDevice())
	if res.Kind != ResultError {
		t.Fatalf("Kind = %v, want ResultError", res.Kind)
	}
	if res.Message != msgNetworkError {
		t.Errorf("Message = %q, want %q", res.Message, msgNetworkError)
	}
}

func TestSubmitFormNotResetOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "This device has already been used for attendance"})
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	form := testForm()
	c.Submit(context.Background(), form, &geo.Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}, testDevice())
	if form.MatricNo == "" {
		t.Error("form reset on a failed submission")
	}
}
