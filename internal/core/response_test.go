package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airtwin/internal/types"
)

func requestWithID(id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	return r.WithContext(types.WithRequestID(r.Context(), id))
}

func TestData_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, requestWithID("req-1"), http.StatusOK, []string{})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if body := rec.Body.String(); body != `{"data":[]}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestDataWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	n := 2
	DataWithMeta(rec, requestWithID("req-1"), http.StatusOK, []int{1, 2}, &ResponseMeta{Source: types.SourceSimulator, Count: &n})

	var resp struct {
		Data []int `json:"data"`
		Meta struct {
			Source string `json:"source"`
			Count  int    `json:"count"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.Source != "simulator" || resp.Meta.Count != 2 {
		t.Errorf("unexpected meta %+v", resp.Meta)
	}
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "not found",
			err:        types.NewAppError(types.ErrCodeNotFoundRunway, "runway RW99 not found", nil),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found_runway",
			wantMsg:    "runway RW99 not found",
		},
		{
			name:       "scenario",
			err:        types.NewAppError(types.ErrCodeScenarioInvalidSpeed, "speed must be between 0.5 and 5.0", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "scenario_invalid_speed",
			wantMsg:    "speed must be between 0.5 and 5.0",
		},
		{
			name:       "upstream timeout wrapped",
			err:        fmt.Errorf("refresh: %w", types.NewAppError(types.ErrCodeUpstreamTimeout, "refresh timed out", nil)),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "upstream_timeout",
			wantMsg:    "refresh timed out",
		},
		{
			name:       "upstream unavailable",
			err:        types.NewAppError(types.ErrCodeUpstreamUnavailable, "broker down", errors.New("dial tcp")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_unavailable",
			wantMsg:    "broker down",
		},
		{
			name:       "generic",
			err:        errors.New("secret internal detail"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_unexpected_error",
			wantMsg:    "an unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, requestWithID("req-42"), tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp APIErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code: expected %q, got %q", tt.wantCode, resp.Error.Code)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message: expected %q, got %q", tt.wantMsg, resp.Error.Message)
			}
			if resp.Error.RequestID != "req-42" {
				t.Errorf("request id: expected req-42, got %q", resp.Error.RequestID)
			}
			if strings.Contains(rec.Body.String(), "dial tcp") || strings.Contains(rec.Body.String(), "secret") {
				t.Errorf("response leaked the wrapped cause: %s", rec.Body.String())
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Speed float64 `json:"speed"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", `{"speed": 2.5}`, ""},
		{"empty", ``, "must not be empty"},
		{"malformed", `{"speed": `, "JSON"},
		{"unknown field", `{"speed": 1, "turbo": true}`, "unknown field"},
		{"wrong type", `{"speed": "fast"}`, "invalid value"},
		{"two values", `{"speed": 1} {"speed": 2}`, "single JSON object"},
		{"too large", `{"speed": 1, "pad": "` + strings.Repeat("x", maxRequestBodySize) + `"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.payload))
			var dst body
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.name == "valid" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Speed != 2.5 {
					t.Errorf("expected 2.5, got %v", dst.Speed)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			var appErr *types.AppError
			if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationInvalidBody {
				t.Fatalf("expected validation_invalid_body, got %v", err)
			}
			if tt.wantErr != "" && !strings.Contains(appErr.Message, tt.wantErr) {
				t.Errorf("message %q does not contain %q", appErr.Message, tt.wantErr)
			}
		})
	}
}
