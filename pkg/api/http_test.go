package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"squashd/pkg/archive"
	"squashd/pkg/models"
)

func testHandler(t *testing.T) (http.Handler, *archive.Log) {
	t.Helper()
	log, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	h := Handler(log, func() Status {
		return Status{Autosquash: true, QueueDepth: 2}
	})
	return h, log
}

func TestHealthz(t *testing.T) {
	h, _ := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var st Status
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "ok" || !st.Autosquash || st.QueueDepth != 2 {
		t.Fatalf("healthz = %+v", st)
	}
}

func TestArchiveEndpoint(t *testing.T) {
	h, log := testHandler(t)
	if err := log.Record([]models.Message{
		{ID: "m1", Chat: "c1", Text: "one"},
		{ID: "m2", Chat: "c1", Text: "two"},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/archive?chat=c1&limit=10", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Chat    string                   `json:"chat"`
		Count   int                      `json:"count"`
		Records []models.ArchivedMessage `json:"records"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chat != "c1" || resp.Count != 2 || len(resp.Records) != 2 {
		t.Fatalf("archive response = %+v", resp)
	}
	if resp.Records[0].Text != "one" {
		t.Fatalf("record text = %q", resp.Records[0].Text)
	}
}

func TestArchiveEndpointValidation(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/archive", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing chat: status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/archive?chat=c1&limit=-1", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: status = %d", rr.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	h, _ := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
}
