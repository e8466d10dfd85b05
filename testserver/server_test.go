package testserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	code, body := post(t, srv.URL+"/health", "")
	if code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
	if body != `{"status":"ok"}` {
		t.Errorf("body = %q", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	for _, want := range []int{200, 404, 503} {
		code, _ := post(t, srv.URL+"/status/"+strconv.Itoa(want), "")
		if code != want {
			t.Errorf("/status/%d returned %d", want, code)
		}
	}
	if code, _ := post(t, srv.URL+"/status/999", ""); code != http.StatusBadRequest {
		t.Errorf("invalid status code accepted: %d", code)
	}
}

func TestFlakyEndpoint(t *testing.T) {
	s, srv := newTestServer(t)
	for i := 0; i < 2; i++ {
		if code, _ := post(t, srv.URL+"/flaky/2", ""); code != http.StatusServiceUnavailable {
			t.Errorf("call %d: status = %d, want 503", i+1, code)
		}
	}
	if code, _ := post(t, srv.URL+"/flaky/2", ""); code != http.StatusOK {
		t.Error("third call should succeed")
	}

	s.ResetFlaky()
	if code, _ := post(t, srv.URL+"/flaky/2", ""); code != http.StatusServiceUnavailable {
		t.Error("reset did not restart the failure window")
	}
}

func TestDecisionIsDeterministic(t *testing.T) {
	_, srv := newTestServer(t)

	code, first := post(t, srv.URL+"/api/decision", `{"appId":"12345"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", code, first)
	}
	_, second := post(t, srv.URL+"/api/decision", `{"appId":"12345"}`)
	if first != second {
		t.Errorf("same appId produced different bodies:\n%s\n%s", first, second)
	}

	if got := gjson.Get(first, "appId").String(); got != "12345" {
		t.Errorf("appId echoed as %q", got)
	}
	score := gjson.Get(first, "score").Int()
	if score < 300 || score >= 850 {
		t.Errorf("score %d out of range [300, 850)", score)
	}
	decision := gjson.Get(first, "decision").String()
	if decision != "approved" && decision != "referred" {
		t.Errorf("decision = %q", decision)
	}

	// Nested form used by real payload templates.
	_, nested := post(t, srv.URL+"/api/decision", `{"application":{"appId":"12345"}}`)
	if nested != first {
		t.Errorf("nested appId should produce the same body, got %s", nested)
	}
}

func TestDecisionRejectsBadInput(t *testing.T) {
	_, srv := newTestServer(t)
	if code, _ := post(t, srv.URL+"/api/decision", `{not json`); code != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d", code)
	}
	if code, _ := post(t, srv.URL+"/api/decision", `{"other":1}`); code != http.StatusBadRequest {
		t.Errorf("missing appId: status = %d", code)
	}
}

func TestRequestCounter(t *testing.T) {
	s, srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		post(t, srv.URL+"/health", "")
	}
	if got := s.Requests(); got != 3 {
		t.Errorf("Requests() = %d, want 3", got)
	}
}
