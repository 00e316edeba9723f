package validate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidateSendsDecodedText(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/validate" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"decoded_text":"hello"}` {
			t.Errorf("body = %s", body)
		}
		w.Write([]byte(`{"status":"success","decoded_message":"hello","verified":true,"extracted_message":"Agent A","debug_info":{"k":1}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	res, err := c.Validate(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !res.Success() || !res.Verified || res.ExtractedMessage != "Agent A" || res.DecodedMessage != "hello" {
		t.Errorf("result = %+v", res)
	}
	if res.StatusCode != 200 || res.RequestID == "" || res.Metrics == nil {
		t.Errorf("client fields not set: %+v", res)
	}
	var dbg map[string]int
	if err := json.Unmarshal(res.DebugInfo, &dbg); err != nil || dbg["k"] != 1 {
		t.Errorf("debug_info = %s", res.DebugInfo)
	}
}

func TestValidateUnverified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","verified":false}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Validate(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success() || res.Verified || res.ExtractedMessage != "" {
		t.Errorf("result = %+v", res)
	}
}

func TestValidateServerErrorBodyIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","message":"Signature table unavailable"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Validate(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success() || res.Message != "Signature table unavailable" || res.StatusCode != 500 {
		t.Errorf("result = %+v", res)
	}
}

func TestValidateTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	url := srv.URL

	_, err := New(url, time.Second).Validate(context.Background(), "x")
	if !errors.Is(err, ErrTransport) || !strings.Contains(err.Error(), "502") {
		t.Errorf("html body: err = %v", err)
	}

	srv.Close()
	_, err = New(url, time.Second).Validate(context.Background(), "x")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("closed server: err = %v", err)
	}
}

func TestValidateMissingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"No decoded text provided"}`))
	}))
	defer srv.Close()

	r, err := New(srv.URL, time.Second).Validate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.Success() {
		t.Error("result without status must not be success")
	}
	if r.Message != "No decoded text provided" || r.StatusCode != http.StatusBadRequest {
		t.Errorf("result = %+v", r)
	}
}

func TestValidateContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := New(srv.URL, 5*time.Second).Validate(ctx, "x"); err == nil {
		t.Error("expected error after context deadline")
	}
}

func TestSignatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/signatures" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","signatures":{"c2ln":"Agent A"}}`))
	}))
	defer srv.Close()

	sigs, err := New(srv.URL, time.Second).Signatures(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sigs["c2ln"] != "Agent A" {
		t.Errorf("signatures = %v", sigs)
	}
}

func TestFake(t *testing.T) {
	f := NewFake(&Result{Status: StatusSuccess, Verified: true}, nil)
	f.Validate(context.Background(), "a")
	res, _ := f.Validate(context.Background(), "b")
	res.Verified = false
	if got := f.Texts(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("texts = %v", got)
	}
	again, _ := f.Validate(context.Background(), "c")
	if !again.Verified {
		t.Error("fake result mutated by caller")
	}
}
