package submit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDirect_AcceptedOnConfirmationBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotBody = r.PostForm.Get("entry.1")
		w.Write([]byte(`<html><body>Your response has been recorded.</body></html>`))
	}))
	defer srv.Close()

	d := NewDirect(srv.Client(), srv.URL, nil)
	out, err := d.Send(context.Background(), map[string]string{"entry.1": "hello"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Fatalf("Send() = %+v, want accepted", out)
	}
	if gotBody != "hello" {
		t.Errorf("posted entry.1 = %q, want %q", gotBody, "hello")
	}
}

func TestDirect_AcceptedOnConfirmationRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/forms/d/e/abc/formResponse")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	d := NewDirect(srv.Client(), srv.URL, nil)
	out, err := d.Send(context.Background(), map[string]string{"entry.1": "x"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Fatalf("Send() = %+v, want accepted on confirmation redirect", out)
	}
}

func TestDirect_RejectedWithoutConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "200 without marker",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><body>Please answer the required question.</body></html>`))
			},
		},
		{
			name: "redirect back to the form",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "/forms/d/e/abc/viewform")
				w.WriteHeader(http.StatusFound)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			d := NewDirect(srv.Client(), srv.URL, nil)
			out, err := d.Send(context.Background(), map[string]string{"entry.1": "x"})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if out.Status != StatusRejected {
				t.Fatalf("Send() = %+v, want rejected", out)
			}
			if out.Reason == "" {
				t.Error("rejection has no reason")
			}
		})
	}
}

func TestDirect_TransportErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: connection refused

	d := NewDirect(nil, srv.URL, nil)
	_, err := d.Send(context.Background(), map[string]string{"entry.1": "x"})
	if err == nil {
		t.Fatal("Send() error = nil for unreachable endpoint, want error")
	}
}
