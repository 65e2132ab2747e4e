package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/status"
)

func testReport() *Report {
	return &Report{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Summary:   status.Summary{Total: 2, Connected: 1, Unknown: 1},
		Devices: []status.DeviceStatus{
			{Serial: "SN1", Connected: true, State: "end_session"},
			{State: status.StateUnknown, CellID: 200},
		},
	}
}

func TestHTTPForwarder(t *testing.T) {
	var got Report
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fw := NewHTTPForwarder(config.HTTPConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer abc"},
		Timeout: time.Second,
	})
	defer fw.Close()

	if err := fw.Forward(context.Background(), testReport()); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if auth != "Bearer abc" {
		t.Errorf("authorization header = %q", auth)
	}
	if got.Summary.Total != 2 || len(got.Devices) != 2 || got.Devices[0].Serial != "SN1" {
		t.Errorf("received %+v", got)
	}
}

func TestHTTPForwarderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fw := NewHTTPForwarder(config.HTTPConfig{URL: srv.URL, Timeout: time.Second})
	if err := fw.Forward(context.Background(), testReport()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient implements the parts of mqtt.Client the forwarder uses
type fakeClient struct {
	mqtt.Client
	connected bool
	err       error
	topics    []string
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	return &fakeToken{err: c.err}
}

func TestMQTTForwarderTopics(t *testing.T) {
	client := &fakeClient{connected: true}
	fw := newMQTTForwarder(client, "enodebd/status", 1)

	if err := fw.Forward(context.Background(), testReport()); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	want := []string{"enodebd/status", "enodebd/status/SN1"}
	if len(client.topics) != len(want) {
		t.Fatalf("topics = %v", client.topics)
	}
	for i := range want {
		if client.topics[i] != want[i] {
			t.Errorf("topic %d = %s, want %s", i, client.topics[i], want[i])
		}
	}
}

func TestMQTTForwarderErrors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{name: "disconnected", client: &fakeClient{}},
		{name: "publish fails", client: &fakeClient{connected: true, err: errors.New("broker gone")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := newMQTTForwarder(tt.client, "enodebd/status", 0)
			if err := fw.Forward(context.Background(), testReport()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type stubForwarder struct {
	name  string
	err   error
	calls int
}

func (f *stubForwarder) Name() string { return f.name }
func (f *stubForwarder) Close()       {}

func (f *stubForwarder) Forward(ctx context.Context, report *Report) error {
	f.calls++
	return f.err
}

func TestForwarderServiceContinuesAfterFailure(t *testing.T) {
	bad := &stubForwarder{name: "bad", err: errors.New("down")}
	good := &stubForwarder{name: "good"}
	s := NewForwarderServiceWith(bad, good)

	if failed := s.Forward(context.Background(), testReport()); failed != 1 {
		t.Errorf("failed = %d", failed)
	}
	if good.calls != 1 {
		t.Error("healthy forwarder skipped")
	}
	if NewForwarderService(config.IntegrationConfig{}).Enabled() {
		t.Error("service enabled without configuration")
	}
}
