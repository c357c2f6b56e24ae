package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/vix-data/internal/gateway"
	"github.com/rickgao/vix-data/internal/gateway/gatewaytest"
)

func TestSession_ConnectDisconnect(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()

	s := gateway.NewSession(srv.Config(), nil)
	ctx := context.Background()

	if s.IsConnected() {
		t.Fatal("new session should be disconnected")
	}

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !s.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	// Second connect is a no-op.
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	if got := srv.Count(gateway.CmdHello); got != 1 {
		t.Errorf("hello sent %d times, want 1", got)
	}

	if err := s.Disconnect(); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
	if s.IsConnected() {
		t.Error("expected IsConnected to return false after Disconnect")
	}
	if err := s.Disconnect(); err != nil {
		t.Errorf("second Disconnect failed: %v", err)
	}
}

func TestSession_ZeroTimeoutsUseDefaults(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.SetContract("202611", gatewaytest.Contract{ConID: 551601503})

	cfg := srv.Config()
	cfg.ConnectTimeout = 0
	cfg.RequestTimeout = 0
	cfg.WriteTimeout = 0
	cfg.BufferSize = 0

	s := gateway.NewSession(cfg, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Connect(ctx); err != nil {
			t.Fatalf("Connect #%d failed: %v", i+1, err)
		}
		if _, err := s.QualifyContract(ctx, gateway.ContractSpec{
			Symbol:        "VIX",
			SecType:       "FUT",
			ContractMonth: "202611",
			Exchange:      "CFE",
			Currency:      "USD",
		}); err != nil {
			t.Fatalf("QualifyContract #%d failed: %v", i+1, err)
		}
		if err := s.Disconnect(); err != nil {
			t.Fatalf("Disconnect #%d failed: %v", i+1, err)
		}
	}
	if got := srv.Count(gateway.CmdHello); got != 5 {
		t.Errorf("hello sent %d times, want 5", got)
	}
}

// lockedBuffer is a log sink safe for the session's background goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSession_MalformedHelloPayload(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.SetHelloPayload(map[string]any{"server_version": "v176"})

	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := gateway.NewSession(srv.Config(), logger)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	if !s.IsConnected() {
		t.Error("an undecodable hello payload should not fail the handshake")
	}
	if !strings.Contains(logs.String(), "undecodable hello payload") {
		t.Errorf("decode failure not logged:\n%s", logs.String())
	}
}

func TestSession_ConnectUnreachable(t *testing.T) {
	srv := gatewaytest.NewServer()
	cfg := srv.Config()
	srv.Close()

	s := gateway.NewSession(cfg, nil)
	err := s.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect should fail when gateway is down")
	}

	var se *gateway.SessionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T, want *gateway.SessionError", err)
	}
	if se.Op != "dial" {
		t.Errorf("SessionError.Op = %q, want %q", se.Op, "dial")
	}
	if s.State() != gateway.StateDisconnected {
		t.Errorf("State = %v, want disconnected", s.State())
	}
	if s.LastError() == nil {
		t.Error("LastError should record the connect failure")
	}
}

func TestSession_HelloRejected(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.RejectHello(gateway.CodeClientIDInUse, "client id is already in use")

	s := gateway.NewSession(srv.Config(), nil)
	err := s.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect should fail when hello is rejected")
	}

	var se *gateway.SessionError
	if !errors.As(err, &se) || se.Op != "hello" {
		t.Fatalf("error = %v, want hello SessionError", err)
	}
	var ge *gateway.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want wrapped *gateway.GatewayError", err)
	}
	if ge.Code != gateway.CodeClientIDInUse {
		t.Errorf("GatewayError.Code = %d, want %d", ge.Code, gateway.CodeClientIDInUse)
	}
	if s.IsConnected() {
		t.Error("session should stay disconnected")
	}
}

func TestSession_RequestNotConnected(t *testing.T) {
	s := gateway.NewSession(gateway.DefaultConfig(), nil)
	_, err := s.Request(context.Background(), gateway.CmdQualify, nil)
	if !errors.Is(err, gateway.ErrNotConnected) {
		t.Errorf("Request error = %v, want ErrNotConnected", err)
	}
}

func TestSession_QualifyContract(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.SetContract("202611", gatewaytest.Contract{ConID: 551601503})

	s := gateway.NewSession(srv.Config(), nil)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	details, err := s.QualifyContract(ctx, gateway.ContractSpec{
		Symbol:        "VIX",
		SecType:       "FUT",
		ContractMonth: "202611",
		Exchange:      "CFE",
		Currency:      "USD",
	})
	if err != nil {
		t.Fatalf("QualifyContract failed: %v", err)
	}
	if details.ConID != 551601503 {
		t.Errorf("ConID = %d, want %d", details.ConID, 551601503)
	}
	if details.ContractMonth != "202611" {
		t.Errorf("ContractMonth = %q, want %q", details.ContractMonth, "202611")
	}

	got := srv.Qualified()
	if len(got) != 1 || got[0].Symbol != "VIX" || got[0].Exchange != "CFE" {
		t.Errorf("gateway received %+v, want one VIX/CFE spec", got)
	}
}

func TestSession_QualifyUnknownContract(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()

	s := gateway.NewSession(srv.Config(), nil)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	_, err := s.QualifyContract(ctx, gateway.ContractSpec{Symbol: "VIX", ContractMonth: "209912"})
	var ge *gateway.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want *gateway.GatewayError", err)
	}
	if ge.Code != gateway.CodeNoSecurityDefinition {
		t.Errorf("Code = %d, want %d", ge.Code, gateway.CodeNoSecurityDefinition)
	}
	if !s.IsConnected() {
		t.Error("a rejected request should not drop the session")
	}
}

func TestSession_RequestMarketData(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.SetPrice("202611", "19.85", "19.60", 41230, 120554)

	s := gateway.NewSession(srv.Config(), nil)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	details, err := s.QualifyContract(ctx, gateway.ContractSpec{Symbol: "VIX", ContractMonth: "202611"})
	if err != nil {
		t.Fatalf("QualifyContract failed: %v", err)
	}

	sub, err := s.RequestMarketData(ctx, details.ConID)
	if err != nil {
		t.Fatalf("RequestMarketData failed: %v", err)
	}
	defer sub.Cancel()

	ticks := map[string]string{}
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case msg := <-sub.Events():
			if msg.ID != sub.ID() {
				t.Errorf("frame id = %d, want %d", msg.ID, sub.ID())
			}
			if msg.Type == gateway.TypeSnapshotEnd {
				break loop
			}
			tick, err := gateway.DecodeTick(msg)
			if err != nil {
				t.Fatalf("DecodeTick failed: %v", err)
			}
			ticks[tick.Field] = tick.Value.String()
		case <-timeout:
			t.Fatal("timed out waiting for snapshot_end")
		}
	}

	want := map[string]string{
		gateway.FieldLast:         "19.85",
		gateway.FieldClose:        "19.6",
		gateway.FieldVolume:       "41230",
		gateway.FieldOpenInterest: "120554",
	}
	for field, v := range want {
		if ticks[field] != v {
			t.Errorf("tick %s = %q, want %q", field, ticks[field], v)
		}
	}
}

func TestSession_ConnectionDropped(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()

	var mu sync.Mutex
	var states []gateway.State
	hook := gateway.WithStateHook(func(st gateway.State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	s := gateway.NewSession(srv.Config(), nil, hook)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	srv.DropConnections()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsConnected() {
		t.Fatal("session should notice the dropped connection")
	}

	var se *gateway.SessionError
	if !errors.As(s.LastError(), &se) || se.Op != "read" {
		t.Errorf("LastError = %v, want read SessionError", s.LastError())
	}

	mu.Lock()
	got := append([]gateway.State(nil), states...)
	mu.Unlock()
	want := []gateway.State{gateway.StateConnecting, gateway.StateConnected, gateway.StateDisconnected}
	if len(got) != len(want) {
		t.Fatalf("state transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}

	// The session reconnects on demand.
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	defer s.Disconnect()
	if !s.IsConnected() {
		t.Error("expected reconnect to succeed")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state gateway.State
		want  string
	}{
		{gateway.StateDisconnected, "disconnected"},
		{gateway.StateConnecting, "connecting"},
		{gateway.StateConnected, "connected"},
		{gateway.State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConfig_URL(t *testing.T) {
	cfg := gateway.DefaultConfig()
	cfg.Host = "10.0.0.5"
	cfg.Port = 4002
	if got, want := cfg.URL(), "ws://10.0.0.5:4002/v1/ws"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
