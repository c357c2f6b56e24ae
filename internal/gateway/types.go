package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrTimeout        = errors.New("gateway request timeout")
	ErrConnectionLost = errors.New("gateway connection lost")
)

// SessionError reports a failure to establish or keep the gateway session.
type SessionError struct {
	Op  string // "dial", "hello", "read"
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("gateway session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// GatewayError is an error frame returned by the gateway.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// Gateway error codes.
const (
	CodeNoSecurityDefinition = 200
	CodeClientIDInUse        = 326
	CodeMarketDataNotEnabled = 354
)

// Commands
const (
	CmdHello         = "hello"
	CmdQualify       = "qualify_contract"
	CmdReqMktData    = "req_mkt_data"
	CmdCancelMktData = "cancel_mkt_data"
)

// Message types
const (
	TypeOK              = "ok"
	TypeError           = "error"
	TypeContractDetails = "contract_details"
	TypeTick            = "tick"
	TypeSnapshotEnd     = "snapshot_end"
	TypeNotice          = "notice"
)

// Command is a request frame sent to the gateway.
type Command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params,omitempty"`
}

// Message is a frame received from the gateway.
type Message struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

// ErrorMsg is the message content for an "error" frame.
type ErrorMsg struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Err returns the *GatewayError carried by an error frame, or nil for any other frame.
func (m Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	var em ErrorMsg
	if err := json.Unmarshal(m.Msg, &em); err != nil {
		return &GatewayError{Message: string(m.Msg)}
	}
	return &GatewayError{Code: em.Code, Message: em.Message}
}

// HelloParams are parameters for the hello handshake.
type HelloParams struct {
	ClientID   int    `json:"client_id"`
	ClientName string `json:"client_name,omitempty"`
}

// HelloMsg is the gateway's acknowledgement of a hello.
type HelloMsg struct {
	ServerVersion int    `json:"server_version"`
	ConnTime      string `json:"conn_time"`
}

// ContractSpec describes an unqualified futures contract.
type ContractSpec struct {
	Symbol        string `json:"symbol"`
	SecType       string `json:"sec_type"`
	ContractMonth string `json:"contract_month"` // "YYYYMM"
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency,omitempty"`
}

// ContractDetails is the gateway's fully specified contract.
type ContractDetails struct {
	ConID         int64  `json:"con_id"`
	LocalSymbol   string `json:"local_symbol"`
	ContractMonth string `json:"contract_month"`
	Exchange      string `json:"exchange"`
	Multiplier    string `json:"multiplier"`
	LastTradeDate string `json:"last_trade_date"`
}

// MarketDataParams are parameters for a market-data request.
type MarketDataParams struct {
	ConID    int64 `json:"con_id"`
	Snapshot bool  `json:"snapshot"`
}

// CancelParams are parameters for cancelling a market-data request.
type CancelParams struct {
	ReqID int64 `json:"req_id"`
}

// Tick fields
const (
	FieldLast         = "last"
	FieldClose        = "close"
	FieldBid          = "bid"
	FieldAsk          = "ask"
	FieldVolume       = "volume"
	FieldOpenInterest = "open_interest"
)

// Tick is the message content for a "tick" frame.
type Tick struct {
	Field string          `json:"field"`
	Value decimal.Decimal `json:"value"`
}

// DecodeTick decodes a "tick" frame.
func DecodeTick(m Message) (Tick, error) {
	var t Tick
	if err := json.Unmarshal(m.Msg, &t); err != nil {
		return Tick{}, fmt.Errorf("decode tick: %w", err)
	}
	return t, nil
}

// Config configures a Session.
type Config struct {
	Host           string
	Port           int
	Path           string
	ClientID       int
	ClientName     string
	ConnectTimeout time.Duration // Dial plus hello handshake
	RequestTimeout time.Duration // Per command/response round trip
	PingInterval   time.Duration // Keepalive ping period
	WriteTimeout   time.Duration
	BufferSize     int // Per-subscription event buffer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           7497,
		Path:           "/v1/ws",
		ClientID:       1,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 10 * time.Second,
		PingInterval:   15 * time.Second,
		WriteTimeout:   5 * time.Second,
		BufferSize:     256,
	}
}

// URL returns the websocket URL for the gateway.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.Path,
	}
	return u.String()
}

// State is the session connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
