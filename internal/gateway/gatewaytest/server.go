// Package gatewaytest provides an in-process market-data gateway for tests.
package gatewaytest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/vix-data/internal/gateway"
)

// Path is the websocket path the fake gateway serves.
const Path = "/v1/ws"

// Contract scripts the fake gateway's behavior for one contract month.
type Contract struct {
	ConID         int64
	Ticks         []gateway.Tick    // Sent in order after req_mkt_data
	QualifyErr    *gateway.ErrorMsg // Returned instead of contract details
	MarketDataErr *gateway.ErrorMsg // Returned instead of ticks
	NoSnapshotEnd bool              // Withhold snapshot_end so the client waits
}

// Server is a scripted fake gateway.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	contracts   map[string]Contract // by contract month
	byConID     map[int64]string
	nextConID   int64
	rejectHello *gateway.ErrorMsg
	helloMsg    any
	counts      map[string]int
	qualified   []gateway.ContractSpec
	conns       map[*websocket.Conn]struct{}
}

// NewServer starts a fake gateway. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		contracts: make(map[string]Contract),
		byConID:   make(map[int64]string),
		nextConID: 1000,
		counts:    make(map[string]int),
		conns:     make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handle)
	s.srv = httptest.NewServer(mux)
	return s
}

// Close shuts down the server and all connections.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

// Config returns a session config pointing at the server with short timeouts.
func (s *Server) Config() gateway.Config {
	u, _ := url.Parse(s.srv.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	cfg := gateway.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.Path = Path
	cfg.ConnectTimeout = 2 * time.Second
	cfg.RequestTimeout = 2 * time.Second
	cfg.PingInterval = time.Hour
	return cfg
}

// SetContract scripts the response for a contract month.
func (s *Server) SetContract(month string, c Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ConID == 0 {
		s.nextConID++
		c.ConID = s.nextConID
	}
	s.contracts[month] = c
	s.byConID[c.ConID] = month
}

// SetPrice scripts a contract with last and close prices plus volume and open interest.
// An empty price or a negative count leaves that field unsent.
func (s *Server) SetPrice(month, last, close string, volume, openInterest int64) {
	var ticks []gateway.Tick
	if last != "" {
		ticks = append(ticks, gateway.Tick{Field: gateway.FieldLast, Value: decimal.RequireFromString(last)})
	}
	if close != "" {
		ticks = append(ticks, gateway.Tick{Field: gateway.FieldClose, Value: decimal.RequireFromString(close)})
	}
	if volume >= 0 {
		ticks = append(ticks, gateway.Tick{Field: gateway.FieldVolume, Value: decimal.NewFromInt(volume)})
	}
	if openInterest >= 0 {
		ticks = append(ticks, gateway.Tick{Field: gateway.FieldOpenInterest, Value: decimal.NewFromInt(openInterest)})
	}
	s.SetContract(month, Contract{Ticks: ticks})
}

// RejectHello makes every hello handshake fail with the given error.
func (s *Server) RejectHello(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectHello = &gateway.ErrorMsg{Code: code, Message: message}
}

// SetHelloPayload replaces the msg of the hello acknowledgement.
func (s *Server) SetHelloPayload(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.helloMsg = msg
}

// Count returns how many times a command was received.
func (s *Server) Count(cmd string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[cmd]
}

// Qualified returns the contract specs received, in order.
func (s *Server) Qualified() []gateway.ContractSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gateway.ContractSpec, len(s.qualified))
	copy(out, s.qualified)
	return out
}

// DropConnections closes every open client connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

type incoming struct {
	ID     int64           `json:"id"`
	Cmd    string          `json:"cmd"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd incoming
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		s.mu.Lock()
		s.counts[cmd.Cmd]++
		s.mu.Unlock()

		if err := s.dispatch(conn, cmd); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(conn *websocket.Conn, cmd incoming) error {
	switch cmd.Cmd {
	case gateway.CmdHello:
		s.mu.Lock()
		reject, hello := s.rejectHello, s.helloMsg
		s.mu.Unlock()
		if reject != nil {
			return write(conn, cmd.ID, gateway.TypeError, reject)
		}
		if hello == nil {
			hello = gateway.HelloMsg{ServerVersion: 176, ConnTime: time.Now().UTC().Format(time.RFC3339)}
		}
		return write(conn, cmd.ID, gateway.TypeOK, hello)

	case gateway.CmdQualify:
		var spec gateway.ContractSpec
		json.Unmarshal(cmd.Params, &spec)

		s.mu.Lock()
		s.qualified = append(s.qualified, spec)
		c, ok := s.contracts[spec.ContractMonth]
		s.mu.Unlock()

		if !ok {
			return write(conn, cmd.ID, gateway.TypeError, gateway.ErrorMsg{
				Code:    gateway.CodeNoSecurityDefinition,
				Message: "No security definition has been found for the request",
			})
		}
		if c.QualifyErr != nil {
			return write(conn, cmd.ID, gateway.TypeError, c.QualifyErr)
		}
		return write(conn, cmd.ID, gateway.TypeContractDetails, gateway.ContractDetails{
			ConID:         c.ConID,
			LocalSymbol:   "VX" + spec.ContractMonth,
			ContractMonth: spec.ContractMonth,
			Exchange:      spec.Exchange,
			Multiplier:    "1000",
		})

	case gateway.CmdReqMktData:
		var params gateway.MarketDataParams
		json.Unmarshal(cmd.Params, &params)

		s.mu.Lock()
		month, ok := s.byConID[params.ConID]
		c := s.contracts[month]
		s.mu.Unlock()

		if !ok {
			return write(conn, cmd.ID, gateway.TypeError, gateway.ErrorMsg{
				Code:    gateway.CodeNoSecurityDefinition,
				Message: "unknown contract id",
			})
		}
		if c.MarketDataErr != nil {
			return write(conn, cmd.ID, gateway.TypeError, c.MarketDataErr)
		}
		for _, tick := range c.Ticks {
			if err := write(conn, cmd.ID, gateway.TypeTick, tick); err != nil {
				return err
			}
		}
		if !c.NoSnapshotEnd {
			return write(conn, cmd.ID, gateway.TypeSnapshotEnd, nil)
		}
		return nil

	default:
		return nil
	}
}

func write(conn *websocket.Conn, id int64, typ string, msg any) error {
	frame := map[string]any{"id": id, "type": typ}
	if msg != nil {
		frame["msg"] = msg
	}
	return conn.WriteJSON(frame)
}
