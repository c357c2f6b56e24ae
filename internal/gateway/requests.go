package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// QualifyContract resolves an unqualified contract into the gateway's contract details.
func (s *Session) QualifyContract(ctx context.Context, spec ContractSpec) (ContractDetails, error) {
	resp, err := s.Request(ctx, CmdQualify, spec)
	if err != nil {
		return ContractDetails{}, fmt.Errorf("qualify %s %s: %w", spec.Symbol, spec.ContractMonth, err)
	}

	if resp.Type != TypeContractDetails {
		return ContractDetails{}, fmt.Errorf("qualify %s %s: unexpected response type %q", spec.Symbol, spec.ContractMonth, resp.Type)
	}

	var details ContractDetails
	if err := json.Unmarshal(resp.Msg, &details); err != nil {
		return ContractDetails{}, fmt.Errorf("decode contract details: %w", err)
	}
	if details.ConID == 0 {
		return ContractDetails{}, fmt.Errorf("qualify %s %s: no contract id in details", spec.Symbol, spec.ContractMonth)
	}

	return details, nil
}

// RequestMarketData starts a snapshot market-data request for a qualified contract.
// The caller must Cancel the returned Subscription.
func (s *Session) RequestMarketData(ctx context.Context, conID int64) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := s.subscribe(CmdReqMktData, CmdCancelMktData, MarketDataParams{
		ConID:    conID,
		Snapshot: true,
	})
	if err != nil {
		return nil, fmt.Errorf("request market data %d: %w", conID, err)
	}
	return sub, nil
}

// Subscription receives the frames of one streaming request.
type Subscription struct {
	id        int64
	cancelCmd string
	events    chan Message
	session   *Session
	link      *link
}

// ID returns the request id frames are correlated by.
func (sub *Subscription) ID() int64 {
	return sub.id
}

// Events returns the channel of frames for this request.
func (sub *Subscription) Events() <-chan Message {
	return sub.events
}

// Done is closed when the underlying connection is lost.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.link.dead
}

// Cancel stops routing frames to the subscription and tells the gateway to stop sending.
func (sub *Subscription) Cancel() {
	sub.session.unsubscribe(sub.id)

	select {
	case <-sub.link.dead:
		return
	default:
	}

	if sub.cancelCmd == "" {
		return
	}
	err := sub.session.send(sub.link, Command{
		ID:     sub.session.cmdID.Add(1),
		Cmd:    sub.cancelCmd,
		Params: CancelParams{ReqID: sub.id},
	})
	if err != nil {
		sub.session.logger.Debug("cancel request failed", "req_id", sub.id, "error", err)
	}
}
