package quote

import (
	"errors"
	"fmt"

	"github.com/rickgao/vix-data/internal/model"
)

// Errors
var (
	ErrContractResolution = errors.New("contract resolution failed")
	ErrQuoteTimeout       = errors.New("no quote data within wait")
	ErrNoPrice            = errors.New("quote has neither last nor close price")
)

// FetchError is a per-contract failure.
type FetchError struct {
	Contract model.ContractID
	Kind     model.FailureKind
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Contract, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Failure converts the error into the descriptor carried on a cycle result.
func (e *FetchError) Failure() model.ContractFailure {
	return model.ContractFailure{
		Contract:      e.Contract.Symbol,
		ContractMonth: e.Contract.Month,
		Kind:          e.Kind,
		Reason:        e.Err.Error(),
	}
}

func fetchError(id model.ContractID, kind model.FailureKind, err error) *FetchError {
	return &FetchError{Contract: id, Kind: kind, Err: err}
}
