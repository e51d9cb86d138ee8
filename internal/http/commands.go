// Package http is the request boundary: it authenticates requests, parses
// payloads into typed commands and renders ledger results as JSON. No
// balance rules live here.
package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"ledger/internal/core"
)

// DepositCommand is a validated deposit request.
type DepositCommand struct {
	OwnerID string
	Amount  int64
}

// TransferCommand is a validated transfer request.
type TransferCommand struct {
	FromOwnerID string
	ToOwnerID   string
	Amount      int64
}

type depositPayload struct {
	Amount json.Number `json:"amount"`
}

type transferPayload struct {
	To     string      `json:"to"`
	Amount json.Number `json:"amount"`
}

// ParseDepositCommand turns a raw request body into a DepositCommand or a
// core error. Pure function; no I/O beyond the byte slice.
func ParseDepositCommand(ownerID string, body []byte) (DepositCommand, error) {
	if strings.TrimSpace(ownerID) == "" {
		return DepositCommand{}, core.ErrInvalidOwner
	}

	var p depositPayload
	if err := decodeStrict(body, &p); err != nil {
		return DepositCommand{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	amount, err := core.ParseJSONUnits(p.Amount)
	if err != nil {
		return DepositCommand{}, err
	}

	return DepositCommand{OwnerID: ownerID, Amount: amount}, nil
}

// ParseTransferCommand turns a raw request body into a TransferCommand or a
// core error. The source owner comes from authentication, never from the
// payload.
func ParseTransferCommand(fromOwnerID string, body []byte) (TransferCommand, error) {
	if strings.TrimSpace(fromOwnerID) == "" {
		return TransferCommand{}, core.ErrInvalidOwner
	}

	var p transferPayload
	if err := decodeStrict(body, &p); err != nil {
		return TransferCommand{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}

	cmd := TransferCommand{
		FromOwnerID: fromOwnerID,
		ToOwnerID:   strings.TrimSpace(p.To),
		Amount:      0,
	}
	amount, err := core.ParseJSONUnits(p.Amount)
	if err != nil {
		return TransferCommand{}, err
	}
	cmd.Amount = amount

	intent := core.TransferIntent{
		FromOwnerID: cmd.FromOwnerID,
		ToOwnerID:   cmd.ToOwnerID,
		Amount:      cmd.Amount,
	}
	if err := intent.Validate(); err != nil {
		return TransferCommand{}, err
	}
	return cmd, nil
}

// Intent converts the command back into the domain shape the ledger takes.
func (c TransferCommand) Intent() core.TransferIntent {
	return core.TransferIntent{
		FromOwnerID: c.FromOwnerID,
		ToOwnerID:   c.ToOwnerID,
		Amount:      c.Amount,
	}
}

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
