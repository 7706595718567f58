package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/congo-pay/secure_wallet/internal/boundary"
	"github.com/congo-pay/secure_wallet/internal/ledger"
)

// CommandID identifies a wallet command on the wire.
type CommandID uint32

const (
	CmdDeposit          CommandID = 0
	CmdPay              CommandID = 1
	CmdViewBalance      CommandID = 2
	CmdViewTransactions CommandID = 3
)

func (c CommandID) String() string {
	switch c {
	case CmdDeposit:
		return "deposit"
	case CmdPay:
		return "pay"
	case CmdViewBalance:
		return "view_balance"
	case CmdViewTransactions:
		return "view_transactions"
	default:
		return fmt.Sprintf("command(%d)", uint32(c))
	}
}

// ErrUnknownCommand is returned for command identifiers outside the table.
var ErrUnknownCommand = errors.New("unknown command")

type handlerFunc func(ctx context.Context, params *boundary.Bundle) error

type route struct {
	shape  boundary.Shape
	handle handlerFunc
}

// Dispatcher validates parameter shapes and routes commands to the ledger.
// It keeps no state besides its routing table.
type Dispatcher struct {
	routes map[CommandID]route
}

// New builds a dispatcher driving l.
func New(l ledger.Ledger) *Dispatcher {
	return &Dispatcher{routes: map[CommandID]route{
		CmdDeposit: {
			shape: boundary.ShapeOf(boundary.KindValueInput),
			handle: func(ctx context.Context, p *boundary.Bundle) error {
				return l.Deposit(ctx, p[0].Value)
			},
		},
		CmdPay: {
			shape: boundary.ShapeOf(boundary.KindValueInput),
			handle: func(ctx context.Context, p *boundary.Bundle) error {
				return l.Pay(ctx, p[0].Value)
			},
		},
		CmdViewBalance: {
			shape: boundary.ShapeOf(boundary.KindValueOutput),
			handle: func(ctx context.Context, p *boundary.Bundle) error {
				p[0].Value = l.Balance(ctx)
				return nil
			},
		},
		CmdViewTransactions: {
			shape: boundary.ShapeOf(boundary.KindMemrefOutput),
			handle: func(ctx context.Context, p *boundary.Bundle) error {
				p[0].Size = l.Transactions(ctx, p[0].Buffer)
				return nil
			},
		},
	}}
}

// Dispatch validates params against the shape registered for cmd and runs
// the command. The returned bundle carries any output values. Every failure
// is a *boundary.Error with CodeBadParameters; the cause stays reachable
// through errors.Is.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd CommandID, params boundary.Bundle) (boundary.Bundle, error) {
	r, ok := d.routes[cmd]
	if !ok {
		return params, boundary.Errorf(boundary.CodeBadParameters, "%w: %d", ErrUnknownCommand, uint32(cmd))
	}
	if err := boundary.Expect(&params, r.shape); err != nil {
		return params, fmt.Errorf("%s: %w", cmd, err)
	}
	if err := r.handle(ctx, &params); err != nil {
		return params, boundary.Wrap(boundary.CodeBadParameters, fmt.Errorf("%s: %w", cmd, err))
	}
	return params, nil
}
