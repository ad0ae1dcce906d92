// Package ticketapp implements the ticket sale contract. A ticket purchase
// must be paid for by a token transfer carried in the same transaction.
package ticketapp

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/holiman/uint256"

	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/contract/hyllar"
	"github.com/hyle-oof/oofprover/internal/models"
)

const (
	ActionBuyTicket = "buy_ticket"
	ActionHasTicket = "has_ticket"
)

// PaymentBlobIndex is the position of the token transfer paying for a ticket.
const PaymentBlobIndex = 1

// Action is a ticket app blob payload.
type Action struct {
	Action      string `json:"action"`
	Nationality string `json:"nationality,omitempty"`
}

// Price is the token and base amount charged per ticket.
type Price struct {
	Token  models.ContractName `json:"token"`
	Amount *uint256.Int        `json:"amount"`
}

// TicketApp tracks ticket holders.
type TicketApp struct {
	Price   Price             `json:"ticket_price"`
	Tickets []models.Identity `json:"tickets"`
}

// New creates a ticket app charging price units of token.
func New(token models.ContractName, price uint64) *TicketApp {
	return &TicketApp{Price: Price{Token: token, Amount: uint256.NewInt(price)}}
}

// Discount returns the percentage of the price multiplier applied for a nationality.
func Discount(nationality string) uint64 {
	switch {
	case euCountries[nationality]:
		return 90
	case nationality == "TWN", nationality == "FRA":
		return 80
	default:
		return 100
	}
}

func (a *TicketApp) Execute(calldata *models.Calldata) (string, error) {
	action, ctx, err := contract.ParseAction[Action](calldata)
	if err != nil {
		return "", err
	}
	switch action.Action {
	case ActionBuyTicket:
		payment, token, err := contract.ParseBlob[hyllar.Action](calldata, PaymentBlobIndex)
		if err != nil {
			return "", fmt.Errorf("failed to parse hyllar action: %w", err)
		}
		return a.buyTicket(ctx, action.Nationality, payment, token)
	case ActionHasTicket:
		if a.HasTicket(ctx.Caller) {
			return fmt.Sprintf("Ticket present for %s", ctx.Caller), nil
		}
		return "", fmt.Errorf("no ticket for %s", ctx.Caller)
	default:
		return "", fmt.Errorf("unknown ticket app action %q", action.Action)
	}
}

func (a *TicketApp) buyTicket(ctx contract.ExecutionContext, nationality string, payment hyllar.Action, token models.ContractName) (string, error) {
	if payment.Action == hyllar.ActionTransfer {
		if payment.Recipient != string(ctx.ContractName) {
			return "", fmt.Errorf("transfer recipient should be %s but was %s; nationality: %s", ctx.ContractName, payment.Recipient, nationality)
		}
		if token != a.Price.Token {
			return "", fmt.Errorf("transfer token should be %s but was %s", a.Price.Token, token)
		}
		expected := new(uint256.Int).Mul(a.Price.Amount, uint256.NewInt(Discount(nationality)))
		if payment.Amount == nil || payment.Amount.Lt(expected) {
			paid := "0"
			if payment.Amount != nil {
				paid = payment.Amount.Dec()
			}
			return "", fmt.Errorf("transfer amount should be at least %s but was %s", expected.Dec(), paid)
		}
	}
	a.Tickets = append(a.Tickets, ctx.Caller)
	return fmt.Sprintf("Ticket created for %s", ctx.Caller), nil
}

// HasTicket reports whether identity holds a ticket.
func (a *TicketApp) HasTicket(identity models.Identity) bool {
	return slices.Contains(a.Tickets, identity)
}

func (a *TicketApp) SerializeState() ([]byte, error) {
	return json.Marshal(a)
}

func (a *TicketApp) Clone() contract.Contract {
	return &TicketApp{
		Price:   Price{Token: a.Price.Token, Amount: a.Price.Amount.Clone()},
		Tickets: slices.Clone(a.Tickets),
	}
}

var euCountries = map[string]bool{
	"Austria": true, "Belgium": true, "Bulgaria": true, "Croatia": true, "Cyprus": true,
	"Czech Republic": true, "Denmark": true, "Estonia": true, "Finland": true, "France": true,
	"Germany": true, "Greece": true, "Hungary": true, "Ireland": true, "Italy": true,
	"Latvia": true, "Lithuania": true, "Luxembourg": true, "Malta": true, "Netherlands": true,
	"Poland": true, "Portugal": true, "Romania": true, "Slovakia": true, "Slovenia": true,
	"Spain": true, "Sweden": true, "FRA": true,
}
