package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLResult is the computed performance of an idea at one set of prices.
// Never persisted: recomputed on every request. PnLPercent is fractional
// (0.10 = +10%). PnLAbsolute is nil when the idea has no position size.
// The leg fields are log returns tracking the primary/secondary ticker axis
// and are set only for pair ideas, as is SimpleSpread.
type PnLResult struct {
	PnLPercent      decimal.Decimal
	PnLAbsolute     *decimal.Decimal
	PnLPrimaryLeg   *decimal.Decimal
	PnLSecondaryLeg *decimal.Decimal
	SimpleSpread    *decimal.Decimal
}

// PnLResponse is the full per-idea P&L payload: the result plus the prices it
// was computed from. IsRealized is true for closed ideas, whose prices are
// the stored exit prices regardless of what the caller passed in.
type PnLResponse struct {
	IdeaID     string    `json:"idea_id"`
	TradeType  TradeType `json:"trade_type"`
	IsRealized bool      `json:"is_realized"`

	EntryPricePrimary   decimal.Decimal  `json:"entry_price_primary"`
	EntryPriceSecondary *decimal.Decimal `json:"entry_price_secondary,omitempty"`

	CurrentPricePrimary   decimal.Decimal  `json:"current_price_primary"`
	CurrentPriceSecondary *decimal.Decimal `json:"current_price_secondary,omitempty"`

	PnLPercent      decimal.Decimal  `json:"pnl_percent"`
	PnLAbsolute     *decimal.Decimal `json:"pnl_absolute,omitempty"`
	PnLPrimaryLeg   *decimal.Decimal `json:"pnl_primary_leg,omitempty"`
	PnLSecondaryLeg *decimal.Decimal `json:"pnl_secondary_leg,omitempty"`
	SimpleSpread    *decimal.Decimal `json:"simple_spread,omitempty"`

	PriceTimestamp *time.Time `json:"price_timestamp,omitempty"`
}

// PnLHistoryPoint is one point of an idea's P&L curve, derived from a stored
// price observation.
type PnLHistoryPoint struct {
	Timestamp       time.Time        `json:"timestamp"`
	PricePrimary    decimal.Decimal  `json:"price_primary"`
	PriceSecondary  *decimal.Decimal `json:"price_secondary,omitempty"`
	PnLPercent      decimal.Decimal  `json:"pnl_percent"`
	PnLPrimaryLeg   *decimal.Decimal `json:"pnl_primary_leg,omitempty"`
	PnLSecondaryLeg *decimal.Decimal `json:"pnl_secondary_leg,omitempty"`
}

// PnLHistory is the ordered P&L curve for an idea, ascending by timestamp.
// Points whose observation held unusable prices are absent rather than
// failing the whole series.
type PnLHistory struct {
	IdeaID              string            `json:"idea_id"`
	TradeType           TradeType         `json:"trade_type"`
	EntryPricePrimary   decimal.Decimal   `json:"entry_price_primary"`
	EntryPriceSecondary *decimal.Decimal  `json:"entry_price_secondary,omitempty"`
	History             []PnLHistoryPoint `json:"history"`
}
