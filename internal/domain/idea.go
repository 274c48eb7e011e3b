package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the structure of a trade idea.
type TradeType string

const (
	TradeTypeLong  TradeType = "LONG"
	TradeTypeShort TradeType = "SHORT"
	TradeTypePair  TradeType = "PAIR_LONG_SHORT"
)

// Valid reports whether the trade type is one of the known values.
func (t TradeType) Valid() bool {
	switch t {
	case TradeTypeLong, TradeTypeShort, TradeTypePair:
		return true
	}
	return false
}

// PairOrientation maps the primary/secondary ticker legs of a pair idea onto
// the long/short sides.
type PairOrientation string

const (
	LongPrimaryShortSecondary PairOrientation = "LONG_PRIMARY_SHORT_SECONDARY"
	ShortPrimaryLongSecondary PairOrientation = "SHORT_PRIMARY_LONG_SECONDARY"
)

// Valid reports whether the orientation is one of the known values.
func (o PairOrientation) Valid() bool {
	return o == LongPrimaryShortSecondary || o == ShortPrimaryLongSecondary
}

// IdeaStatus is the lifecycle state of an idea. CLOSED and KILLED are
// terminal; both count as closed for P&L purposes.
type IdeaStatus string

const (
	IdeaStatusDraft    IdeaStatus = "DRAFT"
	IdeaStatusActive   IdeaStatus = "ACTIVE"
	IdeaStatusScaledUp IdeaStatus = "SCALED_UP"
	IdeaStatusTrimmed  IdeaStatus = "TRIMMED"
	IdeaStatusClosed   IdeaStatus = "CLOSED"
	IdeaStatusKilled   IdeaStatus = "KILLED"
)

// Valid reports whether the status is one of the known values.
func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaStatusDraft, IdeaStatusActive, IdeaStatusScaledUp,
		IdeaStatusTrimmed, IdeaStatusClosed, IdeaStatusKilled:
		return true
	}
	return false
}

// Closing reports whether the status is one of the terminal states.
func (s IdeaStatus) Closing() bool {
	return s == IdeaStatusClosed || s == IdeaStatusKilled
}

// Horizon is the expected holding period of an idea.
type Horizon string

const (
	HorizonEvent   Horizon = "EVENT"
	Horizon3To6Mo  Horizon = "3_6MO"
	Horizon6To12Mo Horizon = "6_12MO"
	HorizonSecular Horizon = "SECULAR"
	HorizonOther   Horizon = "OTHER"
)

// Idea is a single trade idea inside a folder. Entry prices, trade type,
// orientation, and start date are immutable after creation; exit fields are
// set exactly once when the idea is closed.
type Idea struct {
	ID                   string
	FolderID             string
	Title                string
	TradeType            TradeType
	PairOrientation      *PairOrientation
	Status               IdeaStatus
	StartDate            time.Time
	EntryPricePrimary    decimal.Decimal
	EntryPriceSecondary  *decimal.Decimal
	PositionSize         decimal.Decimal
	Horizon              *Horizon
	ThesisMD             *string
	Catalysts            []string
	Risks                []string
	KillCriteriaMD       *string
	TargetPricePrimary   *decimal.Decimal
	StopLevelPrimary     *decimal.Decimal
	TargetPriceSecondary *decimal.Decimal
	StopLevelSecondary   *decimal.Decimal
	ExitPricePrimary     *decimal.Decimal
	ExitPriceSecondary   *decimal.Decimal
	ExitDate             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsPair reports whether the idea is a long/short pair.
func (i Idea) IsPair() bool {
	return i.TradeType == TradeTypePair
}

// IsClosed reports whether the idea is in a terminal state.
func (i Idea) IsClosed() bool {
	return i.Status.Closing()
}

// ValidateEntry checks the cross-field invariants that must hold at creation:
// a positive primary entry, pair ideas carry a secondary entry and an
// orientation, and non-pair ideas carry neither.
func (i Idea) ValidateEntry() error {
	if !i.TradeType.Valid() {
		return fmt.Errorf("trade type %q: %w", i.TradeType, ErrUnsupportedTradeType)
	}
	if !i.EntryPricePrimary.IsPositive() {
		return fmt.Errorf("entry price primary: %w", ErrInvalidPrice)
	}
	if i.PositionSize.IsNegative() {
		return fmt.Errorf("position size must not be negative: %w", ErrValidation)
	}
	if i.IsPair() {
		if i.EntryPriceSecondary == nil || !i.EntryPriceSecondary.IsPositive() {
			return fmt.Errorf("pair idea requires a positive secondary entry price: %w", ErrMissingPrice)
		}
		if i.PairOrientation == nil || !i.PairOrientation.Valid() {
			return fmt.Errorf("pair idea requires a pair orientation: %w", ErrValidation)
		}
		return nil
	}
	if i.EntryPriceSecondary != nil {
		return fmt.Errorf("secondary entry price is only valid for pair ideas: %w", ErrValidation)
	}
	if i.PairOrientation != nil {
		return fmt.Errorf("pair orientation is only valid for pair ideas: %w", ErrValidation)
	}
	return nil
}

// IdeaPatch carries the mutable idea fields for partial updates. Nil fields
// are left unchanged. Trade type, orientation, entry prices, and start date
// have no patch fields: they cannot change after creation.
type IdeaPatch struct {
	Title                *string
	PositionSize         *decimal.Decimal
	Horizon              *Horizon
	ThesisMD             *string
	Catalysts            *[]string
	Risks                *[]string
	KillCriteriaMD       *string
	TargetPricePrimary   *decimal.Decimal
	StopLevelPrimary     *decimal.Decimal
	TargetPriceSecondary *decimal.Decimal
	StopLevelSecondary   *decimal.Decimal
}

// Apply merges the patch into the idea field by field.
func (p IdeaPatch) Apply(i *Idea) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.PositionSize != nil {
		i.PositionSize = *p.PositionSize
	}
	if p.Horizon != nil {
		i.Horizon = p.Horizon
	}
	if p.ThesisMD != nil {
		i.ThesisMD = p.ThesisMD
	}
	if p.Catalysts != nil {
		i.Catalysts = *p.Catalysts
	}
	if p.Risks != nil {
		i.Risks = *p.Risks
	}
	if p.KillCriteriaMD != nil {
		i.KillCriteriaMD = p.KillCriteriaMD
	}
	if p.TargetPricePrimary != nil {
		i.TargetPricePrimary = p.TargetPricePrimary
	}
	if p.StopLevelPrimary != nil {
		i.StopLevelPrimary = p.StopLevelPrimary
	}
	if p.TargetPriceSecondary != nil {
		i.TargetPriceSecondary = p.TargetPriceSecondary
	}
	if p.StopLevelSecondary != nil {
		i.StopLevelSecondary = p.StopLevelSecondary
	}
}

// IdeaClose carries the fields required to move an idea into a terminal
// state. ExitPriceSecondary is mandatory for pair ideas.
type IdeaClose struct {
	Status             IdeaStatus
	ExitPricePrimary   decimal.Decimal
	ExitPriceSecondary *decimal.Decimal
	ExitDate           time.Time
	PostmortemNote     *string
}
