package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FolderType distinguishes the three kinds of research folders.
type FolderType string

const (
	FolderTypeSingle FolderType = "SINGLE"
	FolderTypePair   FolderType = "PAIR"
	FolderTypeTheme  FolderType = "THEME"
)

// Valid reports whether the folder type is one of the known values.
func (t FolderType) Valid() bool {
	switch t {
	case FolderTypeSingle, FolderTypePair, FolderTypeTheme:
		return true
	}
	return false
}

// ThemeTicker is one constituent of a THEME folder, with an optional
// manually-entered P&L figure.
type ThemeTicker struct {
	Ticker string           `json:"ticker"`
	PnL    *decimal.Decimal `json:"pnl,omitempty"`
}

// Folder groups trade ideas around a single ticker, a pair of tickers, or a
// named theme. Tickers are immutable after creation; theme folders carry no
// tickers of their own but hold a constituent list.
type Folder struct {
	ID              string
	Type            FolderType
	TickerPrimary   string
	TickerSecondary *string
	ThemeName       *string
	ThemeDate       *time.Time
	ThemeThesis     *string
	ThemeTickers    []ThemeTicker
	ThemeIDs        []string
	Description     *string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Name returns the display name: the theme name for THEME folders, the
// "PRIMARY / SECONDARY" pair for PAIR folders, and the bare ticker otherwise.
func (f Folder) Name() string {
	if f.Type == FolderTypeTheme {
		if f.ThemeName != nil {
			return *f.ThemeName
		}
		return ""
	}
	if f.TickerSecondary != nil && *f.TickerSecondary != "" {
		return f.TickerPrimary + " / " + *f.TickerSecondary
	}
	return f.TickerPrimary
}

// Tickers returns the tickers this folder references: the constituent list for
// themes, otherwise the primary (and secondary, when present) leg.
func (f Folder) Tickers() []string {
	if f.Type == FolderTypeTheme {
		out := make([]string, 0, len(f.ThemeTickers))
		for _, t := range f.ThemeTickers {
			out = append(out, t.Ticker)
		}
		return out
	}
	out := []string{f.TickerPrimary}
	if f.TickerSecondary != nil && *f.TickerSecondary != "" {
		out = append(out, *f.TickerSecondary)
	}
	return out
}

// NormalizeTickers uppercases the ticker fields in place.
func (f *Folder) NormalizeTickers() {
	f.TickerPrimary = strings.ToUpper(f.TickerPrimary)
	if f.TickerSecondary != nil {
		up := strings.ToUpper(*f.TickerSecondary)
		f.TickerSecondary = &up
	}
	for i := range f.ThemeTickers {
		f.ThemeTickers[i].Ticker = strings.ToUpper(f.ThemeTickers[i].Ticker)
	}
}

// FolderPatch carries the mutable folder fields for partial updates. Nil
// fields are left unchanged. Ticker legs are deliberately absent: they cannot
// change after creation.
type FolderPatch struct {
	Description  *string
	Tags         *[]string
	ThemeDate    *time.Time
	ThemeThesis  *string
	ThemeTickers *[]ThemeTicker
}

// Apply merges the patch into the folder. Theme-only fields are ignored for
// non-theme folders.
func (p FolderPatch) Apply(f *Folder) {
	if p.Description != nil {
		f.Description = p.Description
	}
	if p.Tags != nil {
		f.Tags = *p.Tags
	}
	if f.Type != FolderTypeTheme {
		return
	}
	if p.ThemeDate != nil {
		f.ThemeDate = p.ThemeDate
	}
	if p.ThemeThesis != nil {
		f.ThemeThesis = p.ThemeThesis
	}
	if p.ThemeTickers != nil {
		f.ThemeTickers = *p.ThemeTickers
	}
}
