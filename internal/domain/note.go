package domain

import "time"

// NoteType categorizes research notes.
type NoteType string

const (
	NoteGeneral      NoteType = "GENERAL"
	NoteEarnings     NoteType = "EARNINGS"
	NoteChannelCheck NoteType = "CHANNEL_CHECK"
	NoteValuation    NoteType = "VALUATION"
	NoteRisk         NoteType = "RISK"
	NotePostmortem   NoteType = "POSTMORTEM"
)

// Valid reports whether the note type is one of the known values.
func (t NoteType) Valid() bool {
	switch t {
	case NoteGeneral, NoteEarnings, NoteChannelCheck, NoteValuation, NoteRisk, NotePostmortem:
		return true
	}
	return false
}

// Note is a markdown note attached to exactly one idea or folder.
type Note struct {
	ID        string
	IdeaID    *string
	FolderID  *string
	NoteType  NoteType
	ContentMD string
	CreatedAt time.Time
	UpdatedAt time.Time
}
