package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FolderFilter narrows folder listings.
type FolderFilter struct {
	Search string
	Tags   []string
}

// FolderStore persists research folders.
type FolderStore interface {
	Create(ctx context.Context, f Folder) error
	Update(ctx context.Context, f Folder) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Folder, error)
	List(ctx context.Context, filter FolderFilter) ([]Folder, error)
	GetByTickers(ctx context.Context, primary string, secondary *string) (Folder, error)
	GetThemeByName(ctx context.Context, name string) (Folder, error)
	ListThemes(ctx context.Context, search string, limit int) ([]Folder, error)
	ListByThemeID(ctx context.Context, themeID string) ([]Folder, error)
	RemoveThemeID(ctx context.Context, themeID string) error
}

// IdeaFilter narrows idea listings.
type IdeaFilter struct {
	FolderID *string
	Statuses []IdeaStatus
}

// IdeaStore persists trade ideas.
type IdeaStore interface {
	Create(ctx context.Context, idea Idea) error
	Update(ctx context.Context, idea Idea) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Idea, error)
	List(ctx context.Context, filter IdeaFilter) ([]Idea, error)
	CountByFolder(ctx context.Context, folderID string) (total, active int64, err error)
}

// ObservationStore persists price observations. Create returns
// ErrAlreadyExists when (idea, timestamp) is already taken; that constraint
// is the sole arbiter between concurrent writers.
type ObservationStore interface {
	Create(ctx context.Context, obs PriceObservation) error
	Update(ctx context.Context, obs PriceObservation) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (PriceObservation, error)
	ListByIdea(ctx context.Context, ideaID string, opts ListOpts) ([]PriceObservation, error)
	// ExistingDays returns the calendar-date keys (UTC "2006-01-02") that
	// already have an observation for the idea inside [from, to].
	ExistingDays(ctx context.Context, ideaID string, from, to time.Time) ([]string, error)
	// GetOnDay returns the idea's observation on the given calendar date,
	// or ErrNotFound.
	GetOnDay(ctx context.Context, ideaID string, day time.Time) (PriceObservation, error)
	// ListBefore returns all observations with a timestamp strictly before
	// the cutoff, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]PriceObservation, error)
}

// EarningsStore persists earnings records.
type EarningsStore interface {
	Create(ctx context.Context, e Earnings) error
	Update(ctx context.Context, e Earnings) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Earnings, error)
	GetByKey(ctx context.Context, folderID, ticker, fiscalQuarter string) (Earnings, error)
	ListByFolder(ctx context.Context, folderID string, ticker *string) ([]Earnings, error)
}

// GuidanceStore persists guidance records.
type GuidanceStore interface {
	Create(ctx context.Context, g Guidance) error
	Update(ctx context.Context, g Guidance) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Guidance, error)
	ListByFolder(ctx context.Context, folderID string, ticker *string, metric *MetricType) ([]Guidance, error)
}

// NoteStore persists notes.
type NoteStore interface {
	Create(ctx context.Context, n Note) error
	Update(ctx context.Context, n Note) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Note, error)
	ListByIdea(ctx context.Context, ideaID string) ([]Note, error)
	ListByFolder(ctx context.Context, folderID string) ([]Note, error)
}

// AttachmentStore persists attachment metadata.
type AttachmentStore interface {
	Create(ctx context.Context, a Attachment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Attachment, error)
	ListByIdea(ctx context.Context, ideaID string) ([]Attachment, error)
	ListByFolder(ctx context.Context, folderID string) ([]Attachment, error)
}

// UserStore persists the single user account.
type UserStore interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Count(ctx context.Context) (int64, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
