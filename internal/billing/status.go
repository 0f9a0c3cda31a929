package billing

import "strings"

// Status is the lifecycle state of a document. The set is the union of every
// document family; unknown wire values parse to StatusUnknown.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusInvoiced  Status = "invoiced"
	StatusCancelled Status = "cancelled"
	StatusConverted Status = "converted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusSent      Status = "sent"
	StatusUnknown   Status = "unknown"
)

var knownStatuses = map[Status]struct{}{
	StatusDraft:     {},
	StatusIssued:    {},
	StatusInvoiced:  {},
	StatusCancelled: {},
	StatusConverted: {},
	StatusAccepted:  {},
	StatusRejected:  {},
	StatusSent:      {},
}

// ParseStatus normalises a wire value. It never fails.
func ParseStatus(s string) Status {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; ok {
		return st
	}
	return StatusUnknown
}

// Known reports whether s is part of the enumerated set.
func (s Status) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusConverted
}

// transitions is the single source of truth for legal status changes.
var transitions = map[Kind]map[Status][]Status{
	KindInvoice: {
		StatusDraft:  {StatusIssued},
		StatusIssued: {StatusCancelled},
	},
	KindQuote: {
		StatusDraft:    {StatusIssued},
		StatusIssued:   {StatusInvoiced, StatusConverted, StatusCancelled},
		StatusInvoiced: {StatusCancelled},
	},
	KindReceipt: {
		StatusDraft:  {StatusIssued},
		StatusIssued: {StatusCancelled},
	},
}

// CanTransition reports whether a document of kind may move from one status
// to another.
func CanTransition(kind Kind, from, to Status) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal targets from the given status.
func NextStatuses(kind Kind, from Status) []Status {
	return append([]Status(nil), transitions[kind][from]...)
}

// Actions describes which user actions are available for a document.
type Actions struct {
	Edit    bool `json:"edit" yaml:"edit"`
	Delete  bool `json:"delete" yaml:"delete"`
	Issue   bool `json:"issue" yaml:"issue"`
	Cancel  bool `json:"cancel" yaml:"cancel"`
	Convert bool `json:"convert" yaml:"convert"`
	Send    bool `json:"send" yaml:"send"`
	ViewPDF bool `json:"view_pdf" yaml:"view_pdf"`
}

// ActionsFor derives the enabled actions from the transition table.
func ActionsFor(doc Document) Actions {
	draft := doc.Status == StatusDraft
	return Actions{
		Edit:    draft,
		Delete:  draft,
		Issue:   CanTransition(doc.Kind, doc.Status, StatusIssued),
		Cancel:  CanTransition(doc.Kind, doc.Status, StatusCancelled),
		Convert: doc.Kind == KindQuote && CanTransition(doc.Kind, doc.Status, StatusInvoiced),
		Send:    doc.Kind != KindReceipt && doc.Status.Known() && doc.Status != StatusCancelled,
		ViewPDF: true,
	}
}

// Badge is the presentation of a status.
type Badge struct {
	Label string
	Tone  string
}

// Tones used by badges.
const (
	ToneMuted   = "secondary"
	ToneSuccess = "success"
	ToneDanger  = "danger"
	ToneInfo    = "info"
	ToneWarning = "warning"
)

// BadgeFor maps a status to a label and tone. Unknown values render as
// "Unknown" instead of failing.
func BadgeFor(s Status) Badge {
	switch s {
	case StatusDraft:
		return Badge{Label: "Draft", Tone: ToneMuted}
	case StatusIssued:
		return Badge{Label: "Issued", Tone: ToneSuccess}
	case StatusInvoiced:
		return Badge{Label: "Invoiced", Tone: ToneInfo}
	case StatusConverted:
		return Badge{Label: "Converted", Tone: ToneInfo}
	case StatusCancelled:
		return Badge{Label: "Cancelled", Tone: ToneDanger}
	case StatusAccepted:
		return Badge{Label: "Accepted", Tone: ToneSuccess}
	case StatusRejected:
		return Badge{Label: "Rejected", Tone: ToneDanger}
	case StatusSent:
		return Badge{Label: "Sent", Tone: ToneInfo}
	}
	return Badge{Label: "Unknown", Tone: ToneWarning}
}
