package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is a package lifecycle state. Values outside the vocabulary are
// tolerated: they come from free-form operator input and legacy data.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInWarehouse  Status = "in_warehouse"
	StatusInTransit    Status = "in_transit"
	StatusArrived      Status = "arrived"
	StatusCustomsCheck Status = "customs_check"
	StatusCustomsHold  Status = "customs_hold"
	StatusDelivered    Status = "delivered"
	StatusException    Status = "exception"
)

type statusInfo struct {
	label  string
	weight int
}

// Weights are not monotonic with the vocabulary order: exception (90)
// outranks customs_hold (85).
var vocabulary = map[Status]statusInfo{
	StatusPending:      {label: "Pending", weight: 10},
	StatusInWarehouse:  {label: "In Warehouse", weight: 30},
	StatusInTransit:    {label: "In Transit", weight: 50},
	StatusArrived:      {label: "Arrived", weight: 70},
	StatusCustomsCheck: {label: "Customs Clearance", weight: 80},
	StatusCustomsHold:  {label: "Customs Clearance (ON HOLD)", weight: 85},
	StatusException:    {label: "Exception", weight: 90},
	StatusDelivered:    {label: "Delivered", weight: 100},
}

// Statuses returns the vocabulary in lifecycle order, exception last.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusInWarehouse,
		StatusInTransit,
		StatusArrived,
		StatusCustomsCheck,
		StatusCustomsHold,
		StatusDelivered,
		StatusException,
	}
}

// Known reports whether s belongs to the vocabulary.
func (s Status) Known() bool {
	_, ok := vocabulary[s]
	return ok
}

// Label returns the display label, or a humanized fallback for unknown values.
func (s Status) Label() string {
	if info, ok := vocabulary[s]; ok {
		return info.label
	}
	return Humanize(string(s))
}

// ProgressWeight returns the fixed 0-100 progress value; unknown statuses are 0.
func (s Status) ProgressWeight() int {
	return vocabulary[s].weight
}

// Humanize turns "out_for_delivery" into "Out For Delivery".
func Humanize(raw string) string {
	// Casers are stateful and must not be shared between goroutines.
	caser := cases.Title(language.English)
	words := strings.Fields(strings.ReplaceAll(raw, "_", " "))
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
