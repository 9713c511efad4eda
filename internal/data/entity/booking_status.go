package entity

import "fmt"

type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "pending"
	BookingStatusAccepted         BookingStatus = "accepted"
	BookingStatusProviderArriving BookingStatus = "provider_arriving"
	BookingStatusInProgress       BookingStatus = "in_progress"
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusCancelled        BookingStatus = "cancelled"
)

// BookingEvent is an action that may move a booking between statuses.
type BookingEvent string

const (
	EventCustomerCancel  BookingEvent = "customer_cancel"
	EventProviderReject  BookingEvent = "provider_reject"
	EventPaymentVerified BookingEvent = "payment_verified"
	EventMarkArriving    BookingEvent = "mark_arriving"
	EventStart           BookingEvent = "start"
	EventComplete        BookingEvent = "complete"
)

// Next returns the status reached by applying ev, or false when the transition is illegal.
func (s BookingStatus) Next(ev BookingEvent) (BookingStatus, bool) {
	switch s {
	case BookingStatusPending:
		switch ev {
		case EventCustomerCancel, EventProviderReject:
			return BookingStatusCancelled, true
		case EventPaymentVerified:
			return BookingStatusAccepted, true
		}
	case BookingStatusAccepted:
		if ev == EventMarkArriving {
			return BookingStatusProviderArriving, true
		}
	case BookingStatusProviderArriving:
		if ev == EventStart {
			return BookingStatusInProgress, true
		}
	case BookingStatusInProgress:
		if ev == EventComplete {
			return BookingStatusCompleted, true
		}
	case BookingStatusCompleted, BookingStatusCancelled:
	}
	return s, false
}

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusProviderArriving,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a wire value to a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	status := BookingStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", value)
	}
	return status, nil
}

// ProviderEventFor maps a provider-requested target status to the event that reaches it.
func ProviderEventFor(target BookingStatus) (BookingEvent, bool) {
	switch target {
	case BookingStatusProviderArriving:
		return EventMarkArriving, true
	case BookingStatusInProgress:
		return EventStart, true
	case BookingStatusCompleted:
		return EventComplete, true
	}
	return "", false
}
