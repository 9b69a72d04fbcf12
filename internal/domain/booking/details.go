package booking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/google/uuid"
)

// ServiceDetails is the sealed set of per-service booking variants. Each
// variant carries exactly the fields its service type requires, so the
// dispatch in BookingService is exhaustive over concrete types rather than
// a stringly-typed default branch.
type ServiceDetails interface {
	ServiceType() ServiceType
	Validate() error

	isServiceDetails()
}

// RoomDetails covers overnight room reservations.
type RoomDetails struct {
	RoomID   uuid.UUID `json:"room_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Adults   int       `json:"adults"`
	Children int       `json:"children"`
}

func (RoomDetails) ServiceType() ServiceType { return ServiceRoom }
func (RoomDetails) isServiceDetails()        {}

func (d RoomDetails) Validate() error {
	if d.RoomID == uuid.Nil {
		return domainerr.NewValidationError("room booking requires room_id")
	}
	if d.CheckIn.IsZero() || d.CheckOut.IsZero() {
		return domainerr.NewValidationError("room booking requires check_in and check_out")
	}
	if !d.CheckOut.After(d.CheckIn) {
		return domainerr.NewValidationError("check_out must be after check_in")
	}
	if d.Adults < 1 {
		return domainerr.NewValidationError("room booking requires at least one adult")
	}
	return nil
}

// DiningDetails covers restaurant table reservations.
type DiningDetails struct {
	VenueID   uuid.UUID `json:"venue_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	PartySize int       `json:"party_size"`
}

func (DiningDetails) ServiceType() ServiceType { return ServiceDining }
func (DiningDetails) isServiceDetails()        {}

func (d DiningDetails) Validate() error {
	if d.VenueID == uuid.Nil {
		return domainerr.NewValidationError("dining booking requires venue_id")
	}
	if d.Date == "" || d.Time == "" {
		return domainerr.NewValidationError("dining booking requires date and time")
	}
	if d.PartySize < 1 {
		return domainerr.NewValidationError("dining booking requires party_size")
	}
	return nil
}

// EventDetails covers conference and banquet hall hire.
type EventDetails struct {
	VenueID    uuid.UUID `json:"venue_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	GuestCount int       `json:"guest_count"`
}

func (EventDetails) ServiceType() ServiceType { return ServiceEvent }
func (EventDetails) isServiceDetails()        {}

func (d EventDetails) Validate() error {
	if d.VenueID == uuid.Nil {
		return domainerr.NewValidationError("event booking requires venue_id")
	}
	if d.Date == "" || d.StartTime == "" || d.EndTime == "" {
		return domainerr.NewValidationError("event booking requires date, start_time and end_time")
	}
	if d.GuestCount < 1 {
		return domainerr.NewValidationError("event booking requires guest_count")
	}
	return nil
}

// FacilityDetails covers spa, gym and pool session bookings.
type FacilityDetails struct {
	FacilityID uuid.UUID `json:"facility_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
}

func (FacilityDetails) ServiceType() ServiceType { return ServiceFacility }
func (FacilityDetails) isServiceDetails()        {}

func (d FacilityDetails) Validate() error {
	if d.FacilityID == uuid.Nil {
		return domainerr.NewValidationError("facility booking requires facility_id")
	}
	if d.Date == "" || d.StartTime == "" || d.EndTime == "" {
		return domainerr.NewValidationError("facility booking requires date, start_time and end_time")
	}
	return nil
}

// PackageDetails covers bundled stay packages.
type PackageDetails struct {
	PackageID uuid.UUID `json:"package_id"`
	CheckIn   time.Time `json:"check_in"`
	Nights    int       `json:"nights"`
}

func (PackageDetails) ServiceType() ServiceType { return ServicePackage }
func (PackageDetails) isServiceDetails()        {}

func (d PackageDetails) Validate() error {
	if d.PackageID == uuid.Nil {
		return domainerr.NewValidationError("package booking requires package_id")
	}
	if d.CheckIn.IsZero() {
		return domainerr.NewValidationError("package booking requires check_in")
	}
	if d.Nights < 1 {
		return domainerr.NewValidationError("package booking requires nights")
	}
	return nil
}

// DecodeDetails rebuilds the concrete variant from its persisted JSON form,
// keyed by the service_type column.
func DecodeDetails(serviceType ServiceType, raw []byte) (ServiceDetails, error) {
	switch serviceType {
	case ServiceRoom:
		var d RoomDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode room details: %w", err)
		}
		return d, nil
	case ServiceDining:
		var d DiningDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode dining details: %w", err)
		}
		return d, nil
	case ServiceEvent:
		var d EventDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}
		return d, nil
	case ServiceFacility:
		var d FacilityDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode facility details: %w", err)
		}
		return d, nil
	case ServicePackage:
		var d PackageDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode package details: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown service type %q", serviceType)
	}
}
