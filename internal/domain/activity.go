package domain

import "github.com/shopspring/decimal"

type Availability string

const (
	AvailabilityOpen     Availability = "Open"
	AvailabilityWaitlist Availability = "Waitlist"
	AvailabilityClosed   Availability = "Closed"
	AvailabilityUnknown  Availability = "Unknown"
)

// Valid reports whether a is one of the four known states.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityOpen, AvailabilityWaitlist, AvailabilityClosed, AvailabilityUnknown:
		return true
	}
	return false
}

// RawFragment is one unit of text handed over by a source collector.
// Nothing about it is unique; the same text can show up many times.
type RawFragment struct {
	SectionLabel string `json:"sectionLabel"`
	Text         string `json:"text"`
}

// DateTokens keeps the date range exactly as extracted ("Jan 5", "Mar 2").
// Turning them into timestamps is the reconciler's job.
type DateTokens struct {
	StartToken string `json:"startToken"`
	EndToken   string `json:"endToken"`
}

func (d DateTokens) String() string {
	return d.StartToken + " - " + d.EndToken
}

type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (t TimeRange) String() string {
	return t.Start + "-" + t.End
}

type AgeRange struct {
	Min int `json:"min" validate:"min=0"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// ParsedActivity is the structured candidate produced from a fragment.
// Optional fields are nil when the text did not contain them.
type ParsedActivity struct {
	Name            string           `json:"name" validate:"required,min=4,max=150"`
	CourseCode      *string          `json:"courseCode,omitempty"`
	Dates           *DateTokens      `json:"dates,omitempty"`
	DaysOfWeek      []string         `json:"daysOfWeek" validate:"dive,oneof=Mon Tue Wed Thu Fri Sat Sun"`
	Time            *TimeRange       `json:"time,omitempty"`
	AgeRange        *AgeRange        `json:"ageRange,omitempty"`
	Location        *string          `json:"location,omitempty" validate:"omitempty,max=100"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Availability    Availability     `json:"availability" validate:"oneof=Open Waitlist Closed Unknown"`
	SpotsAvailable  int              `json:"spotsAvailable" validate:"min=0"`
	RegistrationURL *string          `json:"registrationUrl,omitempty"`
	SectionLabel    string           `json:"sectionLabel"`
	RawText         string           `json:"rawText"`
}
