// Package donation validates and stores medication donation offers.
package donation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MsgSubmitted = "Thank you! Your donation has been submitted successfully. We will contact you within 24 hours to arrange pickup."
	MsgFailed    = "Unable to process donation. Please try again."
)

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
)

type Donation struct {
	ID                   string
	MedicationName       string
	Dosage               string
	Quantity             int
	ExpiryDate           time.Time
	Condition            Condition
	PrescriptionRequired string
	DonorName            string
	DonorPhone           string
	DonorAddress         string
	DonorUserID          *string
	CreatedAt            time.Time
}

// Field accepts a JSON string, number or boolean and keeps its text form.
type Field string

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	if bytes.Equal(b, []byte("false")) {
		*f = ""
		return nil
	}
	*f = Field(b)
	return nil
}

// Request is the donation form as posted by the client.
type Request struct {
	MedicationName       Field           `json:"medicationName"`
	Dosage               Field           `json:"dosage"`
	Quantity             Field           `json:"quantity"`
	ExpiryDate           Field           `json:"expiryDate"`
	Condition            Field           `json:"condition"`
	PrescriptionRequired Field           `json:"prescriptionRequired"`
	DonorName            Field           `json:"donorName"`
	DonorPhone           Field           `json:"donorPhone"`
	DonorAddress         Field           `json:"donorAddress"`
	SafetyTerms          json.RawMessage `json:"safetyTerms"`
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate checks the form in a fixed order and reports the first problem.
// Accepted text is trimmed and HTML-escaped.
func (r Request) Validate(now time.Time) (Donation, error) {
	fields := []struct {
		name  string
		value Field
	}{
		{"medicationName", r.MedicationName},
		{"dosage", r.Dosage},
		{"quantity", r.Quantity},
		{"expiryDate", r.ExpiryDate},
		{"condition", r.Condition},
		{"prescriptionRequired", r.PrescriptionRequired},
		{"donorName", r.DonorName},
		{"donorPhone", r.DonorPhone},
		{"donorAddress", r.DonorAddress},
	}
	for _, f := range fields {
		if strings.TrimSpace(string(f.value)) == "" {
			return Donation{}, invalid("Missing required field: %s", f.name)
		}
	}

	terms := strings.TrimSpace(string(r.SafetyTerms))
	switch terms {
	case "", "null", "false", `""`:
		return Donation{}, invalid("Missing required field: safetyTerms")
	case "true", `"on"`:
	default:
		return Donation{}, invalid("You must accept the safety terms")
	}

	qtyText := strings.TrimSpace(string(r.Quantity))
	qty, err := strconv.ParseInt(qtyText, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(qtyText, "-"),
		err == nil && qty > math.MaxInt32:
		return Donation{}, invalid("Quantity must be at most %d", math.MaxInt32)
	case err != nil || qty <= 0:
		return Donation{}, invalid("Quantity must be greater than 0")
	}

	expiry, err := time.Parse("2006-01-02", strings.TrimSpace(string(r.ExpiryDate)))
	if err != nil {
		return Donation{}, invalid("Invalid expiry date")
	}
	if !expiry.After(now) {
		return Donation{}, invalid("Medication must not be expired")
	}

	cond := Condition(clean(r.Condition))
	switch cond {
	case ConditionExcellent, ConditionGood, ConditionFair:
	default:
		return Donation{}, invalid("Invalid condition specified")
	}

	rx := clean(r.PrescriptionRequired)
	if rx != "yes" && rx != "no" {
		return Donation{}, invalid("Invalid prescription status")
	}

	d := Donation{
		MedicationName:       clean(r.MedicationName),
		Dosage:               clean(r.Dosage),
		Quantity:             int(qty),
		ExpiryDate:           expiry,
		Condition:            cond,
		PrescriptionRequired: rx,
		DonorName:            clean(r.DonorName),
		DonorPhone:           clean(r.DonorPhone),
		DonorAddress:         clean(r.DonorAddress),
	}

	// Column widths of the donations table, checked after escaping.
	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"medicationName", d.MedicationName, 255},
		{"dosage", d.Dosage, 100},
		{"donorName", d.DonorName, 100},
		{"donorPhone", d.DonorPhone, 20},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return Donation{}, invalid("Field too long: %s (max %d characters)", l.name, l.max)
		}
	}
	return d, nil
}

func clean(f Field) string {
	return html.EscapeString(strings.TrimSpace(string(f)))
}
