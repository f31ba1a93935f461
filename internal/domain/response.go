package domain

import "strconv"

// Value is the graded answer for an item: "pass", "fail", or a numeric
// rating rendered as "1".."5".
type Value string

const (
	ValuePass Value = "pass"
	ValueFail Value = "fail"
)

// RatingValue converts a 1-5 rating into a Value.
func RatingValue(n int) Value {
	return Value(strconv.Itoa(n))
}

// IsPass reports a passing grade. The legacy wire format also used
// "yes" for pass_fail items, so both spellings count.
func (v Value) IsPass() bool {
	return v == ValuePass || v == "yes"
}

// IsFail reports a failing grade.
func (v Value) IsFail() bool {
	return v == ValueFail
}

// Rating returns the numeric rating and true when the value is a
// number in the 1-5 range.
func (v Value) Rating() (int, bool) {
	n, err := strconv.Atoi(string(v))
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// NeedsTicket reports whether this grade should open the maintenance
// ticket prompt: an explicit fail, or a rating of 2 or below. A rating
// of exactly 3 never triggers it.
func (v Value) NeedsTicket() bool {
	if v.IsFail() {
		return true
	}
	if n, ok := v.Rating(); ok {
		return n < 3
	}
	return false
}

// ResponseKey identifies the item a response belongs to.
type ResponseKey struct {
	SectionID string
	ItemID    string
}

// Response is the user-entered grade for one item in the current
// session. Created on first interaction, overwritten on edit, never
// deleted within a session.
type Response struct {
	SectionID string
	ItemID    string
	Value     Value
	Comment   string
	Photos    []string
}

// Key returns the map key for this response.
func (r Response) Key() ResponseKey {
	return ResponseKey{SectionID: r.SectionID, ItemID: r.ItemID}
}
