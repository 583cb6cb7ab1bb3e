// Package sanitizer normalizes availability input before validation.
//
// All normalization functions are idempotent: applying them twice gives the
// same result as applying them once. Malformed values are passed through
// unchanged so the validator can report them with a field name.
//
// Normalization includes:
//   - Identifiers: trimmed, inner whitespace collapsed to "-"
//   - Clock times: "9:00" and " 09:00 " become "09:00"
//   - Dates: trimmed
//   - Weekdays: deduplicated and sorted, out-of-range values kept for validation
//   - Exceptions: deduplicated and sorted
//   - Free text: whitespace collapsed and trimmed
package sanitizer
