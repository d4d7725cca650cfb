// Package numbering allocates human readable invoice numbers of the form
// YYYY-NNNN, densely packed from 0001 within each company and year.
package numbering

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Next returns the lowest free number for year given the numbers already
// issued with that year's prefix.
func Next(year int, existing []string) string {
	return Format(year, NextSequence(existing))
}

// NextSequence returns the smallest positive sequence not present in existing.
func NextSequence(existing []string) int {
	seqs := make([]int, 0, len(existing))
	for _, number := range existing {
		seqs = append(seqs, SequenceOf(number))
	}
	sort.Ints(seqs)

	next := 1
	for _, n := range seqs {
		if n == next {
			next++
		} else if n > next {
			break
		}
	}
	return next
}

// SequenceOf extracts the trailing digits of number. Anything unparseable is 0.
func SequenceOf(number string) int {
	m := trailingDigits.FindStringSubmatch(number)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Format renders year and seq as YYYY-NNNN.
func Format(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}

// Prefix is the LIKE prefix shared by all numbers of a year.
func Prefix(year int) string {
	return fmt.Sprintf("%d-", year)
}
