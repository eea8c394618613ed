// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"regexp"
	"strconv"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the last known progress of one pull operation.
// Percent is taken as reported upstream (not forced monotonic); the
// size fields persist once observed until the parser is reset.
type Snapshot struct {
	Percent int
	DoneMB  float64
	TotalMB float64
	HasSize bool
}

// Label formats the snapshot for a status line.
func (s Snapshot) Label() string {
	if !s.HasSize {
		return strconv.Itoa(s.Percent) + "%"
	}
	return strconv.Itoa(s.Percent) + "% — " +
		strconv.FormatFloat(s.DoneMB, 'f', 1, 64) + " MiB / " +
		strconv.FormatFloat(s.TotalMB, 'f', 1, 64) + " MiB"
}

// =============================================================================
// PARSER
// =============================================================================

var (
	percentRe = regexp.MustCompile(`(\d+)%`)
	sizeRe    = regexp.MustCompile(`([\d.]+)\s*(?:M|Mi)B\s*/\s*([\d.]+)\s*(?:M|Mi)B`)
)

// Parser consumes pull output line by line and carries state across
// lines: a line that updates only one field re-emits the other
// unchanged. State is scoped to one operation; call Reset (or use a
// fresh Parser) when a new pull starts.
type Parser struct {
	last Snapshot
}

// NewParser returns a parser with an all-zero snapshot.
func NewParser() *Parser {
	return &Parser{}
}

// Consume applies both extraction rules to one line and returns the
// resulting snapshot. The rules are independent: a line may update
// neither, either, or both fields.
func (p *Parser) Consume(line string) Snapshot {
	if m := percentRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			if v > 100 {
				v = 100
			}
			p.last.Percent = v
		}
	}

	if m := sizeRe.FindStringSubmatch(line); m != nil {
		done, errD := strconv.ParseFloat(m[1], 64)
		total, errT := strconv.ParseFloat(m[2], 64)
		if errD == nil && errT == nil {
			p.last.DoneMB = done
			p.last.TotalMB = total
			p.last.HasSize = true
		}
	}

	return p.last
}

// Last returns the current snapshot without consuming a line.
func (p *Parser) Last() Snapshot {
	return p.last
}

// Reset clears all state for a new operation.
func (p *Parser) Reset() {
	p.last = Snapshot{}
}
