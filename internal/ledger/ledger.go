// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package ledger implements the runtime overlap guard described by the
// allocation engine: an append-only set of committed CIDRs that rejects
// any insert overlapping an existing entry.
package ledger

import (
	"github.com/easytofu/cidrplan/internal/cidr"
	"github.com/easytofu/cidrplan/internal/ipamerrors"
)

// Ledger records committed CIDRs and rejects overlapping inserts. A run
// owns exactly one Ledger and drives it synchronously (see spec §5); the
// expected cardinality (accounts x providers x regions x AZs x roles) is
// low thousands, so a linear scan is used rather than an interval tree.
type Ledger struct {
	committed []cidr.Cidr
}

// New returns an empty Ledger, owned by exactly one allocator run.
func New() *Ledger {
	return &Ledger{}
}

// TryInsert commits c if it overlaps nothing already committed.
// Otherwise it fails with CodeCidrAlreadyAllocated and leaves the ledger
// unchanged.
func (l *Ledger) TryInsert(c cidr.Cidr) error {
	for _, existing := range l.committed {
		if cidr.Overlap(c, existing) {
			return ipamerrors.New(ipamerrors.CodeCidrAlreadyAllocated,
				"CIDR overlaps a previously allocated block",
				"cidr", c.String(), "existing", existing.String())
		}
	}
	l.committed = append(l.committed, c)
	return nil
}

// IsAllocated reports whether c has been committed, by exact structural
// equality (not containment).
func (l *Ledger) IsAllocated(c cidr.Cidr) bool {
	for _, existing := range l.committed {
		if existing == c {
			return true
		}
	}
	return false
}

// Count returns the number of committed CIDRs.
func (l *Ledger) Count() int {
	return len(l.committed)
}

// Enumerate returns a copy of the committed CIDRs, for diagnostics.
func (l *Ledger) Enumerate() []cidr.Cidr {
	out := make([]cidr.Cidr, len(l.committed))
	copy(out, l.committed)
	return out
}
