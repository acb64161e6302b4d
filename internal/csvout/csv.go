// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package csvout serializes allocation records to CSV and offers a
// post-check that re-validates non-overlap independently of the
// allocator's own Ledger, using a separately grounded implementation
// (apparentlymart/go-cidr) as a cross-check.
package csvout

import (
	"encoding/csv"
	"io"
	"net"

	gocidr "github.com/apparentlymart/go-cidr/cidr"

	"github.com/easytofu/cidrplan/internal/cidr"
	"github.com/easytofu/cidrplan/internal/ipamerrors"
	"github.com/easytofu/cidrplan/internal/model"
)

// Write renders rows as CSV to w: a header row per model.Columns(),
// followed by one row per allocation in the order given.
func Write(w io.Writer, rows []model.AllocationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns()); err != nil {
		return ipamerrors.Wrap(ipamerrors.CodeIOError, "failed to write CSV header", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Row()); err != nil {
			return ipamerrors.Wrap(ipamerrors.CodeIOError, "failed to write CSV row", err,
				"subnetCidr", r.SubnetCidr)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return ipamerrors.Wrap(ipamerrors.CodeIOError, "failed to flush CSV output", err)
	}
	return nil
}

// PostCheckOverlap independently re-validates Testable Property 2
// (non-overlap) using go-cidr.VerifyNoOverlap, a cross-check separate
// from the Ledger's own overlap guard used during generation.
//
// A run's accounts (and, per scenario S2, an individual cloud config) may
// each carve their subnets from a distinct, mutually disjoint base block
// rather than a single global base_cidr, so containment is checked per
// effective base (grouped by VpcCidr) rather than against one global
// supernet: VerifyNoOverlap both rejects pairwise overlap within a group
// and confirms every subnet in that group falls within its own vpcCidr.
func PostCheckOverlap(rows []model.AllocationRecord) error {
	order := make([]string, 0)
	groups := make(map[string][]model.AllocationRecord)
	for _, r := range rows {
		if _, ok := groups[r.VpcCidr]; !ok {
			order = append(order, r.VpcCidr)
		}
		groups[r.VpcCidr] = append(groups[r.VpcCidr], r)
	}

	for _, vpcCidr := range order {
		groupRows := groups[vpcCidr]

		base, err := cidr.Parse(vpcCidr)
		if err != nil {
			return ipamerrors.Wrap(ipamerrors.CodeInvalidCidrFormat,
				"post-check failed to reparse vpcCidr", err, "vpcCidr", vpcCidr)
		}
		baseNet := cidr.ToIPNet(cidr.Normalize(base))

		nets := make([]*net.IPNet, 0, len(groupRows))
		for _, r := range groupRows {
			c, err := cidr.Parse(r.SubnetCidr)
			if err != nil {
				return ipamerrors.Wrap(ipamerrors.CodeInvalidCidrFormat,
					"post-check failed to reparse emitted subnet", err, "subnetCidr", r.SubnetCidr)
			}
			nets = append(nets, cidr.ToIPNet(c))
		}

		if err := gocidr.VerifyNoOverlap(nets, baseNet); err != nil {
			return ipamerrors.Wrap(ipamerrors.CodeCidrAlreadyAllocated,
				"post-check detected overlapping or out-of-bounds subnets", err, "vpcCidr", vpcCidr)
		}
	}
	return nil
}
