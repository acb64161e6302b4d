// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package allocator implements the hierarchical allocation walk (C4):
// accounts -> providers -> regions -> availability zones -> roles,
// carving a contiguous run of CIDRs at each level and emitting one
// allocation record per (AZ, role). It is the sole place the other three
// core packages (cidr, ledger, catalog) are composed together.
package allocator

import (
	"sort"
	"strconv"

	"github.com/easytofu/cidrplan/internal/catalog"
	"github.com/easytofu/cidrplan/internal/cidr"
	"github.com/easytofu/cidrplan/internal/ipamerrors"
	"github.com/easytofu/cidrplan/internal/ledger"
	"github.com/easytofu/cidrplan/internal/model"
)

// Generate walks input per spec §4.4 and returns one AllocationRecord per
// (account, provider, region, AZ, role) tuple, in walk order. Any failure
// aborts the run; no partial output is ever returned.
func Generate(input model.InputRecord) ([]model.AllocationRecord, error) {
	return GenerateWithCatalog(input, catalog.Default())
}

// GenerateWithCatalog is Generate with an explicit Catalog, so tests can
// exercise a fixture catalog instead of the process-wide default.
func GenerateWithCatalog(input model.InputRecord, cat *catalog.Catalog) ([]model.AllocationRecord, error) {
	if input.BaseCidr == "" {
		return nil, ipamerrors.New(ipamerrors.CodeConfigurationError, "baseCidr is required")
	}
	base, err := cidr.Parse(input.BaseCidr)
	if err != nil {
		return nil, err
	}
	base = cidr.Normalize(base)

	if len(input.Accounts) == 0 {
		return nil, nil
	}

	accountPrefix, err := resolvePrefix(input.PrefixLengths.Account, base.Prefix, len(input.Accounts))
	if err != nil {
		return nil, ipamerrors.Wrap(ipamerrors.CodeInsufficientSpace,
			"not enough address space to carve one block per account", err,
			"accounts", strconv.Itoa(len(input.Accounts)))
	}
	accountCidrs, err := cidr.Subdivide(base, accountPrefix)
	if err != nil {
		return nil, err
	}

	l := ledger.New()
	var out []model.AllocationRecord

	for k, account := range input.Accounts {
		if account.Name == "" {
			return nil, ipamerrors.New(ipamerrors.CodeConfigurationError, "account name must not be empty")
		}
		accountCidr := accountCidrs[k]

		providers := make([]string, 0, len(account.Clouds))
		for id := range account.Clouds {
			providers = append(providers, id)
		}
		sort.Strings(providers)

		for _, providerID := range providers {
			cc := account.Clouds[providerID]
			rows, err := allocateCloud(l, cat, input, account, accountCidr, providerID, cc)
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
	}
	return out, nil
}

func allocateCloud(l *ledger.Ledger, cat *catalog.Catalog, input model.InputRecord, account model.Account, accountCidr cidr.Cidr, providerID string, cc model.CloudConfig) ([]model.AllocationRecord, error) {
	effectiveBase := accountCidr
	if cc.BaseCidr != "" {
		parsed, err := cidr.Parse(cc.BaseCidr)
		if err != nil {
			return nil, err
		}
		effectiveBase = cidr.Normalize(parsed)
	}

	provider := resolveProvider(cat, providerID, cc.Regions)
	vpcName := account.Name + "-vpc"

	if len(cc.Regions) == 0 {
		return nil, nil
	}

	regionPrefix, err := resolvePrefix(input.PrefixLengths.Region, effectiveBase.Prefix, len(cc.Regions))
	if err != nil {
		return nil, ipamerrors.Wrap(ipamerrors.CodeInsufficientSpace,
			"not enough address space to carve one block per region", err,
			"account", account.Name, "provider", providerID, "regions", strconv.Itoa(len(cc.Regions)))
	}
	regionCidrs, err := cidr.Subdivide(effectiveBase, regionPrefix)
	if err != nil {
		return nil, err
	}

	maxAZCount := 0
	for _, region := range cc.Regions {
		n := cat.DefaultAZCount(provider, region)
		if n > maxAZCount {
			maxAZCount = n
		}
	}
	azPrefix, err := resolvePrefix(input.PrefixLengths.AZ, regionPrefix, maxAZCount)
	if err != nil {
		return nil, ipamerrors.Wrap(ipamerrors.CodeInsufficientSpace,
			"not enough address space to carve one block per availability zone", err,
			"account", account.Name, "provider", providerID)
	}

	var out []model.AllocationRecord
	for i, region := range cc.Regions {
		regionCidr := regionCidrs[i]
		if !cidr.Contains(effectiveBase, regionCidr) {
			return nil, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
				"region block is not contained within the account's effective base",
				"account", account.Name, "provider", providerID, "region", region)
		}

		azCount := cat.DefaultAZCount(provider, region)
		azNames := cat.AZNames(provider, region, azCount)
		azCidrs, err := cidr.Subdivide(regionCidr, azPrefix)
		if err != nil {
			return nil, err
		}
		if len(azNames) > len(azCidrs) {
			return nil, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
				"not enough address space in region block for its availability zones",
				"account", account.Name, "provider", providerID, "region", region)
		}

		for azIdx, azName := range azNames {
			azCidr := azCidrs[azIdx]
			rows, err := allocateRoles(l, input.SubnetTypes, azPrefix, account.Name, vpcName,
				provider.String(), region, azName, regionCidr, effectiveBase, azCidr)
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
	}
	return out, nil
}

func allocateRoles(l *ledger.Ledger, roles model.RoleCatalog, azPrefix uint8, accountName, vpcName, providerName, region, azName string, regionCidr, vpcCidr, azCidr cidr.Cidr) ([]model.AllocationRecord, error) {
	remaining := []cidr.Cidr{azCidr}
	out := make([]model.AllocationRecord, 0, len(roles))

	for _, role := range roles {
		effPrefix := role.Prefix
		if int(azPrefix) > effPrefix {
			effPrefix = int(azPrefix)
		}

		chosen, rest, err := splitHead(remaining, uint8(effPrefix))
		if err != nil {
			return nil, ipamerrors.Wrap(ipamerrors.CodeInsufficientSpace,
				"not enough address space left in availability zone for role", err,
				"account", accountName, "region", region, "az", azName, "role", role.Name)
		}
		remaining = rest

		if err := l.TryInsert(chosen); err != nil {
			return nil, ipamerrors.Wrap(ipamerrors.CodeCidrAlreadyAllocated,
				"allocated subnet overlaps a previous allocation", err,
				"account", accountName, "region", region, "az", azName, "role", role.Name)
		}

		out = append(out, model.AllocationRecord{
			AccountName:      accountName,
			VpcName:          vpcName,
			CloudProvider:    providerName,
			RegionName:       region,
			AvailabilityZone: azName,
			RegionCidr:       regionCidr.String(),
			VpcCidr:          vpcCidr.String(),
			AzCidr:           azCidr.String(),
			SubnetCidr:       chosen.String(),
			SubnetRole:       role.Name,
			UsableIps:        cidr.UsableIPs(chosen),
		})
	}
	return out, nil
}

// splitHead takes the first free block in remaining and carves a single
// effPrefix-sized child from its head, per spec §4.4's split_head.
func splitHead(remaining []cidr.Cidr, effPrefix uint8) (chosen cidr.Cidr, rest []cidr.Cidr, err error) {
	if len(remaining) == 0 {
		return cidr.Cidr{}, nil, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
			"no free address space remains in this availability zone")
	}

	head := remaining[0]
	tail := remaining[1:]

	switch {
	case head.Prefix == effPrefix:
		return head, tail, nil
	case head.Prefix < effPrefix:
		children, err := cidr.Subdivide(head, effPrefix)
		if err != nil {
			return cidr.Cidr{}, nil, err
		}
		newRemaining := make([]cidr.Cidr, 0, len(children)-1+len(tail))
		newRemaining = append(newRemaining, children[1:]...)
		newRemaining = append(newRemaining, tail...)
		return children[0], newRemaining, nil
	default:
		return cidr.Cidr{}, nil, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
			"requested prefix is larger than the remaining free block")
	}
}

// resolvePrefix applies the "explicit override, else derive from sibling
// count" precedence used at the account, region, and AZ levels. Per §4.4
// Failure Semantics, a prefix that would split a parent into a larger
// (smaller-prefix) or out-of-range block surfaces as InsufficientSpace,
// not C1's generic InvalidPrefix — mirroring splitHead's own guard.
func resolvePrefix(override *int, parentPrefix uint8, siblingCount int) (uint8, error) {
	if override != nil {
		if *override < int(parentPrefix) || *override > 32 {
			return 0, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
				"override prefix cannot split the parent block",
				"parentPrefix", strconv.Itoa(int(parentPrefix)), "override", strconv.Itoa(*override))
		}
		return uint8(*override), nil
	}
	if siblingCount <= 0 {
		return parentPrefix, nil
	}
	bits, err := cidr.RequiredPrefixBits(siblingCount)
	if err != nil {
		return 0, err
	}
	result := int(parentPrefix) + int(bits)
	if result > 32 {
		return 0, ipamerrors.New(ipamerrors.CodeInsufficientSpace,
			"derived prefix exceeds 32 bits", "parentPrefix", strconv.Itoa(int(parentPrefix)), "siblingCount", strconv.Itoa(siblingCount))
	}
	return uint8(result), nil
}

// resolveProvider implements §4.4's provider-resolution rule: a non-empty
// cloud-map key is authoritative; an empty/unrecognized key falls back to
// inferring from the first region name, defaulting to AWS if that also
// fails to classify.
func resolveProvider(cat *catalog.Catalog, providerID string, regions []string) catalog.Provider {
	if p := catalog.FromIdentifier(providerID); p != catalog.Unknown {
		return p
	}
	if len(regions) > 0 {
		if p := cat.Classify(regions[0]); p != catalog.Unknown {
			return p
		}
	}
	return catalog.AWS
}

