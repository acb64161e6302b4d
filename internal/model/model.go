// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package model defines the wire-level input and output records consumed
// and produced by the allocation engine: InputRecord decoded from the
// config collaborator (JSON/YAML, local or remote), AllocationRecord
// emitted one per (account, provider, region, AZ, role) tuple.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PrefixLengths gives optional default prefix lengths per hierarchy
// level; a nil pointer means "derive from sibling count" (see
// internal/allocator).
type PrefixLengths struct {
	Account *int `json:"account,omitempty" yaml:"account,omitempty"`
	Region  *int `json:"region,omitempty" yaml:"region,omitempty"`
	AZ      *int `json:"az,omitempty" yaml:"az,omitempty"`
}

// CloudConfig is one provider's configuration within an Account: an
// optional base CIDR override and an ordered list of region names.
type CloudConfig struct {
	BaseCidr string   `json:"baseCidr,omitempty" yaml:"baseCidr,omitempty"`
	Regions  []string `json:"regions" yaml:"regions"`
}

// Account is one organizational account: a name plus a provider ->
// CloudConfig map. Provider keys are walked in sorted lexical order (see
// DESIGN.md "Open Questions") since the wire format defines no ordering
// for them.
type Account struct {
	Name   string                 `json:"name" yaml:"name"`
	Clouds map[string]CloudConfig `json:"clouds" yaml:"clouds"`
}

// RoleEntry is one (role name, target prefix length) pair, preserving
// the position it held in the source document.
type RoleEntry struct {
	Name   string
	Prefix int
}

// RoleCatalog is the subnet_types mapping. Role order is semantically
// significant (I4: roles are allocated in key order within an AZ), but
// Go's map[string]T has no stable iteration order, so RoleCatalog is an
// ordered slice with hand-written (Un)marshal methods instead of a plain
// map[string]int.
type RoleCatalog []RoleEntry

// UnmarshalJSON reads an object token-by-token with encoding/json.Decoder
// so the original key order is preserved.
func (rc *RoleCatalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("subnetTypes: expected a JSON object")
	}

	var out RoleCatalog
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("subnetTypes: expected string key")
		}

		var prefix int
		if err := dec.Decode(&prefix); err != nil {
			return fmt.Errorf("subnetTypes[%q]: %w", key, err)
		}
		out = append(out, RoleEntry{Name: key, Prefix: prefix})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	*rc = out
	return nil
}

// MarshalJSON emits the roles back out as a JSON object in their stored
// order. Plain encoding/json does not guarantee object key order, so this
// is built manually.
func (rc RoleCatalog) MarshalJSON() ([]byte, error) {
	var b []byte
	b = append(b, '{')
	for i, entry := range rc {
		if i > 0 {
			b = append(b, ',')
		}
		keyJSON, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		b = append(b, keyJSON...)
		b = append(b, ':')
		b = append(b, []byte(fmt.Sprintf("%d", entry.Prefix))...)
	}
	b = append(b, '}')
	return b, nil
}

// UnmarshalYAML reads the mapping via a *yaml.Node, which preserves
// document order in its Content slice (alternating key, value nodes).
func (rc *RoleCatalog) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("subnetTypes: expected a YAML mapping")
	}
	var out RoleCatalog
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var prefix int
		if err := node.Content[i+1].Decode(&prefix); err != nil {
			return fmt.Errorf("subnetTypes[%q]: %w", key, err)
		}
		out = append(out, RoleEntry{Name: key, Prefix: prefix})
	}
	*rc = out
	return nil
}

// MarshalYAML emits the roles as a mapping node in their stored order.
func (rc RoleCatalog) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range rc {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name}
		valNode := &yaml.Node{}
		if err := valNode.Encode(entry.Prefix); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// InputRecord is the fully decoded configuration, as produced by the
// config or githubsource collaborators. Field shapes mirror §6 of the
// allocation specification exactly.
type InputRecord struct {
	BaseCidr       string        `json:"baseCidr" yaml:"baseCidr"`
	PrefixLengths  PrefixLengths `json:"prefixLengths,omitempty" yaml:"prefixLengths,omitempty"`
	CloudProviders []string      `json:"cloudProviders,omitempty" yaml:"cloudProviders,omitempty"`
	Accounts       []Account     `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	SubnetTypes    RoleCatalog   `json:"subnetTypes,omitempty" yaml:"subnetTypes,omitempty"`
}

// AllocationRecord is one emitted allocation row. Field order here
// matches the fixed output column order of §6 exactly; encoders must not
// reorder it.
type AllocationRecord struct {
	AccountName      string
	VpcName          string
	CloudProvider    string
	RegionName       string
	AvailabilityZone string
	RegionCidr       string
	VpcCidr          string
	AzCidr           string
	SubnetCidr       string
	SubnetRole       string
	UsableIps        uint64
}

// Columns returns the fixed CSV header/field order, for collaborators
// that serialize AllocationRecord generically.
func Columns() []string {
	return []string{
		"accountName", "vpcName", "cloudProvider", "regionName",
		"availabilityZone", "regionCidr", "vpcCidr", "azCidr",
		"subnetCidr", "subnetRole", "usableIps",
	}
}

// Row renders r as a slice of strings in Columns() order.
func (r AllocationRecord) Row() []string {
	return []string{
		r.AccountName, r.VpcName, r.CloudProvider, r.RegionName,
		r.AvailabilityZone, r.RegionCidr, r.VpcCidr, r.AzCidr,
		r.SubnetCidr, r.SubnetRole, fmt.Sprintf("%d", r.UsableIps),
	}
}
