// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package config loads an InputRecord from a local YAML or JSON file, the
// config collaborator spec.md §1 treats as out of scope for the
// allocation engine itself.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/easytofu/cidrplan/internal/ipamerrors"
	"github.com/easytofu/cidrplan/internal/model"
)

// LoadFile reads path and decodes it into an InputRecord, choosing
// YAML or JSON by file extension (.yaml/.yml or .json).
func LoadFile(path string) (model.InputRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeIOError,
			"failed to read config file", err, "path", path)
	}

	var input model.InputRecord
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &input); err != nil {
			return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeConfigurationError,
				"failed to parse YAML config", err, "path", path)
		}
	case ".json":
		if err := json.Unmarshal(data, &input); err != nil {
			return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeConfigurationError,
				"failed to parse JSON config", err, "path", path)
		}
	default:
		return model.InputRecord{}, ipamerrors.New(ipamerrors.CodeConfigurationError,
			"unrecognized config file extension, expected .yaml, .yml, or .json", "path", path)
	}

	if err := validate(input); err != nil {
		return model.InputRecord{}, err
	}
	return input, nil
}

// validate applies the wire-level checks spec.md §6 delegates to the
// config collaborator: CIDR syntactic validity is checked lazily by the
// allocator itself, so this only enforces what would otherwise surface as
// a confusing downstream failure.
func validate(input model.InputRecord) error {
	if input.BaseCidr == "" {
		return ipamerrors.New(ipamerrors.CodeConfigurationError, "baseCidr is required")
	}
	for i, account := range input.Accounts {
		if strings.TrimSpace(account.Name) == "" {
			return ipamerrors.New(ipamerrors.CodeConfigurationError,
				"account name must not be empty", "index", strconv.Itoa(i))
		}
	}
	for _, entry := range input.SubnetTypes {
		if entry.Prefix < 0 || entry.Prefix > 32 {
			return ipamerrors.New(ipamerrors.CodeConfigurationError,
				"subnetTypes prefix must be in [0, 32]", "role", entry.Name)
		}
	}
	return nil
}
