// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package function implements the cidrplan provider-defined functions,
// exposing core CIDR arithmetic directly to HCL expressions.
package function

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/easytofu/cidrplan/internal/cidr"
)

var _ function.Function = &UsableIPsFunction{}

// UsableIPsFunction implements cidrplan_usable_ips(cidr) -> number.
type UsableIPsFunction struct{}

// NewUsableIPsFunction creates the cidrplan_usable_ips function.
func NewUsableIPsFunction() function.Function {
	return &UsableIPsFunction{}
}

func (f *UsableIPsFunction) Metadata(ctx context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "usable_ips"
}

func (f *UsableIPsFunction) Definition(ctx context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Returns the number of host-assignable addresses in an IPv4 CIDR block.",
		Description: "Given a CIDR string such as \"10.0.0.0/26\", returns size-2 for prefixes <= 30, 2 for /31, and 1 for /32.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "cidr",
				Description: "An IPv4 CIDR block in a.b.c.d/p notation.",
			},
		},
		Return: function.Int64Return{},
	}
}

func (f *UsableIPsFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var input string
	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &input))
	if resp.Error != nil {
		return
	}

	parsed, err := cidr.Parse(input)
	if err != nil {
		resp.Error = function.ConcatFuncErrors(resp.Error, function.NewArgumentFuncError(0, err.Error()))
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, int64(cidr.UsableIPs(parsed))))
}
