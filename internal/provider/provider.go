// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package provider implements the cidrplan Terraform provider: a thin
// front-end over the allocation engine, exposing the same hierarchical
// walk as a data source (cidrplan_plan) and a provider-defined function
// (cidrplan_usable_ips) for ad-hoc CIDR math in HCL expressions.
package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"

	internalfunction "github.com/easytofu/cidrplan/internal/function"
)

// Ensure CidrPlanProvider satisfies the expected provider interfaces.
var _ provider.Provider = &CidrPlanProvider{}
var _ provider.ProviderWithFunctions = &CidrPlanProvider{}

// CidrPlanProvider defines the provider implementation. It carries no
// configuration of its own: every attribute the allocation engine needs
// is supplied per-data-source, since generate is a pure function of its
// input rather than a stateful remote backend.
type CidrPlanProvider struct {
	version string
}

// New creates a new provider instance.
func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &CidrPlanProvider{version: version}
	}
}

func (p *CidrPlanProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "cidrplan"
	resp.Version = p.version
}

func (p *CidrPlanProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Deterministic hierarchical IPv4 CIDR planner: carves non-overlapping " +
			"subnet allocations across accounts, cloud providers, regions, and availability zones.",
		MarkdownDescription: `Deterministic hierarchical IPv4 CIDR planner.

Given a root address block, a list of organizational accounts with their cloud
provider regions, and a catalog of subnet roles, ` + "`cidrplan_plan`" + ` computes a
complete, non-overlapping set of subnet allocations. The provider carries no
configuration of its own — every input is supplied per data source.`,
		Attributes: map[string]schema.Attribute{},
	}
}

func (p *CidrPlanProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
}

func (p *CidrPlanProvider) Resources(ctx context.Context) []func() resource.Resource {
	return nil
}

func (p *CidrPlanProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewPlanDataSource,
	}
}

func (p *CidrPlanProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		internalfunction.NewUsableIPsFunction,
	}
}
