// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/easytofu/cidrplan/internal/allocator"
	"github.com/easytofu/cidrplan/internal/model"
)

var _ datasource.DataSource = &PlanDataSource{}

// PlanDataSource wraps allocator.Generate as a Terraform data source.
type PlanDataSource struct{}

// NewPlanDataSource creates a new cidrplan_plan data source.
func NewPlanDataSource() datasource.DataSource {
	return &PlanDataSource{}
}

// PlanDataSourceModel is the top-level cidrplan_plan schema.
type PlanDataSourceModel struct {
	ID            types.String       `tfsdk:"id"`
	BaseCidr      types.String       `tfsdk:"base_cidr"`
	PrefixLengths *prefixLengthsModel `tfsdk:"prefix_lengths"`
	Accounts      []accountModel     `tfsdk:"accounts"`
	SubnetTypes   []subnetTypeModel  `tfsdk:"subnet_types"`
	Plans         []planModel        `tfsdk:"plans"`
}

type prefixLengthsModel struct {
	Account types.Int64 `tfsdk:"account"`
	Region  types.Int64 `tfsdk:"region"`
	AZ      types.Int64 `tfsdk:"az"`
}

type accountModel struct {
	Name   types.String `tfsdk:"name"`
	Clouds []cloudModel `tfsdk:"clouds"`
}

type cloudModel struct {
	Provider types.String   `tfsdk:"provider"`
	BaseCidr types.String   `tfsdk:"base_cidr"`
	Regions  []types.String `tfsdk:"regions"`
}

// subnetTypeModel is a list element rather than a map so that HCL
// configuration can express the role order I4 requires; Terraform's
// attribute maps, like Go's map[string]T, have no stable order.
type subnetTypeModel struct {
	Role   types.String `tfsdk:"role"`
	Prefix types.Int64  `tfsdk:"prefix"`
}

type planModel struct {
	AccountName      types.String `tfsdk:"account_name"`
	VpcName          types.String `tfsdk:"vpc_name"`
	CloudProvider    types.String `tfsdk:"cloud_provider"`
	RegionName       types.String `tfsdk:"region_name"`
	AvailabilityZone types.String `tfsdk:"availability_zone"`
	RegionCidr       types.String `tfsdk:"region_cidr"`
	VpcCidr          types.String `tfsdk:"vpc_cidr"`
	AzCidr           types.String `tfsdk:"az_cidr"`
	SubnetCidr       types.String `tfsdk:"subnet_cidr"`
	SubnetRole       types.String `tfsdk:"subnet_role"`
	UsableIps        types.Int64  `tfsdk:"usable_ips"`
}

func (d *PlanDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_plan"
}

func (d *PlanDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Computes a complete, non-overlapping hierarchical CIDR allocation plan.",
		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Description: "Synthetic identifier for this computed plan.",
				Computed:    true,
			},
			"base_cidr": schema.StringAttribute{
				Description: "Root IPv4 CIDR block to carve allocations from.",
				Required:    true,
			},
			"prefix_lengths": schema.SingleNestedAttribute{
				Description: "Optional explicit prefix lengths per hierarchy level; omitted levels are derived from sibling counts.",
				Optional:    true,
				Attributes: map[string]schema.Attribute{
					"account": schema.Int64Attribute{Optional: true, Validators: []validator.Int64{int64validator.Between(0, 32)}},
					"region":  schema.Int64Attribute{Optional: true, Validators: []validator.Int64{int64validator.Between(0, 32)}},
					"az":      schema.Int64Attribute{Optional: true, Validators: []validator.Int64{int64validator.Between(0, 32)}},
				},
			},
			"accounts": schema.ListNestedAttribute{
				Description: "Organizational accounts, allocated in list order.",
				Required:    true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{Required: true},
						"clouds": schema.ListNestedAttribute{
							Required: true,
							NestedObject: schema.NestedAttributeObject{
								Attributes: map[string]schema.Attribute{
									"provider":  schema.StringAttribute{Required: true},
									"base_cidr": schema.StringAttribute{Optional: true},
									"regions":   schema.ListAttribute{Required: true, ElementType: types.StringType},
								},
							},
						},
					},
				},
			},
			"subnet_types": schema.ListNestedAttribute{
				Description: "Subnet roles and their target prefix lengths, allocated in list order within each availability zone.",
				Required:    true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"role":   schema.StringAttribute{Required: true},
						"prefix": schema.Int64Attribute{Required: true, Validators: []validator.Int64{int64validator.Between(0, 32)}},
					},
				},
			},
			"plans": schema.ListNestedAttribute{
				Description: "The computed allocation rows, in walk order.",
				Computed:    true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"account_name":      schema.StringAttribute{Computed: true},
						"vpc_name":          schema.StringAttribute{Computed: true},
						"cloud_provider":    schema.StringAttribute{Computed: true},
						"region_name":       schema.StringAttribute{Computed: true},
						"availability_zone": schema.StringAttribute{Computed: true},
						"region_cidr":       schema.StringAttribute{Computed: true},
						"vpc_cidr":          schema.StringAttribute{Computed: true},
						"az_cidr":           schema.StringAttribute{Computed: true},
						"subnet_cidr":       schema.StringAttribute{Computed: true},
						"subnet_role":       schema.StringAttribute{Computed: true},
						"usable_ips":        schema.Int64Attribute{Computed: true},
					},
				},
			},
		},
	}
}

func (d *PlanDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data PlanDataSourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	input := toInputRecord(data)

	tflog.Debug(ctx, "computing cidr plan", map[string]interface{}{
		"base_cidr":     input.BaseCidr,
		"account_count": len(input.Accounts),
	})

	rows, err := allocator.Generate(input)
	if err != nil {
		resp.Diagnostics.AddError(
			"Allocation Failed",
			fmt.Sprintf("Unable to compute CIDR plan: %s", err),
		)
		return
	}

	data.ID = types.StringValue(uuid.NewString())
	data.Plans = make([]planModel, len(rows))
	for i, r := range rows {
		data.Plans[i] = planModel{
			AccountName:      types.StringValue(r.AccountName),
			VpcName:          types.StringValue(r.VpcName),
			CloudProvider:    types.StringValue(r.CloudProvider),
			RegionName:       types.StringValue(r.RegionName),
			AvailabilityZone: types.StringValue(r.AvailabilityZone),
			RegionCidr:       types.StringValue(r.RegionCidr),
			VpcCidr:          types.StringValue(r.VpcCidr),
			AzCidr:           types.StringValue(r.AzCidr),
			SubnetCidr:       types.StringValue(r.SubnetCidr),
			SubnetRole:       types.StringValue(r.SubnetRole),
			UsableIps:        types.Int64Value(int64(r.UsableIps)),
		}
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func toInputRecord(data PlanDataSourceModel) model.InputRecord {
	input := model.InputRecord{BaseCidr: data.BaseCidr.ValueString()}

	if data.PrefixLengths != nil {
		if !data.PrefixLengths.Account.IsNull() {
			v := int(data.PrefixLengths.Account.ValueInt64())
			input.PrefixLengths.Account = &v
		}
		if !data.PrefixLengths.Region.IsNull() {
			v := int(data.PrefixLengths.Region.ValueInt64())
			input.PrefixLengths.Region = &v
		}
		if !data.PrefixLengths.AZ.IsNull() {
			v := int(data.PrefixLengths.AZ.ValueInt64())
			input.PrefixLengths.AZ = &v
		}
	}

	for _, a := range data.Accounts {
		clouds := make(map[string]model.CloudConfig, len(a.Clouds))
		for _, c := range a.Clouds {
			regions := make([]string, len(c.Regions))
			for i, r := range c.Regions {
				regions[i] = r.ValueString()
			}
			clouds[c.Provider.ValueString()] = model.CloudConfig{
				BaseCidr: c.BaseCidr.ValueString(),
				Regions:  regions,
			}
		}
		input.Accounts = append(input.Accounts, model.Account{
			Name:   a.Name.ValueString(),
			Clouds: clouds,
		})
	}

	for _, st := range data.SubnetTypes {
		input.SubnetTypes = append(input.SubnetTypes, model.RoleEntry{
			Name:   st.Role.ValueString(),
			Prefix: int(st.Prefix.ValueInt64()),
		})
	}

	return input
}
