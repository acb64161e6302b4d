package allocator

import (
	"testing"

	"github.com/easytofu/cidrplan/internal/cidr"
	"github.com/easytofu/cidrplan/internal/ipamerrors"
	"github.com/easytofu/cidrplan/internal/model"
)

func intPtr(n int) *int { return &n }

func baselineInput() model.InputRecord {
	return model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		PrefixLengths: model.PrefixLengths{
			Account: intPtr(8),
			Region:  intPtr(20),
			AZ:      intPtr(24),
		},
		Accounts: []model.Account{
			{
				Name: "prod",
				Clouds: map[string]model.CloudConfig{
					"aws": {Regions: []string{"us-east-1", "us-west-2"}},
				},
			},
		},
		SubnetTypes: model.RoleCatalog{
			{Name: "Public", Prefix: 26},
			{Name: "Private", Prefix: 27},
		},
	}
}

// S1: baseline scenario. us-east-1 has a catalog-specific AZ ceiling of 6
// while us-west-2 uses the generic default of 3, so row count is
// (6+3) AZs x 2 roles = 18, not the illustrative 3-AZs-everywhere count;
// see DESIGN.md "Open Questions" for why the per-region ceiling wins.
func TestBaselineScenario(t *testing.T) {
	rows, err := Generate(baselineInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rows) != 18 {
		t.Fatalf("got %d rows, want 18", len(rows))
	}

	azSet := map[string]bool{}
	for _, r := range rows {
		if r.RegionName == "us-east-1" {
			azSet[r.AvailabilityZone] = true
		}
		switch r.SubnetRole {
		case "Public":
			if got := r.SubnetCidr[len(r.SubnetCidr)-3:]; got != "/26" {
				t.Errorf("Public subnet has wrong prefix: %s", r.SubnetCidr)
			}
			if r.UsableIps != 62 {
				t.Errorf("Public usable_ips = %d, want 62", r.UsableIps)
			}
		case "Private":
			if got := r.SubnetCidr[len(r.SubnetCidr)-3:]; got != "/27" {
				t.Errorf("Private subnet has wrong prefix: %s", r.SubnetCidr)
			}
			if r.UsableIps != 30 {
				t.Errorf("Private usable_ips = %d, want 30", r.UsableIps)
			}
		}
	}
	for _, want := range []string{"us-east-1a", "us-east-1b", "us-east-1c"} {
		if !azSet[want] {
			t.Errorf("missing expected AZ %s", want)
		}
	}
}

// S2: account CIDR override.
func TestAccountCidrOverride(t *testing.T) {
	input := baselineInput()
	input.Accounts[0].Clouds["aws"] = model.CloudConfig{
		BaseCidr: "172.16.0.0/12",
		Regions:  []string{"us-east-1"},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected rows")
	}
	overrideBlock, _ := cidr.Parse("172.16.0.0/12")
	for _, r := range rows {
		if r.VpcCidr != "172.16.0.0/12" {
			t.Errorf("vpcCidr = %s, want 172.16.0.0/12", r.VpcCidr)
		}
		subnet, err := cidr.Parse(r.SubnetCidr)
		if err != nil {
			t.Fatalf("reparse subnet %s: %v", r.SubnetCidr, err)
		}
		if !cidr.Contains(overrideBlock, subnet) {
			t.Errorf("subnet %s not contained in override block", r.SubnetCidr)
		}
	}
}

// S3: insufficient space.
func TestInsufficientSpace(t *testing.T) {
	input := baselineInput()
	input.BaseCidr = "10.0.0.0/30"
	_, err := Generate(input)
	if err == nil {
		t.Fatal("expected InsufficientSpace error, got nil")
	}
	if !ipamerrors.Is(err, ipamerrors.CodeInsufficientSpace) {
		t.Errorf("got %v, want CodeInsufficientSpace", err)
	}
}

// S4: Azure AZ naming.
func TestAzureAZNaming(t *testing.T) {
	input := model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		Accounts: []model.Account{
			{Name: "prod", Clouds: map[string]model.CloudConfig{
				"azure": {Regions: []string{"eastus"}},
			}},
		},
		SubnetTypes: model.RoleCatalog{{Name: "Public", Prefix: 26}},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	azSet := map[string]bool{}
	for _, r := range rows {
		azSet[r.AvailabilityZone] = true
		if r.CloudProvider != "azure" {
			t.Errorf("cloudProvider = %s, want azure", r.CloudProvider)
		}
	}
	for _, want := range []string{"eastus-1", "eastus-2", "eastus-3"} {
		if !azSet[want] {
			t.Errorf("missing expected AZ %s, got %v", want, azSet)
		}
	}
}

// S5: GCP AZ naming.
func TestGCPAZNaming(t *testing.T) {
	input := model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		Accounts: []model.Account{
			{Name: "prod", Clouds: map[string]model.CloudConfig{
				"gcp": {Regions: []string{"us-central1"}},
			}},
		},
		SubnetTypes: model.RoleCatalog{{Name: "Public", Prefix: 26}},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	azSet := map[string]bool{}
	for _, r := range rows {
		azSet[r.AvailabilityZone] = true
	}
	for _, want := range []string{"us-central1a", "us-central1b", "us-central1c"} {
		if !azSet[want] {
			t.Errorf("missing expected AZ %s, got %v", want, azSet)
		}
	}
}

// S6: role order preserved and contiguous.
func TestRoleOrderPreserved(t *testing.T) {
	input := model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		PrefixLengths: model.PrefixLengths{
			Account: intPtr(8), Region: intPtr(20), AZ: intPtr(24),
		},
		Accounts: []model.Account{
			{Name: "prod", Clouds: map[string]model.CloudConfig{
				"aws": {Regions: []string{"us-east-1"}},
			}},
		},
		SubnetTypes: model.RoleCatalog{
			{Name: "Public", Prefix: 26},
			{Name: "Private", Prefix: 26},
		},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var pub, priv *model.AllocationRecord
	for i := range rows {
		if rows[i].AvailabilityZone != "us-east-1a" {
			continue
		}
		switch rows[i].SubnetRole {
		case "Public":
			pub = &rows[i]
		case "Private":
			priv = &rows[i]
		}
	}
	if pub == nil || priv == nil {
		t.Fatal("expected both Public and Private rows in us-east-1a")
	}
	pubC, _ := cidr.Parse(pub.SubnetCidr)
	privC, _ := cidr.Parse(priv.SubnetCidr)
	if !(pubC.Addr < privC.Addr) {
		t.Errorf("Public (%s) should precede Private (%s)", pub.SubnetCidr, priv.SubnetCidr)
	}
	if privC.Addr != pubC.Addr+uint32(cidr.Size(pubC)) {
		t.Errorf("Public and Private are not contiguous: %s, %s", pub.SubnetCidr, priv.SubnetCidr)
	}
}

func TestEmptyAccountsYieldsEmptyOutput(t *testing.T) {
	input := model.InputRecord{BaseCidr: "10.0.0.0/8"}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil/empty output, got %v", rows)
	}
}

func TestEmptySubnetTypesYieldsNoRows(t *testing.T) {
	input := baselineInput()
	input.SubnetTypes = nil
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestSingleRegionSingleRoleYieldsOneRowPerAZ(t *testing.T) {
	input := model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		PrefixLengths: model.PrefixLengths{
			Account: intPtr(8), Region: intPtr(16), AZ: intPtr(20),
		},
		Accounts: []model.Account{
			{Name: "prod", Clouds: map[string]model.CloudConfig{
				"aws": {Regions: []string{"eu-west-2"}},
			}},
		},
		SubnetTypes: model.RoleCatalog{{Name: "Public", Prefix: 26}},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("eu-west-2 defaults to 3 AZs, got %d rows", len(rows))
	}
}

// Role prefix smaller than AZ prefix clamps instead of erroring.
func TestRoleSmallerThanAZPrefixClamps(t *testing.T) {
	input := baselineInput()
	input.SubnetTypes = model.RoleCatalog{{Name: "Huge", Prefix: 16}}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, r := range rows {
		subnet, _ := cidr.Parse(r.SubnetCidr)
		az, _ := cidr.Parse(r.AzCidr)
		if subnet.Prefix != az.Prefix {
			t.Errorf("expected clamp to AZ prefix %d, got %d", az.Prefix, subnet.Prefix)
		}
	}
}

// Determinism: two runs produce structurally equal output.
func TestDeterminism(t *testing.T) {
	input := baselineInput()
	first, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := Generate(baselineInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// Universal properties: uniqueness, non-overlap, containment.
func TestUniquenessNonOverlapContainment(t *testing.T) {
	rows, err := Generate(baselineInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	seen := map[string]bool{}
	parsed := make([]cidr.Cidr, len(rows))
	for i, r := range rows {
		if seen[r.SubnetCidr] {
			t.Errorf("duplicate subnetCidr %s", r.SubnetCidr)
		}
		seen[r.SubnetCidr] = true

		c, err := cidr.Parse(r.SubnetCidr)
		if err != nil {
			t.Fatalf("reparse %s: %v", r.SubnetCidr, err)
		}
		parsed[i] = c

		az, _ := cidr.Parse(r.AzCidr)
		region, _ := cidr.Parse(r.RegionCidr)
		vpc, _ := cidr.Parse(r.VpcCidr)
		if !cidr.Contains(az, c) {
			t.Errorf("subnet %s not contained in az %s", r.SubnetCidr, r.AzCidr)
		}
		if !cidr.Contains(region, az) {
			t.Errorf("az %s not contained in region %s", r.AzCidr, r.RegionCidr)
		}
		if !cidr.Contains(vpc, region) {
			t.Errorf("region %s not contained in vpc %s", r.RegionCidr, r.VpcCidr)
		}
	}

	for i := range parsed {
		for j := i + 1; j < len(parsed); j++ {
			if cidr.Overlap(parsed[i], parsed[j]) {
				t.Errorf("rows %d and %d overlap: %s, %s", i, j, rows[i].SubnetCidr, rows[j].SubnetCidr)
			}
		}
	}
}

func TestMultipleAccountsDoNotOverlap(t *testing.T) {
	input := model.InputRecord{
		BaseCidr: "10.0.0.0/8",
		PrefixLengths: model.PrefixLengths{
			Region: intPtr(20), AZ: intPtr(24),
		},
		Accounts: []model.Account{
			{Name: "prod", Clouds: map[string]model.CloudConfig{
				"aws": {Regions: []string{"us-east-1"}},
			}},
			{Name: "staging", Clouds: map[string]model.CloudConfig{
				"aws": {Regions: []string{"us-east-1"}},
			}},
		},
		SubnetTypes: model.RoleCatalog{{Name: "Public", Prefix: 26}},
	}
	rows, err := Generate(input)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var parsed []cidr.Cidr
	for _, r := range rows {
		c, _ := cidr.Parse(r.SubnetCidr)
		parsed = append(parsed, c)
	}
	for i := range parsed {
		for j := i + 1; j < len(parsed); j++ {
			if cidr.Overlap(parsed[i], parsed[j]) {
				t.Errorf("cross-account overlap: %s, %s", rows[i].SubnetCidr, rows[j].SubnetCidr)
			}
		}
	}
}
