package region

import "testing"

func TestDistrictsReferenceKnownRegions(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range GetDistricts() {
		if seen[d.Id] {
			t.Errorf("duplicate district id %q", d.Id)
		}
		seen[d.Id] = true
		if _, ok := LookupRegion(d.RegionId); !ok {
			t.Errorf("district %q references unknown region %q", d.Id, d.RegionId)
		}
		if !d.Center.Valid() {
			t.Errorf("district %q has invalid center %+v", d.Id, d.Center)
		}
	}
}

func TestNames(t *testing.T) {
	if got := RegionName("ostra"); got != "Östra Sverige" {
		t.Errorf("RegionName(ostra) = %q", got)
	}
	if got := DistrictName("nowhere"); got != "nowhere" {
		t.Errorf("unknown district should echo key, got %q", got)
	}
	if got := len(DistrictsInRegion("vastra")); got != 4 {
		t.Errorf("vastra has %d districts, want 4", got)
	}
}
