package region

import "github.com/timoknapp/orienteering-finder/pkg/models"

type Region struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// District is an orienteering district. County is the administrative county used to
// sanity check geocoding results, Center is the fallback position for the district.
type District struct {
	Id       string             `json:"id"`
	Name     string             `json:"name"`
	RegionId string             `json:"regionId"`
	County   string             `json:"county"`
	Seat     string             `json:"seat"`
	Center   models.Coordinates `json:"center"`
}

var regions = []Region{
	{Id: "norra", Name: "Norra Sverige"},
	{Id: "mellersta", Name: "Mellersta Sverige"},
	{Id: "ostra", Name: "Östra Sverige"},
	{Id: "vastra", Name: "Västra Sverige"},
	{Id: "sodra", Name: "Södra Sverige"},
}

var districts = []District{
	{Id: "norrbotten", Name: "Norrbottens OF", RegionId: "norra", County: "Norrbottens län", Seat: "Luleå", Center: models.Coordinates{Lat: 65.5848, Lng: 22.1547}},
	{Id: "vasterbotten", Name: "Västerbottens OF", RegionId: "norra", County: "Västerbottens län", Seat: "Umeå", Center: models.Coordinates{Lat: 63.8258, Lng: 20.2630}},
	{Id: "angermanland", Name: "Ångermanlands OF", RegionId: "norra", County: "Västernorrlands län", Seat: "Örnsköldsvik", Center: models.Coordinates{Lat: 63.2909, Lng: 18.7153}},
	{Id: "jamtland", Name: "Jämtland-Härjedalens OF", RegionId: "norra", County: "Jämtlands län", Seat: "Östersund", Center: models.Coordinates{Lat: 63.1792, Lng: 14.6357}},
	{Id: "medelpad", Name: "Medelpads OF", RegionId: "norra", County: "Västernorrlands län", Seat: "Sundsvall", Center: models.Coordinates{Lat: 62.3908, Lng: 17.3069}},
	{Id: "halsingland", Name: "Hälsinglands OF", RegionId: "mellersta", County: "Gävleborgs län", Seat: "Hudiksvall", Center: models.Coordinates{Lat: 61.7290, Lng: 17.1036}},
	{Id: "gastrikland", Name: "Gästriklands OF", RegionId: "mellersta", County: "Gävleborgs län", Seat: "Gävle", Center: models.Coordinates{Lat: 60.6749, Lng: 17.1413}},
	{Id: "dalarna", Name: "Dalarnas OF", RegionId: "mellersta", County: "Dalarnas län", Seat: "Falun", Center: models.Coordinates{Lat: 60.6065, Lng: 15.6355}},
	{Id: "varmland", Name: "Värmlands OF", RegionId: "mellersta", County: "Värmlands län", Seat: "Karlstad", Center: models.Coordinates{Lat: 59.4022, Lng: 13.5115}},
	{Id: "vastmanland", Name: "Västmanlands OF", RegionId: "mellersta", County: "Västmanlands län", Seat: "Västerås", Center: models.Coordinates{Lat: 59.6099, Lng: 16.5448}},
	{Id: "orebro", Name: "Örebro läns OF", RegionId: "mellersta", County: "Örebro län", Seat: "Örebro", Center: models.Coordinates{Lat: 59.2753, Lng: 15.2134}},
	{Id: "stockholm", Name: "Stockholms OF", RegionId: "ostra", County: "Stockholms län", Seat: "Stockholm", Center: models.Coordinates{Lat: 59.3293, Lng: 18.0686}},
	{Id: "uppland", Name: "Upplands OF", RegionId: "ostra", County: "Uppsala län", Seat: "Uppsala", Center: models.Coordinates{Lat: 59.8586, Lng: 17.6389}},
	{Id: "sodermanland", Name: "Södermanlands OF", RegionId: "ostra", County: "Södermanlands län", Seat: "Eskilstuna", Center: models.Coordinates{Lat: 59.3666, Lng: 16.5077}},
	{Id: "ostergotland", Name: "Östergötlands OF", RegionId: "ostra", County: "Östergötlands län", Seat: "Linköping", Center: models.Coordinates{Lat: 58.4108, Lng: 15.6214}},
	{Id: "gotland", Name: "Gotlands OF", RegionId: "ostra", County: "Gotlands län", Seat: "Visby", Center: models.Coordinates{Lat: 57.6348, Lng: 18.2948}},
	{Id: "goteborg", Name: "Göteborgs OF", RegionId: "vastra", County: "Västra Götalands län", Seat: "Göteborg", Center: models.Coordinates{Lat: 57.7089, Lng: 11.9746}},
	{Id: "vastergotland", Name: "Västergötlands OF", RegionId: "vastra", County: "Västra Götalands län", Seat: "Borås", Center: models.Coordinates{Lat: 57.7210, Lng: 12.9401}},
	{Id: "bohuslan-dal", Name: "Bohuslän-Dals OF", RegionId: "vastra", County: "Västra Götalands län", Seat: "Uddevalla", Center: models.Coordinates{Lat: 58.3498, Lng: 11.9356}},
	{Id: "halland", Name: "Hallands OF", RegionId: "vastra", County: "Hallands län", Seat: "Halmstad", Center: models.Coordinates{Lat: 56.6745, Lng: 12.8578}},
	{Id: "smaland", Name: "Smålands OF", RegionId: "sodra", County: "Jönköpings län", Seat: "Växjö", Center: models.Coordinates{Lat: 56.8777, Lng: 14.8091}},
	{Id: "blekinge", Name: "Blekinge OF", RegionId: "sodra", County: "Blekinge län", Seat: "Karlskrona", Center: models.Coordinates{Lat: 56.1612, Lng: 15.5869}},
	{Id: "skane", Name: "Skånes OF", RegionId: "sodra", County: "Skåne län", Seat: "Lund", Center: models.Coordinates{Lat: 55.7047, Lng: 13.1910}},
}

var (
	regionsById   = make(map[string]Region, len(regions))
	districtsById = make(map[string]District, len(districts))
)

func init() {
	for _, r := range regions {
		regionsById[r.Id] = r
	}
	for _, d := range districts {
		districtsById[d.Id] = d
	}
}

// GetRegions returns a copy of the region table.
func GetRegions() []Region {
	return append([]Region(nil), regions...)
}

// GetDistricts returns a copy of the district table.
func GetDistricts() []District {
	return append([]District(nil), districts...)
}

func LookupRegion(id string) (Region, bool) {
	r, ok := regionsById[id]
	return r, ok
}

func LookupDistrict(id string) (District, bool) {
	d, ok := districtsById[id]
	return d, ok
}

// DistrictsInRegion returns the districts of a region in table order.
func DistrictsInRegion(regionId string) []District {
	var out []District
	for _, d := range districts {
		if d.RegionId == regionId {
			out = append(out, d)
		}
	}
	return out
}

// RegionName returns the display name for a region key, or the key itself when unknown.
func RegionName(id string) string {
	if r, ok := regionsById[id]; ok {
		return r.Name
	}
	return id
}

// DistrictName returns the display name for a district key, or the key itself when unknown.
func DistrictName(id string) string {
	if d, ok := districtsById[id]; ok {
		return d.Name
	}
	return id
}
