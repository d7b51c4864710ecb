package models

type Discipline string

const (
	Sprint    Discipline = "Sprint"
	Medel     Discipline = "Medel"
	Lang      Discipline = "Lång"
	Natt      Discipline = "Natt"
	Stafett   Discipline = "Stafett"
	Ultralang Discipline = "Ultralång"
)

// Disciplines lists every discipline in display order.
var Disciplines = []Discipline{Sprint, Medel, Lang, Natt, Stafett, Ultralang}

type Level string

const (
	Klubb          Level = "Klubb"
	Krets          Level = "Krets"
	Distrikt       Level = "Distrikt"
	Nationell      Level = "Nationell"
	Internationell Level = "Internationell"
)

// Levels lists every level from local to international.
var Levels = []Level{Klubb, Krets, Distrikt, Nationell, Internationell}

type ResourceType string

const (
	ResourceInvitation   ResourceType = "invitation"
	ResourcePM           ResourceType = "pm"
	ResourceStartList    ResourceType = "startlist"
	ResourceResults      ResourceType = "results"
	ResourceSplits       ResourceType = "splits"
	ResourceMap          ResourceType = "map"
	ResourceRegistration ResourceType = "registration"
	ResourceOther        ResourceType = "other"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within WGS84 ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type CompetitionResource struct {
	Type      ResourceType `json:"type"`
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	IsFile    bool         `json:"isFile"`
	FileType  string       `json:"fileType,omitempty"`
	AddedDate Date         `json:"addedDate"`
}

type Competition struct {
	Id                   string                `json:"id"`
	Name                 string                `json:"name"`
	Organizer            string                `json:"organizer"`
	Description          string                `json:"description"`
	Website              string                `json:"website,omitempty"`
	Location             string                `json:"location"`
	Region               string                `json:"region"`
	District             string                `json:"district"`
	Discipline           Discipline            `json:"discipline"`
	Level                Level                 `json:"level"`
	Types                []string              `json:"types,omitempty"`
	Branches             []string              `json:"branches,omitempty"`
	Date                 Date                  `json:"date"`
	RegistrationDeadline Date                  `json:"registrationDeadline"`
	Coordinates          *Coordinates          `json:"coordinates,omitempty"`
	ApproximateLocation  bool                  `json:"approximateLocation,omitempty"` // coordinates are the organizer's home town
	Distance             *float64              `json:"distance,omitempty"` // meters from the user, transient
	Featured             bool                  `json:"featured"`
	Resources            []CompetitionResource `json:"resources,omitempty"`
}

type DateRange struct {
	From *Date `json:"from,omitempty"`
	To   *Date `json:"to,omitempty"`
}

// LocationInfo is the reverse geocoding detail for a position. Any field may be empty.
type LocationInfo struct {
	City         string `json:"city,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	County       string `json:"county,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Label returns the most specific place name available.
func (l LocationInfo) Label() string {
	switch {
	case l.City != "":
		return l.City
	case l.Municipality != "":
		return l.Municipality
	case l.County != "":
		return l.County
	default:
		return l.DisplayName
	}
}

type SearchFilters struct {
	Regions              []string      `json:"regions"`
	Districts            []string      `json:"districts"`
	Disciplines          []Discipline  `json:"disciplines"`
	Levels               []Level       `json:"levels"`
	Types                []string      `json:"types,omitempty"`
	Branches             []string      `json:"branches,omitempty"`
	SearchQuery          string        `json:"searchQuery"`
	Distance             *float64      `json:"distance,omitempty"` // kilometers
	UserLocation         *Coordinates  `json:"userLocation,omitempty"`
	IsManualLocation     bool          `json:"isManualLocation,omitempty"`
	LocationCity         string        `json:"locationCity,omitempty"`
	DetectedLocationInfo *LocationInfo `json:"detectedLocationInfo,omitempty"`
	DateRange            *DateRange    `json:"dateRange,omitempty"`
}

// LocationItem is a manually entered location kept in the search history.
type LocationItem struct {
	Name    string `json:"name"`
	Display string `json:"display"`
}

// GeocodeEntry is a cached forward or reverse geocoding outcome.
type GeocodeEntry struct {
	Lat         float64      `json:"lat,omitempty"`
	Lng         float64      `json:"lng,omitempty"`
	Place       LocationInfo `json:"place"`
	LastAttempt int64        `json:"last_attempt,omitempty"` // Unix timestamp of last lookup attempt
	FailCount   int          `json:"fail_count,omitempty"`   // Number of consecutive failures
	IsFailed    bool         `json:"is_failed,omitempty"`
}

// Found reports whether the entry holds a usable result.
func (g GeocodeEntry) Found() bool {
	return !g.IsFailed && (g.Lat != 0 || g.Lng != 0 || g.Place.DisplayName != "")
}
