package domain

// Role is the userType the backend assigns to an account.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Principal is the authenticated actor behind a console session.
type Principal struct {
	UserID         int64  `json:"userID"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Role           Role   `json:"userType"`
	OrganizationID *int64 `json:"organizationID,omitempty"`
	// Elevated is resolved once when the session is established.
	Elevated bool `json:"elevated"`
}

// HasOrganization reports whether the principal is affiliated with an organization.
func (p *Principal) HasOrganization() bool {
	return p != nil && p.OrganizationID != nil && *p.OrganizationID > 0
}

// Record is a loosely typed JSON object. Payloads sent to the backend and
// form drafts use it so that individual fields can be diffed and stripped.
type Record map[string]any

type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventInactive  EventStatus = "inactive"
	EventScheduled EventStatus = "scheduled"
	EventRedirect  EventStatus = "redirect"
)

type Event struct {
	EventID                  int64       `json:"eventID"`
	Name                     string      `json:"name"`
	Location                 string      `json:"location"`
	Type                     string      `json:"type"`
	Date                     string      `json:"date"`
	Image                    *string     `json:"image"`
	TicketMinPrice           *float64    `json:"ticketMinPrice"`
	TicketMaxPrice           *float64    `json:"ticketMaxPrice"`
	TicketSaleURL            *string     `json:"ticketSaleUrl"`
	IsPublic                 bool        `json:"isPublic"`
	Status                   EventStatus `json:"status"`
	ActiveFrom               *string     `json:"activeFrom"`
	ActiveTo                 *string     `json:"activeTo"`
	ShowEventOnCalendar      bool        `json:"showEventOnCalendar"`
	RedirectCustomText       *string     `json:"redirectCustomText,omitempty"`
	RedirectCustomButtonText *string     `json:"redirectCustomButtonText,omitempty"`
	OrganizationID           int64       `json:"organizationID"`
	CreatedAt                Timestamp   `json:"created_at"`
	UpdatedAt                *Timestamp  `json:"updated_at,omitempty"`
}

type Ticket struct {
	TicketID           int64      `json:"ticketID"`
	UserID             int64      `json:"userID"`
	EventID            int64      `json:"eventID"`
	Header             string     `json:"header"`
	Description        string     `json:"description"`
	Price              *float64   `json:"price"`
	Quantity           int        `json:"quantity"`
	IsSelling          bool       `json:"isSelling"`
	RequiresMembership bool       `json:"requiresMembership"`
	Association        string     `json:"association,omitempty"`
	CreatedAt          Timestamp  `json:"created_at"`
	UpdatedAt          *Timestamp `json:"updated_at,omitempty"`
}

type User struct {
	UserID         int64      `json:"userID"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	PhoneNumber    string     `json:"phoneNumber"`
	City           string     `json:"city"`
	UserType       Role       `json:"userType"`
	OrganizationID *int64     `json:"organizationID,omitempty"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      *Timestamp `json:"updated_at,omitempty"`
}

// Principal derives the session principal from a backend user.
func (u User) Principal() Principal {
	return Principal{
		UserID:         u.UserID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.UserType,
		OrganizationID: u.OrganizationID,
	}
}

type Organization struct {
	OrganizationID int64      `json:"organizationID"`
	Name           string     `json:"name"`
	Location       *string    `json:"location"`
	Members        []User     `json:"members"`
	License        string     `json:"license"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      *Timestamp `json:"updated_at,omitempty"`
}

type AdvertisementType string

const (
	AdGlobal AdvertisementType = "global"
	AdLocal  AdvertisementType = "local"
	AdToast  AdvertisementType = "toast"
)

type Advertisement struct {
	AdvertisementID int64             `json:"advertisementID"`
	Advertiser      string            `json:"advertiser"`
	ContentHTML     string            `json:"contentHtml"`
	IsActive        bool              `json:"isActive"`
	Views           int64             `json:"views"`
	Clicks          int64             `json:"clicks"`
	RedirectURL     string            `json:"redirectUrl"`
	Type            AdvertisementType `json:"type"`
	Location        *string           `json:"location"`
	CreatedAt       Timestamp         `json:"created_at"`
	UpdatedAt       *Timestamp        `json:"updated_at,omitempty"`
}

type File struct {
	FileID    int64      `json:"fileID"`
	FileName  string     `json:"fileName"`
	FilePath  string     `json:"filePath"`
	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// MetaCount is one collection counter as reported by superadmin/meta.
type MetaCount struct {
	Count int64 `json:"count"`
}

// OverviewCard is one tile on the overview page.
type OverviewCard struct {
	CollectionName  string `json:"collectionName"`
	CollectionCount int64  `json:"collectionCount"`
}

type APIError struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Meta      map[string]string `json:"meta,omitempty"`
		RequestID string            `json:"request_id,omitempty"`
	} `json:"error"`
}
