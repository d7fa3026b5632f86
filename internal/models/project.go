package models

// ProjectMetadata describes a parsed project export.
type ProjectMetadata struct {
	ProjectName    string `json:"project_name,omitempty"`
	GatewayIP      string `json:"gateway_ip,omitempty"`
	TotalAddresses int    `json:"total_addresses"`
	HomekitEnabled bool   `json:"homekit_enabled"`
	AlexaEnabled   bool   `json:"alexa_enabled"`
	UnknownItems   int    `json:"unknown_items,omitempty"`
}

// GroupAddress is one group address assigned to a room.
type GroupAddress struct {
	GroupName string `json:"Group name"`
	Address   string `json:"Address"`
}

// Room is the leaf of the building hierarchy.
type Room struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	AddressCount int            `json:"address_count"`
	DeviceCount  int            `json:"device_count"`
	Addresses    []GroupAddress `json:"addresses,omitempty"`
}

// Floor groups rooms.
type Floor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rooms       []Room `json:"rooms"`
}

// Building groups floors.
type Building struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Floors      []Floor `json:"floors"`
}

// ProjectPreview is the building/floor/room tree of a project.
type ProjectPreview struct {
	Metadata  ProjectMetadata `json:"metadata"`
	Buildings []Building      `json:"buildings"`
}

// Counts returns the number of floors and rooms in the tree.
func (p *ProjectPreview) Counts() (floors, rooms int) {
	for _, b := range p.Buildings {
		floors += len(b.Floors)
		for _, f := range b.Floors {
			rooms += len(f.Rooms)
		}
	}
	return floors, rooms
}
