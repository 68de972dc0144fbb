package domain

import "encoding/json"

// Position is a point on the game surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GameInfo is the headline state of the running map.
type GameInfo struct {
	Tick        int    `json:"tick"`
	SurfaceName string `json:"surface_name"`
	PlayerCount int    `json:"player_count"`
	Version     string `json:"version"`
}

// EntityInfo is one entity with its surface coordinates.
type EntityInfo struct {
	Name      string  `json:"name"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// NearbyEntity is one man-made structure near the player, coordinates
// rounded to a tenth of a tile.
type NearbyEntity struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ResourceField aggregates one resource kind found near the player.
// Center marks the centroid of its tiles.
type ResourceField struct {
	Name        string  `json:"name"`
	TotalAmount int64   `json:"total_amount"`
	TileCount   int     `json:"tile_count"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
}

// InventoryItem is one stack count in an inventory listing.
type InventoryItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AssemblerInfo is one assembling machine and its current recipe.
// Recipe is empty when none is set.
type AssemblerInfo struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Recipe string  `json:"recipe,omitempty"`
}

// PowerStats summarizes the electric network seen from the first pole found,
// in megawatts. Satisfaction is production over consumption, capped at 1.
type PowerStats struct {
	ProductionMW  float64 `json:"production_mw"`
	ConsumptionMW float64 `json:"consumption_mw"`
	Satisfaction  float64 `json:"satisfaction"`
}

// ResearchStatus reports the current technology, its progress in [0,1], and
// up to the first five queued technologies.
type ResearchStatus struct {
	CurrentResearch string   `json:"current_research,omitempty"`
	Progress        float64  `json:"progress"`
	ResearchQueue   []string `json:"research_queue"`
}

// ProductionStats is the lifetime flow of one item through the force.
type ProductionStats struct {
	Item        string `json:"item"`
	InputCount  int64  `json:"input_count"`
	OutputCount int64  `json:"output_count"`
}

// MiningReport is the outcome of a mining action. Error is set instead of
// the other fields when no resource was found under or near the player.
type MiningReport struct {
	Status           string `json:"status,omitempty"`
	Resource         string `json:"resource,omitempty"`
	Mined            int    `json:"mined"`
	RemainingInField int64  `json:"remaining_in_field"`
	FieldDepleted    bool   `json:"field_depleted"`
	Error            string `json:"error,omitempty"`
}

// MarshalJSON emits only the error member for failed reports so the model
// does not read zeroed counters as a successful dig.
func (r MiningReport) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Error})
	}
	type plain MiningReport
	return json.Marshal(plain(r))
}

// Status is the bridge health snapshot served to operators.
type Status struct {
	Connected bool     `json:"connected"`
	Tick      int      `json:"tick,omitempty"`
	Position  Position `json:"position"`
	Model     string   `json:"model"`
	Tools     int      `json:"tools"`
}
