package domain

// Names of the callable game operations. The dispatcher recognizes exactly
// this set; anything else is reported back as an unknown tool.
const (
	ToolGetTick             = "get_tick"
	ToolGetGameInfo         = "get_game_info"
	ToolCountEntities       = "count_entities"
	ToolGetProductionStats  = "get_production_stats"
	ToolGetPlayerPosition   = "get_player_position"
	ToolFindNearbyEntities  = "find_nearby_entities"
	ToolFindNearbyResources = "find_nearby_resources"
	ToolGetPlayerInventory  = "get_player_inventory"
	ToolGetEntityInventory  = "get_entity_inventory"
	ToolCraftItem           = "craft_item"
	ToolMineResource        = "mine_resource"
	ToolPlaceEntity         = "place_entity"
	ToolRemoveEntity        = "remove_entity"
	ToolGetAssemblers       = "get_assemblers"
	ToolGetPowerStats       = "get_power_stats"
	ToolGetResearchStatus   = "get_research_status"
)
