package catalog

import "github.com/nerdpudding/factorio-llm/pkg/domain"

// Definitions returns the static catalog shown to the model. The catalog is
// the single contract: the parameter types and required lists here are what
// the dispatcher enforces at call time.
func Definitions() []domain.ToolDefinition {
	return definitions
}

func tool(name, description string, parameters map[string]any) domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

func object(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func property(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

var definitions = []domain.ToolDefinition{
	tool(domain.ToolGetTick,
		"Get the current game tick (time unit in Factorio). 60 ticks = 1 second. NOTE: Tick is auto-injected in [GAME STATE], so this tool is rarely needed.",
		object(map[string]any{})),

	tool(domain.ToolGetGameInfo,
		"Get basic game information including tick, surface name, player count, and Factorio version.",
		object(map[string]any{})),

	tool(domain.ToolCountEntities,
		"Count entities of a specific type on the map. Use entity types like 'tree', 'iron-ore', 'copper-ore', 'coal', 'stone', 'assembling-machine', 'transport-belt', etc.",
		object(map[string]any{
			"entity_type": property("string", "The entity type to count (e.g., 'tree', 'iron-ore', 'assembling-machine')"),
		}, "entity_type")),

	tool(domain.ToolGetProductionStats,
		"Get production statistics for a specific item. Shows how many have been produced (input) and consumed (output).",
		object(map[string]any{
			"item": property("string", "The item name (e.g., 'iron-plate', 'copper-plate', 'iron-gear-wheel')"),
		}, "item")),

	tool(domain.ToolGetPlayerPosition,
		"Get the player's current x,y position. NOTE: Position is auto-injected in [GAME STATE] at start of each message, so this tool is rarely needed. Use injected coordinates directly for placement.",
		object(map[string]any{})),

	tool(domain.ToolFindNearbyEntities,
		"Find ALL entities near the player: buildings, chests, machines, belts, inserters, poles, etc. Does NOT include resources/ores or trees. Use this to scan what's around you.",
		object(map[string]any{
			"radius": property("number", "Search radius in tiles around the player (default: 20)"),
		})),

	tool(domain.ToolFindNearbyResources,
		"Find ore patches near player. Returns TOTAL amount per resource type (summed across all tiles), plus tile count and center position. Example: coal with total_amount=50000 means 50k ore available.",
		object(map[string]any{
			"radius": property("number", "Search radius in tiles around the player (default: 50)"),
		})),

	tool(domain.ToolGetPlayerInventory,
		"Get all items in the player's main inventory with their counts.",
		object(map[string]any{})),

	tool(domain.ToolGetEntityInventory,
		"Get the inventory contents of an entity (chest, machine) at a specific position.",
		object(map[string]any{
			"x": property("number", "X coordinate of the entity"),
			"y": property("number", "Y coordinate of the entity"),
		}, "x", "y")),

	tool(domain.ToolCraftItem,
		"Craft items by hand (manual crafting). Player must have required materials. Returns true if crafting started.",
		object(map[string]any{
			"item_name": property("string", "Name of item to craft (e.g., 'iron-gear-wheel', 'electronic-circuit', 'transport-belt')"),
			"count":     property("integer", "Number of items to craft (default: 1)"),
		}, "item_name")),

	tool(domain.ToolMineResource,
		"Mine resources near player (30 tile radius). Instantly mines ore and adds to inventory. Specify resource_type to mine a specific ore (coal, iron-ore, copper-ore, stone, uranium-ore).",
		object(map[string]any{
			"count":         property("integer", "Number of ore to mine (default: 10). Use -1 to mine the ENTIRE field at once."),
			"resource_type": property("string", "Specific resource to mine: coal, iron-ore, copper-ore, stone, uranium-ore. If omitted, mines first resource found."),
		})),

	tool(domain.ToolPlaceEntity,
		"Place a building/entity at a position. Must be within ~10 tiles of player. Fails if position is blocked. Player needs the item in inventory.",
		object(map[string]any{
			"name": property("string", "Entity name (e.g., 'wooden-chest', 'iron-chest', 'transport-belt', 'assembling-machine-1', 'inserter')"),
			"x":    property("number", "X coordinate to place at"),
			"y":    property("number", "Y coordinate to place at"),
		}, "name", "x", "y")),

	tool(domain.ToolRemoveEntity,
		"Remove/destroy an entity at a position. Does not return items to inventory.",
		object(map[string]any{
			"x": property("number", "X coordinate of the entity"),
			"y": property("number", "Y coordinate of the entity"),
		}, "x", "y")),

	tool(domain.ToolGetAssemblers,
		"Get list of assembling machines and their current recipes.",
		object(map[string]any{
			"limit": property("integer", "Maximum number of assemblers to return (default: 20)"),
		})),

	tool(domain.ToolGetPowerStats,
		"Get electricity production and consumption statistics in MW. Also shows satisfaction (1.0 = 100% power satisfied).",
		object(map[string]any{})),

	tool(domain.ToolGetResearchStatus,
		"Get current research progress, including current technology being researched and progress percentage.",
		object(map[string]any{})),
}
