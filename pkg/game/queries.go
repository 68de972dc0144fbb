package game

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/lua"
	"github.com/nerdpudding/factorio-llm/pkg/serpent"
)

// nearbyEntityCap bounds one scan so a dense factory cannot flood the
// model's context.
const nearbyEntityCap = 30

const listEntitiesChunk = `
(function()
    local entities = game.surfaces[1].find_entities_filtered{type=%s}
    local result = {}
    local count = 0
    for _, e in pairs(entities) do
        if count >= %s then break end
        table.insert(result, {name=e.name, x=e.position.x, y=e.position.y})
        count = count + 1
    end
    return result
end)()`

const nearbyEntitiesChunk = `
(function()
    local p = game.connected_players[1]
    local pos = p.position
    local area = {{pos.x - %[1]s, pos.y - %[1]s}, {pos.x + %[1]s, pos.y + %[1]s}}
    local entities = p.surface.find_entities_filtered{area=area}
    local result = {}
    local count = 0
    for _, e in pairs(entities) do
        if e.name ~= "character" and e.type ~= "resource" and e.type ~= "tree" and e.type ~= "fish" then
            if count < %[2]s then
                table.insert(result, {name=e.name, type=e.type, x=e.position.x, y=e.position.y})
                count = count + 1
            end
        end
    end
    return result
end)()`

const nearbyResourcesChunk = `
(function()
    local p = game.connected_players[1]
    local pos = p.position
    local area = {{pos.x - %[1]s, pos.y - %[1]s}, {pos.x + %[1]s, pos.y + %[1]s}}
    local resources = p.surface.find_entities_filtered{area=area, type="resource"}
    local totals = {}
    for _, r in pairs(resources) do
        if not totals[r.name] then
            totals[r.name] = {total=0, tiles=0, sum_x=0, sum_y=0}
        end
        totals[r.name].total = totals[r.name].total + r.amount
        totals[r.name].tiles = totals[r.name].tiles + 1
        totals[r.name].sum_x = totals[r.name].sum_x + r.position.x
        totals[r.name].sum_y = totals[r.name].sum_y + r.position.y
    end
    local result = {}
    for name, data in pairs(totals) do
        table.insert(result, {name=name, total_amount=data.total, tile_count=data.tiles, center_x=data.sum_x/data.tiles, center_y=data.sum_y/data.tiles})
    end
    return result
end)()`

const playerInventoryChunk = `
(function()
    local inv = game.connected_players[1].get_main_inventory()
    local result = {}
    for i = 1, #inv do
        local stack = inv[i]
        if stack.valid_for_read then
            result[stack.name] = (result[stack.name] or 0) + stack.count
        end
    end
    local items = {}
    for name, count in pairs(result) do
        table.insert(items, {name=name, count=count})
    end
    return items
end)()`

const entityInventoryChunk = `
(function()
    local entities = game.surfaces[1].find_entities_filtered{position={%s,%s}, radius=1}
    for _, e in pairs(entities) do
        local inv = e.get_output_inventory() or e.get_inventory(defines.inventory.chest)
        if inv then
            local result = {}
            for i = 1, #inv do
                local stack = inv[i]
                if stack.valid_for_read then
                    result[stack.name] = (result[stack.name] or 0) + stack.count
                end
            end
            local items = {}
            for name, count in pairs(result) do
                table.insert(items, {name=name, count=count})
            end
            return items
        end
    end
    return {}
end)()`

const assemblersChunk = `
(function()
    local machines = game.surfaces[1].find_entities_filtered{type="assembling-machine"}
    local result = {}
    local count = 0
    for _, m in pairs(machines) do
        if count >= %s then break end
        local recipe = m.get_recipe()
        table.insert(result, {name=m.name, x=m.position.x, y=m.position.y, recipe=recipe and recipe.name or "none"})
        count = count + 1
    end
    return result
end)()`

const powerStatsChunk = `
(function()
    local network = game.connected_players[1].surface.find_entities_filtered{type="electric-pole"}[1]
    if network and network.electric_network_statistics then
        local stats = network.electric_network_statistics
        return {
            production=stats.get_flow_count{input=true, precision_index=defines.flow_precision_index.one_second},
            consumption=stats.get_flow_count{input=false, precision_index=defines.flow_precision_index.one_second},
            satisfaction=network.electric_network_statistics.satisfaction or 1
        }
    end
    return {production=0, consumption=0, satisfaction=1}
end)()`

const researchStatusChunk = `
(function()
    local force = game.forces["player"]
    local current = force.current_research
    local progress = force.research_progress
    local queue = {}
    if force.research_queue then
        for i, tech in pairs(force.research_queue) do
            if i <= 5 then table.insert(queue, tech.name) end
        end
    end
    return {current=current and current.name or "none", progress=progress or 0, queue=queue}
end)()`

// Version asks the server for its version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	reply, err := c.console.Execute(ctx, lua.VersionCommand)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "unknown", nil
	}
	return reply, nil
}

// Tick returns the current game tick.
func (c *Client) Tick(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "game.tick")
}

// Info collects the headline map state in four round trips.
func (c *Client) Info(ctx context.Context) (*domain.GameInfo, error) {
	tick, err := c.Tick(ctx)
	if err != nil {
		return nil, err
	}
	version, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}
	surface, err := c.queryScalar(ctx, "game.surfaces[1].name")
	if err != nil {
		return nil, err
	}
	if surface == "" {
		surface = "unknown"
	}
	players, err := c.queryInt(ctx, "#game.players")
	if err != nil {
		return nil, err
	}
	return &domain.GameInfo{
		Tick:        tick,
		SurfaceName: surface,
		PlayerCount: players,
		Version:     version,
	}, nil
}

// CountEntities counts entities on the main surface. The argument is tried
// as an exact name first, then as a type, so both "wooden-chest" and "tree"
// work.
func (c *Client) CountEntities(ctx context.Context, entityType string) (int, error) {
	byName := fmt.Sprintf("#game.surfaces[1].find_entities_filtered{name=%s}", lua.Quote(entityType))
	count, err := c.queryInt(ctx, byName)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return count, nil
	}

	byType := fmt.Sprintf("#game.surfaces[1].find_entities_filtered{type=%s}", lua.Quote(entityType))
	return c.queryInt(ctx, byType)
}

// CountEntitiesByName counts entities matching an exact prototype name,
// without the type fallback of CountEntities.
func (c *Client) CountEntitiesByName(ctx context.Context, name string) (int, error) {
	expr := fmt.Sprintf("#game.surfaces[1].find_entities_filtered{name=%s}", lua.Quote(name))
	return c.queryInt(ctx, expr)
}

// ListEntities returns up to limit entities of the given type with their
// positions.
func (c *Client) ListEntities(ctx context.Context, entityType string, limit int) ([]domain.EntityInfo, error) {
	expr := fmt.Sprintf(oneline(listEntitiesChunk), lua.Quote(entityType), lua.Int(limit))
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}

	entities := []domain.EntityInfo{}
	for _, item := range v.Items() {
		name := item.FieldStr("name", "")
		if name == "" {
			continue
		}
		entities = append(entities, domain.EntityInfo{
			Name:      name,
			PositionX: item.FieldFloat("x", 0),
			PositionY: item.FieldFloat("y", 0),
		})
	}
	return entities, nil
}

// ProductionStats reports lifetime production and consumption counters for
// one item on the starting surface.
func (c *Client) ProductionStats(ctx context.Context, item string) (*domain.ProductionStats, error) {
	// Dot syntax is required here: method-call syntax passes the force as
	// an implicit first argument and breaks the surface lookup.
	input := fmt.Sprintf(`game.forces["player"].get_item_production_statistics("nauvis").get_input_count(%s)`, lua.Quote(item))
	output := fmt.Sprintf(`game.forces["player"].get_item_production_statistics("nauvis").get_output_count(%s)`, lua.Quote(item))

	inputCount, err := c.queryInt(ctx, input)
	if err != nil {
		return nil, err
	}
	outputCount, err := c.queryInt(ctx, output)
	if err != nil {
		return nil, err
	}
	return &domain.ProductionStats{
		Item:        item,
		InputCount:  int64(inputCount),
		OutputCount: int64(outputCount),
	}, nil
}

// PlayerPosition returns the first connected player's position. Missing
// coordinates default to the origin.
func (c *Client) PlayerPosition(ctx context.Context) (domain.Position, error) {
	v, err := c.queryTable(ctx, "game.connected_players[1].position")
	if err != nil {
		return domain.Position{}, err
	}
	return domain.Position{
		X: v.FieldFloat("x", 0),
		Y: v.FieldFloat("y", 0),
	}, nil
}

// NearbyEntities scans the player's surroundings for man-made structures.
// Resources, trees, fish, and the character itself are excluded, and
// coordinates are rounded to a tenth of a tile.
func (c *Client) NearbyEntities(ctx context.Context, radius float64) ([]domain.NearbyEntity, error) {
	expr := fmt.Sprintf(oneline(nearbyEntitiesChunk), lua.Number(radius), lua.Int(nearbyEntityCap))
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}

	entities := []domain.NearbyEntity{}
	for _, item := range v.Items() {
		name := item.FieldStr("name", "")
		if name == "" {
			continue
		}
		entities = append(entities, domain.NearbyEntity{
			Name: name,
			Type: item.FieldStr("type", "unknown"),
			X:    roundTenth(item.FieldFloat("x", 0)),
			Y:    roundTenth(item.FieldFloat("y", 0)),
		})
	}
	return entities, nil
}

// NearbyResources aggregates resource tiles around the player into one
// total per resource kind, sorted by total amount descending.
func (c *Client) NearbyResources(ctx context.Context, radius float64) ([]domain.ResourceField, error) {
	expr := fmt.Sprintf(oneline(nearbyResourcesChunk), lua.Number(radius))
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}

	fields := []domain.ResourceField{}
	for _, item := range v.Items() {
		name := item.FieldStr("name", "")
		if name == "" || item.Field("total_amount").IsAbsent() {
			continue
		}
		fields = append(fields, domain.ResourceField{
			Name:        name,
			TotalAmount: item.FieldInt64("total_amount", 0),
			TileCount:   item.FieldInt("tile_count", 0),
			CenterX:     roundTenth(item.FieldFloat("center_x", 0)),
			CenterY:     roundTenth(item.FieldFloat("center_y", 0)),
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].TotalAmount > fields[j].TotalAmount
	})
	return fields, nil
}

// PlayerInventory lists the player's main inventory, one entry per item
// name.
func (c *Client) PlayerInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	v, err := c.queryTable(ctx, oneline(playerInventoryChunk))
	if err != nil {
		return nil, err
	}
	return projectInventory(v), nil
}

// EntityInventory lists the contents of the chest or machine found within
// one tile of the given position.
func (c *Client) EntityInventory(ctx context.Context, x, y float64) ([]domain.InventoryItem, error) {
	expr := fmt.Sprintf(oneline(entityInventoryChunk), lua.Number(x), lua.Number(y))
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}
	return projectInventory(v), nil
}

// Assemblers lists assembling machines with their current recipes. Recipe
// is empty for idle machines.
func (c *Client) Assemblers(ctx context.Context, limit int) ([]domain.AssemblerInfo, error) {
	expr := fmt.Sprintf(oneline(assemblersChunk), lua.Int(limit))
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}

	assemblers := []domain.AssemblerInfo{}
	for _, item := range v.Items() {
		name := item.FieldStr("name", "")
		if name == "" {
			continue
		}
		recipe := item.FieldStr("recipe", "")
		if recipe == "none" {
			recipe = ""
		}
		assemblers = append(assemblers, domain.AssemblerInfo{
			Name:   name,
			X:      item.FieldFloat("x", 0),
			Y:      item.FieldFloat("y", 0),
			Recipe: recipe,
		})
	}
	return assemblers, nil
}

// PowerStats reads the electric network connected to the first pole found,
// converting watts to megawatts.
func (c *Client) PowerStats(ctx context.Context) (*domain.PowerStats, error) {
	v, err := c.queryTable(ctx, oneline(powerStatsChunk))
	if err != nil {
		return nil, err
	}
	return &domain.PowerStats{
		ProductionMW:  v.FieldFloat("production", 0) / 1_000_000,
		ConsumptionMW: v.FieldFloat("consumption", 0) / 1_000_000,
		Satisfaction:  v.FieldFloat("satisfaction", 1),
	}, nil
}

// ResearchStatus reports the technology in progress and up to five queued
// entries. CurrentResearch is empty when the lab queue is idle.
func (c *Client) ResearchStatus(ctx context.Context) (*domain.ResearchStatus, error) {
	v, err := c.queryTable(ctx, oneline(researchStatusChunk))
	if err != nil {
		return nil, err
	}

	current := v.FieldStr("current", "")
	if current == "none" {
		current = ""
	}

	queue := []string{}
	for _, item := range v.Field("queue").Items() {
		if item.Str() != "" {
			queue = append(queue, item.Str())
		}
	}

	return &domain.ResearchStatus{
		CurrentResearch: current,
		Progress:        v.FieldFloat("progress", 0),
		ResearchQueue:   queue,
	}, nil
}

func projectInventory(v serpent.Value) []domain.InventoryItem {
	items := []domain.InventoryItem{}
	for _, item := range v.Items() {
		name := item.FieldStr("name", "")
		if name == "" {
			continue
		}
		items = append(items, domain.InventoryItem{
			Name:  name,
			Count: item.FieldInt("count", 0),
		})
	}
	return items
}
