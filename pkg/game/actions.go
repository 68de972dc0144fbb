package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/lua"
)

// mineAllSentinel stands in for "the whole field" when the caller passes a
// count of -1.
const mineAllSentinel = "999999999"

// Hand-mining works through direct inventory inserts because entity.mine()
// does not apply to resource tiles; this also means the whole field is in
// reach without walking.
const mineResourceChunk = `
(function()
    local p = game.connected_players[1]
    local pos = p.position
    local resources = p.surface.find_entities_filtered{position=pos, type="resource", radius=30}
    if #resources == 0 then
        return {error="no_resource"}
    end
    local target = %s
    local total_mined = 0
    local wanted = %s
    local name = wanted or resources[1].name
    local inv = p.get_main_inventory()
    for _, r in ipairs(resources) do
        if r.valid and r.name == name and r.amount > 0 and total_mined < target then
            local to_mine = math.min(target - total_mined, r.amount)
            if to_mine > 0 then
                if to_mine >= r.amount then
                    inv.insert({name=name, count=r.amount})
                    total_mined = total_mined + r.amount
                    r.destroy()
                else
                    r.amount = r.amount - to_mine
                    inv.insert({name=name, count=to_mine})
                    total_mined = total_mined + to_mine
                end
            end
        end
    end
    local remaining = 0
    for _, r in ipairs(resources) do
        if r.valid and r.name == name then
            remaining = remaining + r.amount
        end
    end
    return {name=name, mined=total_mined, remaining_in_field=remaining}
end)()`

const removeEntityChunk = `
(function()
    local entities = game.surfaces[1].find_entities_filtered{position={%s,%s}, radius=0.5}
    for _, e in pairs(entities) do
        if e.valid and e.name ~= "character" then
            e.destroy()
            return true
        end
    end
    return false
end)()`

// CraftItem starts hand-crafting and reports whether anything was queued.
func (c *Client) CraftItem(ctx context.Context, itemName string, count int) (bool, error) {
	expr := fmt.Sprintf("game.connected_players[1].begin_crafting{recipe=%s, count=%s}",
		lua.Quote(itemName), lua.Int(count))
	reply, err := c.queryScalar(ctx, expr)
	if err != nil {
		return false, err
	}

	// begin_crafting echoes the number of items that will be crafted.
	crafted, err := strconv.Atoi(reply)
	if err != nil {
		return false, nil
	}
	return crafted > 0, nil
}

// MineResource hand-mines ore near the player. A count of -1 takes the
// whole field; an empty resourceType takes the first resource found. The
// outcome always comes back as a report, including the no-resource case, so
// the model sees why nothing was mined.
func (c *Client) MineResource(ctx context.Context, count int, resourceType string) (*domain.MiningReport, error) {
	target := lua.Int(count)
	if count == -1 {
		target = mineAllSentinel
	}
	wanted := "nil"
	if resourceType != "" {
		wanted = lua.Quote(resourceType)
	}

	expr := fmt.Sprintf(oneline(mineResourceChunk), target, wanted)
	v, err := c.queryTable(ctx, expr)
	if err != nil {
		return nil, err
	}

	if v.FieldStr("error", "") == "no_resource" {
		return &domain.MiningReport{Error: "No resources found within 30 tiles of player"}, nil
	}

	name := v.FieldStr("name", "")
	if name == "" {
		if v.Len() == 0 {
			return &domain.MiningReport{Error: "Failed to execute mining command"}, nil
		}
		return &domain.MiningReport{Error: "Failed to parse mining result"}, nil
	}

	remaining := v.FieldInt64("remaining_in_field", 0)
	return &domain.MiningReport{
		Status:           "success",
		Resource:         name,
		Mined:            v.FieldInt("mined", 0),
		RemainingInField: remaining,
		FieldDepleted:    remaining == 0,
	}, nil
}

// PlaceEntity places a building at the given position. It checks
// placeability first so a blocked tile reads as a clean failure instead of
// a script fault.
func (c *Client) PlaceEntity(ctx context.Context, name string, x, y float64) (bool, error) {
	position := fmt.Sprintf("{%s,%s}", lua.Number(x), lua.Number(y))

	check := fmt.Sprintf(`game.surfaces[1].can_place_entity{name=%s, position=%s, force="player"}`,
		lua.Quote(name), position)
	canPlace, err := c.queryScalar(ctx, check)
	if err != nil {
		return false, err
	}
	if canPlace != "true" {
		return false, nil
	}

	place := fmt.Sprintf(`game.surfaces[1].create_entity{name=%s, position=%s, force="player"}`,
		lua.Quote(name), position)
	reply, err := c.queryScalar(ctx, place)
	if err != nil {
		return false, err
	}

	// create_entity echoes the entity handle, or nil on failure.
	return reply != "" && !strings.Contains(strings.ToLower(reply), "nil"), nil
}

// RemoveEntity destroys the first entity found within half a tile of the
// position, skipping the player character. Removed items are not returned
// to any inventory.
func (c *Client) RemoveEntity(ctx context.Context, x, y float64) (bool, error) {
	expr := fmt.Sprintf(oneline(removeEntityChunk), lua.Number(x), lua.Number(y))
	reply, err := c.queryScalar(ctx, expr)
	if err != nil {
		return false, err
	}
	return reply == "true", nil
}
