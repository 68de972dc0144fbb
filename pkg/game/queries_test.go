package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

func TestTick(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if cmd != "/c rcon.print(game.tick)" {
			t.Errorf("unexpected command: %s", cmd)
		}
		return "4200\n", nil
	}}
	c := New(console)

	tick, err := c.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if tick != 4200 {
		t.Errorf("tick = %d, want 4200", tick)
	}
}

func TestTickScriptError(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return "Cannot execute command. Error: attempt to index a nil value", nil
	}}
	c := New(console)

	_, err := c.Tick(context.Background())
	var scriptErr *domain.RemoteScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("error = %v, want RemoteScriptError", err)
	}
	if !strings.Contains(scriptErr.Output, "attempt to index") {
		t.Errorf("error should carry the raw reply, got %q", scriptErr.Output)
	}
}

func TestVersion(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if cmd != "/version" {
			t.Errorf("unexpected command: %s", cmd)
		}
		return "2.0.28\n", nil
	}}
	c := New(console)

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "2.0.28" {
		t.Errorf("version = %q", v)
	}
}

func TestVersionEmptyReply(t *testing.T) {
	console := &fakeConsole{}
	c := New(console)

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "unknown" {
		t.Errorf("version = %q, want unknown", v)
	}
}

func TestInfo(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "game.tick"):
			return "1000", nil
		case cmd == "/version":
			return "2.0.28", nil
		case strings.Contains(cmd, "surfaces[1].name"):
			return "nauvis", nil
		case strings.Contains(cmd, "#game.players"):
			return "1", nil
		}
		return "", nil
	}}
	c := New(console)

	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	want := domain.GameInfo{Tick: 1000, SurfaceName: "nauvis", PlayerCount: 1, Version: "2.0.28"}
	if *info != want {
		t.Errorf("Info = %+v, want %+v", *info, want)
	}
}

func TestCountEntitiesByNameFirst(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if strings.Contains(cmd, `name="wooden-chest"`) {
			return "5", nil
		}
		t.Errorf("type query should not run when the name query matches: %s", cmd)
		return "0", nil
	}}
	c := New(console)

	count, err := c.CountEntities(context.Background(), "wooden-chest")
	if err != nil {
		t.Fatalf("CountEntities: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestCountEntitiesFallsBackToType(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if strings.Contains(cmd, `name="tree"`) {
			return "0", nil
		}
		if strings.Contains(cmd, `type="tree"`) {
			return "3117", nil
		}
		return "0", nil
	}}
	c := New(console)

	count, err := c.CountEntities(context.Background(), "tree")
	if err != nil {
		t.Fatalf("CountEntities: %v", err)
	}
	if count != 3117 {
		t.Errorf("count = %d, want 3117", count)
	}
	if len(console.executed) != 2 {
		t.Errorf("executed %d commands, want 2", len(console.executed))
	}
}

func TestCountEntitiesByNameSkipsTypeFallback(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if strings.Contains(cmd, `type=`) {
			t.Errorf("exact-name count must not fall back to a type query: %s", cmd)
		}
		return "0", nil
	}}
	c := New(console)

	count, err := c.CountEntitiesByName(context.Background(), "tree")
	if err != nil {
		t.Fatalf("CountEntitiesByName: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if len(console.executed) != 1 {
		t.Errorf("executed %d commands, want 1", len(console.executed))
	}
}

func TestCountEntitiesQuotesArgument(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		return "0", nil
	}}
	c := New(console)

	_, err := c.CountEntities(context.Background(), `x"} game.quit() --`)
	if err != nil {
		t.Fatalf("CountEntities: %v", err)
	}
	for _, cmd := range console.executed {
		if strings.Contains(cmd, `x"}`) {
			t.Errorf("argument quote escaped into the command: %s", cmd)
		}
	}
}

func TestListEntities(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		return `{{name = "big-rock", x = 10.5, y = -4}, {name = "big-rock", x = 3, y = 8}}`, nil
	}}
	c := New(console)

	entities, err := c.ListEntities(context.Background(), "simple-entity", 10)
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	if entities[0].Name != "big-rock" || entities[0].PositionX != 10.5 || entities[0].PositionY != -4 {
		t.Errorf("entity 0 = %+v", entities[0])
	}
}

func TestProductionStats(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if strings.Contains(cmd, "get_input_count") {
			return "1500", nil
		}
		if strings.Contains(cmd, "get_output_count") {
			return "900", nil
		}
		return "", nil
	}}
	c := New(console)

	stats, err := c.ProductionStats(context.Background(), "iron-plate")
	if err != nil {
		t.Fatalf("ProductionStats: %v", err)
	}
	if stats.Item != "iron-plate" || stats.InputCount != 1500 || stats.OutputCount != 900 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPlayerPositionFieldOrder(t *testing.T) {
	for _, reply := range []string{
		"{x = 12.5, y = -3.25}",
		"{y = -3.25, x = 12.5}",
		"{ y=-3.25 ,x=12.5 }",
	} {
		console := &fakeConsole{handler: func(string) (string, error) { return reply, nil }}
		c := New(console)

		pos, err := c.PlayerPosition(context.Background())
		if err != nil {
			t.Fatalf("PlayerPosition(%q): %v", reply, err)
		}
		if pos.X != 12.5 || pos.Y != -3.25 {
			t.Errorf("PlayerPosition(%q) = %+v", reply, pos)
		}
	}
}

func TestNearbyEntities(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if !strings.Contains(cmd, "pos.x - 20") {
			t.Errorf("radius not interpolated: %s", cmd)
		}
		return `{{name = "stone-furnace", type = "furnace", x = 12.34, y = -3.267}, {name = "transport-belt", type = "transport-belt", x = 1, y = 2}}`, nil
	}}
	c := New(console)

	entities, err := c.NearbyEntities(context.Background(), 20)
	if err != nil {
		t.Fatalf("NearbyEntities: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	if entities[0].X != 12.3 || entities[0].Y != -3.3 {
		t.Errorf("coordinates not rounded to a tenth: %+v", entities[0])
	}
	if entities[0].Type != "furnace" {
		t.Errorf("type = %q", entities[0].Type)
	}
}

func TestNearbyEntitiesEmpty(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) { return "{}", nil }}
	c := New(console)

	entities, err := c.NearbyEntities(context.Background(), 20)
	if err != nil {
		t.Fatalf("NearbyEntities: %v", err)
	}
	if entities == nil || len(entities) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", entities)
	}
}

func TestNearbyResourcesSortedByTotal(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return `{{name = "coal", total_amount = 8000, tile_count = 40, center_x = 3.14, center_y = 2.71}, {name = "iron-ore", total_amount = 52000, tile_count = 130, center_x = -20, center_y = 11}}`, nil
	}}
	c := New(console)

	fields, err := c.NearbyResources(context.Background(), 50)
	if err != nil {
		t.Fatalf("NearbyResources: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	if fields[0].Name != "iron-ore" || fields[1].Name != "coal" {
		t.Errorf("fields not sorted by total descending: %+v", fields)
	}
	if fields[1].CenterX != 3.1 || fields[1].CenterY != 2.7 {
		t.Errorf("centers not rounded: %+v", fields[1])
	}
}

func TestPlayerInventoryFieldOrder(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		// The serializer emits count before name for some stacks.
		return `{{count = 1, name = "wooden-chest"}, {name = "iron-plate", count = 120}}`, nil
	}}
	c := New(console)

	items, err := c.PlayerInventory(context.Background())
	if err != nil {
		t.Fatalf("PlayerInventory: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "wooden-chest" || items[0].Count != 1 {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].Name != "iron-plate" || items[1].Count != 120 {
		t.Errorf("item 1 = %+v", items[1])
	}
}

func TestEntityInventoryCoordinates(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		if !strings.Contains(cmd, "position={10.5,-3}") {
			t.Errorf("coordinates not interpolated fixed-point: %s", cmd)
		}
		return "{}", nil
	}}
	c := New(console)

	items, err := c.EntityInventory(context.Background(), 10.5, -3)
	if err != nil {
		t.Fatalf("EntityInventory: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("want empty list, got %+v", items)
	}
}

func TestAssemblers(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return `{{name = "assembling-machine-1", x = 5, y = 6, recipe = "iron-gear-wheel"}, {name = "assembling-machine-2", x = 8, y = 6, recipe = "none"}}`, nil
	}}
	c := New(console)

	assemblers, err := c.Assemblers(context.Background(), 20)
	if err != nil {
		t.Fatalf("Assemblers: %v", err)
	}
	if len(assemblers) != 2 {
		t.Fatalf("got %d assemblers, want 2", len(assemblers))
	}
	if assemblers[0].Recipe != "iron-gear-wheel" {
		t.Errorf("assembler 0 recipe = %q", assemblers[0].Recipe)
	}
	if assemblers[1].Recipe != "" {
		t.Errorf("idle assembler should have empty recipe, got %q", assemblers[1].Recipe)
	}
}

func TestPowerStatsConvertsToMegawatts(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return "{production = 5000000, consumption = 4250000, satisfaction = 0.85}", nil
	}}
	c := New(console)

	stats, err := c.PowerStats(context.Background())
	if err != nil {
		t.Fatalf("PowerStats: %v", err)
	}
	if stats.ProductionMW != 5 || stats.ConsumptionMW != 4.25 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Satisfaction != 0.85 {
		t.Errorf("satisfaction = %v", stats.Satisfaction)
	}
}

func TestPowerStatsDefaults(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return "{production = 0, consumption = 0, satisfaction = 1}", nil
	}}
	c := New(console)

	stats, err := c.PowerStats(context.Background())
	if err != nil {
		t.Fatalf("PowerStats: %v", err)
	}
	if stats.Satisfaction != 1 {
		t.Errorf("satisfaction = %v, want 1", stats.Satisfaction)
	}
}

func TestResearchStatus(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return `{current = "automation-2", progress = 0.42, queue = {"automation-2", "logistics-2"}}`, nil
	}}
	c := New(console)

	status, err := c.ResearchStatus(context.Background())
	if err != nil {
		t.Fatalf("ResearchStatus: %v", err)
	}
	if status.CurrentResearch != "automation-2" || status.Progress != 0.42 {
		t.Errorf("status = %+v", status)
	}
	if len(status.ResearchQueue) != 2 || status.ResearchQueue[1] != "logistics-2" {
		t.Errorf("queue = %v", status.ResearchQueue)
	}
}

func TestResearchStatusIdle(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return `{current = "none", progress = 0, queue = {}}`, nil
	}}
	c := New(console)

	status, err := c.ResearchStatus(context.Background())
	if err != nil {
		t.Fatalf("ResearchStatus: %v", err)
	}
	if status.CurrentResearch != "" {
		t.Errorf("idle research should be empty, got %q", status.CurrentResearch)
	}
	if status.ResearchQueue == nil || len(status.ResearchQueue) != 0 {
		t.Errorf("queue = %#v, want empty non-nil", status.ResearchQueue)
	}
}
