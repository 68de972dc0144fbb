// Package catalog holds the static tool catalog and the dispatcher that
// executes catalog calls against the game facade. Dispatch is total: every
// failure, including a panicking handler, comes back as a result string the
// model can read.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
)

// schemas holds the compiled parameter schema per tool, built once from the
// static catalog.
var schemas = compileSchemas(definitions)

func compileSchemas(defs []domain.ToolDefinition) map[string]*openapi3.Schema {
	out := make(map[string]*openapi3.Schema, len(defs))
	for _, def := range defs {
		raw, err := json.Marshal(def.Function.Parameters)
		if err != nil {
			panic(fmt.Sprintf("catalog: tool %s: %v", def.Function.Name, err))
		}
		schema := new(openapi3.Schema)
		if err := schema.UnmarshalJSON(raw); err != nil {
			panic(fmt.Sprintf("catalog: tool %s: %v", def.Function.Name, err))
		}
		out[def.Function.Name] = schema
	}
	return out
}

// Dispatcher routes tool calls to the game facade.
type Dispatcher struct {
	game   *game.Client
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New returns a dispatcher over the given game facade.
func New(g *game.Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{game: g}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// Definitions returns the catalog in the shape sent to the model.
func (d *Dispatcher) Definitions() []domain.ToolDefinition {
	return Definitions()
}

// Dispatch executes one named tool call and formats the outcome as text.
// It never returns an error and never lets a panic escape; the conversation
// loop must survive any tool failure.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (result string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool dispatch panicked", "tool", name, "panic", r)
			result = fmt.Sprintf("Error: %s: tool %q panicked: %v", domain.KindInternal, name, r)
		}
	}()

	out, err := d.call(ctx, name, args)
	if err != nil {
		d.logger.Warn("tool call failed", "tool", name, "err", err)
		return fmt.Sprintf("Error: %s: %s", domain.KindOf(err), err)
	}
	return FormatResult(out)
}

// Argument shapes per tool. Defaults are set before decoding, so a missing
// optional key leaves the default in place.
type countEntitiesArgs struct {
	EntityType string `mapstructure:"entity_type"`
}

type productionStatsArgs struct {
	Item string `mapstructure:"item"`
}

type radiusArgs struct {
	Radius float64 `mapstructure:"radius"`
}

type positionArgs struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

type craftItemArgs struct {
	ItemName string `mapstructure:"item_name"`
	Count    int    `mapstructure:"count"`
}

type mineResourceArgs struct {
	Count        int    `mapstructure:"count"`
	ResourceType string `mapstructure:"resource_type"`
}

type placeEntityArgs struct {
	Name string  `mapstructure:"name"`
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
}

type assemblersArgs struct {
	Limit int `mapstructure:"limit"`
}

func (d *Dispatcher) call(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case domain.ToolGetTick:
		return retErr(d.game.Tick(ctx))

	case domain.ToolGetGameInfo:
		return retErr(d.game.Info(ctx))

	case domain.ToolCountEntities:
		params := countEntitiesArgs{EntityType: "tree"}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.CountEntities(ctx, params.EntityType))

	case domain.ToolGetProductionStats:
		params := productionStatsArgs{Item: "iron-plate"}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.ProductionStats(ctx, params.Item))

	case domain.ToolGetPlayerPosition:
		return retErr(d.game.PlayerPosition(ctx))

	case domain.ToolFindNearbyEntities:
		params := radiusArgs{Radius: 20}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.NearbyEntities(ctx, params.Radius))

	case domain.ToolFindNearbyResources:
		params := radiusArgs{Radius: 50}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.NearbyResources(ctx, params.Radius))

	case domain.ToolGetPlayerInventory:
		return retErr(d.game.PlayerInventory(ctx))

	case domain.ToolGetEntityInventory:
		var params positionArgs
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.EntityInventory(ctx, params.X, params.Y))

	case domain.ToolCraftItem:
		params := craftItemArgs{Count: 1}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.CraftItem(ctx, params.ItemName, params.Count))

	case domain.ToolMineResource:
		params := mineResourceArgs{Count: 10}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.MineResource(ctx, params.Count, params.ResourceType))

	case domain.ToolPlaceEntity:
		var params placeEntityArgs
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.PlaceEntity(ctx, params.Name, params.X, params.Y))

	case domain.ToolRemoveEntity:
		var params positionArgs
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.RemoveEntity(ctx, params.X, params.Y))

	case domain.ToolGetAssemblers:
		params := assemblersArgs{Limit: 20}
		if err := decodeArgs(name, args, &params); err != nil {
			return nil, err
		}
		return retErr(d.game.Assemblers(ctx, params.Limit))

	case domain.ToolGetPowerStats:
		return retErr(d.game.PowerStats(ctx))

	case domain.ToolGetResearchStatus:
		return retErr(d.game.ResearchStatus(ctx))

	default:
		return nil, &domain.ArgumentError{Reason: fmt.Sprintf("unknown tool %q", name)}
	}
}

// retErr collapses a (value, error) pair into the any-typed result the
// dispatch switch returns.
func retErr[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// decodeArgs validates args against the tool's parameter schema and decodes
// them into out. Numeric strings are coerced first; models sometimes send
// "5" where the schema says integer.
func decodeArgs(tool string, args map[string]any, out any) error {
	schema := schemas[tool]
	cleaned := coerceNumericStrings(schema, args)

	if err := schema.VisitJSON(cleaned); err != nil {
		return &domain.ArgumentError{Tool: tool, Reason: schemaReason(err)}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return &domain.ArgumentError{Tool: tool, Reason: err.Error()}
	}
	if err := dec.Decode(cleaned); err != nil {
		return &domain.ArgumentError{Tool: tool, Reason: err.Error()}
	}
	return nil
}

func coerceNumericStrings(schema *openapi3.Schema, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, val := range args {
		out[key] = val

		s, ok := val.(string)
		if !ok {
			continue
		}
		prop, ok := schema.Properties[key]
		if !ok || prop.Value == nil || prop.Value.Type == nil {
			continue
		}
		if !prop.Value.Type.Is(openapi3.TypeNumber) && !prop.Value.Type.Is(openapi3.TypeInteger) {
			continue
		}
		if f, perr := strconv.ParseFloat(s, 64); perr == nil {
			out[key] = f
		}
	}
	return out
}

func schemaReason(err error) string {
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if path := se.JSONPointer(); len(path) > 0 {
			return fmt.Sprintf("argument %q: %s", strings.Join(path, "."), se.Reason)
		}
		return se.Reason
	}
	return err.Error()
}
