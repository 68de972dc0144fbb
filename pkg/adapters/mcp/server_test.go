package mcp

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdpudding/factorio-llm/pkg/catalog"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

func definitionByName(t *testing.T, name string) domain.ToolDefinition {
	t.Helper()
	for _, def := range catalog.Definitions() {
		if def.Function.Name == name {
			return def
		}
	}
	t.Fatalf("no catalog definition named %q", name)
	return domain.ToolDefinition{}
}

func TestToolOptionsMirrorCatalogSchema(t *testing.T) {
	def := definitionByName(t, "craft_item")
	tool := mcp.NewTool(def.Function.Name, toolOptions(def)...)

	assert.Equal(t, "craft_item", tool.Name)
	assert.Equal(t, def.Function.Description, tool.Description)

	require.Contains(t, tool.InputSchema.Properties, "item_name")
	require.Contains(t, tool.InputSchema.Properties, "count")
	assert.Equal(t, []string{"item_name"}, tool.InputSchema.Required)

	itemName, ok := tool.InputSchema.Properties["item_name"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", itemName["type"])
	assert.NotEmpty(t, itemName["description"])

	count, ok := tool.InputSchema.Properties["count"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", count["type"])
}

func TestToolOptionsRequiredFollowsNameOrder(t *testing.T) {
	def := definitionByName(t, "get_entity_inventory")
	tool := mcp.NewTool(def.Function.Name, toolOptions(def)...)

	assert.Equal(t, []string{"x", "y"}, tool.InputSchema.Required)
}

func TestToolOptionsNoParameters(t *testing.T) {
	def := definitionByName(t, "get_tick")
	tool := mcp.NewTool(def.Function.Name, toolOptions(def)...)

	assert.Empty(t, tool.InputSchema.Required)
	assert.Empty(t, tool.InputSchema.Properties)
}
