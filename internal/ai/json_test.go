package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		assert.Equal(t, `{"title":"x"}`, ExtractJSON(`{"title":"x"}`))
	})

	t.Run("fenced with language tag", func(t *testing.T) {
		response := "```json\n{\"title\":\"x\"}\n```"
		assert.Equal(t, `{"title":"x"}`, ExtractJSON(response))
	})

	t.Run("fenced without language tag", func(t *testing.T) {
		response := "```\n{\n  \"title\": \"x\"\n}\n```"
		assert.Equal(t, "{\n  \"title\": \"x\"\n}", ExtractJSON(response))
	})

	t.Run("prose around the object", func(t *testing.T) {
		response := "Here is the result:\n{\"title\":\"x\"}\nHope that helps!"
		assert.Equal(t, `{"title":"x"}`, ExtractJSON(response))
	})

	t.Run("no json at all", func(t *testing.T) {
		assert.Equal(t, "nothing here", ExtractJSON("nothing here"))
	})
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Gumové koberce pre Audi A4", HTMLToText("<p>Gumové koberce</p><ul><li>pre Audi A4</li></ul>"))
	assert.Equal(t, "plain text", HTMLToText("  plain text "))
}
