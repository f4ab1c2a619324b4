package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	markup := `<div class="main text"><h1 id="title">WebSocket Console</h1>
<p>Address <input id="url" value="ws://localhost:8080"></p>
<div id="console" class="text log"></div>
<script>ignored()</script>
<ul><li>one</li><li>two<br>three</li></ul></div>`

	c, err := Parse("pages/dashboard.html", []byte(markup))
	require.NoError(t, err)

	assert.Equal(t, "pages/dashboard.html", c.Path)
	assert.Equal(t, markup, c.Markup)
	assert.False(t, c.IsZero())

	t.Run("find by id", func(t *testing.T) {
		n := c.FindByID("title")
		require.NotNil(t, n)
		assert.Equal(t, "h1", n.Data)
		assert.Equal(t, "WebSocket Console", TextOf(n))

		assert.Nil(t, c.FindByID("missing"))
	})

	t.Run("find by class", func(t *testing.T) {
		nodes := c.FindByClass("text")
		require.Len(t, nodes, 2)
		assert.Equal(t, "main text", attr(nodes[0], "class"))
		assert.Equal(t, "console", attr(nodes[1], "id"))

		assert.Empty(t, c.FindByClass("tex"))
	})

	t.Run("attribute", func(t *testing.T) {
		assert.Equal(t, "ws://localhost:8080", AttrOf(c.FindByID("url"), "value"))
		assert.Empty(t, AttrOf(c.FindByID("url"), "placeholder"))
		assert.Empty(t, AttrOf(nil, "value"))
	})

	t.Run("text", func(t *testing.T) {
		assert.Equal(t, "WebSocket Console\nAddress\none\ntwo\nthree", c.Text())
	})
}

func TestContentIsZero(t *testing.T) {
	assert.True(t, Content{}.IsZero())

	c, err := Parse("empty.html", nil)
	require.NoError(t, err)
	assert.False(t, c.IsZero())
	assert.Empty(t, c.Text())
}
