package fragment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<!DOCTYPE html>
<html>
<body>
  <div class="sidebar">
    <div class="logo-details"><i class="bx bx-menu" id="btn"></i></div>
    <ul class="nav-list">
      <li><i class="bx bx-search"></i></li>
      <li><a href="#" class="sidebar-link" data-file="pages/dashboard.html" data-js="pages/js/dashboard.js">
        <i class="bx bx-grid-alt"></i><span class="links_name">Dashboard</span></a></li>
      <li><a href="#" class="sidebar-link" data-file="pages/about.html"><span>About</span></a></li>
      <li><a href="#" class="sidebar-link"><span>Broken</span></a></li>
      <li><a href="#" class="sidebar-link" data-file="pages/empty.html"></a></li>
    </ul>
  </div>
  <section class="main-content"><div class="text"></div></section>
</body>
</html>`

func TestParseLinks(t *testing.T) {
	links, err := ParseLinks(strings.NewReader(indexPage))
	require.NoError(t, err)

	assert.Equal(t, []Link{
		{Title: "Dashboard", File: "pages/dashboard.html", Script: "pages/js/dashboard.js"},
		{Title: "About", File: "pages/about.html"},
		{Title: "pages/empty.html", File: "pages/empty.html"},
	}, links)
}

func TestParseLinksEmpty(t *testing.T) {
	links, err := ParseLinks(strings.NewReader("<p>no links</p>"))
	require.NoError(t, err)
	assert.Empty(t, links)
}
