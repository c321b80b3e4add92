// Package templates holds the dashboard page component. The page is a thin
// shell: every widget is patched over SSE, so the only server-rendered data
// is the filter control population (countries and date bounds).
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

type DashboardData struct {
	Countries []string
	Start     string
	End       string
}

func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return page.Execute(w, data)
	})
}

var page = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Retail Analytics Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/plotly.js-dist-min@2.35.2/plotly.min.js"></script>
<style>
body { font-family: Verdana, sans-serif; margin: 0; padding: 1.5rem; background: #f6f7f9; }
h1 { font-size: 1.4rem; }
.controls { display: flex; gap: 1rem; margin-bottom: 1rem; align-items: end; }
.controls label { display: block; font-size: 0.8rem; color: #555; margin-bottom: 0.2rem; }
.kpi-grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; margin-bottom: 1rem; }
.kpi-card { background: #fff; border-radius: 8px; padding: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.kpi-label { display: block; font-size: 0.8rem; color: #777; }
.kpi-value { font-size: 1.8rem; font-weight: bold; color: #00cc96; }
.chart { background: #fff; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.banner.warn { background: #fff4e5; color: #8a5200; padding: 0.8rem 1rem; border-radius: 8px; margin-bottom: 1rem; }
.banner.error { background: #fdecea; color: #8a1f15; padding: 0.8rem 1rem; border-radius: 8px; margin-bottom: 1rem; }
</style>
</head>
<body data-signals="{country: 'all', start: '{{.Start}}', end: '{{.End}}', countryData: [], productsData: [], dailyData: []}"
      data-on-load="@get('/sse/dashboard')">
<h1>🛒 Retail Analytics Dashboard</h1>

<div class="controls">
  <div>
    <label for="country">Country</label>
    <select id="country" data-bind-country data-on-change="@get('/sse/dashboard')">
      <option value="all">All countries</option>
      {{range .Countries}}<option value="{{.}}">{{.}}</option>
      {{end}}
    </select>
  </div>
  <div>
    <label for="start">From</label>
    <input id="start" type="date" data-bind-start min="{{.Start}}" max="{{.End}}" data-on-change="@get('/sse/dashboard')">
  </div>
  <div>
    <label for="end">To</label>
    <input id="end" type="date" data-bind-end min="{{.Start}}" max="{{.End}}" data-on-change="@get('/sse/dashboard')">
  </div>
</div>

<div id="empty-banner" hidden></div>

<div id="kpi-cards" class="kpi-grid"></div>

<div class="chart"><div id="country-chart" data-effect="drawCountry($countryData)"></div></div>
<div class="chart"><div id="products-chart" data-effect="drawProducts($productsData)"></div></div>
<div class="chart"><div id="daily-chart" data-effect="drawDaily($dailyData)"></div></div>

<script>
const layout = { margin: { t: 30, l: 160, r: 20, b: 40 }, font: { family: 'Verdana', size: 12 } };

window.drawCountry = (data) => {
  if (!data || !data.length) return;
  Plotly.react('country-chart', [{
    type: 'pie', hole: 0.6,
    labels: data.map(d => d.label),
    values: data.map(d => d.value),
    textinfo: 'none',
    hovertemplate: '<b>%{label}</b><br>Revenue: £%{value:,.0f}<br>Share: %{percent}<extra></extra>',
  }], { ...layout, title: 'Revenue Share by Country', height: 420 });
};

window.drawProducts = (data) => {
  if (!data || !data.length) return;
  const rows = [...data].reverse();
  Plotly.react('products-chart', [{
    type: 'bar', orientation: 'h',
    y: rows.map(d => d.label),
    x: rows.map(d => d.value),
    hovertemplate: '<b>%{y}</b><br>Revenue: £%{x:,.0f}<extra></extra>',
  }], { ...layout, title: 'Top Products by Revenue', height: 360 });
};

window.drawDaily = (data) => {
  if (!data || !data.length) return;
  // The series is sparse; gap days carry no point and draw no line segment.
  Plotly.react('daily-chart', [{
    type: 'scatter', mode: 'lines+markers', connectgaps: false,
    x: data.map(d => d.date),
    y: data.map(d => d.value),
    hovertemplate: '%{x}<br>Revenue: £%{y:,.0f}<extra></extra>',
  }], { ...layout, title: 'Daily Revenue', height: 360 });
};
</script>
</body>
</html>`))
