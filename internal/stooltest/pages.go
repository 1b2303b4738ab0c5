package stooltest

import (
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
)

var homePage = `
<html>
<head>
	<title>Stool Test Suite</title>
</head>
<body>
	<p id="intro">The home page.</p>
	<form action="/search">
		<input name="q" autofocus />
		<input name="count" />
		<select name="s">
			<option value="first_value">First Value</option>
			<option value="second_value">Second Value</option>
		</select>
		<input type="radio" name="size" value="s" /> S
		<input type="radio" name="size" value="m" /> M
		<input type="radio" name="size" value="l" /> L
		<input type="checkbox" name="agree" /> Agree
		<input type="submit" id="submit" />
	</form>
	<table id="prices">
		<thead><tr><th>Item</th><th>Price</th></tr></thead>
		<tbody>
			<tr><td>Tea</td><td>2</td></tr>
			<tr><td>Coffee</td><td>3</td></tr>
		</tbody>
	</table>
	Link to the <a href="/other">other page</a>.
	<a href="/delayed">delayed</a>
</body>
</html>
`

var otherPage = `
<html>
<head>
	<title>Stool Test Suite - Other Page</title>
</head>
<body>
	The other page.
</body>
</html>
`

var searchPage = `
<html>
<head>
	<title>Stool Test Suite - Search Page</title>
</head>
<body>
	<p id="result">%s</p>
</body>
</html>
`

var delayedPage = `
<html>
<head>
	<title>Stool Test Suite - Delayed Page</title>
</head>
<body>
	An element appears after half a second.

	<script>
		setTimeout(function() {
			var p = document.createElement('p');
			p.id = 'late';
			p.textContent = 'here';
			document.body.appendChild(p);
		}, 500);
	</script>
</body>
</html>
`

// Handler serves the pages the tests load.
var Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	page, ok := map[string]string{
		"/":        homePage,
		"/other":   otherPage,
		"/search":  searchPage,
		"/delayed": delayedPage,
	}[path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if path == "/search" {
		r.ParseForm()
		var fields []string
		for k, v := range r.Form {
			fields = append(fields, k+"="+strings.Join(v, ","))
		}
		sort.Strings(fields)
		page = fmt.Sprintf(page, html.EscapeString(strings.Join(fields, " ")))
	}
	// Some cookies for the tests
	for i := 0; i < 3; i++ {
		http.SetCookie(w, &http.Cookie{
			Name:  fmt.Sprintf("cookie-%d", i),
			Value: fmt.Sprintf("value-%d", i),
		})
	}
	fmt.Fprint(w, page)
})
