// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package api

import (
	"html/template"
	"net/http"
)

// appShell is the minimal document served for every page route. The FitTrack
// bundle boots from it, reads /auth/session, and takes over routing on the
// client; the gateway's guards have already decided whether this URL may
// render at all.
var appShell = template.Must(template.New("shell").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>FitTrack</title>
<link rel="stylesheet" href="/assets/app.css">
</head>
<body>
<div id="root"></div>
<script type="module" src="/assets/app.js"></script>
</body>
</html>
`))

// page serves the SPA shell.
func (server *Server) page(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Cache-Control", "no-store")
	if err := appShell.Execute(writer, nil); err != nil {
		server.log.Warn("app shell render failed", "error", err)
	}
}
